// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package wire

// OpCode MongoDB 协议的操作码
//
// https://www.mongodb.com/docs/manual/reference/mongodb-wire-protocol/
type OpCode int32

const (
	OpReply       OpCode = 1
	OpUpdate      OpCode = 2001
	OpInsert      OpCode = 2002
	OpReserved    OpCode = 2003
	OpQuery       OpCode = 2004
	OpGetMore     OpCode = 2005
	OpDelete      OpCode = 2006
	OpKillCursors OpCode = 2007
	OpCompressed  OpCode = 2012
	OpMsg         OpCode = 2013
)

// opcodeNames 仅用于日志/诊断 不影响解析行为
var opcodeNames = map[OpCode]string{
	OpReply:       "REPLY",
	OpUpdate:      "UPDATE",
	OpInsert:      "INSERT",
	OpReserved:    "RESERVED",
	OpQuery:       "QUERY",
	OpGetMore:     "GET_MORE",
	OpDelete:      "DELETE",
	OpKillCursors: "KILL_CURSORS",
	OpCompressed:  "COMPRESSED",
	OpMsg:         "MSG",
}

func (o OpCode) String() string {
	if s, ok := opcodeNames[o]; ok {
		return s
	}
	return "UNKNOWN"
}

// supportedOpcodes 是 spec §4.2 Step 4 规定的闭集合 其余一律 Invalid
var supportedOpcodes = map[OpCode]struct{}{
	OpReply:       {},
	OpUpdate:      {},
	OpInsert:      {},
	OpReserved:    {},
	OpQuery:       {},
	OpGetMore:     {},
	OpDelete:      {},
	OpKillCursors: {},
	OpCompressed:  {},
	OpMsg:         {},
}

// IsSupported 判断 opcode 是否属于可识别的闭集合
func IsSupported(op OpCode) bool {
	_, ok := supportedOpcodes[op]
	return ok
}

// IsIgnored 判断 opcode 是否属于「识别但不解码 body」的一类
//
// OP_COMPRESSED 和 OP_RESERVED 按 spec §1/§4.2 的定义会被消费但不解码
// 其余的遗留 opcode (OP_REPLY/OP_UPDATE/OP_INSERT/OP_QUERY/OP_GET_MORE/
// OP_DELETE/OP_KILL_CURSORS) 在 header 层面被识别 body 同样不解码
func IsIgnored(op OpCode) bool {
	return op != OpMsg
}
