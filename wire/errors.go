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

import "github.com/pkg/errors"

func newError(format string, args ...any) error {
	format = "mongotap/wire: " + format
	return errors.Errorf(format, args...)
}

// errInsufficientData 是 Cursor 的唯一失败态 (spec §4.1)
//
// 由上层根据所处位置翻译为 NeedsMoreData 或 Invalid
var errInsufficientData = newError("insufficient data")

// ParseState 对应 spec §4.2 的 Parser 返回枚举
type ParseState int

const (
	// StateSuccess 成功解析出一个完整 Frame
	StateSuccess ParseState = iota

	// StateNeedsMoreData 数据不足 buf 保持不变
	StateNeedsMoreData

	// StateIgnored 识别到了但不解码的 opcode (OP_COMPRESSED / Reserved / 遗留 opcode)
	//
	// 已经消费掉声明长度的字节以保持流对齐
	StateIgnored

	// StateInvalid 结构性错误
	StateInvalid
)

func (s ParseState) String() string {
	switch s {
	case StateSuccess:
		return "Success"
	case StateNeedsMoreData:
		return "NeedsMoreData"
	case StateIgnored:
		return "Ignored"
	case StateInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}
