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

// headerLength 是 MongoDB wire 消息固定头部长度: length(4) + requestID(4) +
// responseTo(4) + opCode(4)
const headerLength = 16

// Parse 尝试从 buf 头部解析出一条完整的 Frame (spec §4.2)
//
// 返回值:
//   - state: 解析结果分类
//   - frame: 仅当 state == StateSuccess 或 StateIgnored 时非 nil
//     (Ignored 帧只填充了 header 字段 以及 OP_COMPRESSED 的子头字段)
//   - consumed: 调用方应该从自己的字节流里丢弃的字节数；StateNeedsMoreData 时
//     总是 0, buf 保持原样不变, 调用方应在收到更多数据后重试
//
// buf 不会被修改 Parse 只是读取它
func Parse(buf []byte, dir Direction, timestampNs int64) (ParseState, *Frame, int) {
	c := NewCursor(buf)

	if c.Remaining() < headerLength {
		return StateNeedsMoreData, nil, 0
	}

	messageLength, err := c.ExtractU32LE()
	if err != nil {
		return StateNeedsMoreData, nil, 0
	}
	if int(messageLength) < headerLength {
		// 声明长度小于固定头部本身 不可能是合法帧 且无法信任该长度去跳过
		// 交由调用方判断是否要毒化整条连接流 (spec §7)
		return StateInvalid, nil, 0
	}
	if c.Remaining() < int(messageLength)-4 {
		return StateNeedsMoreData, nil, 0
	}

	requestID, _ := c.ExtractI32LE()
	responseTo, _ := c.ExtractI32LE()
	opCodeRaw, _ := c.ExtractI32LE()
	op := OpCode(opCodeRaw)

	declared := int(messageLength)

	if !IsSupported(op) {
		return StateInvalid, nil, declared
	}

	frame := &Frame{
		Length:      int32(messageLength) - 4,
		RequestID:   requestID,
		ResponseTo:  responseTo,
		OpCode:      op,
		TimestampNs: timestampNs,
		Direction:   dir,
	}

	bodyLength := int(frame.Length) - 12 // 12 = requestID + responseTo + opCode 已消费
	if bodyLength < 0 {
		return StateInvalid, nil, declared
	}

	if op == OpCompressed {
		decodeCompressedHeader(c, frame)
		return StateIgnored, frame, declared
	}

	if IsIgnored(op) {
		return StateIgnored, frame, declared
	}

	body, err := c.ExtractBytes(bodyLength)
	if err != nil {
		// 已经在上面验证过 remaining() 足够容纳整条声明长度 不应该发生
		return StateNeedsMoreData, nil, 0
	}

	if !decodeOpMsgBody(body, frame) {
		return StateInvalid, nil, declared
	}

	return StateSuccess, frame, declared
}

// decodeCompressedHeader 尽力解析 OP_COMPRESSED 的子头 (originalOpCode,
// uncompressedSize, compressorID) 但不解压 payload (original_source 补充,
// 详见 SPEC_FULL §SUPPLEMENTED FEATURES)
//
// 子头本身解析失败不影响整体 Ignored 分类 只是诊断字段留空
func decodeCompressedHeader(c *Cursor, frame *Frame) {
	originalOpCode, err := c.ExtractI32LE()
	if err != nil {
		return
	}
	uncompressedSize, err := c.ExtractI32LE()
	if err != nil {
		return
	}
	compressorID, err := c.ExtractU8()
	if err != nil {
		return
	}
	frame.OriginalOpCode = OpCode(originalOpCode)
	frame.UncompressedSize = uncompressedSize
	frame.CompressorID = compressorID
}
