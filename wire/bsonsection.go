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

import (
	"math"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
)

const (
	// maxBSONDocumentSize MongoDB 单文档最大长度 (spec §3 invariant 5)
	maxBSONDocumentSize = 16 * 1024 * 1024

	// minBSONDocumentSize 最小 BSON 文档长度: 4 字节长度前缀 + 1 字节终止符
	minBSONDocumentSize = 5

	flagBitChecksumPresent = 1 << 0
	flagBitMoreToCome      = 1 << 1
	flagBitExhaustAllowed  = 1 << 16

	// reservedFlagMask 允许置位的标志位掩码 其余位必须为 0 (spec §4.3 Step 1)
	reservedFlagMask = flagBitChecksumPresent | flagBitMoreToCome | flagBitExhaustAllowed
)

// commandLabels 是可以直接作为 op_msg_type 使用的首字段命令名 (spec §4.3)
var commandLabels = map[string]struct{}{
	"insert": {},
	"delete": {},
	"update": {},
	"find":   {},
	"cursor": {},
}

// decodeOpMsgBody 解析 OP_MSG body (spec §4.3) 并填充 frame 的 Sections/FlagBits/
// Checksum/OpMsgType 字段 body 必须恰好是该帧声明的 body 字节数 一个字节不多不少
//
// 返回 false 代表结构性错误 (Invalid); body 中途数据不足同样视为 Invalid
// 因为调用方已经确保 body 切片长度与声明长度完全一致
func decodeOpMsgBody(body []byte, frame *Frame) bool {
	c := NewCursor(body)

	flagBits, err := c.ExtractU32LE()
	if err != nil {
		return false
	}
	if flagBits & ^uint32(reservedFlagMask) != 0 {
		return false
	}
	frame.FlagBits = flagBits
	frame.MoreToCome = flagBits&flagBitMoreToCome != 0
	hasChecksum := flagBits&flagBitChecksumPresent != 0
	frame.HasChecksum = hasChecksum

	checksumTrailer := 0
	if hasChecksum {
		checksumTrailer = 4
	}

	for c.Remaining() > checksumTrailer {
		kind, err := c.ExtractU8()
		if err != nil {
			return false
		}

		switch SectionKind(kind) {
		case SectionBody:
			section, ok := decodeBodySection(c)
			if !ok {
				return false
			}
			if section.Documents != nil && len(section.Documents) == 1 && frame.OpMsgType == "" {
				label, ok := deriveOpMsgType(section.Documents[0], section.rawDoc)
				if !ok {
					return false
				}
				if label != "" {
					frame.OpMsgType = label
				}
			}
			frame.Sections = append(frame.Sections, section.Section)

		case SectionDocumentSequence:
			section, ok := decodeDocumentSequenceSection(c)
			if !ok {
				return false
			}
			frame.Sections = append(frame.Sections, section)

		default:
			return false
		}
	}

	if hasChecksum {
		checksum, err := c.ExtractU32LE()
		if err != nil {
			return false
		}
		frame.Checksum = checksum
	}

	// body 必须被恰好消费完 (spec §4.2 Step 5: "must consume exactly the
	// remaining declared body bytes")
	return c.Remaining() == 0
}

// bodySectionResult 携带 kind-0 section 以及其原始 BSON 字节 以便推导 op_msg_type
type bodySectionResult struct {
	Section
	rawDoc []byte
}

// decodeBodySection 解析 kind 0 section: 单个内嵌 BSON 文档 (spec §4.3 Step 2, kind==0)
func decodeBodySection(c *Cursor) (bodySectionResult, bool) {
	length, err := c.PeekI32LE()
	if err != nil || length < minBSONDocumentSize {
		return bodySectionResult{}, false
	}
	if length > maxBSONDocumentSize {
		return bodySectionResult{}, false
	}

	doc, err := c.ExtractBytes(int(length))
	if err != nil {
		return bodySectionResult{}, false
	}

	jsonDoc, ok := bsonToCanonicalExtJSON(doc)
	if !ok {
		return bodySectionResult{}, false
	}

	return bodySectionResult{
		Section: Section{
			Kind:      SectionBody,
			Length:    length,
			Documents: []string{jsonDoc},
		},
		rawDoc: doc,
	}, true
}

// decodeDocumentSequenceSection 解析 kind 1 section: 具名文档序列 (spec §4.3 Step 2, kind==1)
func decodeDocumentSequenceSection(c *Cursor) (Section, bool) {
	sectionLength, err := c.ExtractI32LE()
	if err != nil || sectionLength < minBSONDocumentSize {
		return Section{}, false
	}

	seqID, err := c.ExtractStringUntil(0x00)
	if err != nil {
		return Section{}, false
	}
	seqIdentifier := string(seqID)
	switch seqIdentifier {
	case SeqIdentifierDocuments, SeqIdentifierUpdates, SeqIdentifierDeletes:
	default:
		return Section{}, false
	}

	windowSize := int(sectionLength) - 4 - (len(seqIdentifier) + 1)
	if windowSize < 0 || c.Remaining() < windowSize {
		return Section{}, false
	}

	window := NewCursor(c.Peek(windowSize))
	var docs []string
	for window.Remaining() > 0 {
		length, err := window.PeekI32LE()
		if err != nil || length < minBSONDocumentSize || length > maxBSONDocumentSize {
			return Section{}, false
		}
		doc, err := window.ExtractBytes(int(length))
		if err != nil {
			return Section{}, false
		}
		jsonDoc, ok := bsonToCanonicalExtJSON(doc)
		if !ok {
			return Section{}, false
		}
		docs = append(docs, jsonDoc)
	}
	c.Discard(windowSize)

	return Section{
		Kind:          SectionDocumentSequence,
		Length:        sectionLength,
		SeqIdentifier: seqIdentifier,
		Documents:     docs,
	}, true
}

// Peek 暴露游标当前位置起 n 字节的只读视图 不消费 用于构造子游标
func (c *Cursor) Peek(n int) []byte {
	if n < 0 || n > c.Remaining() {
		n = c.Remaining()
	}
	return c.buf[c.pos : c.pos+n]
}

// Discard 跳过 n 字节 不做边界检查 调用方负责保证 n 合法
func (c *Cursor) Discard(n int) {
	c.pos += n
}

// bsonToCanonicalExtJSON 把一段 BSON 文档字节转换成 canonical extended JSON
//
// 长度恰好等于最小空文档标记时返回空字符串 (spec §3 invariant 6) 避免分配
// 一个多余的 "{}"
func bsonToCanonicalExtJSON(doc []byte) (string, bool) {
	if len(doc) == minBSONDocumentSize {
		return "", true
	}

	raw := bson.Raw(doc)
	if err := raw.Validate(); err != nil {
		return "", false
	}

	b, err := bson.MarshalExtJSON(raw, true, false)
	if err != nil {
		return "", false
	}
	return string(b), true
}

// deriveOpMsgType 实现 spec §4.3 的操作标签推导
//
// 返回 (label, ok); ok=false 代表结构性错误 (既不是已知命令 也找不到 ok 成员)
// label=="" 且 ok=true 代表本 section 未能贡献标签但不是错误 (理论上不会出现
// 因为除了错误分支外总会返回非空 label 这里保留是为了对称)
func deriveOpMsgType(jsonDoc string, rawDoc []byte) (string, bool) {
	if jsonDoc == "" {
		// 空文档没有成员 既无命令 key 也没有 ok
		return "", false
	}

	raw := bson.Raw(rawDoc)
	elems, err := raw.Elements()
	if err != nil || len(elems) == 0 {
		return "", false
	}

	firstKey, err := elems[0].KeyErr()
	if err == nil {
		if _, known := commandLabels[firstKey]; known {
			return firstKey, true
		}
	}

	okVal, err := raw.LookupErr("ok")
	if err != nil {
		return "", false
	}

	switch okVal.Type {
	case bson.TypeEmbeddedDocument:
		inner := okVal.Document()
		innerElems, err := inner.Elements()
		if err != nil || len(innerElems) == 0 {
			return "ok: {}", true
		}
		innerKey, _ := innerElems[0].KeyErr()
		innerVal := innerElems[0].Value()
		return "ok: {" + innerKey + ": " + renderScalarCompact(innerVal) + "}", true

	case bson.TypeDouble, bson.TypeInt32, bson.TypeInt64:
		return "ok: " + renderScalarCompact(okVal), true

	default:
		return "ok: " + renderScalarCompact(okVal), true
	}
}

// renderScalarCompact 渲染一个 BSON 标量值用于拼接进 op_msg_type 标签
//
// 数值类型裁掉多余的小数点 (1.0 -> "1") 以匹配 MongoDB 命令响应里常见的
// {"ok": 1.0} 约定俗成的 "ok: 1" 展示形式
func renderScalarCompact(v bson.RawValue) string {
	switch v.Type {
	case bson.TypeDouble:
		return formatNumber(v.Double())
	case bson.TypeInt32:
		return strconv.Itoa(int(v.Int32()))
	case bson.TypeInt64:
		return formatNumber(float64(v.Int64()))
	case bson.TypeString:
		return v.StringValue()
	case bson.TypeBoolean:
		return strconv.FormatBool(v.Boolean())
	default:
		return v.String()
	}
}

func formatNumber(f float64) string {
	if !math.IsInf(f, 0) && !math.IsNaN(f) && f == math.Trunc(f) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
