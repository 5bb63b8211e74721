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

import "encoding/binary"

// Cursor 是一个前向游标 基于一段不可变字节切片 (spec §4.1 Binary Decoder)
//
// 所有 Extract* 方法要么成功消费相应字节数并前进 要么在剩余字节不足时
// 原样返回错误且不移动游标 调用方据此决定是翻译成 NeedsMoreData 还是 Invalid
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor 创建并返回一个游标实例 b 必须在游标生命周期内保持不变
func NewCursor(b []byte) *Cursor {
	return &Cursor{buf: b}
}

// Remaining 返回当前剩余未消费的字节数
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

func (c *Cursor) rest() []byte {
	return c.buf[c.pos:]
}

// ExtractBytes 消费 n 字节并返回底层切片的一个借用视图 (不拷贝)
func (c *Cursor) ExtractBytes(n int) ([]byte, error) {
	if n < 0 || c.Remaining() < n {
		return nil, errInsufficientData
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// ExtractU8 消费 1 字节
func (c *Cursor) ExtractU8() (uint8, error) {
	if c.Remaining() < 1 {
		return 0, errInsufficientData
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

// ExtractU16LE 消费 2 字节 小端
func (c *Cursor) ExtractU16LE() (uint16, error) {
	if c.Remaining() < 2 {
		return 0, errInsufficientData
	}
	v := binary.LittleEndian.Uint16(c.rest())
	c.pos += 2
	return v, nil
}

// ExtractU32LE 消费 4 字节 小端
func (c *Cursor) ExtractU32LE() (uint32, error) {
	if c.Remaining() < 4 {
		return 0, errInsufficientData
	}
	v := binary.LittleEndian.Uint32(c.rest())
	c.pos += 4
	return v, nil
}

// ExtractI32LE 消费 4 字节 小端 有符号
func (c *Cursor) ExtractI32LE() (int32, error) {
	v, err := c.ExtractU32LE()
	if err != nil {
		return 0, err
	}
	return int32(v), nil
}

// ExtractU64LE 消费 8 字节 小端
func (c *Cursor) ExtractU64LE() (uint64, error) {
	if c.Remaining() < 8 {
		return 0, errInsufficientData
	}
	v := binary.LittleEndian.Uint64(c.rest())
	c.pos += 8
	return v, nil
}

// ExtractStringUntil 消费直到并包含第一个 delim 字节为止的数据 返回分隔符之前的部分
//
// 在剩余数据中找不到 delim 时失败且不消费任何字节
func (c *Cursor) ExtractStringUntil(delim byte) ([]byte, error) {
	idx := -1
	rest := c.rest()
	for i, b := range rest {
		if b == delim {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, errInsufficientData
	}
	s := rest[:idx]
	c.pos += idx + 1
	return s, nil
}

// PeekU8 查看但不消费 1 字节
func (c *Cursor) PeekU8() (uint8, error) {
	if c.Remaining() < 1 {
		return 0, errInsufficientData
	}
	return c.buf[c.pos], nil
}

// PeekI32LE 查看但不消费接下来的 4 字节 小端有符号
func (c *Cursor) PeekI32LE() (int32, error) {
	if c.Remaining() < 4 {
		return 0, errInsufficientData
	}
	return int32(binary.LittleEndian.Uint32(c.rest())), nil
}
