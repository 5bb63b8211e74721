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

package record

import "github.com/valyala/bytebufferpool"

// excerptSuffix 标记一个被截断的 body excerpt
const excerptSuffix = "...(truncated)"

// truncateExcerpt 把一份 canonical extended JSON 文档裁剪到最多 maxLen 字节
//
// 短于 maxLen 的文档原样返回 不分配额外空间; 超长文档通过池化的
// bytebufferpool.ByteBuffer 拼接裁剪后缀 避免在高吞吐场景下反复分配临时 []byte
func truncateExcerpt(doc string, maxLen int) string {
	if len(doc) <= maxLen {
		return doc
	}

	cut := maxLen - len(excerptSuffix)
	if cut < 0 {
		cut = 0
	}

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	buf.WriteString(doc[:cut])
	buf.WriteString(excerptSuffix)
	return buf.String()
}
