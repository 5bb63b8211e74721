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

package driver

// timestampTrack remembers, for one direction's byte stream buffer, which
// ConnEvent delivered which byte range, so a frame that spans several
// capture events can still be stamped with a capture timestamp once the
// parser assembles it.
//
// pmongodb's decoder approximates this by tracking only "first packet sent"
// (for requests) and "last packet received" (for responses) on a single
// in-flight message; this core generalizes that to a small ring of pending
// marks so a buffer holding several already-fully-received frames keeps each
// one's own timestamp instead of collapsing them onto the most recent event.
type timestampTrack struct {
	marks []tsMark
}

type tsMark struct {
	endOffset int
	ts        int64
}

// Append records that the bytes ending at the new buffer tail were delivered
// at ts.
func (t *timestampTrack) Append(bufLenAfterAppend int, ts int64) {
	t.marks = append(t.marks, tsMark{endOffset: bufLenAfterAppend, ts: ts})
}

// TimestampFor returns the capture timestamp of the event that delivered the
// last byte of a frame spanning [0, consumed) from the buffer's current
// front, defaulting to the most recent mark if consumed reaches past
// everything tracked (stream was reset or marks dropped).
func (t *timestampTrack) TimestampFor(consumed int) int64 {
	for _, m := range t.marks {
		if m.endOffset >= consumed {
			return m.ts
		}
	}
	if len(t.marks) > 0 {
		return t.marks[len(t.marks)-1].ts
	}
	return 0
}

// Advance drops marks fully consumed by discarding n bytes from the buffer
// front and shifts the remaining marks' offsets accordingly.
func (t *timestampTrack) Advance(n int) {
	if n <= 0 {
		return
	}
	i := 0
	for i < len(t.marks) && t.marks[i].endOffset <= n {
		i++
	}
	t.marks = t.marks[i:]
	for j := range t.marks {
		t.marks[j].endOffset -= n
	}
}

// Reset drops all marks, used when a gap truncates the stream.
func (t *timestampTrack) Reset() {
	t.marks = t.marks[:0]
}
