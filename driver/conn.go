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

import (
	"github.com/pkg/errors"

	"github.com/packetd/mongotap/internal/zerocopy"
	"github.com/packetd/mongotap/record"
	"github.com/packetd/mongotap/stitch"
	"github.com/packetd/mongotap/wire"
)

func newError(format string, args ...any) error {
	format = "mongotap/driver: " + format
	return errors.Errorf(format, args...)
}

var errSeqGap = newError("sequence gap, stream truncated")

// directionSlot maps a wire.Direction onto an array index; both the byte
// buffers and the timestamp tracks below are indexed this way instead of by
// a map, since there are exactly two directions per connection.
func directionSlot(d wire.Direction) int {
	if d == wire.Request {
		return 0
	}
	return 1
}

// Conn owns the per-connection state described by spec §2's "per-connection
// driver" row and §5's concurrency model: two single-producer/single-consumer
// byte streams (one per direction), the Stitcher that pairs frames parsed out
// of them, and the error counters spec §7 calls for.
//
// Exactly one goroutine (the Manager's transfer loop) is expected to call
// Feed/Transfer for a given Conn; no internal locking is performed.
type Conn struct {
	ID     uint64
	Tgid   int64
	BootNs int64

	buffers    [2]zerocopy.Buffer
	timestamps [2]timestampTrack
	nextSeq    [2]uint64
	poisoned   [2]bool

	stitcher *stitch.Stitcher

	// InvalidFrames / UnmatchedResponses / LostSeqGaps are the per-connection
	// counters spec §7 exposes "for observability" alongside the process-wide
	// prometheus counters in metrics.go.
	InvalidFrames      int
	UnmatchedResponses int
	LostSeqGaps        int
}

// NewConn creates a Conn for one tracked connection. maxPendingRequests <= 0
// uses stitch.DefaultMaxPendingRequests.
func NewConn(id uint64, tgid int64, bootNs int64, maxPendingRequests int) *Conn {
	return &Conn{
		ID:       id,
		Tgid:     tgid,
		BootNs:   bootNs,
		buffers:  [2]zerocopy.Buffer{zerocopy.NewBuffer(), zerocopy.NewBuffer()},
		stitcher: stitch.New(maxPendingRequests),
	}
}

// Feed appends one capture-layer event's payload to the matching direction's
// stream (spec §6 input shape). A gap in SeqNum truncates that direction's
// stream: whatever was buffered but not yet parsed into a frame is dropped,
// since a byte range is now permanently missing and can never be completed.
func (c *Conn) Feed(ev ConnEvent) error {
	slot := directionSlot(ev.Direction)

	if ev.SeqNum != c.nextSeq[slot] {
		c.buffers[slot].Discard(c.buffers[slot].Len())
		c.timestamps[slot].Reset()
		c.nextSeq[slot] = ev.SeqNum + 1
		c.LostSeqGaps++
		if !c.poisoned[slot] {
			c.buffers[slot].Append(ev.Payload)
			c.timestamps[slot].Append(c.buffers[slot].Len(), ev.TimestampNs)
		}
		return errSeqGap
	}

	c.nextSeq[slot] = ev.SeqNum + 1
	if c.poisoned[slot] {
		// The stream was poisoned by an earlier length-field corruption;
		// bytes are discarded until the next reconnect (spec §7).
		return nil
	}

	c.buffers[slot].Append(ev.Payload)
	c.timestamps[slot].Append(c.buffers[slot].Len(), ev.TimestampNs)
	return nil
}

// Transfer runs one parser+stitcher cycle (spec §5's fixed-period transfer
// cycle) and returns the rows produced for any newly-stitched records.
func (c *Conn) Transfer() []record.Row {
	c.drainDirection(wire.Request)
	c.drainDirection(wire.Response)

	recs, errCount := c.stitcher.Stitch()
	c.UnmatchedResponses += errCount
	responsesUnmatchedTotal.Add(float64(errCount))

	if len(recs) == 0 {
		return nil
	}
	rows := make([]record.Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, record.Project(rec, c.Tgid, c.BootNs))
	}
	return rows
}

// drainDirection repeatedly parses complete frames out of one direction's
// buffer and queues them with the Stitcher, stopping at the first
// NeedsMoreData or at a poisoning Invalid frame (spec §4.2, §7).
func (c *Conn) drainDirection(dir wire.Direction) {
	slot := directionSlot(dir)
	if c.poisoned[slot] {
		return
	}
	buf := c.buffers[slot]
	ts := &c.timestamps[slot]

	for buf.Len() > 0 {
		peeked := buf.Peek(buf.Len())
		// The timestamp assigned to a frame is approximated as the capture
		// time of whichever ConnEvent delivered its last byte, mirroring
		// pmongodb's decoder approach of stamping a message from its
		// terminal packet rather than a byte-exact clock.
		state, frame, consumed := wire.Parse(peeked, dir, ts.TimestampFor(len(peeked)))

		switch state {
		case wire.StateNeedsMoreData:
			return

		case wire.StateSuccess:
			frame.TimestampNs = ts.TimestampFor(consumed)
			buf.Discard(consumed)
			ts.Advance(consumed)
			if dir == wire.Request {
				c.stitcher.QueueRequest(frame)
			} else {
				c.stitcher.QueueResponse(frame)
			}

		case wire.StateIgnored:
			framesIgnoredTotal.Inc()
			// The reserved opcode is header-only Ignored (spec §4.2 Step 4)
			// but still needs to reach the Stitcher: a reserved-type request
			// is one-sided and must still emit a Record{req, empty} (spec
			// §4.4 Step 1). Every other Ignored opcode (OP_COMPRESSED, the
			// legacy body-less ones) is dropped here with no further role.
			if dir == wire.Request && frame.OpCode == wire.OpReserved {
				frame.TimestampNs = ts.TimestampFor(consumed)
				buf.Discard(consumed)
				ts.Advance(consumed)
				c.stitcher.QueueRequest(frame)
				continue
			}
			buf.Discard(consumed)
			ts.Advance(consumed)

		case wire.StateInvalid:
			c.InvalidFrames++
			framesInvalidTotal.Inc()
			if consumed > 0 {
				buf.Discard(consumed)
				ts.Advance(consumed)
				continue
			}
			// The declared length itself is untrustworthy; poison the
			// stream until the next reconnect (spec §7).
			c.poisoned[slot] = true
			connsPoisonedTotal.Inc()
			buf.Discard(buf.Len())
			ts.Reset()
			return
		}
	}
}
