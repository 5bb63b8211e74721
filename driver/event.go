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

// Package driver runs the per-connection transfer/push cycle (spec §5):
// feeding capture-layer events into the wire Parser, handing parsed frames
// to a stitch.Stitcher, and projecting stitched Records into output rows.
package driver

import "github.com/packetd/mongotap/wire"

// ConnEvent is the capture-layer input shape (spec §6)
//
// Events sharing (ConnID, Direction) must be fed to a Conn in ascending
// SeqNum order; a gap in SeqNum truncates the stream with a loss marker
// (see Conn.Feed).
type ConnEvent struct {
	ConnID      uint64
	Direction   wire.Direction
	SeqNum      uint64
	TimestampNs int64
	Payload     []byte
}
