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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Fixture byte layouts are adapted from the MongoDB wire captures used by
// Pixie/Stirling's socket_tracer mongodb protocol decoder test suite.

var needMoreHeaderData = []byte{
	0x00, 0x00, 0x00, 0x0c,
	0x82, 0xb7, 0x31, 0x44,
	0x00, 0x00, 0x00, 0x00,
	0xdd, 0x07, 0x00,
}

var needMoreData = []byte{
	0x12, 0x00, 0x00, 0x00,
	0x82, 0xb7, 0x31, 0x44,
	0x00, 0x00, 0x00, 0x00,
	0xdd, 0x07, 0x00, 0x00,
	0x00,
}

var invalidOpcode = []byte{
	0x12, 0x00, 0x00, 0x00,
	0x82, 0xb7, 0x31, 0x44,
	0x00, 0x00, 0x00, 0x00,
	0xda, 0x07, 0x00, 0x00, // 2010, does not exist
	0x00, 0x00,
}

var legacyQueryOpcode = []byte{
	0x12, 0x00, 0x00, 0x00,
	0x82, 0xb7, 0x31, 0x44,
	0x00, 0x00, 0x00, 0x00,
	0xd4, 0x07, 0x00, 0x00, // 2004, OP_QUERY
	0x00, 0x00,
}

var invalidFlagBits = []byte{
	0x2d, 0x00, 0x00, 0x00,
	0x95, 0x03, 0x00, 0x00,
	0xbc, 0x01, 0x00, 0x00,
	0xdd, 0x07, 0x00, 0x00,
	0x05, 0x00, 0x00, 0x00, // bit 2 set, not in {0,1,16}
	0x00, 0x18, 0x00, 0x00, 0x00, 0x10, 0x6e, 0x00, 0x01, 0x00, 0x00,
	0x00, 0x01, 0x6f, 0x6b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xf0, 0x3f, 0x00,
}

var missingChecksum = []byte{
	0x9d, 0x00, 0x00, 0x00,
	0x82, 0xb7, 0x31, 0x44,
	0x00, 0x00, 0x00, 0x00,
	0xdd, 0x07, 0x00, 0x00,
	0x01, 0x00, 0x00, 0x00, // checksumPresent set, but no trailer follows
	0x00, 0x52, 0x00, 0x00, 0x00, 0x02, 0x69, 0x6e, 0x73, 0x65, 0x72,
	0x74, 0x00, 0x04, 0x00, 0x00, 0x00, 0x63, 0x61, 0x72, 0x00, 0x08,
	0x6f, 0x72, 0x64, 0x65, 0x72, 0x65, 0x64, 0x00, 0x01, 0x03, 0x6c,
	0x73, 0x69, 0x64, 0x00, 0x1e, 0x00, 0x00, 0x00, 0x05, 0x69, 0x64,
	0x00, 0x10, 0x00, 0x00, 0x00, 0x04, 0x0e, 0xab, 0xf5, 0xe5, 0x45,
	0xf8, 0x42, 0x5f, 0x8c, 0xb5, 0xb4, 0x0d, 0xff, 0x94, 0x8e, 0x1c,
	0x00, 0x02, 0x24, 0x64, 0x62, 0x00, 0x06, 0x00, 0x00, 0x00, 0x6d,
	0x79, 0x64, 0x62, 0x31, 0x00, 0x00,
	0x01, 0x35, 0x00, 0x00, 0x00, 0x64, 0x6f, 0x63, 0x75, 0x6d, 0x65,
	0x6e, 0x74, 0x73, 0x00, 0x27, 0x00, 0x00, 0x00, 0x07, 0x5f, 0x69,
	0x64, 0x00, 0x64, 0xdb, 0xd4, 0x67, 0x8f, 0x0e, 0x65, 0x5d, 0x43,
	0x14, 0xd6, 0x8a, 0x02, 0x6e, 0x61, 0x6d, 0x65, 0x00, 0x07, 0x00,
	0x00, 0x00, 0x74, 0x65, 0x73, 0x6c, 0x61, 0x34, 0x00, 0x00,
}

var validInsertRequest = []byte{
	0xb2, 0x00, 0x00, 0x00,
	0xbc, 0x01, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
	0xdd, 0x07, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
	0x00, 0x9d, 0x00, 0x00, 0x00, 0x02, 0x69, 0x6e, 0x73, 0x65, 0x72,
	0x74, 0x00, 0x04, 0x00, 0x00, 0x00, 0x63, 0x61, 0x72, 0x00, 0x04,
	0x64, 0x6f, 0x63, 0x75, 0x6d, 0x65, 0x6e, 0x74, 0x73, 0x00, 0x40,
	0x00, 0x00, 0x00, 0x03, 0x30, 0x00, 0x38, 0x00, 0x00, 0x00, 0x02,
	0x6e, 0x61, 0x6d, 0x65, 0x00, 0x18, 0x00, 0x00, 0x00, 0x70, 0x69,
	0x78, 0x69, 0x65, 0x2d, 0x63, 0x61, 0x72, 0x2d, 0x31, 0x30, 0x2d,
	0x76, 0x65, 0x72, 0x73, 0x69, 0x6f, 0x6e, 0x37, 0x2e, 0x30, 0x00,
	0x07, 0x5f, 0x69, 0x64, 0x00, 0x64, 0xe6, 0x72, 0x9c, 0x99, 0x6d,
	0x67, 0x6b, 0xf5, 0x20, 0x9d, 0xba, 0x00, 0x00, 0x08, 0x6f, 0x72,
	0x64, 0x65, 0x72, 0x65, 0x64, 0x00, 0x01, 0x03, 0x6c, 0x73, 0x69,
	0x64, 0x00, 0x1e, 0x00, 0x00, 0x00, 0x05, 0x69, 0x64, 0x00, 0x10,
	0x00, 0x00, 0x00, 0x04, 0xe7, 0xd7, 0x16, 0xb3, 0x75, 0xb7, 0x4c,
	0x39, 0x8b, 0x75, 0x41, 0x97, 0xc4, 0x97, 0x06, 0xd1, 0x00, 0x02,
	0x24, 0x64, 0x62, 0x00, 0x06, 0x00, 0x00, 0x00, 0x6d, 0x79, 0x64,
	0x62, 0x31, 0x00, 0x00,
}

var validOkResponse = []byte{
	0x2d, 0x00, 0x00, 0x00,
	0x95, 0x03, 0x00, 0x00,
	0xbc, 0x01, 0x00, 0x00,
	0xdd, 0x07, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
	0x00, 0x18, 0x00, 0x00, 0x00, 0x10, 0x6e, 0x00, 0x01, 0x00, 0x00,
	0x00, 0x01, 0x6f, 0x6b, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
	0xf0, 0x3f, 0x00,
}

var validTwoSectionRequest = []byte{
	0x9d, 0x00, 0x00, 0x00,
	0x82, 0xb7, 0x31, 0x44,
	0x00, 0x00, 0x00, 0x00,
	0xdd, 0x07, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00,
	0x00, 0x52, 0x00, 0x00, 0x00, 0x02, 0x69, 0x6e, 0x73, 0x65, 0x72,
	0x74, 0x00, 0x04, 0x00, 0x00, 0x00, 0x63, 0x61, 0x72, 0x00, 0x08,
	0x6f, 0x72, 0x64, 0x65, 0x72, 0x65, 0x64, 0x00, 0x01, 0x03, 0x6c,
	0x73, 0x69, 0x64, 0x00, 0x1e, 0x00, 0x00, 0x00, 0x05, 0x69, 0x64,
	0x00, 0x10, 0x00, 0x00, 0x00, 0x04, 0x0e, 0xab, 0xf5, 0xe5, 0x45,
	0xf8, 0x42, 0x5f, 0x8c, 0xb5, 0xb4, 0x0d, 0xff, 0x94, 0x8e, 0x1c,
	0x00, 0x02, 0x24, 0x64, 0x62, 0x00, 0x06, 0x00, 0x00, 0x00, 0x6d,
	0x79, 0x64, 0x62, 0x31, 0x00, 0x00,
	0x01, 0x35, 0x00, 0x00, 0x00, 0x64, 0x6f, 0x63, 0x75, 0x6d, 0x65,
	0x6e, 0x74, 0x73, 0x00, 0x27, 0x00, 0x00, 0x00, 0x07, 0x5f, 0x69,
	0x64, 0x00, 0x64, 0xdb, 0xd4, 0x67, 0x8f, 0x0e, 0x65, 0x5d, 0x43,
	0x14, 0xd6, 0x8a, 0x02, 0x6e, 0x61, 0x6d, 0x65, 0x00, 0x07, 0x00,
	0x00, 0x00, 0x74, 0x65, 0x73, 0x6c, 0x61, 0x34, 0x00, 0x00,
}

func TestParseNeedsMoreHeaderData(t *testing.T) {
	state, frame, consumed := Parse(needMoreHeaderData, Request, 0)
	assert.Equal(t, StateNeedsMoreData, state)
	assert.Nil(t, frame)
	assert.Zero(t, consumed)
}

func TestParseNeedsMoreData(t *testing.T) {
	state, frame, consumed := Parse(needMoreData, Request, 0)
	assert.Equal(t, StateNeedsMoreData, state)
	assert.Nil(t, frame)
	assert.Zero(t, consumed)
}

func TestParseInvalidOpcode(t *testing.T) {
	state, frame, consumed := Parse(invalidOpcode, Request, 0)
	assert.Equal(t, StateInvalid, state)
	assert.Nil(t, frame)
	assert.Equal(t, 18, consumed)
}

func TestParseLegacyQueryOpcodeIsIgnored(t *testing.T) {
	state, frame, consumed := Parse(legacyQueryOpcode, Request, 0)
	require.Equal(t, StateIgnored, state)
	require.NotNil(t, frame)
	assert.Equal(t, OpQuery, frame.OpCode)
	assert.Equal(t, 18, consumed)
}

func TestParseInvalidFlagBits(t *testing.T) {
	state, frame, consumed := Parse(invalidFlagBits, Request, 0)
	assert.Equal(t, StateInvalid, state)
	assert.Nil(t, frame)
	assert.Equal(t, 45, consumed)
}

func TestParseMissingChecksumIsInvalid(t *testing.T) {
	// flagBits declares checksumPresent but the body is consumed exactly by
	// the two sections, leaving no trailer bytes: structurally malformed,
	// not merely truncated, since the declared message_length itself does
	// not leave room for the checksum it promises.
	state, frame, consumed := Parse(missingChecksum, Request, 0)
	assert.Equal(t, StateInvalid, state)
	assert.Nil(t, frame)
	assert.Equal(t, 157, consumed)
}

func TestParseValidInsertRequest(t *testing.T) {
	state, frame, consumed := Parse(validInsertRequest, Request, 1000)
	require.Equal(t, StateSuccess, state)
	require.NotNil(t, frame)
	assert.Equal(t, int32(174), frame.Length)
	assert.Equal(t, int32(444), frame.RequestID)
	assert.Equal(t, int32(0), frame.ResponseTo)
	assert.Equal(t, OpMsg, frame.OpCode)
	require.Len(t, frame.Sections, 1)
	assert.Equal(t, int32(157), frame.Sections[0].Length)
	assert.Equal(t, "insert", frame.OpMsgType)
	assert.Equal(t, 178, consumed)
	assert.True(t, frame.IsRequest())
}

func TestParseValidOkResponse(t *testing.T) {
	state, frame, consumed := Parse(validOkResponse, Response, 2000)
	require.Equal(t, StateSuccess, state)
	require.NotNil(t, frame)
	assert.Equal(t, int32(41), frame.Length)
	assert.Equal(t, int32(917), frame.RequestID)
	assert.Equal(t, int32(444), frame.ResponseTo)
	require.Len(t, frame.Sections, 1)
	assert.Equal(t, int32(24), frame.Sections[0].Length)
	assert.Equal(t, "ok: 1", frame.OpMsgType)
	assert.Equal(t, 45, consumed)
	assert.False(t, frame.IsRequest())
}

func TestParseValidTwoSectionRequest(t *testing.T) {
	state, frame, consumed := Parse(validTwoSectionRequest, Request, 0)
	require.Equal(t, StateSuccess, state)
	require.NotNil(t, frame)
	assert.Equal(t, int32(153), frame.Length)
	assert.Equal(t, int32(1144108930), frame.RequestID)
	require.Len(t, frame.Sections, 2)
	assert.Equal(t, int32(82), frame.Sections[0].Length)
	assert.Equal(t, int32(53), frame.Sections[1].Length)
	assert.Equal(t, SeqIdentifierDocuments, frame.Sections[1].SeqIdentifier)
	assert.Equal(t, "insert", frame.OpMsgType)
	assert.Equal(t, 157, consumed)
}

func TestParseIncompleteOpMsgBodyNeedsMoreData(t *testing.T) {
	// A prefix of a valid frame must come back as NeedsMoreData, never Invalid.
	partial := validInsertRequest[:len(validInsertRequest)-1]
	state, frame, consumed := Parse(partial, Request, 0)
	assert.Equal(t, StateNeedsMoreData, state)
	assert.Nil(t, frame)
	assert.Zero(t, consumed)
}
