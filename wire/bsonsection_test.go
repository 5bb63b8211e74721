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
	"go.mongodb.org/mongo-driver/bson"
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	b, err := bson.Marshal(v)
	require.NoError(t, err)
	return b
}

func buildOpMsgBody(t *testing.T, flagBits uint32, docs ...[]byte) []byte {
	t.Helper()
	body := make([]byte, 4)
	binaryLittleEndianPutU32(body, flagBits)
	for _, d := range docs {
		body = append(body, 0x00) // kind 0
		body = append(body, d...)
	}
	return body
}

func binaryLittleEndianPutU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func TestDeriveOpMsgTypeKnownCommand(t *testing.T) {
	doc := mustMarshal(t, bson.D{{Key: "find", Value: "foo"}, {Key: "filter", Value: bson.D{}}})
	frame := &Frame{}
	ok := decodeOpMsgBody(buildOpMsgBody(t, 0, doc), frame)
	require.True(t, ok)
	assert.Equal(t, "find", frame.OpMsgType)
}

func TestDeriveOpMsgTypeOkEmbeddedDocument(t *testing.T) {
	doc := mustMarshal(t, bson.D{
		{Key: "n", Value: int32(0)},
		{Key: "ok", Value: bson.D{{Key: "code", Value: int32(59)}}},
	})
	frame := &Frame{}
	ok := decodeOpMsgBody(buildOpMsgBody(t, 0, doc), frame)
	require.True(t, ok)
	assert.Equal(t, "ok: {code: 59}", frame.OpMsgType)
}

func TestDeriveOpMsgTypeMissingOkIsInvalid(t *testing.T) {
	doc := mustMarshal(t, bson.D{{Key: "n", Value: int32(1)}})
	frame := &Frame{}
	ok := decodeOpMsgBody(buildOpMsgBody(t, 0, doc), frame)
	assert.False(t, ok)
}

func TestFirstLabelWinsAcrossMultipleBodySections(t *testing.T) {
	first := mustMarshal(t, bson.D{{Key: "insert", Value: "foo"}})
	second := mustMarshal(t, bson.D{{Key: "ok", Value: float64(1)}})
	frame := &Frame{}
	ok := decodeOpMsgBody(buildOpMsgBody(t, 0, first, second), frame)
	require.True(t, ok)
	assert.Equal(t, "insert", frame.OpMsgType)
	assert.Len(t, frame.Sections, 2)
}

func TestDecodeOpMsgBodyRejectsReservedFlagBits(t *testing.T) {
	doc := mustMarshal(t, bson.D{{Key: "ok", Value: float64(1)}})
	frame := &Frame{}
	ok := decodeOpMsgBody(buildOpMsgBody(t, 1<<5, doc), frame)
	assert.False(t, ok)
}

func TestDecodeOpMsgBodySetsMoreToCome(t *testing.T) {
	doc := mustMarshal(t, bson.D{{Key: "ok", Value: float64(1)}})
	frame := &Frame{}
	ok := decodeOpMsgBody(buildOpMsgBody(t, flagBitMoreToCome, doc), frame)
	require.True(t, ok)
	assert.True(t, frame.MoreToCome)
}

func TestDecodeDocumentSequenceSection(t *testing.T) {
	doc1 := mustMarshal(t, bson.D{{Key: "_id", Value: int32(1)}})
	doc2 := mustMarshal(t, bson.D{{Key: "_id", Value: int32(2)}})

	seqID := "documents"
	window := append([]byte{}, doc1...)
	window = append(window, doc2...)
	sectionLength := int32(4 + len(seqID) + 1 + len(window))

	body := make([]byte, 4) // flagBits
	body = append(body, 0x01)
	sectionLenBytes := make([]byte, 4)
	binaryLittleEndianPutU32(sectionLenBytes, uint32(sectionLength))
	body = append(body, sectionLenBytes...)
	body = append(body, []byte(seqID)...)
	body = append(body, 0x00)
	body = append(body, window...)

	frame := &Frame{}
	ok := decodeOpMsgBody(body, frame)
	require.True(t, ok)
	require.Len(t, frame.Sections, 1)
	assert.Equal(t, SectionDocumentSequence, frame.Sections[0].Kind)
	assert.Equal(t, "documents", frame.Sections[0].SeqIdentifier)
	assert.Len(t, frame.Sections[0].Documents, 2)
}

func TestDecodeDocumentSequenceRejectsUnknownIdentifier(t *testing.T) {
	seqID := "bogus"
	sectionLength := int32(4 + len(seqID) + 1)

	body := make([]byte, 4)
	body = append(body, 0x01)
	sectionLenBytes := make([]byte, 4)
	binaryLittleEndianPutU32(sectionLenBytes, uint32(sectionLength))
	body = append(body, sectionLenBytes...)
	body = append(body, []byte(seqID)...)
	body = append(body, 0x00)

	frame := &Frame{}
	ok := decodeOpMsgBody(body, frame)
	assert.False(t, ok)
}

func TestBsonToCanonicalExtJSONEmptyDocument(t *testing.T) {
	s, ok := bsonToCanonicalExtJSON([]byte{0x05, 0x00, 0x00, 0x00, 0x00})
	require.True(t, ok)
	assert.Equal(t, "", s)
}

func TestBsonToCanonicalExtJSONRejectsInvalid(t *testing.T) {
	// length prefix (8) matches the slice and 0xff (MinKey, empty key) is a
	// complete element, but the declared length leaves a stray byte after it
	// that reads as an element of the illegal type 0x00.
	_, ok := bsonToCanonicalExtJSON([]byte{0x08, 0x00, 0x00, 0x00, 0xff, 0x00, 0x00, 0x00})
	assert.False(t, ok)
}
