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

package sink

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packetd/mongotap/record"
)

type closeRecordingBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closeRecordingBuffer) Close() error {
	b.closed = true
	return nil
}

func TestJSONLSinkWritesNewlineDelimitedRows(t *testing.T) {
	buf := &closeRecordingBuffer{}
	s := &JSONLSink{wr: buf}

	require.NoError(t, s.Sink(record.Row{ReqCmd: "insert", LatencyNs: 42}))
	require.NoError(t, s.Sink(record.Row{ReqCmd: "find", LatencyNs: 7}))
	s.Close()

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\n"), []byte("\n"))
	require.Len(t, lines, 2)
	assert.Contains(t, string(lines[0]), `"req_cmd":"insert"`)
	assert.Contains(t, string(lines[1]), `"req_cmd":"find"`)
	assert.True(t, buf.closed)
}

func TestJSONLConfigValidateFillsDefaults(t *testing.T) {
	cfg := JSONLConfig{}
	cfg.Validate()
	assert.NotEmpty(t, cfg.Filename)
	assert.Positive(t, cfg.MaxSize)
	assert.Positive(t, cfg.MaxAge)
	assert.Positive(t, cfg.MaxBackups)
}

var _ io.WriteCloser = (*closeRecordingBuffer)(nil)
