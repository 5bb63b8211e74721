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
	"io"
	"os"

	"github.com/goccy/go-json"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/packetd/mongotap/record"
)

// JSONLConfig mirrors packetd's exporter.RoundTripsConfig shape: either
// stdout or a rotated file, never both.
type JSONLConfig struct {
	Console    bool   `config:"console"`
	Filename   string `config:"filename"`
	MaxSize    int    `config:"maxSize"`
	MaxBackups int    `config:"maxBackups"`
	MaxAge     int    `config:"maxAge"`
}

// Validate fills in the same defaults packetd's RoundTripsConfig.Validate
// applies to its own roundtrips sink.
func (c *JSONLConfig) Validate() {
	if c.Filename == "" {
		c.Filename = "mongotap-rows.log"
	}
	if c.MaxSize <= 0 {
		c.MaxSize = 100
	}
	if c.MaxAge <= 0 {
		c.MaxAge = 7
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 10
	}
}

// JSONLSink writes one JSON object per Row, newline-delimited. It stands in
// for the "outbound table/columnar writer" spec §1 places out of scope: a
// minimal, inspectable reference so the driver has something real to push
// rows into.
type JSONLSink struct {
	wr io.WriteCloser
}

// NewJSONLSink opens the sink's destination (stdout or a rotated file per
// cfg) and returns a ready-to-use Sink.
func NewJSONLSink(cfg JSONLConfig) *JSONLSink {
	cfg.Validate()

	var wr io.WriteCloser
	switch {
	case cfg.Console:
		wr = os.Stdout
	default:
		wr = &lumberjack.Logger{
			Filename:   cfg.Filename,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			LocalTime:  true,
		}
	}
	return &JSONLSink{wr: wr}
}

func (s *JSONLSink) Sink(row record.Row) error {
	b, err := json.Marshal(row)
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = s.wr.Write(b)
	return err
}

func (s *JSONLSink) Close() {
	s.wr.Close()
}
