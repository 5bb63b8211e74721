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

package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/packetd/mongotap/confengine"
	"github.com/packetd/mongotap/driver"
	"github.com/packetd/mongotap/logger"
	"github.com/packetd/mongotap/sink"
	"github.com/packetd/mongotap/wire"
)

// traceEvent is the newline-delimited JSON replay shape fed to `trace`. It is
// a textual stand-in for the capture layer's ConnEvent (spec §6), which this
// core treats as an external collaborator and never produces itself.
type traceEvent struct {
	ConnID      uint64 `json:"conn_id"`
	Direction   string `json:"direction"` // "send" or "recv"
	SeqNum      uint64 `json:"seq_num"`
	TimestampNs int64  `json:"timestamp_ns"`
	Payload     string `json:"payload"` // base64-encoded raw bytes
}

func (e traceEvent) toConnEvent() (driver.ConnEvent, error) {
	payload, err := base64.StdEncoding.DecodeString(e.Payload)
	if err != nil {
		return driver.ConnEvent{}, err
	}

	var dir wire.Direction
	switch e.Direction {
	case "send":
		dir = wire.Request
	case "recv":
		dir = wire.Response
	default:
		return driver.ConnEvent{}, fmt.Errorf("unknown direction %q", e.Direction)
	}

	return driver.ConnEvent{
		ConnID:      e.ConnID,
		Direction:   dir,
		SeqNum:      e.SeqNum,
		TimestampNs: e.TimestampNs,
		Payload:     payload,
	}, nil
}

var (
	traceConfigPath string
	traceInputPath  string
)

var traceCmd = &cobra.Command{
	Use:   "trace",
	Short: "Replay a newline-delimited JSON stream of capture events and emit traced MongoDB rows",
	Long: `trace reads one traceEvent JSON object per line (conn_id, direction,
seq_num, timestamp_ns, a base64 payload) from --input, feeds them through the
Parser/Stitcher/Projector pipeline exactly as a live capture layer would, and
writes the resulting rows to the configured sink.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(traceConfigPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}

		if !cfg.MongoDBTracingEnabled {
			fmt.Fprintln(os.Stderr, "mongodb_tracing_enabled is false, nothing to do")
			return
		}

		logger.SetOptions(cfg.Logger)

		in, closeIn, err := openInput(traceInputPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open input: %v\n", err)
			os.Exit(1)
		}
		defer closeIn()

		s := sink.NewJSONLSink(cfg.Sink)
		defer s.Close()

		mgr := driver.NewManager(driver.Config{
			TransferPeriod:     time.Duration(cfg.TransferPeriodMs) * time.Millisecond,
			PushPeriod:         time.Duration(cfg.PushPeriodMs) * time.Millisecond,
			MaxPendingRequests: cfg.MaxPendingRequests,
		}, s)

		ctx, cancel := context.WithCancel(context.Background())
		mgr.Start(ctx)

		if err := replay(in, mgr); err != nil && err != io.EOF {
			fmt.Fprintf(os.Stderr, "replay error: %v\n", err)
		}

		// Give the transfer/push loops one more cycle to drain the tail of
		// the stream before cancelling (spec §5: in-flight cycles always
		// run to completion, there are no per-operation timeouts).
		time.Sleep(2 * mgr.TransferPeriod())
		cancel()
		mgr.Stop()
	},
	Example: "# mongotap trace --config mongotap.yaml --input captures.jsonl",
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, nil
	}
	conf, err := confengine.LoadConfigPath(path)
	if err != nil {
		return cfg, err
	}
	if err := conf.Unpack(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func replay(r io.Reader, mgr *driver.Manager) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var te traceEvent
		if err := json.Unmarshal(line, &te); err != nil {
			logger.Warnf("skipping malformed replay line: %v", err)
			continue
		}

		ev, err := te.toConnEvent()
		if err != nil {
			logger.Warnf("skipping replay event: %v", err)
			continue
		}
		mgr.Ingest(ev)
	}
	return scanner.Err()
}

func init() {
	traceCmd.Flags().StringVar(&traceConfigPath, "config", "", "Path to mongotap.yaml (optional, defaults applied when omitted)")
	traceCmd.Flags().StringVar(&traceInputPath, "input", "-", "Path to a newline-delimited JSON replay file, '-' for stdin")
	rootCmd.AddCommand(traceCmd)
}
