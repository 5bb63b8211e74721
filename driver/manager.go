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
	"context"
	"sync"
	"time"

	"github.com/packetd/mongotap/internal/rescue"
	"github.com/packetd/mongotap/logger"
	"github.com/packetd/mongotap/record"
)

// Sink receives projected rows; the real columnar/table writer lives outside
// this core (spec §1), so Manager depends only on this narrow interface.
type Sink interface {
	Sink(row record.Row) error
}

// Config controls the Manager's two fixed-period cycles (spec §5).
type Config struct {
	// TransferPeriod is how often every tracked Conn's Transfer runs.
	// Defaults to common.DefaultTransferPeriod when zero.
	TransferPeriod time.Duration

	// PushPeriod is how often accumulated rows are handed to the Sink.
	// Defaults to common.DefaultPushPeriod when zero.
	PushPeriod time.Duration

	// MaxPendingRequests is forwarded to each Conn's Stitcher.
	MaxPendingRequests int

	// ResolveTgid looks up the process id owning a connection's socket for
	// the tgid output column (spec §6); resolving a pid from a connection id
	// is a capture-layer concern (spec §1) so this defaults to a stub
	// returning 0 when unset.
	ResolveTgid func(connID uint64) int64
}

// Manager runs the single-threaded-per-connection driver loop of spec §5: a
// fixed-period transfer cycle parses and stitches every tracked connection to
// completion, and a separate, slower push cycle hands accumulated rows to the
// Sink. A connection's Conn is only ever touched by the transfer goroutine;
// Ingest is safe to call concurrently from the (out-of-core) reassembly
// layer because it only ever enqueues onto a channel.
type Manager struct {
	cfg  Config
	sink Sink

	mu    sync.Mutex
	conns map[uint64]*Conn

	events chan ConnEvent
	rows   []record.Row

	cancel context.CancelFunc
}

// NewManager creates a Manager that will push rows to sink on PushPeriod and
// run every tracked Conn's Transfer on TransferPeriod.
func NewManager(cfg Config, sink Sink) *Manager {
	if cfg.TransferPeriod <= 0 {
		cfg.TransferPeriod = 100 * time.Millisecond
	}
	if cfg.PushPeriod <= 0 {
		cfg.PushPeriod = time.Second
	}
	return &Manager{
		cfg:    cfg,
		sink:   sink,
		conns:  make(map[uint64]*Conn),
		events: make(chan ConnEvent, 4096),
	}
}

// TransferPeriod returns the configured (or defaulted) transfer cycle
// period, useful for callers that need to wait out a final cycle before
// tearing the Manager down.
func (m *Manager) TransferPeriod() time.Duration {
	return m.cfg.TransferPeriod
}

// Ingest enqueues one capture-layer event for its connection's next transfer
// cycle. Safe for concurrent callers (the reassembly layer, spec §5).
func (m *Manager) Ingest(ev ConnEvent) {
	m.events <- ev
}

// Start launches the transfer and push goroutines; it returns immediately.
// Stop (or cancelling ctx) ends both loops.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	go m.runTransferLoop(ctx)
	go m.runPushLoop(ctx)
}

// Stop cancels both loops. In-flight cycles always run to completion on
// their current snapshot before the loops exit (spec §5 "Cancellation &
// timeouts").
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

func (m *Manager) runTransferLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.TransferPeriod)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-m.events:
			if !ok {
				return
			}
			m.dispatch(ev)

		case <-ticker.C:
			m.transferAll()

		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) dispatch(ev ConnEvent) {
	defer rescue.HandleCrash()

	m.mu.Lock()
	conn, ok := m.conns[ev.ConnID]
	if !ok {
		var tgid int64
		if m.cfg.ResolveTgid != nil {
			tgid = m.cfg.ResolveTgid(ev.ConnID)
		}
		conn = NewConn(ev.ConnID, tgid, time.Now().UnixNano()-ev.TimestampNs, m.cfg.MaxPendingRequests)
		m.conns[ev.ConnID] = conn
		activeConns.Inc()
	}
	m.mu.Unlock()

	if err := conn.Feed(ev); err != nil {
		logger.Debugf("conn %d: %v", ev.ConnID, err)
	}
}

// transferAll runs Transfer on every tracked connection's current snapshot,
// one at a time but each wrapped in its own panic recovery so a single
// corrupt connection can't take down the others (spec §5).
func (m *Manager) transferAll() {
	m.mu.Lock()
	snapshot := make([]*Conn, 0, len(m.conns))
	for _, c := range m.conns {
		snapshot = append(snapshot, c)
	}
	m.mu.Unlock()

	for _, conn := range snapshot {
		m.transferOne(conn)
	}
}

func (m *Manager) transferOne(conn *Conn) {
	defer rescue.HandleCrash()

	rows := conn.Transfer()
	if len(rows) == 0 {
		return
	}

	m.mu.Lock()
	m.rows = append(m.rows, rows...)
	m.mu.Unlock()
}

func (m *Manager) runPushLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.PushPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.push()

		case <-ctx.Done():
			m.push()
			return
		}
	}
}

func (m *Manager) push() {
	m.mu.Lock()
	rows := m.rows
	m.rows = nil
	m.mu.Unlock()

	for _, row := range rows {
		if err := m.sink.Sink(row); err != nil {
			logger.Warnf("failed to sink row: %v", err)
		}
	}
}

// RemoveConn drops a connection's state, e.g. on socket close. Unconsumed
// frames are discarded with it, matching the bounded-memory policy of
// spec §4.4: a closed connection's pending requests can never be answered.
func (m *Manager) RemoveConn(connID uint64) {
	m.mu.Lock()
	if _, ok := m.conns[connID]; ok {
		delete(m.conns, connID)
		activeConns.Dec()
	}
	m.mu.Unlock()
}
