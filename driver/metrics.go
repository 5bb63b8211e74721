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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/packetd/mongotap/common"
)

// These are the "counter of invalid frames and unmatched responses" spec §7
// calls for as the user-visible failure surface.
var (
	framesInvalidTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "frames_invalid_total",
			Help:      "Structurally invalid MongoDB wire frames dropped by the parser",
		},
	)

	framesIgnoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "frames_ignored_total",
			Help:      "Recognized but undecoded MongoDB wire frames (legacy opcodes, OP_COMPRESSED)",
		},
	)

	responsesUnmatchedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "responses_unmatched_total",
			Help:      "Response frames dropped by the stitcher without a matching request",
		},
	)

	connsPoisonedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: common.App,
			Name:      "conns_poisoned_total",
			Help:      "Connections whose byte stream was discarded after an unrecoverable length corruption",
		},
	)

	activeConns = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: common.App,
			Name:      "active_conns",
			Help:      "Connections currently tracked by the driver manager",
		},
	)
)
