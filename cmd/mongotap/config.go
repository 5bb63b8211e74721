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
	"github.com/packetd/mongotap/logger"
	"github.com/packetd/mongotap/sink"
)

// Config is the top-level `mongotap.yaml` shape, unpacked the way
// packetd/controller.Config is unpacked from its confengine.Config.
type Config struct {
	// MongoDBTracingEnabled is spec §6's single configuration flag,
	// evaluated once at driver start-up. Default off.
	MongoDBTracingEnabled bool `config:"mongodb_tracing_enabled"`

	Logger logger.Options   `config:"logger"`
	Sink   sink.JSONLConfig `config:"sink"`

	// TransferPeriodMs / PushPeriodMs override the spec §5 defaults
	// (100ms / 1000ms) when positive.
	TransferPeriodMs int `config:"transferPeriodMs"`
	PushPeriodMs     int `config:"pushPeriodMs"`

	// MaxPendingRequests bounds each connection's Stitcher request queue
	// (spec §4.4's bounded-memory policy); <= 0 uses the package default.
	MaxPendingRequests int `config:"maxPendingRequests"`
}
