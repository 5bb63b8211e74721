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

// Package sink defines the boundary between this core and the outbound
// table/columnar writer that spec §1 places out of scope, plus one concrete
// reference implementation (JSONLSink) for local inspection and tests.
package sink

import "github.com/packetd/mongotap/record"

// Sink receives projected output rows (spec §6). The driver package declares
// its own one-method Sink interface, which every Sink here also satisfies;
// the real production writer (a columnar table, a metrics pipeline, ...)
// lives entirely outside this core.
type Sink interface {
	Sink(row record.Row) error
	Close()
}
