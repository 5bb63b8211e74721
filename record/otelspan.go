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

package record

import (
	"crypto/rand"

	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

// https://opentelemetry.io/docs/specs/semconv/database/mongodb/

// ToSpan renders a Row as a ptrace.Span carrying the MongoDB database
// semantic conventions, alongside the columnar row that spec §6 treats as
// primary output.
func ToSpan(row Row) ptrace.Span {
	span := ptrace.NewSpan()

	name := row.ReqCmd
	if name == "" {
		name = "mongodb.op"
	}
	span.SetName(name)
	span.SetTraceID(randomTraceID())
	span.SetSpanID(randomSpanID())
	span.SetStartTimestamp(pcommon.Timestamp(row.TimeNs))

	end := row.TimeNs
	if row.LatencyNs != NoLatency {
		end += row.LatencyNs
	}
	span.SetEndTimestamp(pcommon.Timestamp(end))

	attr := span.Attributes()
	attr.PutStr("db.system.name", "mongodb")
	attr.PutStr("db.operation.name", row.ReqCmd)
	attr.PutStr("db.query.text", row.ReqBody)
	attr.PutInt("mongotap.tgid", row.Tgid)

	if row.LatencyNs == NoLatency {
		attr.PutBool("mongotap.reserved_one_sided", true)
		return span
	}

	attr.PutStr("db.response.status_code", row.RespStatus)
	attr.PutStr("db.response.body", row.RespBody)
	attr.PutInt("db.response.latency_ns", row.LatencyNs)
	return span
}

func randomTraceID() pcommon.TraceID {
	b := make([]byte, 16)
	rand.Read(b)

	ret := [16]byte{}
	for i := 0; i < 16; i++ {
		ret[i] = b[i]
	}
	return ret
}

func randomSpanID() pcommon.SpanID {
	b := make([]byte, 8)
	rand.Read(b)

	ret := [8]byte{}
	for i := 0; i < 8; i++ {
		ret[i] = b[i]
	}
	return ret
}
