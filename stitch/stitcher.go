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

// Package stitch pairs MongoDB request and response frames belonging to one
// connection into Records, handling 1:1 matching, 1:N more-to-come response
// fan-out and reserved one-sided requests.
package stitch

import "github.com/packetd/mongotap/wire"

// DefaultMaxPendingRequests is used when the caller doesn't set one explicitly.
const DefaultMaxPendingRequests = 4096

// Stitcher holds one connection's request/response queues (spec §4.4).
//
// The request queue persists across Stitch calls (unmatched requests are
// retried next cycle); the response queue is cleared after every Stitch
// call, so any response left unmatched at the end of a cycle is dropped as
// stale and counted as an error.
type Stitcher struct {
	// MaxPendingRequests bounds the reqs queue length; overflow is dropped
	// from the front (oldest first) and counted as an error.
	//
	// <= 0 means unbounded.
	MaxPendingRequests int

	reqs  []*wire.Frame
	resps []*wire.Frame
}

// New creates a Stitcher. maxPendingRequests <= 0 uses DefaultMaxPendingRequests.
func New(maxPendingRequests int) *Stitcher {
	if maxPendingRequests <= 0 {
		maxPendingRequests = DefaultMaxPendingRequests
	}
	return &Stitcher{MaxPendingRequests: maxPendingRequests}
}

// QueueRequest appends a newly parsed request frame, preserving arrival order.
func (s *Stitcher) QueueRequest(f *wire.Frame) {
	s.reqs = append(s.reqs, f)
}

// QueueResponse appends a newly parsed response frame to this cycle's queue.
func (s *Stitcher) QueueResponse(f *wire.Frame) {
	s.resps = append(s.resps, f)
}

// PendingRequests returns the number of requests still queued, for the
// driver layer's monitoring/throttling decisions.
func (s *Stitcher) PendingRequests() int {
	return len(s.reqs)
}

// Stitch runs one matching pass (spec §4.4's matching algorithm) and
// returns the Records it produced along with the count of dropped
// responses/requests.
//
// After it returns, reqs retains only the unconsumed suffix (the consumed
// prefix is dropped, the unconsumed tail is retried next cycle); resps is
// always cleared.
func (s *Stitcher) Stitch() ([]wire.Record, int) {
	errorCount := 0

	if s.MaxPendingRequests > 0 && len(s.reqs) > s.MaxPendingRequests {
		overflow := len(s.reqs) - s.MaxPendingRequests
		errorCount += overflow
		s.reqs = s.reqs[overflow:]
	}

	var records []wire.Record

	for _, req := range s.reqs {
		if req.Consumed {
			continue
		}

		if req.IsReserved() {
			req.Consumed = true
			records = append(records, wire.Record{Req: *req, Resp: wire.EmptyFrame()})
			continue
		}

		moreToCome := false
		prevRespReqID := int32(0)
		var headResp *wire.Frame

		for _, resp := range s.resps {
			if resp.Consumed {
				continue
			}

			if resp.TimestampNs < req.TimestampNs {
				// Can't have answered a request that hadn't been sent yet.
				resp.Consumed = true
				errorCount++
				continue
			}

			isHead := req.RequestID == resp.ResponseTo
			isChain := moreToCome && prevRespReqID == resp.ResponseTo
			if !isHead && !isChain {
				if moreToCome {
					// A chain is in progress and this response doesn't continue
					// it: request_id/response_to chains are connection-local,
					// so it can't belong to any other pending request either.
					resp.Consumed = true
					errorCount++
					continue
				}
				// No chain started yet; leave it for a later request to
				// match (simple 1:1 case, spec §4.4).
				continue
			}

			if isHead && resp.MoreToCome {
				moreToCome = true
				prevRespReqID = resp.RequestID
				headResp = resp
				continue
			}

			if isChain {
				if headResp == nil {
					// A continuation arrived before its chain's head frame.
					resp.Consumed = true
					errorCount++
					continue
				}

				headResp.Sections = append(headResp.Sections, resp.Sections...)
				resp.Consumed = true
				prevRespReqID = resp.RequestID

				if resp.MoreToCome {
					continue
				}
			}

			req.Consumed = true
			if moreToCome {
				headResp.Consumed = true
				records = append(records, wire.Record{Req: *req, Resp: *headResp})
				moreToCome = false
				break
			}

			resp.Consumed = true
			records = append(records, wire.Record{Req: *req, Resp: *resp})
			break
		}
	}

	i := 0
	for i < len(s.reqs) && s.reqs[i].Consumed {
		i++
	}
	s.reqs = s.reqs[i:]

	// Responses still unconsumed are dropped as stale and counted.
	for _, resp := range s.resps {
		if !resp.Consumed {
			errorCount++
		}
	}
	s.resps = s.resps[:0]

	return records, errorCount
}
