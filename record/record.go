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

// Package record turns a stitched wire.Record into the flat outbound row
// schema (spec §4.5 / §6): an operation label, a truncated JSON excerpt and
// a response latency for each paired request/response exchange.
package record

import (
	"fmt"

	"github.com/packetd/mongotap/internal/fasttime"
	"github.com/packetd/mongotap/wire"
)

// NoLatency 是 reserved 单边 Record 的 LatencyNs 占位值
//
// §6 的输出列表把 latency_ns 定义为定长 int64 而不是可空类型 这里沿用
// packetd 其余数值型占位列的约定 (用越界哨兵而不是指针) 表示"不适用"
const NoLatency int64 = -1

// MaxExcerptLen 是 req_body / resp_body 列允许的最大字节数 (excerpt.go 的截断目标)
const MaxExcerptLen = 512

// Row 是一条已配对交换的输出行 (spec §6 Output row schema)
type Row struct {
	TimeNs     int64  `json:"time_"`
	Tgid       int64  `json:"tgid"`
	ReqCmd     string `json:"req_cmd"`
	ReqBody    string `json:"req_body"`
	RespStatus string `json:"resp_status"`
	RespBody   string `json:"resp_body"`
	LatencyNs  int64  `json:"latency_ns"`
}

func (r Row) String() string {
	return fmt.Sprintf(
		"mongotap row [time=%d tgid=%d req_cmd=%q resp_status=%q latency_ns=%d]",
		r.TimeNs, r.Tgid, r.ReqCmd, r.RespStatus, r.LatencyNs,
	)
}

// Project 把一个配对完成的 wire.Record 转换成一条输出行 (spec §4.5)
//
// bootNs 是该连接捕获时间戳所使用的单调时钟基准 (传给 fasttime.ClockOffsetNs
// 换算出 time_ 列); tgid 是拥有该 socket 的进程号 由驱动层按连接维护 不属于
// wire.Record 本身携带的信息
func Project(rec wire.Record, tgid int64, bootNs int64) Row {
	row := Row{
		TimeNs:  rec.Req.TimestampNs + fasttime.ClockOffsetNs(bootNs),
		Tgid:    tgid,
		ReqCmd:  rec.Req.OpMsgType,
		ReqBody: firstSectionExcerpt(rec.Req),
	}

	if rec.IsReservedOneSided() {
		row.LatencyNs = NoLatency
		return row
	}

	row.RespStatus = rec.Resp.OpMsgType
	row.RespBody = firstSectionExcerpt(rec.Resp)
	row.LatencyNs = rec.Resp.TimestampNs - rec.Req.TimestampNs
	return row
}

// firstSectionExcerpt 取 Frame 第一个 section 的第一份文档 截断为 excerpt (spec §4.5)
func firstSectionExcerpt(f wire.Frame) string {
	if len(f.Sections) == 0 || len(f.Sections[0].Documents) == 0 {
		return ""
	}
	return truncateExcerpt(f.Sections[0].Documents[0], MaxExcerptLen)
}
