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

package common

const (
	// App 应用程序名称
	App = "mongotap"

	// Version 应用程序版本
	Version = "v0.1.0"

	// ReadWriteBlockSize 单个事件 payload 的建议大小上限
	//
	// 超过此长度的消息会跨越多个 ConnEvent 上报 驱动层按字节流缓冲累积 不依赖此常量
	ReadWriteBlockSize = 4096

	// DefaultTransferPeriod Parser/Stitcher 运行的默认周期
	DefaultTransferPeriod = 100 // milliseconds

	// DefaultPushPeriod Record 推送到 Sink 的默认周期
	DefaultPushPeriod = 1000 // milliseconds
)
