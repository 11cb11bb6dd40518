// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	transportMetricSubsystem = "transport"
)

var (
	TransportConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: imkitNamespace,
			Subsystem: transportMetricSubsystem,
			Name:      "connections",
			Help:      "当前活跃的 websocket 连接数",
		})

	TransportDialTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: imkitNamespace,
			Subsystem: transportMetricSubsystem,
			Name:      "dial_total",
			Help:      "拨号次数，按结果划分",
		}, []string{resultLabelName})

	TransportFrameTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: imkitNamespace,
			Subsystem: transportMetricSubsystem,
			Name:      "frame_total",
			Help:      "收发的协议帧数量，按方向划分",
		}, []string{kindLabelName})
)

// RegisterTransport 注册传输层相关指标。
func RegisterTransport(r prometheus.Registerer) {
	r.MustRegister(TransportConnections)
	r.MustRegister(TransportDialTotal)
	r.MustRegister(TransportFrameTotal)
}
