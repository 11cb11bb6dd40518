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
	sessionMetricSubsystem = "session"
)

var (
	SessionRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: imkitNamespace,
			Subsystem: sessionMetricSubsystem,
			Name:      "request_total",
			Help:      "会话管理器发起的请求数量，按操作与结果划分",
		}, []string{opLabelName, resultLabelName})

	SessionRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: imkitNamespace,
			Subsystem: sessionMetricSubsystem,
			Name:      "request_latency",
			Help:      "请求从发起到完成回调的耗时，单位毫秒",
			Buckets:   buckets,
		}, []string{opLabelName})

	SessionPhase = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: imkitNamespace,
			Subsystem: sessionMetricSubsystem,
			Name:      "phase",
			Help:      "当前会话阶段：0 未初始化，1 已初始化，2 连接中，3 已连接，4 已断开",
		})

	SessionEventTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: imkitNamespace,
			Subsystem: sessionMetricSubsystem,
			Name:      "event_total",
			Help:      "收到的推送事件数量，按事件类型划分",
		}, []string{kindLabelName})

	SessionDroppedEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: imkitNamespace,
			Subsystem: sessionMetricSubsystem,
			Name:      "dropped_events",
			Help:      "因监听者不存在而丢弃的推送事件数量",
		}, []string{kindLabelName})

	SessionStaleCompletions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: imkitNamespace,
			Subsystem: sessionMetricSubsystem,
			Name:      "stale_completions",
			Help:      "会话纪元变化后才返回、未修改会话状态的完成数量",
		}, []string{opLabelName})
)

// RegisterSession 注册会话相关指标。
func RegisterSession(r prometheus.Registerer) {
	r.MustRegister(SessionRequestTotal)
	r.MustRegister(SessionRequestLatency)
	r.MustRegister(SessionPhase)
	r.MustRegister(SessionEventTotal)
	r.MustRegister(SessionDroppedEvents)
	r.MustRegister(SessionStaleCompletions)
}
