// Package metrics 提供推荐引擎的 Prometheus 指标。
//
// 指标通过 New(registerer) 创建并注册到调用方给定的 Registerer，
// 不使用全局默认注册表，测试中每个用例可以使用独立的 prometheus.NewRegistry()。
// 所有方法对 nil *Metrics 安全（未启用指标时为 no-op）。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 策略调用结果
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid"
)

type Metrics struct {
	StrategyRequests *prometheus.CounterVec
	StrategyDuration *prometheus.HistogramVec
	IndexBuildTime   prometheus.Histogram
	IndexItems       prometheus.Gauge
	IndexVersion     prometheus.Gauge
	ProfileBuilds    *prometheus.CounterVec
}

// New 创建并注册指标。reg 为 nil 时返回 nil（关闭指标）。
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return nil
	}
	m := &Metrics{
		StrategyRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentrec_strategy_requests_total",
				Help: "Total number of recommendation strategy executions",
			},
			[]string{"strategy", "outcome"},
		),
		StrategyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "contentrec_strategy_duration_seconds",
				Help:    "Duration of recommendation strategy executions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"strategy"},
		),
		IndexBuildTime: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "contentrec_index_build_duration_seconds",
				Help:    "Duration of full similarity index builds in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		IndexItems: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contentrec_index_items",
				Help: "Number of catalog items in the current similarity index",
			},
		),
		IndexVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "contentrec_index_version",
				Help: "Build counter of the current similarity index",
			},
		),
		ProfileBuilds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "contentrec_profile_builds_total",
				Help: "Total number of user profile builds",
			},
			[]string{"outcome"},
		),
	}
	reg.MustRegister(
		m.StrategyRequests,
		m.StrategyDuration,
		m.IndexBuildTime,
		m.IndexItems,
		m.IndexVersion,
		m.ProfileBuilds,
	)
	return m
}

// ObserveStrategy 记录一次策略执行。
func (m *Metrics) ObserveStrategy(strategy, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.StrategyRequests.WithLabelValues(strategy, outcome).Inc()
	m.StrategyDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// ObserveIndexBuild 记录一次索引全量构建。
func (m *Metrics) ObserveIndexBuild(d time.Duration, items int, version uint64) {
	if m == nil {
		return
	}
	m.IndexBuildTime.Observe(d.Seconds())
	m.IndexItems.Set(float64(items))
	m.IndexVersion.Set(float64(version))
}

// ObserveProfileBuild 记录一次画像构建（ok / degraded）。
func (m *Metrics) ObserveProfileBuild(outcome string) {
	if m == nil {
		return
	}
	m.ProfileBuilds.WithLabelValues(outcome).Inc()
}
