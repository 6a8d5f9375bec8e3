package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TradingMetrics records engine activity observed at the RPC layer.
type TradingMetrics struct {
	asksCreated *prometheus.CounterVec
	asksRemoved prometheus.Counter
	bids        *prometheus.CounterVec
	failures    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
}

var (
	tradingMetricsOnce sync.Once
	tradingRegistry    *TradingMetrics
)

// Trading returns the lazily-initialised metrics registry for the trading
// module.
func Trading() *TradingMetrics {
	tradingMetricsOnce.Do(func() {
		tradingRegistry = &TradingMetrics{
			asksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "assetswap",
				Subsystem: "trading",
				Name:      "asks_created_total",
				Help:      "Total asks escrowed, segmented by out-leg and in-leg kind.",
			}, []string{"out_kind", "in_kind"}),
			asksRemoved: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "assetswap",
				Subsystem: "trading",
				Name:      "asks_removed_total",
				Help:      "Total asks cancelled by their owners.",
			}),
			bids: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "assetswap",
				Subsystem: "trading",
				Name:      "bids_executed_total",
				Help:      "Total bids that atomically fulfilled an ask, segmented by in-leg kind.",
			}, []string{"in_kind"}),
			failures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "assetswap",
				Subsystem: "trading",
				Name:      "failures_total",
				Help:      "Total rejected operations segmented by method and reason.",
			}, []string{"method", "reason"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "assetswap",
				Subsystem: "trading",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for trading RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
		}
		prometheus.MustRegister(
			tradingRegistry.asksCreated,
			tradingRegistry.asksRemoved,
			tradingRegistry.bids,
			tradingRegistry.failures,
			tradingRegistry.latency,
		)
	})
	return tradingRegistry
}

// AskCreated counts a successful ask creation.
func (m *TradingMetrics) AskCreated(outKind, inKind string) {
	if m == nil {
		return
	}
	m.asksCreated.WithLabelValues(outKind, inKind).Inc()
}

// AskRemoved counts a successful cancellation.
func (m *TradingMetrics) AskRemoved() {
	if m == nil {
		return
	}
	m.asksRemoved.Inc()
}

// BidExecuted counts a successful fulfilment.
func (m *TradingMetrics) BidExecuted(inKind string) {
	if m == nil {
		return
	}
	m.bids.WithLabelValues(inKind).Inc()
}

// Failure counts a rejected operation with its specific reason.
func (m *TradingMetrics) Failure(method, reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(method, reason).Inc()
}

// ObserveLatency records the wall-clock duration of a handler invocation.
func (m *TradingMetrics) ObserveLatency(method string, start time.Time) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
}
