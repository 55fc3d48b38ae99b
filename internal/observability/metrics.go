// Package observability provides Prometheus metrics for the watcher.
package observability

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "coinwatch"

// Metrics holds the watcher's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	EventsReceived      prometheus.Counter
	HandlerFailures     *prometheus.CounterVec
	InflightHandlers    prometheus.Gauge
	BalanceCallDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		EventsReceived: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "events_total",
			Help:      "Total number of Sent events dispatched to a handler",
		}),
		HandlerFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "handler_failures_total",
			Help:      "Total number of events that could not be reported",
		}, []string{"stage"}),
		InflightHandlers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "listener",
			Name:      "inflight_handlers",
			Help:      "Handler invocations currently running",
		}),
		BalanceCallDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "chain",
			Name:      "balance_call_seconds",
			Help:      "Latency of balances eth_call requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"role", "outcome"}),
	}
}

func (m *Metrics) EventReceived() {
	if m == nil {
		return
	}
	m.EventsReceived.Inc()
}

func (m *Metrics) HandlerFailed(stage string) {
	if m == nil {
		return
	}
	m.HandlerFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) HandlerStarted() {
	if m == nil {
		return
	}
	m.InflightHandlers.Inc()
}

func (m *Metrics) HandlerFinished() {
	if m == nil {
		return
	}
	m.InflightHandlers.Dec()
}

// ObserveBalanceCall records one balances call for role (sender or receiver).
func (m *Metrics) ObserveBalanceCall(role string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.BalanceCallDuration.WithLabelValues(role, outcome).Observe(d.Seconds())
}

// Serve exposes gatherer on addr under /metrics until the server is closed.
func Serve(addr string, gatherer prometheus.Gatherer, logger *zap.Logger) *http.Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()

	return srv
}
