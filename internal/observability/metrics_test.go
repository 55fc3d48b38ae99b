package observability

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.EventReceived()
	m.EventReceived()
	m.HandlerFailed("handle")
	m.HandlerStarted()
	m.HandlerStarted()
	m.HandlerFinished()
	m.ObserveBalanceCall("sender", 10*time.Millisecond, nil)
	m.ObserveBalanceCall("receiver", 10*time.Millisecond, errors.New("boom"))

	if got := testutil.ToFloat64(m.EventsReceived); got != 2 {
		t.Fatalf("events: %v", got)
	}
	if got := testutil.ToFloat64(m.HandlerFailures.WithLabelValues("handle")); got != 1 {
		t.Fatalf("failures: %v", got)
	}
	if got := testutil.ToFloat64(m.InflightHandlers); got != 1 {
		t.Fatalf("inflight: %v", got)
	}
	if got := testutil.CollectAndCount(m.BalanceCallDuration); got != 2 {
		t.Fatalf("histogram series: %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.EventReceived()
	m.HandlerFailed("decode")
	m.HandlerStarted()
	m.HandlerFinished()
	m.ObserveBalanceCall("sender", time.Second, nil)
}
