package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/coinfabrik/mpc-coordinator/internal/metrics"
)

func TestNewCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	if c.ClientsConnected == nil {
		t.Error("ClientsConnected is nil")
	}
	if c.GroupsActive == nil {
		t.Error("GroupsActive is nil")
	}
	if c.SessionsActive == nil {
		t.Error("SessionsActive is nil")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error: %v", err)
	}
	_ = families
}

func TestClientLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.ClientConnected()
	c.ClientConnected()

	if val := gaugeValue(t, c.ClientsConnected); val != 2 {
		t.Errorf("ClientsConnected = %v, want 2", val)
	}
	if val := counterValueNoLabels(t, c.ClientsTotal); val != 2 {
		t.Errorf("ClientsTotal = %v, want 2", val)
	}

	c.ClientDisconnected()

	if val := gaugeValue(t, c.ClientsConnected); val != 1 {
		t.Errorf("ClientsConnected = %v, want 1", val)
	}
	if val := counterValueNoLabels(t, c.ClientsTotal); val != 2 {
		t.Errorf("ClientsTotal after disconnect = %v, want 2 (counter never decreases)", val)
	}
}

func TestGroupLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.GroupCreated()
	if val := gaugeValue(t, c.GroupsActive); val != 1 {
		t.Errorf("GroupsActive = %v, want 1", val)
	}

	c.GroupRemoved()
	if val := gaugeValue(t, c.GroupsActive); val != 0 {
		t.Errorf("GroupsActive = %v, want 0", val)
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := metrics.NewCollector(reg)

	c.SessionCreated()
	if val := gaugeVecValue(t, c.SessionsActive, "unknown"); val != 1 {
		t.Errorf("SessionsActive = %v, want 1", val)
	}

	c.SessionReady()
	if val := gaugeVecValue(t, c.SessionsActive, "unknown"); val != 0 {
		t.Errorf("SessionsActive after ready = %v, want 0", val)
	}
	if val := counterVecValue(t, c.SessionsReady, "unknown"); val != 1 {
		t.Errorf("SessionsReady = %v, want 1", val)
	}
}

// -------------------------------------------------------------------------
// Helpers
// -------------------------------------------------------------------------

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterValueNoLabels(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func gaugeVecValue(t *testing.T, vec *prometheus.GaugeVec, labels ...string) float64 {
	t.Helper()
	gauge, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	m := &dto.Metric{}
	if err := gauge.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}

func counterVecValue(t *testing.T, vec *prometheus.CounterVec, labels ...string) float64 {
	t.Helper()
	counter, err := vec.GetMetricWithLabelValues(labels...)
	if err != nil {
		t.Fatalf("GetMetricWithLabelValues(%v): %v", labels, err)
	}
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		t.Fatalf("Write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}
