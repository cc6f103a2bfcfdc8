package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func gathered(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var sum float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			}
		}
		return sum
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestNewWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)

	m.IndexBuildsTotal.WithLabelValues("success").Inc()
	m.IndexBuildsTotal.WithLabelValues("error").Inc()
	m.ShardsLoaded.Set(3)

	if got := gathered(t, reg, "index_builds_total"); got != 2 {
		t.Errorf("index_builds_total = %v, want 2", got)
	}
	if got := gathered(t, reg, "shards_loaded"); got != 3 {
		t.Errorf("shards_loaded = %v, want 3", got)
	}

	defer func() {
		if recover() == nil {
			t.Error("registering twice did not panic")
		}
	}()
	NewWithRegistry(reg)
}
