package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vocab-go/internal/config"
)

func TestNewProvider_DisabledIsNoop(t *testing.T) {
	m := NewProvider(config.MetricsConfig{Enabled: false})
	_, ok := m.(noopMetrics)
	assert.True(t, ok, "should return noopMetrics when disabled")

	m.ObserveStorageOp("read", "ok", 0.1)
	m.IncCacheHit()
	m.IncCacheMiss()
	m.DecayChecked(true, 3)
	m.AutoSnapshotChecked(false, errors.New("boom"))
	assert.NoError(t, m.Flush())
}

func TestNewProvider_Enabled(t *testing.T) {
	m := NewProvider(config.MetricsConfig{Enabled: true, TextfilePath: filepath.Join(t.TempDir(), "vocab.prom")})
	_, ok := m.(*Prometheus)
	assert.True(t, ok, "should return Prometheus when enabled")
}

// counterValue reads one counter from the registry; labels are name/value pairs.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels ...string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, metric := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range metric.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for i := 0; i+1 < len(labels); i += 2 {
				if got[labels[i]] != labels[i+1] {
					continue metrics
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("counter %s%v not found", name, labels)
	return 0
}

func TestPrometheus_Counters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "")

	m.ObserveStorageOp("read", "ok", 0.01)
	m.ObserveStorageOp("read", "ok", 0.02)
	m.ObserveStorageOp("read", "not_found", 0.01)
	m.IncCacheHit()
	m.IncCacheMiss()
	m.IncCacheMiss()
	m.DecayChecked(true, 2)
	m.DecayChecked(true, 1)
	m.DecayChecked(false, 0)
	m.AutoSnapshotChecked(true, nil)
	m.AutoSnapshotChecked(false, nil)
	m.AutoSnapshotChecked(false, errors.New("disk full"))

	assert.Equal(t, 2.0, counterValue(t, reg, "vocab_storage_operations_total", "op", "read", "result", "ok"))
	assert.Equal(t, 1.0, counterValue(t, reg, "vocab_storage_operations_total", "op", "read", "result", "not_found"))
	assert.Equal(t, 1.0, counterValue(t, reg, "vocab_storage_cache_hits_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "vocab_storage_cache_misses_total"))
	assert.Equal(t, 2.0, counterValue(t, reg, "vocab_decay_checks_total", "outcome", "run"))
	assert.Equal(t, 1.0, counterValue(t, reg, "vocab_decay_checks_total", "outcome", "skipped"))
	assert.Equal(t, 3.0, counterValue(t, reg, "vocab_decay_courses_modified_total"))
	assert.Equal(t, 1.0, counterValue(t, reg, "vocab_auto_snapshot_checks_total", "outcome", "created"))
	assert.Equal(t, 1.0, counterValue(t, reg, "vocab_auto_snapshot_checks_total", "outcome", "skipped"))
	assert.Equal(t, 1.0, counterValue(t, reg, "vocab_auto_snapshot_checks_total", "outcome", "error"))
}

func TestPrometheus_Flush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "textfile", "vocab.prom")
	m := NewPrometheus(prometheus.NewRegistry(), path)
	m.DecayChecked(true, 4)

	require.NoError(t, m.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `vocab_decay_checks_total{outcome="run"} 1`), out)
	assert.True(t, strings.Contains(out, "vocab_decay_courses_modified_total 4"), out)
}

func TestPrometheus_FlushWithoutTextfile(t *testing.T) {
	m := NewPrometheus(prometheus.NewRegistry(), "")
	assert.NoError(t, m.Flush())
}
