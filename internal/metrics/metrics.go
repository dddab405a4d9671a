// Package metrics records storage and maintenance measurements with
// prometheus. The CLI is short-lived, so the registry is written to a
// node-exporter textfile when the process finishes instead of being served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"vocab-go/internal/config"
	"vocab-go/internal/storage"
	"vocab-go/internal/vocab"
)

// Provider is everything the app records.
type Provider interface {
	vocab.Metrics
	storage.Observer
	// Flush persists the collected metrics. A no-op when disabled.
	Flush() error
}

// Prometheus implements Provider on its own registry.
type Prometheus struct {
	registry *prometheus.Registry
	textfile string

	storageOps      *prometheus.CounterVec
	storageDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	decayChecks     *prometheus.CounterVec
	coursesDecayed  prometheus.Counter
	autoSnapshots   *prometheus.CounterVec
}

var (
	_ Provider = (*Prometheus)(nil)
	_ Provider = noopMetrics{}
)

// NewProvider returns a Prometheus provider, or a no-op when metrics are
// disabled in cfg.
func NewProvider(cfg config.MetricsConfig) Provider {
	if !cfg.Enabled {
		return noopMetrics{}
	}
	return NewPrometheus(prometheus.NewRegistry(), cfg.TextfilePath)
}

// NewPrometheus registers the vocab metrics on reg. textfile may be empty,
// in which case Flush does nothing.
func NewPrometheus(reg *prometheus.Registry, textfile string) *Prometheus {
	f := promauto.With(reg)
	return &Prometheus{
		registry: reg,
		textfile: textfile,

		storageOps: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vocab_storage_operations_total",
			Help: "Storage backend calls by operation and result",
		}, []string{"op", "result"}),

		storageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vocab_storage_operation_duration_seconds",
			Help:    "Storage backend call duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),

		cacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "vocab_storage_cache_hits_total",
			Help: "Reads served from the object cache",
		}),

		cacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "vocab_storage_cache_misses_total",
			Help: "Reads that went to the storage backend",
		}),

		decayChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vocab_decay_checks_total",
			Help: "Decay checks by outcome (run or skipped)",
		}, []string{"outcome"}),

		coursesDecayed: f.NewCounter(prometheus.CounterOpts{
			Name: "vocab_decay_courses_modified_total",
			Help: "Courses whose vocab file was changed by decay",
		}),

		autoSnapshots: f.NewCounterVec(prometheus.CounterOpts{
			Name: "vocab_auto_snapshot_checks_total",
			Help: "Automatic snapshot checks by outcome (created, skipped or error)",
		}, []string{"outcome"}),
	}
}

func (m *Prometheus) ObserveStorageOp(op, result string, seconds float64) {
	m.storageOps.WithLabelValues(op, result).Inc()
	m.storageDuration.WithLabelValues(op).Observe(seconds)
}

func (m *Prometheus) IncCacheHit()  { m.cacheHits.Inc() }
func (m *Prometheus) IncCacheMiss() { m.cacheMisses.Inc() }

func (m *Prometheus) DecayChecked(run bool, coursesModified int) {
	if !run {
		m.decayChecks.WithLabelValues("skipped").Inc()
		return
	}
	m.decayChecks.WithLabelValues("run").Inc()
	m.coursesDecayed.Add(float64(coursesModified))
}

func (m *Prometheus) AutoSnapshotChecked(created bool, err error) {
	switch {
	case err != nil:
		m.autoSnapshots.WithLabelValues("error").Inc()
	case created:
		m.autoSnapshots.WithLabelValues("created").Inc()
	default:
		m.autoSnapshots.WithLabelValues("skipped").Inc()
	}
}

// Registry exposes the underlying registry.
func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

// Flush writes the registry to the textfile.
func (m *Prometheus) Flush() error {
	if m.textfile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.textfile), 0755); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(m.textfile, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}

// noopMetrics is used when metrics are disabled.
type noopMetrics struct{}

func (noopMetrics) ObserveStorageOp(string, string, float64) {}
func (noopMetrics) IncCacheHit()                             {}
func (noopMetrics) IncCacheMiss()                            {}
func (noopMetrics) DecayChecked(bool, int)                   {}
func (noopMetrics) AutoSnapshotChecked(bool, error)          {}
func (noopMetrics) Flush() error                             { return nil }
