// Package telemetry exposes batch progress as prometheus counters.
package telemetry

import (
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector counts loaded realisations and emitted summary records. It
// satisfies realisation.LoadObserver.
type Collector struct {
	realisationsLoaded *prometheus.CounterVec
	loadRuns           prometheus.Counter
	summaryRecords     *prometheus.CounterVec
}

// NewCollector registers the collector's metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		realisationsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecdna_realisations_loaded_total",
			Help: "Realisations loaded, by condition subdirectory",
		}, []string{"subdir"}),
		loadRuns: factory.NewCounter(prometheus.CounterOpts{
			Name: "ecdna_load_runs_total",
			Help: "Completed folder loads",
		}),
		summaryRecords: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ecdna_summary_records_total",
			Help: "Summary records computed, by target",
		}, []string{"target"}),
	}
}

func (c *Collector) Loaded(subdir string, n int) {
	c.realisationsLoaded.WithLabelValues(filepath.Base(subdir)).Add(float64(n))
}

func (c *Collector) Done(string, int) {
	c.loadRuns.Inc()
}

// RecordsComputed adds n summary records for target.
func (c *Collector) RecordsComputed(target string, n int) {
	c.summaryRecords.WithLabelValues(target).Add(float64(n))
}

// WriteTextfile writes every metric gathered from g to path in the text
// exposition format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
