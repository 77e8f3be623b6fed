// Package metrics records BOM run statistics as Prometheus metrics
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/OpenTraceLab/OpenTraceBOM/pkg/bom"
)

// Metrics holds the collectors of one run on a private registry
type Metrics struct {
	Registry *prometheus.Registry

	ComponentsLoaded   prometheus.Counter
	ComponentsSelected prometheus.Counter
	ComponentsExcluded *prometheus.CounterVec
	Groups             prometheus.Counter
	RowsEmitted        prometheus.Counter
	RunDuration        prometheus.Gauge
}

// New creates the run metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		ComponentsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Name: "otb_components_loaded_total",
			Help: "Components read from the design file",
		}),
		ComponentsSelected: factory.NewCounter(prometheus.CounterOpts{
			Name: "otb_components_selected_total",
			Help: "Components eligible for the BOM",
		}),
		ComponentsExcluded: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "otb_components_excluded_total",
			Help: "Components left out of the BOM",
		}, []string{"reason"}),
		Groups: factory.NewCounter(prometheus.CounterOpts{
			Name: "otb_groups_total",
			Help: "BOM line items formed",
		}),
		RowsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "otb_rows_emitted_total",
			Help: "Data rows written, not counting the header",
		}),
		RunDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "otb_run_duration_seconds",
			Help: "Wall time of the BOM run",
		}),
	}
}

// Record adds the statistics of a finished run
func (m *Metrics) Record(stats bom.Stats, elapsed time.Duration) {
	m.ComponentsLoaded.Add(float64(stats.Loaded))
	m.ComponentsSelected.Add(float64(stats.Selected))
	for reason, n := range stats.Excluded {
		m.ComponentsExcluded.WithLabelValues(reason).Add(float64(n))
	}
	m.Groups.Add(float64(stats.Groups))
	m.RowsEmitted.Add(float64(stats.Rows))
	m.RunDuration.Set(elapsed.Seconds())
}

// WriteFile writes the registry in node-exporter textfile format
func (m *Metrics) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.Registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
