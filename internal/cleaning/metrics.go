package cleaning

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics summarizes completed runs in the Prometheus text format, for
// pickup by a node exporter textfile collector.
type Metrics struct {
	registry *prometheus.Registry

	inputRows    *prometheus.GaugeVec
	outputRows   *prometheus.GaugeVec
	droppedRows  *prometheus.GaugeVec
	missingDates *prometheus.GaugeVec
	duration     *prometheus.GaugeVec
	lastSuccess  *prometheus.GaugeVec
}

// NewMetrics creates the gauges on a private registry.
func NewMetrics() *Metrics {
	gauge := func(name, help string) *prometheus.GaugeVec {
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "leapclean",
			Name:      name,
			Help:      help,
		}, []string{"artifact"})
	}

	m := &Metrics{
		registry:     prometheus.NewRegistry(),
		inputRows:    gauge("rows_input", "Rows read from the input artifact."),
		outputRows:   gauge("rows_output", "Rows written to the output artifact."),
		droppedRows:  gauge("rows_dropped", "Rows removed by the price filter."),
		missingDates: gauge("dates_missing", "Rows whose last_review is missing after normalization."),
		duration:     gauge("run_duration_seconds", "Wall time of the last run."),
		lastSuccess:  gauge("last_success_timestamp_seconds", "Unix time of the last successful run."),
	}
	m.registry.MustRegister(
		m.inputRows, m.outputRows, m.droppedRows,
		m.missingDates, m.duration, m.lastSuccess,
	)
	return m
}

// Observe records a completed run.
func (m *Metrics) Observe(r *Result) {
	name := r.Output.Name
	m.inputRows.WithLabelValues(name).Set(float64(r.InputRows))
	m.outputRows.WithLabelValues(name).Set(float64(r.OutputRows))
	m.droppedRows.WithLabelValues(name).Set(float64(r.DroppedRows()))
	m.missingDates.WithLabelValues(name).Set(float64(r.MissingDates))
	m.duration.WithLabelValues(name).Set(r.Duration.Seconds())

	finished := r.Output.CreatedAt
	if r.Run != nil && r.Run.CompletedAt != nil {
		finished = *r.Run.CompletedAt
	}
	m.lastSuccess.WithLabelValues(name).Set(float64(finished.Unix()))
}

// WriteFile writes the gathered metrics to path atomically.
func (m *Metrics) WriteFile(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
