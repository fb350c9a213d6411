// Package metrics exports run outcomes in the Prometheus text format for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/raoulx24/autosnap/internal/report"
)

const namespace = "autosnap"

// Metrics holds the gauges of a single run. Each run gets a fresh registry
// so the textfile reflects only the last invocation of a label.
type Metrics struct {
	registry *prometheus.Registry

	lastRun   *prometheus.GaugeVec
	duration  *prometheus.GaugeVec
	workloads *prometheus.GaugeVec
	created   *prometheus.GaugeVec
	deleted   *prometheus.GaugeVec
	failed    *prometheus.GaugeVec
}

func New() *Metrics {
	labels := []string{"label", "mode", "dry_run"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_timestamp_seconds",
			Help: "Unix time the last run started.",
		}, labels),
		duration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "last_run_duration_seconds",
			Help: "Wall time of the last run.",
		}, labels),
		workloads: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "workloads",
			Help: "Workloads processed by the last run.",
		}, labels),
		created: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "snapshots_created",
			Help: "Snapshots created by the last run.",
		}, labels),
		deleted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "snapshots_deleted",
			Help: "Snapshots deleted by the last run.",
		}, labels),
		failed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "workloads_failed",
			Help: "Workloads with at least one error in the last run.",
		}, labels),
	}
	m.registry.MustRegister(m.lastRun, m.duration, m.workloads, m.created, m.deleted, m.failed)
	return m
}

// Observe records r.
func (m *Metrics) Observe(r *report.Report) {
	lv := prometheus.Labels{"label": r.Label, "mode": r.Mode, "dry_run": strconv.FormatBool(r.DryRun)}

	created, deleted := 0, 0
	for _, o := range r.Workloads {
		if o.Created != "" {
			created++
		}
		deleted += len(o.Deleted)
	}

	m.lastRun.With(lv).Set(float64(r.Started.Unix()))
	m.duration.With(lv).Set(r.Finished.Sub(r.Started).Seconds())
	m.workloads.With(lv).Set(float64(len(r.Workloads)))
	m.created.With(lv).Set(float64(created))
	m.deleted.With(lv).Set(float64(deleted))
	m.failed.With(lv).Set(float64(r.Failures()))
}

// WriteTextfile writes the metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
