package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the enrichment pipeline.
type Metrics struct {
	reg *prometheus.Registry

	RunsTotal          *prometheus.CounterVec
	RowsFiltered       prometheus.Counter
	RowsEnriched       prometheus.Counter
	AnomaliesTotal     *prometheus.CounterVec
	ReportPollsTotal   prometheus.Counter
	ReportFetchSeconds prometheus.Histogram
	PartitionFailures  *prometheus.CounterVec
	TasksCreated       prometheus.Counter
}

// NewMetrics creates and registers the pipeline metrics on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idq_runs_total",
		Help: "Pipeline runs by terminal status.",
	}, []string{"status"})
	filtered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idq_rows_filtered_total",
		Help: "Catalog rows kept by the rating filter.",
	})
	enriched := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idq_rows_enriched_total",
		Help: "Rows present in the final output.",
	})
	anomalies := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idq_anomalies_total",
		Help: "Recorded row anomalies by reason.",
	}, []string{"reason"})
	polls := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idq_report_polls_total",
		Help: "Report status poll requests issued.",
	})
	fetchSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "idq_report_fetch_seconds",
		Help:    "End-to-end listing report fetch duration per market.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})
	partitionFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idq_partition_failures_total",
		Help: "Market partitions degraded to all-anomaly.",
	}, []string{"market"})
	tasks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idq_tasks_created_total",
		Help: "Follow-up tasks filed with the task tracker.",
	})

	reg.MustRegister(runs, filtered, enriched, anomalies, polls, fetchSeconds, partitionFailures, tasks)

	return &Metrics{
		reg:                reg,
		RunsTotal:          runs,
		RowsFiltered:       filtered,
		RowsEnriched:       enriched,
		AnomaliesTotal:     anomalies,
		ReportPollsTotal:   polls,
		ReportFetchSeconds: fetchSeconds,
		PartitionFailures:  partitionFailures,
		TasksCreated:       tasks,
	}
}

// Handler returns the HTTP handler serving the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
