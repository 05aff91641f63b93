package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingest worker Prometheus metrics.
var (
	IngestEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "ingest_events_total",
			Help:      "Total ingest events by outcome",
		},
		[]string{"outcome"}, // "ok" / "skipped" / "failed"
	)

	IngestRetentionDeletedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "docdex",
			Name:      "ingest_retention_deleted_total",
			Help:      "Total documents removed by the retention loop",
		},
	)
)

var ingestMetricsRegistered bool

// RegisterIngestMetrics registers worker metrics. Must be called once from main.
func RegisterIngestMetrics() {
	if ingestMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestEventsTotal)
	prometheus.MustRegister(IngestRetentionDeletedTotal)
	ingestMetricsRegistered = true
}
