package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	ImportsStarted   = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_imports_started_total", Help: "Import sessions submitted"})
	ImportsCompleted = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_imports_completed_total", Help: "Import sessions that reached completed"})
	ImportsFailed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_imports_failed_total", Help: "Import sessions that reached failed"})
	RowsProcessed    = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_import_rows_processed_total", Help: "Rows consumed across all imports"})
	RowsRejected     = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_import_rows_rejected_total", Help: "Rows rejected by validation"})
	WebhookSuccesses = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_webhook_deliveries_total", Help: "Webhook deliveries that returned 2xx"})
	WebhookFailures  = prometheus.NewCounter(prometheus.CounterOpts{Name: "catalog_webhook_failures_total", Help: "Webhook deliveries that errored or returned non-2xx"})
)

// Handler exposes /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			ImportsStarted,
			ImportsCompleted,
			ImportsFailed,
			RowsProcessed,
			RowsRejected,
			WebhookSuccesses,
			WebhookFailures,
		)
	})
	return promhttp.Handler()
}
