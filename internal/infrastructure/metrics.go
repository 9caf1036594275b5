package infrastructure

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus instruments for the analysis pipeline.
// A single instance is created at startup and shared through dependency
// injection; the zero value is not usable.
type Metrics struct {
	registry *prometheus.Registry

	FilesAnalyzed     *prometheus.CounterVec
	AnalysisDuration  *prometheus.HistogramVec
	InsightsGenerated *prometheus.CounterVec
	RowsProcessed     prometheus.Counter
	DomainsSkipped    *prometheus.CounterVec
	HTTPRequests      *prometheus.CounterVec
	HTTPDuration      *prometheus.HistogramVec
}

// NewMetrics creates a metrics set on its own registry. Using a private
// registry keeps tests isolated and avoids duplicate-registration panics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FilesAnalyzed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erplens_files_analyzed_total",
			Help: "Number of files run through the analysis pipeline, by detected domain.",
		}, []string{"domain"}),
		AnalysisDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erplens_analysis_duration_seconds",
			Help:    "Wall-clock time spent analyzing one file.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"domain"}),
		InsightsGenerated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erplens_insights_generated_total",
			Help: "Insights emitted, by severity.",
		}, []string{"severity"}),
		RowsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Name: "erplens_rows_processed_total",
			Help: "Data rows ingested across all files.",
		}),
		DomainsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erplens_domains_skipped_total",
			Help: "Files skipped by the schema gate, by reason.",
		}, []string{"reason"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "erplens_http_requests_total",
			Help: "HTTP requests served, by route and status class.",
		}, []string{"route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "erplens_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}

// Handler returns the scrape endpoint for this metrics set
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
