package observability

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce           sync.Once
	apiRequestsTotal       *prometheus.CounterVec
	apiLatencySeconds      *prometheus.HistogramVec
	apiErrorsTotal         *prometheus.CounterVec
	ingestOutcomesTotal    *prometheus.CounterVec
	ingestDurationSeconds  *prometheus.HistogramVec
	planProvisioningTotal  *prometheus.CounterVec
	resultUpsertsTotal     *prometheus.CounterVec
	resultsConsolidatedCnt prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors used by the API and the grading engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_api_requests_total",
			Help: "Total number of assessment API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_api_latency_seconds",
			Help:    "Latency distribution for assessment API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_api_errors_total",
			Help: "Total number of error responses returned by assessment endpoints.",
		}, []string{"method", "route", "status"})

		ingestOutcomesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_ingest_outcomes_total",
			Help: "Submission ingestion outcomes by source, status and failing stage.",
		}, []string{"source", "status", "stage"})

		ingestDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "assessment_ingest_duration_seconds",
			Help:    "Time spent reconciling a submission into its assessment result.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}, []string{"source"})

		planProvisioningTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_plan_provisioning_total",
			Help: "Assessment plan resolutions by provisioning status.",
		}, []string{"status"})

		resultUpsertsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "assessment_result_upserts_total",
			Help: "Assessment result upserts split by whether the result was created.",
		}, []string{"created"})

		resultsConsolidatedCnt = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "assessment_results_consolidated_total",
			Help: "Duplicate assessment results cancelled by consolidation.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			ingestOutcomesTotal,
			ingestDurationSeconds,
			planProvisioningTotal,
			resultUpsertsTotal,
			resultsConsolidatedCnt,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// IngestOutcomes exposes the ingestion outcome counter.
func IngestOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return ingestOutcomesTotal
}

// IngestDuration exposes the ingestion latency histogram.
func IngestDuration() *prometheus.HistogramVec {
	RegisterMetrics()
	return ingestDurationSeconds
}

// PlanProvisioning exposes the plan provisioning counter.
func PlanProvisioning() *prometheus.CounterVec {
	RegisterMetrics()
	return planProvisioningTotal
}

// ResultUpserts exposes the result upsert counter.
func ResultUpserts() *prometheus.CounterVec {
	RegisterMetrics()
	return resultUpsertsTotal
}

// ResultsConsolidated exposes the consolidation counter.
func ResultsConsolidated() prometheus.Counter {
	RegisterMetrics()
	return resultsConsolidatedCnt
}

// MetricsHandler serves the registered collectors for scraping. A collector
// failing to gather does not hide the others.
func MetricsHandler() fiber.Handler {
	RegisterMetrics()
	return adaptor.HTTPHandler(promhttp.HandlerFor(prometheus.DefaultGatherer, promhttp.HandlerOpts{
		ErrorHandling:     promhttp.ContinueOnError,
		EnableOpenMetrics: true,
	}))
}
