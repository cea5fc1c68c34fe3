// Package metrics provides Prometheus metrics for the HTTP server and the OMEQ pipeline.
// HTTP metrics:
//   - http_request_total: Counter with method, path, and status labels
//   - http_request_duration_seconds: Histogram with method and path labels
//   - http_request_in_flight: Gauge for concurrent requests
//   - rate_limiter_buckets_total: Gauge for tracked client buckets
//
// Domain metrics:
//   - omeq_calculations_total: Counter with the result reason
//   - omeq_resolutions_total: Counter with the resolver outcome
//   - omeq_catalog_products, omeq_catalog_codes, omeq_catalog_conflicts: Gauges for the loaded snapshot
//   - omeq_catalog_reloads_total: Counter with the reload result
//
// All metrics are registered with the Prometheus default registry during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Resolution outcomes
const (
	OutcomeResolved   = "resolved"
	OutcomeAmbiguous  = "ambiguous"
	OutcomeUnresolved = "unresolved"
)

var (
	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)

	RateLimiterBucketsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rate_limiter_buckets_total",
			Help: "Total number of rate limiter buckets (IPs seen in last ~5 minutes)",
		},
	)

	OMEQCalculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omeq_calculations_total",
			Help: "OMEQ calculations by result reason",
		},
		[]string{"reason"},
	)

	ResolutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omeq_resolutions_total",
			Help: "Medication resolutions by outcome",
		},
		[]string{"outcome"},
	)

	CatalogProducts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "omeq_catalog_products",
			Help: "Products in the active catalog snapshot",
		},
	)

	CatalogCodes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "omeq_catalog_codes",
			Help: "Unique product codes in the active catalog snapshot",
		},
	)

	CatalogConflicts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "omeq_catalog_conflicts",
			Help: "Product codes shared by more than one product",
		},
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "omeq_catalog_reloads_total",
			Help: "Catalog loads by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
	prometheus.MustRegister(RateLimiterBucketsTotal)
	prometheus.MustRegister(OMEQCalculationsTotal)
	prometheus.MustRegister(ResolutionsTotal)
	prometheus.MustRegister(CatalogProducts)
	prometheus.MustRegister(CatalogCodes)
	prometheus.MustRegister(CatalogConflicts)
	prometheus.MustRegister(CatalogReloadsTotal)
}

// RecordCalculation counts one OMEQ calculation. An empty reason counts as ok.
func RecordCalculation(reason string) {
	if reason == "" {
		reason = "ok"
	}
	OMEQCalculationsTotal.WithLabelValues(reason).Inc()
}

// RecordResolution counts one resolver call
func RecordResolution(outcome string) {
	ResolutionsTotal.WithLabelValues(outcome).Inc()
}

// SetCatalogSize publishes the size of a freshly built snapshot
func SetCatalogSize(products, codes, conflicts int) {
	CatalogProducts.Set(float64(products))
	CatalogCodes.Set(float64(codes))
	CatalogConflicts.Set(float64(conflicts))
}

// RecordCatalogReload counts a catalog load attempt
func RecordCatalogReload(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	CatalogReloadsTotal.WithLabelValues(result).Inc()
}
