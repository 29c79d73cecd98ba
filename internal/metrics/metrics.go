package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Registry holds the valuator's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	cacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valuator",
			Subsystem: "cache",
			Name:      "requests_total",
			Help:      "Price cache lookups by namespace and result.",
		},
		[]string{"namespace", "result"},
	)

	lpPriceComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valuator",
			Subsystem: "pricing",
			Name:      "lp_price_computations_total",
			Help:      "LP fair price computations by method.",
		},
		[]string{"method"},
	)

	vaultPricingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valuator",
			Subsystem: "pipeline",
			Name:      "vault_pricing_failures_total",
			Help:      "Vaults whose unit price defaulted to zero after a pricing failure.",
		},
		[]string{"kind"},
	)

	pipelineDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "valuator",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of wallet valuation runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	upstreamRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "valuator",
			Subsystem: "upstream",
			Name:      "retries_total",
			Help:      "Collaborator call retries by operation.",
		},
		[]string{"op"},
	)
)

func init() {
	Registry.MustRegister(
		cacheRequests,
		lpPriceComputations,
		vaultPricingFailures,
		pipelineDuration,
		upstreamRetries,
	)
}

// CacheRequest records a cache lookup.
func CacheRequest(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheRequests.WithLabelValues(namespace, result).Inc()
}

// LpPriceComputed records which method produced an LP price.
func LpPriceComputed(method string) {
	lpPriceComputations.WithLabelValues(method).Inc()
}

// VaultPricingFailed records a vault degraded to a zero price.
func VaultPricingFailed(kind string) {
	vaultPricingFailures.WithLabelValues(kind).Inc()
}

// ObservePipelineRun records the duration of one valuation run in seconds.
func ObservePipelineRun(seconds float64) {
	pipelineDuration.Observe(seconds)
}

// UpstreamRetry records a retried collaborator call.
func UpstreamRetry(op string) {
	upstreamRetries.WithLabelValues(op).Inc()
}

// WriteTextfile dumps the registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
