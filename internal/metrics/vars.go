package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Evaluations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_evaluations_total",
		Help: "Number of round-trip evaluations run",
	})

	ProfitableFound = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_profitable_total",
		Help: "Number of evaluations that cleared the margin threshold",
	})

	QuoteErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arb_quote_errors_total",
		Help: "Number of failed quote requests",
	})

	QuoteLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "arb_quote_latency_seconds",
		Help:    "Time to obtain a quote from the provider",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(
		Evaluations,
		ProfitableFound,
		QuoteErrors,
		QuoteLatency,
	)
}
