package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartOperationsTotal counts cart store operations by outcome.
	CartOperationsTotal *prometheus.CounterVec
	// SubmissionsTotal counts quotation and contact submissions by outcome.
	SubmissionsTotal *prometheus.CounterVec
	// WebhookAttemptLatency records webhook call latency in milliseconds.
	WebhookAttemptLatency *prometheus.HistogramVec
	// CatalogFetchTotal counts catalog document loads by origin and outcome.
	CatalogFetchTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Count of cart operations by kind and outcome.",
		}, []string{"op", "result"})
		SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Count of quotation and contact submissions by outcome.",
		}, []string{"kind", "result"})
		WebhookAttemptLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "webhook_attempt_duration_ms",
			Help:      "Latency for webhook calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"result"})
		CatalogFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_fetch_total",
			Help:      "Count of catalog loads by origin and outcome.",
		}, []string{"origin", "result"})

		mustRegisterCollector(reg, CartOperationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartOperationsTotal = v
			}
		})
		mustRegisterCollector(reg, SubmissionsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SubmissionsTotal = v
			}
		})
		mustRegisterCollector(reg, WebhookAttemptLatency, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				WebhookAttemptLatency = v
			}
		})
		mustRegisterCollector(reg, CatalogFetchTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CatalogFetchTotal = v
			}
		})
	})
}

// ObserveCartOp increments the cart operation counter when metrics are registered.
func ObserveCartOp(op string, err error) {
	if CartOperationsTotal == nil {
		return
	}
	CartOperationsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

// ObserveSubmission increments the submission counter when metrics are registered.
func ObserveSubmission(kind, result string) {
	if SubmissionsTotal == nil {
		return
	}
	SubmissionsTotal.WithLabelValues(kind, result).Inc()
}

// ObserveCatalogFetch increments the catalog fetch counter when metrics are registered.
func ObserveCatalogFetch(origin string, err error) {
	if CatalogFetchTotal == nil {
		return
	}
	CatalogFetchTotal.WithLabelValues(origin, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
