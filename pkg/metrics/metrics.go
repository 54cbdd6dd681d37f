package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collectors for the payment verification pipeline. Registered on the
// default registry so cmd/server only has to mount promhttp.
var (
	ProviderCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "paywatch_provider_calls_total",
		Help: "Block explorer and price endpoint calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	ChecksRun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywatch_payment_checks_total",
		Help: "Scheduled payment checks executed.",
	})

	InvoicesPaid = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywatch_invoices_paid_total",
		Help: "Invoices that reached the paid state.",
	})

	InvoiceRollovers = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywatch_invoice_rollovers_total",
		Help: "Partial payments rolled into a new invoice.",
	})

	ChecksExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywatch_payment_checks_expired_total",
		Help: "Payment checks abandoned after the 24h hard stop.",
	})

	CheckErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "paywatch_payment_check_errors_total",
		Help: "Payment checks that failed unexpectedly and were rescheduled.",
	})
)

const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// ObserveProviderCall records one provider round trip.
func ObserveProviderCall(provider string, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	ProviderCalls.WithLabelValues(provider, outcome).Inc()
}
