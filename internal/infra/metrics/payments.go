package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		paymentTransitionsTotal,
		paymentsRevenueTotal,
		platformFeeTotal,
		trainerPayoutTotal,
	)
}

var (
	paymentTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_transitions_total",
			Help: "Payment status transitions by resulting status.",
		},
		[]string{"status"},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_revenue_total",
			Help: "Gross value of completed payments in minor units, by currency.",
		},
		[]string{"currency"},
	)

	platformFeeTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_platform_fee_total",
			Help: "Platform fee taken from completed payments in minor units, by currency.",
		},
		[]string{"currency"},
	)

	trainerPayoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_trainer_payout_total",
			Help: "Trainer payout allocated from completed payments in minor units, by currency.",
		},
		[]string{"currency"},
	)
)

func IncPaymentTransition(status string) {
	paymentTransitionsTotal.WithLabelValues(norm(status)).Inc()
}

func AddRevenue(currency string, gross, fee, payout int64) {
	c := norm(currency)
	paymentsRevenueTotal.WithLabelValues(c).Add(float64(gross))
	platformFeeTotal.WithLabelValues(c).Add(float64(fee))
	trainerPayoutTotal.WithLabelValues(c).Add(float64(payout))
}
