package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		subscriptionsActivated,
		subscriptionsCancelled,
		subscriptionsExpired,
	)
}

var (
	subscriptionsActivated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "subscriptions_activated_total",
		Help: "Subscriptions promoted to active by a completed payment.",
	})

	subscriptionsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "subscriptions_cancelled_total",
		Help: "Subscriptions explicitly cancelled.",
	})

	subscriptionsExpired = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "subscriptions_expired_total",
		Help: "Active subscriptions finished by the expiry worker.",
	})
)

func IncSubscriptionActivated() { subscriptionsActivated.Inc() }
func IncSubscriptionCancelled() { subscriptionsCancelled.Inc() }

func IncSubscriptionsExpired(n int) {
	if n > 0 {
		subscriptionsExpired.Add(float64(n))
	}
}
