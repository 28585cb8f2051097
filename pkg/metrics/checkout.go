package metrics

import "github.com/prometheus/client_golang/prometheus"

// Fulfillment sources.
const (
	SourceWebhook = "webhook"
	SourcePoll    = "poll"
	SourceSweeper = "sweeper"
)

// CheckoutMetrics counts checkout session lifecycle transitions.
type CheckoutMetrics struct {
	sessionsCreated prometheus.Counter
	fulfilled       *prometheus.CounterVec
	expired         *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
}

func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessionsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_sessions_created_total",
		Help:      "Checkout sessions opened with the payment provider.",
	})
	fulfilled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_fulfilled_total",
		Help:      "Orders transitioned to fulfilled, by the path that observed payment.",
	}, []string{"source"})
	expired := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_expired_total",
		Help:      "Orders transitioned to expired.",
	}, []string{"source"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "stripe_webhook_events_total",
		Help:      "Stripe webhook deliveries, by event type and outcome.",
	}, []string{"type", "outcome"})
	reg.MustRegister(sessionsCreated, fulfilled, expired, webhookEvents)
	return &CheckoutMetrics{
		sessionsCreated: sessionsCreated,
		fulfilled:       fulfilled,
		expired:         expired,
		webhookEvents:   webhookEvents,
	}
}

func (c *CheckoutMetrics) IncSessionCreated() {
	if c == nil || c.sessionsCreated == nil {
		return
	}
	c.sessionsCreated.Inc()
}

func (c *CheckoutMetrics) IncFulfilled(source string) {
	if c == nil || c.fulfilled == nil {
		return
	}
	c.fulfilled.WithLabelValues(normalizeLabel(source)).Inc()
}

func (c *CheckoutMetrics) IncExpired(source string) {
	if c == nil || c.expired == nil {
		return
	}
	c.expired.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncWebhookEvent records a webhook outcome such as processed, duplicate, ignored or failed.
func (c *CheckoutMetrics) IncWebhookEvent(eventType, outcome string) {
	if c == nil || c.webhookEvents == nil {
		return
	}
	c.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}
