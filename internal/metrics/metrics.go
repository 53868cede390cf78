package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Cart records cart session activity. A nil *Cart is valid and records
// nothing, which keeps tests free of registries.
type Cart struct {
	mutations    *prometheus.CounterVec
	expirations  prometheus.Counter
	syncFailures *prometheus.CounterVec
	syncDropped  prometheus.Counter
	liveSessions prometheus.Gauge
}

// NewCart registers the cart metrics on the provided registerer.
func NewCart(reg prometheus.Registerer) *Cart {
	if reg == nil {
		return nil
	}
	c := &Cart{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "food4u_cart_mutations_total",
			Help: "Cart mutations by operation.",
		}, []string{"op"}),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "food4u_cart_expirations_total",
			Help: "Cart sessions discarded because their TTL elapsed.",
		}),
		syncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "food4u_cart_sync_failures_total",
			Help: "Failed writes to the cart session store by operation.",
		}, []string{"op"}),
		syncDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "food4u_cart_sync_dropped_total",
			Help: "Sync jobs dropped because the queue was full.",
		}),
		liveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "food4u_cart_live_sessions",
			Help: "Cart sessions held in memory.",
		}),
	}
	reg.MustRegister(c.mutations, c.expirations, c.syncFailures, c.syncDropped, c.liveSessions)
	return c
}

func (c *Cart) Mutation(op string) {
	if c == nil {
		return
	}
	c.mutations.WithLabelValues(normalizeLabel(op)).Inc()
}

func (c *Cart) Expired() {
	if c == nil {
		return
	}
	c.expirations.Inc()
}

func (c *Cart) SyncFailure(op string) {
	if c == nil {
		return
	}
	c.syncFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

func (c *Cart) SyncDropped() {
	if c == nil {
		return
	}
	c.syncDropped.Inc()
}

func (c *Cart) SetLiveSessions(n int) {
	if c == nil {
		return
	}
	c.liveSessions.Set(float64(n))
}

// Outbox records order event publishing.
type Outbox struct {
	published *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

func NewOutbox(reg prometheus.Registerer) *Outbox {
	if reg == nil {
		return nil
	}
	o := &Outbox{
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "food4u_outbox_published_total",
			Help: "Order events published to the broker.",
		}, []string{"event_type"}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "food4u_outbox_publish_failures_total",
			Help: "Order events that failed to publish.",
		}, []string{"event_type"}),
	}
	reg.MustRegister(o.published, o.failed)
	return o
}

func (o *Outbox) Published(eventType string) {
	if o == nil {
		return
	}
	o.published.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (o *Outbox) Failed(eventType string) {
	if o == nil {
		return
	}
	o.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
