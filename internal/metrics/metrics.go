// Package metrics exposes the pipeline's Prometheus counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the counters incremented by the ingest and fill paths.
type Metrics struct {
	OrdersCreated  prometheus.Counter
	OrdersFilled   prometheus.Counter
	PoisonMessages prometheus.Counter
}

// New registers the counters on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		OrdersCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_created_total",
			Help: "Total orders created",
		}),
		OrdersFilled: factory.NewCounter(prometheus.CounterOpts{
			Name: "orders_filled_total",
			Help: "Total orders filled",
		}),
		PoisonMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "poison_messages_total",
			Help: "Total unparseable order events dropped",
		}),
	}
}
