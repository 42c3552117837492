// internal/service/reservation/interfaces/metrics.go
package interfaces

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockgate_reservations_total",
		Help: "Reservation requests by outcome.",
	}, []string{"outcome"}) // accepted | insufficient_stock | invalid_params | error

	cancellationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockgate_cancellations_total",
		Help: "Cancellation requests by outcome.",
	}, []string{"outcome"}) // success | not_found | error

	fulfillmentEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockgate_fulfillment_events_total",
		Help: "Fulfillment events by processing outcome.",
	}, []string{"outcome"}) // committed | retried | dead_lettered

	productReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockgate_product_reads_total",
		Help: "Product reads by source.",
	}, []string{"source"}) // cache | store
)
