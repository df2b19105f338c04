package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringbook",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	callsHandled = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringbook",
			Name:      "calls_handled_total",
			Help:      "Count of voice calls reaching a terminal state, by outcome.",
		},
		[]string{"outcome"},
	)

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringbook",
			Name:      "bookings_created_total",
			Help:      "Count of successful slot reservations by source.",
		},
		[]string{"source"},
	)

	reservationConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ringbook",
			Name:      "reservation_conflicts_total",
			Help:      "Count of reservations lost to a race or an already booked slot.",
		},
	)

	notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ringbook",
			Name:      "notifications_total",
			Help:      "Count of staff notifications by channel and result.",
		},
		[]string{"channel", "result"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, callsHandled, bookingsCreated, reservationConflicts, notifications)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncCallHandled(outcome string) {
	callsHandled.WithLabelValues(outcome).Inc()
}

func IncBookingCreated(source string) {
	bookingsCreated.WithLabelValues(source).Inc()
}

func IncReservationConflict() {
	reservationConflicts.Inc()
}

func IncNotification(channel, result string) {
	notifications.WithLabelValues(channel, result).Inc()
}
