// Package metrics holds the Prometheus collectors for the dispatch service.
// Everything is registered on a private Registry exposed at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// AvailabilityQueries counts resolver calls by data source ("internal", "internal+external", "empty").
var AvailabilityQueries = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "availability_queries_total",
	Help:      "Availability queries served, by data source",
}, []string{"source"})

var SlotsReturned = factory.NewHistogram(prometheus.HistogramOpts{
	Namespace: "dispatch",
	Name:      "availability_slots_returned",
	Help:      "Number of candidate slots returned per availability query",
	Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 200},
})

var HoldsCreated = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "holds_created_total",
	Help:      "Holds successfully placed",
})

var AppointmentsBooked = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "appointments_booked_total",
	Help:      "Appointments committed, by priority tier",
}, []string{"priority"})

var AppointmentsCanceled = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "appointments_canceled_total",
	Help:      "Appointments transitioned to canceled",
})

// Conflicts counts exclusion-constraint rejections by operation ("hold", "book", "update").
var Conflicts = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "conflicts_total",
	Help:      "Hold or booking attempts rejected because the technician was already taken",
}, []string{"operation"})

// CalendarDegraded counts swallowed external calendar failures by operation.
var CalendarDegraded = factory.NewCounterVec(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "calendar_degraded_total",
	Help:      "External calendar calls that failed and were skipped",
}, []string{"operation"})

var ShiftsPublished = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "shifts_published_total",
	Help:      "Shift rows written by the bulk publisher",
})

var HoldsSwept = factory.NewCounter(prometheus.CounterOpts{
	Namespace: "dispatch",
	Name:      "holds_swept_total",
	Help:      "Expired holds physically removed by the sweeper",
})

var OperationDuration = factory.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "dispatch",
	Name:      "operation_duration_seconds",
	Help:      "Latency of scheduling operations",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
}, []string{"operation"})

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
