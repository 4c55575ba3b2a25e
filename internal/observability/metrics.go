package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce            sync.Once
	httpRequestsTotal       *prometheus.CounterVec
	httpLatencySeconds      *prometheus.HistogramVec
	httpErrorsTotal         *prometheus.CounterVec
	rosterRowsImportedTotal *prometheus.CounterVec
	rosterImportFailures    *prometheus.CounterVec
	attendanceSubmitted     prometheus.Counter
	attendanceDecidedTotal  *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		rosterRowsImportedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_rows_imported_total",
			Help: "Roster rows successfully imported, labelled by sheet type.",
		}, []string{"sheet"})

		rosterImportFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_import_failures_total",
			Help: "Roster imports aborted by an error, labelled by sheet type.",
		}, []string{"sheet"})

		attendanceSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_submissions_total",
			Help: "Attendance submissions accepted into the ledger.",
		})

		attendanceDecidedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_decisions_total",
			Help: "Teacher approve/reject decisions, labelled by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			rosterRowsImportedTotal,
			rosterImportFailures,
			attendanceSubmitted,
			attendanceDecidedTotal,
		)
	})
}

// HTTPRequests exposes the counter for served requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for served requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// RosterRowsImported exposes the counter for imported roster rows.
func RosterRowsImported() *prometheus.CounterVec {
	RegisterMetrics()
	return rosterRowsImportedTotal
}

// RosterImportFailures exposes the counter for failed imports.
func RosterImportFailures() *prometheus.CounterVec {
	RegisterMetrics()
	return rosterImportFailures
}

// AttendanceSubmitted exposes the counter for accepted submissions.
func AttendanceSubmitted() prometheus.Counter {
	RegisterMetrics()
	return attendanceSubmitted
}

// AttendanceDecided exposes the counter for approve/reject decisions.
func AttendanceDecided() *prometheus.CounterVec {
	RegisterMetrics()
	return attendanceDecidedTotal
}
