package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service
type Metrics struct {
	registry *prometheus.Registry

	Collections      *prometheus.CounterVec
	AmountCollected  prometheus.Counter
	DefaultsRecorded prometheus.Counter
	DefaultsResolved prometheus.Counter
	LoansCreated     *prometheus.CounterVec
	Notifications    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
}

// New registers every collector on a fresh registry together with the Go and
// process collectors
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		Collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_emi_collections_total",
			Help: "EMI collection events applied, by status.",
		}, []string{"status"}),
		AmountCollected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lending_amount_collected_total",
			Help: "Sum of amounts collected on Paid events and resolved defaults.",
		}),
		DefaultsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lending_defaults_recorded_total",
			Help: "Defaulted EMIs created.",
		}),
		DefaultsResolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lending_defaults_resolved_total",
			Help: "Defaulted EMIs settled.",
		}),
		LoansCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_loans_created_total",
			Help: "Loans created, by EMI type.",
		}, []string{"emi_type"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lending_notifications_total",
			Help: "Notification attempts, by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lending_http_request_duration_seconds",
			Help:    "HTTP request latency, by route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "code"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Collections,
		m.AmountCollected,
		m.DefaultsRecorded,
		m.DefaultsResolved,
		m.LoansCreated,
		m.Notifications,
		m.RequestDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records the latency of one HTTP request
func (m *Metrics) ObserveRequest(method, route string, code int, elapsed time.Duration) {
	m.RequestDuration.WithLabelValues(method, route, strconv.Itoa(code)).Observe(elapsed.Seconds())
}
