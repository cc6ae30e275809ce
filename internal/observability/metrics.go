package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_requests_total",
			Help: "Total wizard HTTP requests",
		}, []string{"code"},
	)
	Latency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wizard_request_duration_seconds",
		Help:    "Request latency seconds",
		Buckets: prometheus.DefBuckets,
	})
	InFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wizard_in_flight",
		Help: "In-flight HTTP requests",
	})
	UpstreamCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_upstream_calls_total",
			Help: "Calls to the promo REST API by endpoint and status",
		}, []string{"endpoint", "code"},
	)
	DraftSaveErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wizard_draft_save_errors_total",
		Help: "Draft writes that failed and were dropped",
	})
	StaleLookups = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wizard_stale_lookups_total",
		Help: "Reference lookups discarded because a newer one was issued",
	})
	IdleLogouts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wizard_idle_logouts_total",
		Help: "Sessions expired by the idle watcher",
	})
)

func init() {
	prometheus.MustRegister(RequestsTotal, Latency, InFlight, UpstreamCalls, DraftSaveErrors, StaleLookups, IdleLogouts)
}

func MetricsHandler() http.Handler { return promhttp.Handler() }

type rec struct {
	http.ResponseWriter
	code int
}

func (r *rec) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func Measure(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		InFlight.Inc()
		defer InFlight.Dec()

		rr := &rec{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rr, r)

		Latency.Observe(time.Since(start).Seconds())
		RequestsTotal.WithLabelValues(strconv.Itoa(rr.code)).Inc()
	})
}

// Upstream records one REST API call.
func Upstream(endpoint string, code int) {
	UpstreamCalls.WithLabelValues(endpoint, strconv.Itoa(code)).Inc()
}
