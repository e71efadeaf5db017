package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Prom struct {
	gatherer prometheus.Gatherer

	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Registration ledger outcomes
	LedgerResults *prometheus.CounterVec

	// Poster extraction (ocr, llm)
	ExtractionDuration *prometheus.HistogramVec
	ExtractionResults  *prometheus.CounterVec
}

func NewProm(reg *prometheus.Registry) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventparser",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventparser",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "eventparser",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventparser",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventparser",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		LedgerResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventparser",
				Subsystem: "ledger",
				Name:      "results_total",
				Help:      "Register/unregister outcomes.",
			},
			[]string{"op", "result"}, // result=ok|full|duplicate|not_registered|not_found|error
		),
		ExtractionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "eventparser",
				Subsystem: "extraction",
				Name:      "duration_seconds",
				Help:      "Poster extraction stage latency.",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
			[]string{"stage"},
		),
		ExtractionResults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "eventparser",
				Subsystem: "extraction",
				Name:      "results_total",
				Help:      "Poster extraction outcomes by stage.",
			},
			[]string{"stage", "result"}, // result=ok|empty|skipped|unparseable|timeout|error
		),
	}
	p.gatherer = reg
	reg.MustRegister(p.RequestsTotal, p.RequestsDuration, p.InFlight, p.DbQueryDuration, p.DbErrorsTotal,
		p.LedgerResults, p.ExtractionDuration, p.ExtractionResults)

	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prom) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

func (p *Prom) ObserveLedger(op, result string) {
	if p == nil {
		return
	}
	p.LedgerResults.WithLabelValues(op, result).Inc()
}

func (p *Prom) ObserveExtraction(stage, result string, d time.Duration) {
	if p == nil {
		return
	}
	p.ExtractionDuration.WithLabelValues(stage).Observe(d.Seconds())
	p.ExtractionResults.WithLabelValues(stage, result).Inc()
}

func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		// route template is only available after routing; best effort:
		route := ctx.FullPath()

		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
