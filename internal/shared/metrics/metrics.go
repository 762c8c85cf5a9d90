// Package metrics exposes Prometheus collectors for the document workflow.
package metrics

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docflow"

// Metrics owns the registry and every collector the service reports.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	documentsUploaded  prometheus.Counter
	statusTransitions  *prometheus.CounterVec
	signaturesCreated  prometheus.Counter
	signingRejected    *prometheus.CounterVec
	signaturesRemoved  prometheus.Counter
	verifications      *prometheus.CounterVec
	signDuration       prometheus.Histogram
	auditJobs          *prometheus.CounterVec
	httpRequestSeconds *prometheus.HistogramVec
}

// New creates a Metrics instance backed by a fresh registry.
func New() (*Metrics, error) {
	reg := prometheus.NewRegistry()
	if err := reg.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return nil, fmt.Errorf("register process collector: %w", err)
	}
	if err := reg.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("register go collector: %w", err)
	}

	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		documentsUploaded: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "uploaded_total",
			Help:      "Total documents uploaded.",
		}),
		statusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "documents",
			Name:      "status_transitions_total",
			Help:      "Document status transitions by target status.",
		}, []string{"to"}),
		signaturesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signatures",
			Name:      "created_total",
			Help:      "Total signatures recorded.",
		}),
		signingRejected: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signatures",
			Name:      "rejected_total",
			Help:      "Signing attempts rejected by a business rule.",
		}, []string{"reason"}),
		signaturesRemoved: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signatures",
			Name:      "removed_total",
			Help:      "Signatures removed by an administrator.",
		}),
		verifications: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "signatures",
			Name:      "verifications_total",
			Help:      "Signature integrity verifications by result.",
		}, []string{"result"}),
		signDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "signatures",
			Name:      "sign_duration_seconds",
			Help:      "Time spent validating and recording a signature.",
			Buckets:   prometheus.DefBuckets,
		}),
		auditJobs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "jobs_total",
			Help:      "Integrity audit jobs handled by the worker, by outcome.",
		}, []string{"outcome"}),
		httpRequestSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncDocumentsUploaded increments the upload counter.
func (m *Metrics) IncDocumentsUploaded() {
	if m == nil {
		return
	}
	m.documentsUploaded.Inc()
}

// IncStatusTransition counts a transition into status.
func (m *Metrics) IncStatusTransition(status string) {
	if m == nil {
		return
	}
	m.statusTransitions.WithLabelValues(status).Inc()
}

// IncSignaturesCreated increments the signature counter.
func (m *Metrics) IncSignaturesCreated() {
	if m == nil {
		return
	}
	m.signaturesCreated.Inc()
}

// IncSigningRejected counts a rejected signing attempt.
func (m *Metrics) IncSigningRejected(reason string) {
	if m == nil {
		return
	}
	m.signingRejected.WithLabelValues(reason).Inc()
}

// IncSignaturesRemoved increments the removal counter.
func (m *Metrics) IncSignaturesRemoved() {
	if m == nil {
		return
	}
	m.signaturesRemoved.Inc()
}

// ObserveVerification records a verification outcome.
func (m *Metrics) ObserveVerification(valid bool) {
	if m == nil {
		return
	}
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.verifications.WithLabelValues(result).Inc()
}

// ObserveSignDuration records how long a signing attempt took.
func (m *Metrics) ObserveSignDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.signDuration.Observe(d.Seconds())
}

// IncAuditJob counts an audit job by outcome: received, valid, tampered,
// unrecoverable or failed.
func (m *Metrics) IncAuditJob(outcome string) {
	if m == nil {
		return
	}
	m.auditJobs.WithLabelValues(outcome).Inc()
}

// Middleware records request latency per matched route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestSeconds.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler exposes metrics in Prometheus text format.
func (m *Metrics) Handler() gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) {
			c.Status(http.StatusNotFound)
		}
	}
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return gin.WrapH(h)
}
