package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bot's collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	invocations  *prometheus.CounterVec
	inspected    prometheus.Counter
	eligible     prometheus.Counter
	replies      *prometheus.CounterVec
	cursorWrites *prometheus.CounterVec
}

// New registers the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jankie_invocations_total",
			Help: "Scan invocations by result (success, failure).",
		}, []string{"result"}),
		inspected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jankie_comments_inspected_total",
			Help: "Comments inspected newer than the stored cursor.",
		}),
		eligible: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "jankie_eligible_comments_total",
			Help: "Inspected comments that matched a trigger phrase.",
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jankie_replies_total",
			Help: "Replies posted (mode=live) or only logged (mode=dry_run).",
		}, []string{"mode"}),
		cursorWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "jankie_cursor_writes_total",
			Help: "Cursor writes performed (mode=live) or only logged (mode=dry_run).",
		}, []string{"mode"}),
	}

	reg.MustRegister(
		m.invocations,
		m.inspected,
		m.eligible,
		m.replies,
		m.cursorWrites,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Invocation(result string) { m.invocations.WithLabelValues(result).Inc() }
func (m *Metrics) Inspected(n int)          { m.inspected.Add(float64(n)) }
func (m *Metrics) Eligible(n int)           { m.eligible.Add(float64(n)) }
func (m *Metrics) Reply(mode string)        { m.replies.WithLabelValues(mode).Inc() }
func (m *Metrics) CursorWrite(mode string)  { m.cursorWrites.WithLabelValues(mode).Inc() }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
