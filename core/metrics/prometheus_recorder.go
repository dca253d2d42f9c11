package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "charsync"

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg             *prom.Registry
	versionsCreated prom.Counter
	conflicts       *prom.CounterVec
	evictions       prom.Counter
	applyDuration   *prom.HistogramVec
	cleanupRuns     *prom.CounterVec
}

// NewPrometheusRecorder constructs and registers the versioning metrics on reg.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		reg: reg,
		versionsCreated: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "versions_created_total",
			Help:      "State versions appended to entity ledgers",
		}),
		conflicts: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "conflicts_total",
			Help:      "Divergent applies by outcome",
		}, []string{"outcome"}),
		evictions: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "versions_evicted_total",
			Help:      "Versions dropped by the retention window",
		}),
		applyDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "apply_duration_seconds",
			Help:      "Duration of ApplyChanges calls",
			Buckets:   prom.DefBuckets,
		}, []string{"result"}),
		cleanupRuns: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Retention cleanup iterations by result",
		}, []string{"result"}),
	}
	reg.MustRegister(pr.versionsCreated, pr.conflicts, pr.evictions, pr.applyDuration, pr.cleanupRuns)
	return pr
}

// Registry returns the registry the metrics are registered on.
func (p *PrometheusRecorder) Registry() *prom.Registry { return p.reg }

// Handler serves the recorder's registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (p *PrometheusRecorder) IncVersionsCreated() { p.versionsCreated.Inc() }

func (p *PrometheusRecorder) IncConflict(outcome ConflictOutcome) {
	p.conflicts.WithLabelValues(string(outcome)).Inc()
}

func (p *PrometheusRecorder) AddEvictions(n int) {
	if n > 0 {
		p.evictions.Add(float64(n))
	}
}

func (p *PrometheusRecorder) ObserveApplyDuration(d time.Duration, success bool) {
	p.applyDuration.WithLabelValues(result(success)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncCleanupRun(success bool) {
	p.cleanupRuns.WithLabelValues(result(success)).Inc()
}

func result(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}
