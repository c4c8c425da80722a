package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds pipeline-level prometheus metrics.
type Metrics struct {
	requests      *prometheus.CounterVec
	stageFailures *prometheus.CounterVec
}

// NewMetrics creates pipeline metrics and registers them with reg when
// non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minuted_pipeline_requests_total",
			Help: "Processed transcript requests by outcome (ok, partial).",
		}, []string{"status"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minuted_pipeline_stage_failures_total",
			Help: "Recorded stage errors by stage name.",
		}, []string{"stage"}),
	}
	if reg != nil {
		reg.MustRegister(m.requests, m.stageFailures)
	}
	return m
}

func (m *Metrics) observeResult(res *Result) {
	status := "ok"
	if !res.OK() {
		status = "partial"
	}
	m.requests.WithLabelValues(status).Inc()
}

func (m *Metrics) observeStageFailure(stage string) {
	m.stageFailures.WithLabelValues(stage).Inc()
}
