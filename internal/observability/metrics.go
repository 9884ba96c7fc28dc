package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Pipeline outcomes.
const (
	OutcomePersisted  = "persisted"
	OutcomeDuplicate  = "duplicate"
	OutcomeIrrelevant = "irrelevant"
	OutcomeInvalid    = "invalid"
	OutcomeFailed     = "failed"
)

// Metrics holds the Prometheus collectors for the transcript pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	WebhookEventsTotal  *prometheus.CounterVec
	PipelineRunsTotal   *prometheus.CounterVec
	StepSeconds         *prometheus.HistogramVec
	ModelCallsTotal     *prometheus.CounterVec
	DownloadAttempts    *prometheus.CounterVec
	NotificationsTotal  *prometheus.CounterVec
	InteractionsTotal   *prometheus.CounterVec
	BackgroundRunsGauge prometheus.Gauge
}

// NewMetrics registers the pipeline collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_webhook_events_total",
				Help: "Zoom webhook deliveries by event and response outcome",
			},
			[]string{"event", "outcome"},
		),
		PipelineRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_pipeline_runs_total",
				Help: "Completed background pipeline runs by outcome",
			},
			[]string{"outcome"},
		),
		StepSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "copilot_pipeline_step_seconds",
				Help:    "Latency of each pipeline step",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"step"},
		),
		ModelCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_model_calls_total",
				Help: "Model invocations by operation and status",
			},
			[]string{"operation", "status"},
		),
		DownloadAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_download_attempts_total",
				Help: "Transcript download attempts by status",
			},
			[]string{"status"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_notifications_total",
				Help: "Host notifications by status",
			},
			[]string{"status"},
		),
		InteractionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "copilot_interactions_total",
				Help: "Slack interaction payloads by action and status",
			},
			[]string{"action", "status"},
		),
		BackgroundRunsGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "copilot_background_runs_in_flight",
				Help: "Pipeline runs currently executing in the background",
			},
		),
	}
}

func (m *Metrics) WebhookEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) PipelineRun(outcome string) {
	if m == nil {
		return
	}
	m.PipelineRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveStep records the time since start for step.
func (m *Metrics) ObserveStep(step string, start time.Time) {
	if m == nil {
		return
	}
	m.StepSeconds.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

func (m *Metrics) ModelCall(operation, status string) {
	if m == nil {
		return
	}
	m.ModelCallsTotal.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) DownloadAttempt(status string) {
	if m == nil {
		return
	}
	m.DownloadAttempts.WithLabelValues(status).Inc()
}

func (m *Metrics) Notification(status string) {
	if m == nil {
		return
	}
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) Interaction(action, status string) {
	if m == nil {
		return
	}
	m.InteractionsTotal.WithLabelValues(action, status).Inc()
}

func (m *Metrics) BackgroundStarted() {
	if m == nil {
		return
	}
	m.BackgroundRunsGauge.Inc()
}

func (m *Metrics) BackgroundFinished() {
	if m == nil {
		return
	}
	m.BackgroundRunsGauge.Dec()
}
