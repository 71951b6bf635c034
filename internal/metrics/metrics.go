// Package metrics exposes Prometheus counters for scanning, sending and
// receiving. A nil *Recorder is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Classification results.
const (
	ResultStudy    = "study"
	ResultOther    = "other"
	ResultRejected = "rejected"
)

// Recorder holds the application metrics on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	FilesClassifiedTotal *prometheus.CounterVec
	UploadAttemptsTotal  *prometheus.CounterVec
	InstancesSentTotal   prometheus.Counter
	TransitionsTotal     *prometheus.CounterVec
	ReceivedTotal        *prometheus.CounterVec
}

// New creates a Recorder with all metrics registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		registry: reg,
		FilesClassifiedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicomsend_files_classified_total",
				Help: "Files classified during scanning, by result",
			},
			[]string{"result"},
		),
		UploadAttemptsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicomsend_upload_attempts_total",
				Help: "Upload attempts, by outcome",
			},
			[]string{"outcome"},
		),
		InstancesSentTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "dicomsend_instances_sent_total",
				Help: "Instances anonymized and uploaded successfully",
			},
		),
		TransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicomsend_workflow_transitions_total",
				Help: "Workflow transitions, by target state",
			},
			[]string{"state"},
		),
		ReceivedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dicomsend_received_total",
				Help: "Instances received by the storage endpoint, by status",
			},
			[]string{"status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// FileClassified counts one catalog classification. A nil Recorder is a no-op,
// as for every method below.
func (r *Recorder) FileClassified(result string) {
	if r != nil {
		r.FilesClassifiedTotal.WithLabelValues(result).Inc()
	}
}

// UploadAttempt counts one POST by outcome.
func (r *Recorder) UploadAttempt(outcome string) {
	if r != nil {
		r.UploadAttemptsTotal.WithLabelValues(outcome).Inc()
	}
}

// InstanceSent counts one recorded upload.
func (r *Recorder) InstanceSent() {
	if r != nil {
		r.InstancesSentTotal.Inc()
	}
}

// Transition counts entering state.
func (r *Recorder) Transition(state string) {
	if r != nil {
		r.TransitionsTotal.WithLabelValues(state).Inc()
	}
}

// Received counts one upload handled by the receiver, by status.
func (r *Recorder) Received(status string) {
	if r != nil {
		r.ReceivedTotal.WithLabelValues(status).Inc()
	}
}
