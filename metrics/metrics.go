// Package metrics exports Prometheus counters for the session
// transport and action queue. It is the concrete implementation
// wired behind the small recorder interfaces those packages define,
// so neither depends on Prometheus directly.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every counter this module exports. Construct one
// with NewRegistry and register it with an http.Handler serving
// promhttp.Handler() at whatever path the caller chooses.
type Registry struct {
	FramesDiscarded   *prometheus.CounterVec
	FramesReassembled prometheus.Counter
	SegmentsEmitted   prometheus.Counter
	ActionsByResult   *prometheus.CounterVec
}

// NewRegistry constructs and registers every counter against reg. Pass
// prometheus.NewRegistry() for an isolated registry in tests, or
// prometheus.DefaultRegisterer for a process-wide one.
func NewRegistry(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		FramesDiscarded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mixsession",
			Subsystem: "reassembly",
			Name:      "frames_discarded_total",
			Help:      "Frames discarded by the reassembler, labeled by reason.",
		}, []string{"reason"}),
		FramesReassembled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mixsession",
			Subsystem: "reassembly",
			Name:      "frames_reassembled_total",
			Help:      "Frames successfully reassembled from segments.",
		}),
		SegmentsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "mixsession",
			Subsystem: "segmenter",
			Name:      "segments_emitted_total",
			Help:      "Segments emitted by the segmenter for transmission.",
		}),
		ActionsByResult: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mixsession",
			Subsystem: "chainactions",
			Name:      "actions_total",
			Help:      "Chain actions processed, labeled by action kind and result.",
		}, []string{"action", "result"}),
	}
}

// RecordAction implements chainactions.MetricsRecorder.
func (r *Registry) RecordAction(actionKind, result string) {
	r.ActionsByResult.WithLabelValues(actionKind, result).Inc()
}

// RecordFrameDiscarded records a frame dropped by the reassembler for
// the given reason (e.g. "capacity", "age"). Implements
// session.MetricsRecorder.
func (r *Registry) RecordFrameDiscarded(reason string) {
	r.FramesDiscarded.WithLabelValues(reason).Inc()
}

// RecordFrameReassembled implements session.MetricsRecorder.
func (r *Registry) RecordFrameReassembled() {
	r.FramesReassembled.Inc()
}

// RecordSegmentEmitted implements session.MetricsRecorder.
func (r *Registry) RecordSegmentEmitted() {
	r.SegmentsEmitted.Inc()
}
