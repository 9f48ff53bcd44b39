// Package status provides the shared view of the latest pipeline state.
// The inference worker is the only writer; presentation consumers (HTTP
// API, dashboards) read snapshot copies under a short read lock and never
// touch pipeline internals.
package status

import (
	"sync"
	"time"

	"github.com/sortacle/sortacle/internal/waste"
)

// PipelineState is the externally visible state of the pipeline. It always
// reflects the most recently completed inference cycle, never a partial one.
type PipelineState struct {
	LatestDetections []waste.Detection `json:"latest_detections"`
	InferenceSource  waste.Source      `json:"inference_source"`
	InferenceTimeMs  float64           `json:"inference_time_ms"`
	Paused           bool              `json:"paused"`
	LastTriggerTime  time.Time         `json:"last_trigger_time"`
}

// Hub is the single synchronised holder of PipelineState.
type Hub struct {
	mu    sync.RWMutex
	state PipelineState
}

func NewHub() *Hub {
	return &Hub{}
}

// CompleteCycle publishes the outcome of one inference cycle in a single
// atomic write. The detections slice is copied so later mutation by the
// caller cannot leak into readers.
func (h *Hub) CompleteCycle(detections []waste.Detection, source waste.Source, inferenceTimeMs float64) {
	copied := make([]waste.Detection, len(detections))
	copy(copied, detections)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.LatestDetections = copied
	h.state.InferenceSource = source
	h.state.InferenceTimeMs = inferenceTimeMs
}

// MarkTrigger records the time of the latest admitted actuation.
func (h *Hub) MarkTrigger(t time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.LastTriggerTime = t
}

// SetPaused flips the paused flag.
func (h *Hub) SetPaused(paused bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.Paused = paused
}

// Paused reports the paused flag.
func (h *Hub) Paused() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state.Paused
}

// Snapshot returns a copy of the current state. The detections slice in the
// returned value is owned by the caller.
func (h *Hub) Snapshot() PipelineState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := h.state
	out.LatestDetections = make([]waste.Detection, len(h.state.LatestDetections))
	copy(out.LatestDetections, h.state.LatestDetections)
	return out
}

// LatestDetections returns a copy of the latest detection list. The
// actuator's clear-wait polls this.
func (h *Hub) LatestDetections() []waste.Detection {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]waste.Detection, len(h.state.LatestDetections))
	copy(out, h.state.LatestDetections)
	return out
}
