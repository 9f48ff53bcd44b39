// Package waste holds the domain model for the sorting controller:
// detections produced by the classifier, the closed material category
// table, and the disposal events persisted after each actuation cycle.
package waste

import "time"

// Source identifies which classifier implementation produced a result.
type Source string

const (
	SourceLocal  Source = "local"
	SourceRemote Source = "remote"
)

// Detection is one classified object instance. Instances are produced
// fresh for every classification call and are never mutated afterwards.
type Detection struct {
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	BBox       [4]float64 `json:"bbox"` // x1, y1, x2, y2 with x1 < x2, y1 < y2
}

// ClassificationResult is the output of a single inference cycle.
type ClassificationResult struct {
	Detections      []Detection `json:"detections"`
	Source          Source      `json:"source"`
	InferenceTimeMs float64     `json:"inference_time_ms"`
}

// DisposalEvent records one completed actuation cycle. The ID is assigned
// by the event store on insert; the struct is immutable once submitted.
type DisposalEvent struct {
	ID         int64            `json:"id"`
	Timestamp  time.Time        `json:"timestamp"`
	Label      string           `json:"item_label"`
	Category   MaterialCategory `json:"material_category"`
	Confidence float64          `json:"confidence"`
	Recyclable bool             `json:"is_recyclable"`
	BinID      string           `json:"bin_id"`
	Location   string           `json:"location"`
	BBox       [4]float64       `json:"bbox"`
}
