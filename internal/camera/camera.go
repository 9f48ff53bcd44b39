// Package camera abstracts sensor frame acquisition. The pipeline only sees
// the FrameSource contract; whether frames come from real hardware, fixture
// files, or an in-memory mock is decided at construction time.
package camera

import (
	"time"

	"github.com/google/uuid"
)

// Frame is one sensor-acquired image ready for classification. Data is the
// encoded JPEG payload and must not be modified after capture.
type Frame struct {
	ID         string
	Data       []byte
	CapturedAt time.Time
}

// NewFrame wraps encoded image bytes in a Frame with a fresh ID.
func NewFrame(data []byte) *Frame {
	return &Frame{
		ID:         "frm_" + uuid.NewString(),
		Data:       data,
		CapturedAt: time.Now(),
	}
}

// FrameSource is the acquisition contract consumed by the pipeline.
//
// Capture returns the next frame or nil when acquisition fails; it never
// panics into the pipeline and never blocks beyond acquisition latency.
// Release frees the underlying device. It is idempotent and the pipeline
// calls it exactly once at shutdown.
type FrameSource interface {
	Capture() *Frame
	Release() error
}
