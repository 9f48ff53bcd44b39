package classify

import (
	"context"
	"sync"
	"time"

	"github.com/sortacle/sortacle/internal/camera"
	"github.com/sortacle/sortacle/internal/waste"
)

// MockClassifier implements Classifier with canned results for testing.
type MockClassifier struct {
	mu sync.Mutex

	// Results are returned by successive Classify calls. When exhausted the
	// last entry repeats.
	Results []*waste.ClassificationResult

	// Err, when set, is returned by every Classify call.
	Err error

	// Delay makes Classify sleep before answering, honouring ctx.
	Delay time.Duration

	// Calls records the number of Classify invocations.
	Calls int
}

func (m *MockClassifier) Classify(ctx context.Context, frame *camera.Frame) (*waste.ClassificationResult, error) {
	m.mu.Lock()
	m.Calls++
	call := m.Calls
	err := m.Err
	delay := m.Delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ErrTimeout
		}
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Results) == 0 {
		return &waste.ClassificationResult{Source: waste.SourceLocal}, nil
	}
	idx := call - 1
	if idx >= len(m.Results) {
		idx = len(m.Results) - 1
	}
	return m.Results[idx], nil
}
