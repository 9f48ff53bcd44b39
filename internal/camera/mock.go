package camera

import "sync"

// MockCamera implements FrameSource with canned frame payloads. It cycles
// through the configured payloads and offers fine-grained control over
// failures for testing the pipeline's skip-cycle behaviour.
type MockCamera struct {
	mu sync.Mutex

	// Frames holds the payloads returned by successive Capture calls,
	// cycled when exhausted.
	Frames [][]byte

	// FailEvery makes every Nth Capture return nil (0 disables).
	FailEvery int

	// CaptureCalls records the number of Capture calls.
	CaptureCalls int

	// ReleaseCalls records the number of Release calls.
	ReleaseCalls int

	released bool
	next     int
}

// NewMockCamera creates a MockCamera cycling through the given payloads.
func NewMockCamera(frames ...[]byte) *MockCamera {
	return &MockCamera{Frames: frames}
}

func (m *MockCamera) Capture() *Frame {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CaptureCalls++
	if m.released || len(m.Frames) == 0 {
		return nil
	}
	if m.FailEvery > 0 && m.CaptureCalls%m.FailEvery == 0 {
		return nil
	}

	data := m.Frames[m.next%len(m.Frames)]
	m.next++
	return NewFrame(data)
}

// Release marks the camera released. Safe to call repeatedly.
func (m *MockCamera) Release() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ReleaseCalls++
	m.released = true
	return nil
}

// Released reports whether Release has been called.
func (m *MockCamera) Released() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.released
}
