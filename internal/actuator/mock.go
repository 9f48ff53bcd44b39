package actuator

import "sync"

// Move records a single SetPosition call.
type Move struct {
	Channel int
	Angle   float64
}

// MockDriver implements Driver in memory, recording every move. Failures
// can be injected per call for exercising the controller's fail-safe path.
type MockDriver struct {
	mu sync.Mutex

	// Moves records every successful SetPosition call in order.
	Moves []Move

	// FailOnCall makes the Nth SetPosition call (1-based) fail. 0 disables.
	FailOnCall int

	// Err is the error returned by an injected failure.
	Err error

	calls  int
	closed bool
}

func NewMockDriver() *MockDriver {
	return &MockDriver{}
}

func (d *MockDriver) SetPosition(channel int, angleDegrees float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.calls++
	if d.FailOnCall > 0 && d.calls == d.FailOnCall {
		if d.Err != nil {
			return d.Err
		}
		return ErrWriteFailed
	}

	d.Moves = append(d.Moves, Move{Channel: channel, Angle: angleDegrees})
	return nil
}

func (d *MockDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// Angles returns the commanded angles in order.
func (d *MockDriver) Angles() []float64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]float64, len(d.Moves))
	for i, m := range d.Moves {
		out[i] = m.Angle
	}
	return out
}

// Closed reports whether Close was called.
func (d *MockDriver) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}
