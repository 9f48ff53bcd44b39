package actuator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sortacle/sortacle/internal/waste"
)

// fastConfig keeps test sequences in the millisecond range.
func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.SettleDelay = 5 * time.Millisecond
	cfg.ClearCheckInterval = 5 * time.Millisecond
	cfg.RequiredClearChecks = 2
	cfg.MaxClearWait = 200 * time.Millisecond
	return cfg
}

// staticDetections is a DetectionSnapshotter returning a fixed list until
// cleared.
type staticDetections struct {
	mu   sync.Mutex
	dets []waste.Detection
}

func (s *staticDetections) LatestDetections() []waste.Detection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]waste.Detection(nil), s.dets...)
}

func (s *staticDetections) set(dets []waste.Detection) {
	s.mu.Lock()
	s.dets = dets
	s.mu.Unlock()
}

func TestTrigger_FullSequence(t *testing.T) {
	driver := NewMockDriver()
	c := NewController(driver, nil, fastConfig())

	err := c.Trigger(context.Background(), Request{
		Label:      "bottle",
		Category:   waste.CategoryPlastic,
		Recyclable: true,
	})
	if err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	if got := c.State(); got != StateCentered {
		t.Errorf("final state = %s, want centered", got)
	}
	angles := driver.Angles()
	if len(angles) != 2 || angles[0] != 0 || angles[1] != 90 {
		t.Errorf("commanded angles = %v, want [0 90]", angles)
	}
}

func TestTrigger_TrashBinAngle(t *testing.T) {
	driver := NewMockDriver()
	c := NewController(driver, nil, fastConfig())

	if err := c.Trigger(context.Background(), Request{Label: "cup", Category: waste.CategoryPlastic}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	angles := driver.Angles()
	if len(angles) != 2 || angles[0] != 180 {
		t.Errorf("commanded angles = %v, want open at 180", angles)
	}
}

func TestTrigger_InvertedAngles(t *testing.T) {
	driver := NewMockDriver()
	cfg := fastConfig()
	cfg.Inverted = true
	c := NewController(driver, nil, cfg)

	if err := c.Trigger(context.Background(), Request{Label: "can", Recyclable: true}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	angles := driver.Angles()
	// Recycle at 0° commands 180 on an inverted horn; center 90 stays 90.
	if len(angles) != 2 || angles[0] != 180 || angles[1] != 90 {
		t.Errorf("commanded angles = %v, want [180 90]", angles)
	}
}

func TestTrigger_SingleFlight(t *testing.T) {
	driver := NewMockDriver()
	cfg := fastConfig()
	cfg.SettleDelay = 100 * time.Millisecond
	c := NewController(driver, nil, cfg)

	var busy, succeeded int64
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := c.Trigger(context.Background(), Request{Label: "bottle", Recyclable: true})
			switch {
			case err == nil:
				atomic.AddInt64(&succeeded, 1)
			case errors.Is(err, ErrBusy):
				atomic.AddInt64(&busy, 1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("%d sequences completed, want exactly 1", succeeded)
	}
	if busy != 3 {
		t.Errorf("%d callers got ErrBusy, want 3", busy)
	}
}

func TestTrigger_FaultForcesCenter(t *testing.T) {
	driver := NewMockDriver()
	driver.FailOnCall = 1 // opening command fails
	c := NewController(driver, nil, fastConfig())

	err := c.Trigger(context.Background(), Request{Label: "bottle", Recyclable: true})

	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want *Fault", err)
	}
	if fault.Stage != StateOpening {
		t.Errorf("fault stage = %s, want opening", fault.Stage)
	}
	if got := c.State(); got != StateCentered {
		t.Errorf("state after fault = %s, want centered", got)
	}
	// The fail-safe still commanded center.
	angles := driver.Angles()
	if len(angles) != 1 || angles[0] != 90 {
		t.Errorf("commanded angles after fault = %v, want [90]", angles)
	}
	// A new trigger is accepted after the fault.
	if err := c.Trigger(context.Background(), Request{Label: "can", Recyclable: true}); err != nil {
		t.Errorf("Trigger after fault: %v", err)
	}
}

func TestTrigger_FaultWhileClosing(t *testing.T) {
	driver := NewMockDriver()
	driver.FailOnCall = 2 // closing command fails
	c := NewController(driver, nil, fastConfig())

	err := c.Trigger(context.Background(), Request{Label: "bottle", Recyclable: true})
	var fault *Fault
	if !errors.As(err, &fault) {
		t.Fatalf("err = %v, want *Fault", err)
	}
	if fault.Stage != StateClosing {
		t.Errorf("fault stage = %s, want closing", fault.Stage)
	}
	if got := c.State(); got != StateCentered {
		t.Errorf("state after fault = %s, want centered", got)
	}
}

func TestAwaitClear_ClosesWhenLabelGone(t *testing.T) {
	driver := NewMockDriver()
	dets := &staticDetections{}
	dets.set([]waste.Detection{{Label: "Bottle", Confidence: 0.9}})
	c := NewController(driver, dets, fastConfig())

	// Clear the label shortly after the sequence opens.
	go func() {
		time.Sleep(30 * time.Millisecond)
		dets.set(nil)
	}()

	start := time.Now()
	if err := c.Trigger(context.Background(), Request{Label: "bottle", Recyclable: true}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	// The sequence must finish well before MaxClearWait once the item
	// clears (case-insensitive label match).
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("sequence took %s, expected early close after item cleared", elapsed)
	}
}

func TestAwaitClear_BoundedByMaxWait(t *testing.T) {
	driver := NewMockDriver()
	dets := &staticDetections{}
	dets.set([]waste.Detection{{Label: "bottle", Confidence: 0.9}})
	cfg := fastConfig()
	cfg.MaxClearWait = 60 * time.Millisecond
	c := NewController(driver, dets, cfg)

	start := time.Now()
	if err := c.Trigger(context.Background(), Request{Label: "bottle", Recyclable: true}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("sequence took %s, clear-wait did not respect MaxClearWait", elapsed)
	}
	if got := c.State(); got != StateCentered {
		t.Errorf("state = %s, want centered", got)
	}
}

func TestTrigger_ContextCancelStillCloses(t *testing.T) {
	driver := NewMockDriver()
	dets := &staticDetections{}
	dets.set([]waste.Detection{{Label: "bottle", Confidence: 0.9}})
	cfg := fastConfig()
	cfg.MaxClearWait = 10 * time.Second

	c := NewController(driver, dets, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	if err := c.Trigger(ctx, Request{Label: "bottle", Recyclable: true}); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	if got := c.State(); got != StateCentered {
		t.Errorf("state after cancel = %s, want centered", got)
	}
	angles := driver.Angles()
	if len(angles) != 2 || angles[1] != 90 {
		t.Errorf("commanded angles = %v, gate must close on cancellation", angles)
	}
}

func TestForceCenter(t *testing.T) {
	driver := NewMockDriver()
	c := NewController(driver, nil, fastConfig())

	if err := c.ForceCenter(); err != nil {
		t.Fatalf("ForceCenter: %v", err)
	}
	angles := driver.Angles()
	if len(angles) != 1 || angles[0] != 90 {
		t.Errorf("commanded angles = %v, want [90]", angles)
	}
}
