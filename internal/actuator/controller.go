package actuator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sortacle/sortacle/internal/monitoring"
	"github.com/sortacle/sortacle/internal/waste"
)

// State is the controller's position in the actuation sequence.
type State int

const (
	StateCentered State = iota
	StateOpening
	StateAwaitingClear
	StateClosing
)

func (s State) String() string {
	switch s {
	case StateCentered:
		return "centered"
	case StateOpening:
		return "opening"
	case StateAwaitingClear:
		return "awaiting_clear"
	case StateClosing:
		return "closing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ErrBusy is returned when Trigger is called while a sequence is already in
// flight. The call is rejected, never queued.
var ErrBusy = errors.New("actuation sequence already in flight")

// Fault reports an actuator I/O failure. By the time a Fault is returned
// the controller has already forced the mechanism back to center.
type Fault struct {
	Stage State
	Err   error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("actuator fault during %s: %v", f.Stage, f.Err)
}

func (f *Fault) Unwrap() error { return f.Err }

// DetectionSnapshotter supplies the latest detection snapshot for the
// clear-wait. The status hub satisfies this.
type DetectionSnapshotter interface {
	LatestDetections() []waste.Detection
}

// Config holds the controller's mechanical tunables. Angle conventions
// differ between rigs (some boards mirror the horn), so the mapping is
// configuration, not constants.
type Config struct {
	// Channel is the servo channel on the controller board.
	Channel int

	// CenterAngle is the neutral/closed gate position.
	CenterAngle float64

	// RecycleAngle and TrashAngle are the open positions for the two bins.
	RecycleAngle float64
	TrashAngle   float64

	// Inverted mirrors every commanded angle (180 - angle) for rigs with a
	// flipped horn.
	Inverted bool

	// SettleDelay is how long to let the item start moving after opening
	// before clear checks begin.
	SettleDelay time.Duration

	// ClearCheckInterval is the polling period during AwaitingClear.
	ClearCheckInterval time.Duration

	// RequiredClearChecks is how many consecutive polls must miss the
	// triggering label before the gate closes.
	RequiredClearChecks int

	// MaxClearWait bounds the whole AwaitingClear phase.
	MaxClearWait time.Duration
}

// DefaultConfig returns workable defaults for the reference rig.
func DefaultConfig() Config {
	return Config{
		Channel:             0,
		CenterAngle:         90,
		RecycleAngle:        0,
		TrashAngle:          180,
		SettleDelay:         2 * time.Second,
		ClearCheckInterval:  300 * time.Millisecond,
		RequiredClearChecks: 2,
		MaxClearWait:        5 * time.Second,
	}
}

// Request describes one actuation: which item triggered it and which bin
// it routes to.
type Request struct {
	Label      string
	Category   waste.MaterialCategory
	Recyclable bool
}

// Controller sequences the gate through
// Centered → Opening → AwaitingClear → Closing → Centered with a
// single-flight guarantee: while a sequence runs, further triggers are
// rejected. Any driver failure forces an immediate return to center.
type Controller struct {
	cfg        Config
	driver     Driver
	detections DetectionSnapshotter // nil means fixed settle delay only

	mu    sync.Mutex
	state State
}

// NewController builds a controller over the given driver. detections may
// be nil when no live detection feed is available; the clear-wait then
// degrades to the fixed settle delay.
func NewController(driver Driver, detections DetectionSnapshotter, cfg Config) *Controller {
	if cfg.ClearCheckInterval <= 0 {
		cfg.ClearCheckInterval = 300 * time.Millisecond
	}
	if cfg.RequiredClearChecks <= 0 {
		cfg.RequiredClearChecks = 1
	}
	return &Controller{cfg: cfg, driver: driver, detections: detections}
}

// State returns the controller's current sequence state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Trigger runs one full actuation sequence. It must only be called while
// the controller is Centered; concurrent callers lose with ErrBusy. On any
// driver failure the gate is forced back to center and a *Fault is
// returned.
func (c *Controller) Trigger(ctx context.Context, req Request) error {
	c.mu.Lock()
	if c.state != StateCentered {
		c.mu.Unlock()
		return ErrBusy
	}
	c.state = StateOpening
	c.mu.Unlock()

	cycle := "act_" + uuid.NewString()
	target := c.cfg.TrashAngle
	if req.Recyclable {
		target = c.cfg.RecycleAngle
	}
	monitoring.Logf("[%s] opening gate for %q (%s) at %.0f°", cycle, req.Label, req.Category, target)

	if err := c.command(target); err != nil {
		return c.failSafe(StateOpening, err)
	}

	c.setState(StateAwaitingClear)
	c.awaitClear(ctx, req.Label)

	c.setState(StateClosing)
	if err := c.command(c.cfg.CenterAngle); err != nil {
		return c.failSafe(StateClosing, err)
	}

	c.setState(StateCentered)
	monitoring.Logf("[%s] gate closed, centered", cycle)
	return nil
}

// ForceCenter drives the gate to the neutral position regardless of
// sequence state. Used at startup and shutdown.
func (c *Controller) ForceCenter() error {
	err := c.command(c.cfg.CenterAngle)
	c.setState(StateCentered)
	return err
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// command applies the rig's inversion convention and moves the servo.
func (c *Controller) command(angle float64) error {
	if c.cfg.Inverted {
		angle = 180 - angle
	}
	return c.driver.SetPosition(c.cfg.Channel, angle)
}

// failSafe forces the gate back to center after a driver error and reports
// the fault. The mechanism must never be left open or ambiguous.
func (c *Controller) failSafe(stage State, err error) error {
	if cerr := c.command(c.cfg.CenterAngle); cerr != nil {
		monitoring.Alertf("fail-safe centering also failed: %v", cerr)
	}
	c.setState(StateCentered)
	return &Fault{Stage: stage, Err: err}
}

// awaitClear holds the gate open until the triggering label has been absent
// from the detection feed for RequiredClearChecks consecutive polls, or
// MaxClearWait elapses, whichever comes first. Without a detection feed it
// degrades to the fixed settle delay. Context cancellation ends the wait
// early so shutdown is responsive.
func (c *Controller) awaitClear(ctx context.Context, label string) {
	sleep(ctx, c.cfg.SettleDelay)

	if c.detections == nil || c.cfg.MaxClearWait <= 0 {
		return
	}

	deadline := time.Now().Add(c.cfg.MaxClearWait)
	consecutive := 0
	ticker := time.NewTicker(c.cfg.ClearCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			monitoring.Logf("clear-wait for %q timed out after %s", label, c.cfg.MaxClearWait)
			return
		}

		visible := false
		for _, d := range c.detections.LatestDetections() {
			if strings.EqualFold(d.Label, label) {
				visible = true
				break
			}
		}
		if visible {
			consecutive = 0
			continue
		}
		consecutive++
		if consecutive >= c.cfg.RequiredClearChecks {
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
