// Package pipeline owns the detection-to-actuation orchestration: a
// capture loop feeding a bounded frame queue, and one inference worker
// that classifies frames, consults the admission guard, drives the
// actuator, and records disposal events. The worker never blocks the
// capture loop; the two communicate only through the queue and the status
// hub.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sortacle/sortacle/internal/actuator"
	"github.com/sortacle/sortacle/internal/camera"
	"github.com/sortacle/sortacle/internal/classify"
	"github.com/sortacle/sortacle/internal/guard"
	"github.com/sortacle/sortacle/internal/monitoring"
	"github.com/sortacle/sortacle/internal/status"
	"github.com/sortacle/sortacle/internal/waste"
)

// Recorder persists disposal events. Satisfied by events.Store.
type Recorder interface {
	Record(ev waste.DisposalEvent) (int64, error)
}

// Actuator sequences the physical gate. Satisfied by actuator.Controller.
type Actuator interface {
	Trigger(ctx context.Context, req actuator.Request) error
	ForceCenter() error
}

// Config is the pipeline's tunable surface. Cooldown has no mandated
// default; deployments choose it for their mechanism's cycle time.
type Config struct {
	// ConfidenceThreshold filters detections below this confidence (0-1).
	ConfidenceThreshold float64

	// Cooldown is the minimum time between two admitted triggers.
	Cooldown time.Duration

	// PerLabelDedup admits a different label inside the cooldown window.
	PerLabelDedup bool

	// QueueCapacity bounds the frame queue (small; 2 on the reference rig).
	QueueCapacity int

	// CaptureInterval is the sensor acquisition period.
	CaptureInterval time.Duration

	// ClassifyTimeout bounds each classification call.
	ClassifyTimeout time.Duration

	// PollTimeout bounds each dequeue wait so shutdown stays responsive.
	PollTimeout time.Duration

	// BinID and Location tag every recorded event.
	BinID    string
	Location string
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence threshold %v outside [0,1]", c.ConfidenceThreshold)
	}
	if c.Cooldown <= 0 {
		return fmt.Errorf("cooldown must be positive, got %v", c.Cooldown)
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("queue capacity must be at least 1, got %d", c.QueueCapacity)
	}
	return nil
}

// applyDefaults fills the timing knobs most deployments leave alone.
func (c *Config) applyDefaults() {
	if c.CaptureInterval <= 0 {
		c.CaptureInterval = 500 * time.Millisecond
	}
	if c.ClassifyTimeout <= 0 {
		c.ClassifyTimeout = 5 * time.Second
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 200 * time.Millisecond
	}
	if c.BinID == "" {
		c.BinID = "bin_001"
	}
	if c.Location == "" {
		c.Location = "unknown"
	}
}

// Deps are the injected collaborators. All are owned by the caller and
// constructed explicitly at startup; the pipeline holds no singletons.
type Deps struct {
	Camera     camera.FrameSource
	Classifier classify.Classifier
	Actuator   Actuator
	Recorder   Recorder
	Hub        *status.Hub
}

// Metrics is a snapshot of the pipeline's counters. Capture and
// classification misses are expected transient noise; actuator and
// persistence faults are the ones worth alerting on.
type Metrics struct {
	FramesCaptured   int64 `json:"frames_captured"`
	CaptureFailures  int64 `json:"capture_failures"`
	FramesDropped    int64 `json:"frames_dropped"`
	ClassifyFailures int64 `json:"classify_failures"`
	ActuatorFaults   int64 `json:"actuator_faults"`
	TriggersBusy     int64 `json:"triggers_busy"`
	PersistFailures  int64 `json:"persist_failures"`
	EventsRecorded   int64 `json:"events_recorded"`
}

// Orchestrator wires the sorting pipeline together.
type Orchestrator struct {
	cfg   Config
	deps  Deps
	guard *guard.Guard
	queue *frameQueue

	framesCaptured   atomic.Int64
	captureFailures  atomic.Int64
	classifyFailures atomic.Int64
	actuatorFaults   atomic.Int64
	triggersBusy     atomic.Int64
	persistFailures  atomic.Int64
	eventsRecorded   atomic.Int64

	releaseOnce sync.Once
}

// New validates the configuration and builds an orchestrator. Deps.Hub may
// be nil, in which case a private hub is created.
func New(cfg Config, deps Deps) (*Orchestrator, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Camera == nil || deps.Classifier == nil || deps.Actuator == nil || deps.Recorder == nil {
		return nil, fmt.Errorf("camera, classifier, actuator and recorder are all required")
	}
	if deps.Hub == nil {
		deps.Hub = status.NewHub()
	}
	return &Orchestrator{
		cfg:   cfg,
		deps:  deps,
		guard: guard.New(cfg.Cooldown, cfg.PerLabelDedup),
		queue: newFrameQueue(cfg.QueueCapacity),
	}, nil
}

// Hub exposes the status hub for presentation consumers.
func (o *Orchestrator) Hub() *status.Hub { return o.deps.Hub }

// Metrics returns a counter snapshot.
func (o *Orchestrator) Metrics() Metrics {
	return Metrics{
		FramesCaptured:   o.framesCaptured.Load(),
		CaptureFailures:  o.captureFailures.Load(),
		FramesDropped:    o.queue.Dropped(),
		ClassifyFailures: o.classifyFailures.Load(),
		ActuatorFaults:   o.actuatorFaults.Load(),
		TriggersBusy:     o.triggersBusy.Load(),
		PersistFailures:  o.persistFailures.Load(),
		EventsRecorded:   o.eventsRecorded.Load(),
	}
}

// Run starts the capture loop and the inference worker and blocks until
// ctx is cancelled and both have drained. On the way out the actuator is
// forced to its safe center position and the camera is released exactly
// once.
func (o *Orchestrator) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.captureLoop(ctx)
		monitoring.Logf("capture loop terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		o.workerLoop(ctx)
		monitoring.Logf("inference worker terminated")
	}()

	wg.Wait()

	if err := o.deps.Actuator.ForceCenter(); err != nil {
		monitoring.Alertf("failed to center actuator at shutdown: %v", err)
	}
	o.releaseOnce.Do(func() {
		if err := o.deps.Camera.Release(); err != nil {
			monitoring.Logf("camera release failed: %v", err)
		}
	})
	return nil
}

// captureLoop acquires frames at the sensor rate and offers them to the
// queue. A failed capture skips the cycle; it is never fatal.
func (o *Orchestrator) captureLoop(ctx context.Context) {
	ticker := time.NewTicker(o.cfg.CaptureInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if o.deps.Hub.Paused() {
			continue
		}

		frame := o.deps.Camera.Capture()
		if frame == nil {
			o.captureFailures.Add(1)
			continue
		}
		o.framesCaptured.Add(1)
		o.queue.Offer(frame)
	}
}

// workerLoop drains the queue until shutdown.
func (o *Orchestrator) workerLoop(ctx context.Context) {
	for ctx.Err() == nil {
		o.runCycle(ctx)
	}
}

// runCycle processes at most one frame end to end. Every failure mode
// skips the rest of the cycle and leaves the loop healthy for the next
// frame; retry is the next natural cycle, never an inner loop.
func (o *Orchestrator) runCycle(ctx context.Context) {
	frame, ok := o.queue.Poll(o.cfg.PollTimeout)
	if !ok {
		return
	}

	cctx, cancel := context.WithTimeout(ctx, o.cfg.ClassifyTimeout)
	result, err := o.deps.Classifier.Classify(cctx, frame)
	cancel()
	if err != nil {
		o.classifyFailures.Add(1)
		if classify.Unavailable(err) {
			monitoring.Logf("classification unavailable for frame %s: %v", frame.ID, err)
		} else {
			monitoring.Logf("classification failed for frame %s: %v", frame.ID, err)
		}
		return
	}

	filtered := waste.Filter(result.Detections, o.cfg.ConfidenceThreshold)
	o.deps.Hub.CompleteCycle(filtered, result.Source, result.InferenceTimeMs)

	best, ok := waste.SelectBest(filtered)
	if !ok {
		return
	}

	now := time.Now()
	if !o.guard.Admit(best.Label, now) {
		return
	}

	req := actuator.Request{
		Label:      best.Label,
		Category:   waste.CategoryFor(best.Label),
		Recyclable: waste.IsRecyclable(best.Label),
	}
	if err := o.deps.Actuator.Trigger(ctx, req); err != nil {
		// Busy is a dropped trigger, not a hardware fault; only real
		// faults feed the alert counter.
		if errors.Is(err, actuator.ErrBusy) {
			o.triggersBusy.Add(1)
			monitoring.Logf("actuator busy, dropping admitted trigger for %q", best.Label)
		} else {
			o.actuatorFaults.Add(1)
			monitoring.Alertf("actuator fault sorting %q: %v", best.Label, err)
		}
		return
	}
	o.deps.Hub.MarkTrigger(now)

	// Actuation before recording: only items that were physically sorted
	// are counted.
	ev := waste.DisposalEvent{
		Timestamp:  now,
		Label:      best.Label,
		Category:   req.Category,
		Confidence: best.Confidence,
		Recyclable: req.Recyclable,
		BinID:      o.cfg.BinID,
		Location:   o.cfg.Location,
		BBox:       best.BBox,
	}
	id, err := o.deps.Recorder.Record(ev)
	if err != nil {
		o.persistFailures.Add(1)
		monitoring.Alertf("failed to record disposal of %q: %v", best.Label, err)
		return
	}
	o.eventsRecorded.Add(1)
	monitoring.Logf("recorded disposal %d: %q (%s) confidence %.2f", id, best.Label, req.Category, best.Confidence)
}
