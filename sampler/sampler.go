// Package sampler drives the two repeating activities of the system: a
// display-rate render loop painting raw frames onto the canvas, and a
// fixed-cadence inference tick running the detection pipeline over the
// current frame.
package sampler

import (
	"context"
	"errors"
	"image"
	"log"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"detectcam/capture"
	"detectcam/detections"
	"detectcam/models"
	"detectcam/overlay"
)

const (
	// DefaultInterval is the inference cadence, decoupled from the display
	// rate.
	DefaultInterval = 100 * time.Millisecond
	// DefaultDisplayInterval approximates a 30 Hz display refresh.
	DefaultDisplayInterval = 33 * time.Millisecond
)

// ErrAlreadyRunning is returned by Start on a sampler that is running.
var ErrAlreadyRunning = errors.New("sampler: already running")

// Engine is the detection pipeline boundary. A nil engine degrades every
// tick to a silent no-op, which is how a failed model load behaves at
// runtime: the preview keeps working, detection never starts.
type Engine interface {
	Detect(ctx context.Context, frame image.Image, width, height int, timings *models.TickTimings) ([]models.Detection, error)
}

// Config tunes a Sampler. Zero values fall back to defaults.
type Config struct {
	Interval        time.Duration
	DisplayInterval time.Duration
	Clock           clock.Clock
	Debug           bool
}

// Sampler composes a frame source, a detection engine, and the shared
// canvas. Ticks fire on a fixed period regardless of inference latency; a
// tick that finds the engine still busy with an earlier one is skipped and
// counted, so inference calls never overlap and never queue up.
type Sampler struct {
	src    capture.Source
	engine Engine
	canvas *overlay.Canvas
	fps    *overlay.FPSTracker
	clk    clock.Clock

	interval        time.Duration
	displayInterval time.Duration
	debug           bool

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
	wg      sync.WaitGroup

	metrics metrics
}

// New builds a sampler. engine may be nil (see Engine).
func New(src capture.Source, engine Engine, canvas *overlay.Canvas, cfg Config) *Sampler {
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	displayInterval := cfg.DisplayInterval
	if displayInterval <= 0 {
		displayInterval = DefaultDisplayInterval
	}
	return &Sampler{
		src:             src,
		engine:          engine,
		canvas:          canvas,
		fps:             overlay.NewFPSTracker(clk),
		clk:             clk,
		interval:        interval,
		displayInterval: displayInterval,
		debug:           cfg.Debug,
	}
}

// Start launches the render loop and the tick loop.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.running = true

	s.wg.Add(2)
	go s.renderLoop(ctx)
	go s.tickLoop(ctx)
	return nil
}

// Stop cancels both loops and waits for them to exit. A tick already inside
// the engine completes there and discards its result before drawing.
// Idempotent: stopping a stopped sampler does nothing.
func (s *Sampler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
}

// Running reports whether the loops are live.
func (s *Sampler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Metrics returns a snapshot of tick counters and the current FPS value.
func (s *Sampler) Metrics() Stats {
	return Stats{
		Running:           s.Running(),
		TicksRun:          s.metrics.ticksRun.Load(),
		TicksSkipped:      s.metrics.ticksSkipped.Load(),
		InferenceFailures: s.metrics.inferenceFailures.Load(),
		MalformedResults:  s.metrics.malformedResults.Load(),
		GrabFailures:      s.metrics.grabFailures.Load(),
		FPS:               s.fps.Current(),
	}
}

// renderLoop paints the latest raw frame onto the canvas once per display
// interval. It self-terminates when the source closes; nothing is signaled
// beyond a log line.
func (s *Sampler) renderLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clk.Ticker(s.displayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frame, err := s.src.Grab(ctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					log.Printf("render loop stopping: %v", err)
				}
				return
			}
			s.canvas.DrawFrame(frame)
		}
	}
}

// tickLoop fires the inference cadence. Each tick runs on its own goroutine
// so a slow inference call never delays the ticker; overlap is prevented by
// the engine's busy signal, not by waiting.
func (s *Sampler) tickLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := s.clk.Ticker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.wg.Add(1)
			go s.tick(ctx)
		}
	}
}

func (s *Sampler) tick(ctx context.Context) {
	defer s.wg.Done()

	if s.engine == nil || ctx.Err() != nil {
		return
	}

	timings := &models.TickTimings{TickID: uuid.NewString()}
	start := time.Now()

	grabStart := time.Now()
	frame, err := s.src.Grab(ctx)
	timings.Grab = time.Since(grabStart)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, capture.ErrClosed) {
			s.metrics.grabFailures.Add(1)
			log.Printf("tick %s: grab frame: %v", timings.TickID, err)
		}
		return
	}

	width, height := s.canvas.Size()
	dets, err := s.engine.Detect(ctx, frame, width, height, timings)
	switch {
	case errors.Is(err, detections.ErrBusy):
		s.metrics.ticksSkipped.Add(1)
		return
	case errors.Is(err, detections.ErrMalformedOutput):
		s.metrics.malformedResults.Add(1)
		log.Printf("tick %s: %v", timings.TickID, err)
		return
	case errors.Is(err, context.Canceled):
		return
	case err != nil:
		s.metrics.inferenceFailures.Add(1)
		log.Printf("tick %s: %v", timings.TickID, err)
		return
	}

	// Stopped while inference was in flight: the result is discarded, the
	// surface stays whatever the render loop left on it.
	if ctx.Err() != nil {
		return
	}

	composeStart := time.Now()
	fps := s.fps.Tick()
	s.canvas.Compose(frame, dets, fps)
	timings.Composite = time.Since(composeStart)
	timings.Total = time.Since(start)

	s.metrics.ticksRun.Add(1)
	if s.debug {
		s.logTimings(timings, len(dets))
	}
}

func (s *Sampler) logTimings(t *models.TickTimings, drawn int) {
	log.Printf("[DEBUG] tick %s: %d drawn\n"+
		"\tGrab:        %v\n"+
		"\tResize:      %v\n"+
		"\tPreprocess:  %v\n"+
		"\tInference:   %v\n"+
		"\tPostprocess: %v\n"+
		"\tComposite:   %v\n"+
		"\tTotal:       %v",
		t.TickID, drawn,
		t.Grab, t.Resize, t.Preprocess, t.Inference,
		t.Postprocess, t.Composite, t.Total)
}
