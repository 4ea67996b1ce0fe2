package detections

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"

	"detectcam/models"
)

// ErrBusy means every pooled session is currently held by an earlier tick.
// The scheduler treats it as "skip this tick", not as a failure.
var ErrBusy = errors.New("detections: all sessions busy")

// Config tunes one detection pipeline.
type Config struct {
	Session  SessionConfig
	PoolSize int
	// Threshold applies to frame-relative normalized scores.
	Threshold float32
	// MaxDetections caps accepted boxes per tick.
	MaxDetections int
	// Suppress is optional; nil means detections are drawn exactly as
	// interpreted.
	Suppress Suppressor
}

// Pipeline is one full resize -> preprocess -> infer -> interpret pass over a
// frame. It is safe for concurrent use; concurrency is bounded by the session
// pool.
type Pipeline struct {
	pool          *SessionPool
	threshold     float32
	maxDetections int
	suppress      Suppressor
}

// NewPipeline builds the session pool and returns the pipeline. A model that
// fails to load surfaces here, once, at startup.
func NewPipeline(cfg Config) (*Pipeline, error) {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = ConfThreshold
	}
	maxDetections := cfg.MaxDetections
	if maxDetections <= 0 {
		maxDetections = MaxDetections
	}

	pool, err := NewSessionPool(cfg.Session, cfg.PoolSize)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		pool:          pool,
		threshold:     threshold,
		maxDetections: maxDetections,
		suppress:      cfg.Suppress,
	}, nil
}

// Detect runs one tick's inference over frame and returns detections in
// width x height canvas space. ErrBusy is returned without touching the
// model when no session is free. Timings may be nil.
func (p *Pipeline) Detect(ctx context.Context, frame image.Image, width, height int, timings *models.TickTimings) ([]models.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	session, ok := p.pool.TryAcquire()
	if !ok {
		return nil, ErrBusy
	}
	defer p.pool.Release(session)

	if timings == nil {
		timings = &models.TickTimings{}
	}

	// Fixed-size off-screen snapshot before tensor construction: the model
	// never sees the native camera resolution.
	resizeStart := time.Now()
	resized := imaging.Resize(frame, InputWidth, InputHeight, imaging.Linear)
	timings.Resize = time.Since(resizeStart)

	prepStart := time.Now()
	if err := PrepareInput(resized, session.Input); err != nil {
		return nil, fmt.Errorf("prepare input: %w", err)
	}
	timings.Preprocess = time.Since(prepStart)

	inferStart := time.Now()
	if err := session.Session.Run(); err != nil {
		return nil, fmt.Errorf("model inference: %w", err)
	}
	timings.Inference = time.Since(inferStart)

	postStart := time.Now()
	detections, err := Interpret(
		session.Boxes.GetData(),
		session.Scores.GetData(),
		width, height,
		p.threshold, p.maxDetections,
	)
	if err != nil {
		return nil, err
	}
	if p.suppress != nil {
		detections = p.suppress(detections)
	}
	timings.Postprocess = time.Since(postStart)

	return detections, nil
}

// PoolStats exposes the session pool counters for the stats endpoint.
func (p *Pipeline) PoolStats() PoolStats {
	return p.pool.Stats()
}

// Destroy releases all pooled sessions.
func (p *Pipeline) Destroy() {
	p.pool.Destroy()
}
