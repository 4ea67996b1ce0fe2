package sampler

import "sync/atomic"

// metrics counts tick outcomes. Atomic so the stats endpoint can read while
// ticks run.
type metrics struct {
	ticksRun          atomic.Int64
	ticksSkipped      atomic.Int64
	inferenceFailures atomic.Int64
	malformedResults  atomic.Int64
	grabFailures      atomic.Int64
}

// Stats is a snapshot of the sampler counters.
type Stats struct {
	Running           bool    `json:"running"`
	TicksRun          int64   `json:"ticks_run"`
	TicksSkipped      int64   `json:"ticks_skipped"`
	InferenceFailures int64   `json:"inference_failures"`
	MalformedResults  int64   `json:"malformed_results"`
	GrabFailures      int64   `json:"grab_failures"`
	FPS               float64 `json:"fps"`
}
