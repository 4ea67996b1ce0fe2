package models

import "time"

// Detection is one accepted box in canvas pixel space. It exists only for the
// duration of a single composite pass and is never persisted.
type Detection struct {
	// Box holds x1, y1, x2, y2, each clamped into the surface bounds.
	Box [4]float32
	// Score is the frame-relative normalized confidence in [0, 1].
	Score float32
}

// TickTimings collects per-stage durations for one inference tick.
type TickTimings struct {
	TickID      string
	Grab        time.Duration
	Resize      time.Duration
	Preprocess  time.Duration
	Inference   time.Duration
	Postprocess time.Duration
	Composite   time.Duration
	Total       time.Duration
}
