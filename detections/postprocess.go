package detections

import (
	"errors"
	"fmt"

	"detectcam/models"
)

// ErrMalformedOutput marks an inference result whose output buffers cannot be
// interpreted. The tick that sees it skips drawing entirely; the previous
// overlay stays visible until the next successful tick clears it.
var ErrMalformedOutput = errors.New("detections: malformed model output")

// Interpret turns the raw boxes and scores buffers into canvas-space
// detections.
//
// Scores are normalized frame-relative: every raw score is divided by the
// frame's own maximum, so the best detection in any frame reports 1.0
// regardless of the model's score scale. This is a selection policy, not a
// probability. An all-zero (or negative) score buffer normalizes to all
// zeros rather than dividing by zero.
//
// Detections are visited in buffer order, never sorted. A normalized score
// below threshold is skipped; an accepted one takes boxes[4i:4i+4] as
// x1,y1,x2,y2, clamped independently into [0,width] and [0,height]. At most
// maxDetections are accepted per call.
func Interpret(boxes, scores []float32, width, height int, threshold float32, maxDetections int) ([]models.Detection, error) {
	if len(scores) == 0 || len(boxes) == 0 {
		return nil, fmt.Errorf("%w: boxes=%d scores=%d elements", ErrMalformedOutput, len(boxes), len(scores))
	}
	if len(boxes) < 4*len(scores) {
		return nil, fmt.Errorf("%w: %d scores need %d box values, have %d",
			ErrMalformedOutput, len(scores), 4*len(scores), len(boxes))
	}

	var maxScore float32
	for _, s := range scores {
		if s > maxScore {
			maxScore = s
		}
	}

	w := float32(width)
	h := float32(height)
	detections := make([]models.Detection, 0, maxDetections)
	for i, raw := range scores {
		var score float32
		if maxScore > 0 {
			score = raw / maxScore
		}
		if score < threshold {
			continue
		}
		if len(detections) >= maxDetections {
			break
		}
		detections = append(detections, models.Detection{
			Box: [4]float32{
				clamp(boxes[4*i], w),
				clamp(boxes[4*i+1], h),
				clamp(boxes[4*i+2], w),
				clamp(boxes[4*i+3], h),
			},
			Score: score,
		})
	}
	return detections, nil
}

func clamp(v, limit float32) float32 {
	if v < 0 {
		return 0
	}
	if v > limit {
		return limit
	}
	return v
}
