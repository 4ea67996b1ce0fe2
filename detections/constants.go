package detections

const (
	InputWidth  = 640
	InputHeight = 640

	// ConfThreshold applies to frame-relative normalized scores, so the best
	// detection in any non-empty frame always clears it.
	ConfThreshold = 0.9

	// MaxDetections caps how many boxes one tick may accept.
	MaxDetections = 100

	DefaultBoxesOutput  = "boxes"
	DefaultScoresOutput = "scores"

	DefaultPoolSize = 1
)
