// Package detections holds the per-tick inference pipeline: tensor
// preparation, the ONNX Runtime session wrapper, output interpretation, and
// optional suppression.
package detections

import (
	"fmt"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"
)

// SessionConfig names the model outputs the pipeline consumes. Outputs are
// bound by declared name, never by position; InitSession fails fast when a
// name is absent from the model.
type SessionConfig struct {
	ModelPath    string
	BoxesOutput  string
	ScoresOutput string
	// Threads limits intra/inter op parallelism per session. Zero means one
	// thread per CPU.
	Threads int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.BoxesOutput == "" {
		c.BoxesOutput = DefaultBoxesOutput
	}
	if c.ScoresOutput == "" {
		c.ScoresOutput = DefaultScoresOutput
	}
	if c.Threads <= 0 {
		c.Threads = runtime.NumCPU()
	}
	return c
}

// ModelSession wraps a long-lived ONNX Runtime session with its
// pre-allocated input and output tensors. Created once, immutable, and held
// by at most one tick at a time via the SessionPool.
type ModelSession struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Boxes   *ort.Tensor[float32]
	Scores  *ort.Tensor[float32]
}

// InitSession loads the model, validates its declared inputs and outputs
// against cfg, and builds a session with tensors bound to the first input
// name and the two configured output names.
func InitSession(cfg SessionConfig) (*ModelSession, error) {
	cfg = cfg.withDefaults()

	inputs, outputs, err := ort.GetInputOutputInfo(cfg.ModelPath)
	if err != nil {
		return nil, fmt.Errorf("read model metadata: %w", err)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("model %s declares no inputs", cfg.ModelPath)
	}

	boxesInfo, err := findOutput(outputs, cfg.BoxesOutput)
	if err != nil {
		return nil, err
	}
	scoresInfo, err := findOutput(outputs, cfg.ScoresOutput)
	if err != nil {
		return nil, err
	}
	for _, info := range []ort.InputOutputInfo{boxesInfo, scoresInfo} {
		for _, dim := range info.Dimensions {
			if dim <= 0 {
				return nil, fmt.Errorf("output %q has dynamic shape %v; fixed-shape outputs required", info.Name, info.Dimensions)
			}
		}
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("create session options: %w", err)
	}
	defer options.Destroy()

	options.SetIntraOpNumThreads(cfg.Threads)
	options.SetInterOpNumThreads(cfg.Threads)

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 3, InputHeight, InputWidth))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	boxesTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(boxesInfo.Dimensions...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create %q output tensor: %w", cfg.BoxesOutput, err)
	}
	scoresTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(scoresInfo.Dimensions...))
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		return nil, fmt.Errorf("create %q output tensor: %w", cfg.ScoresOutput, err)
	}

	session, err := ort.NewAdvancedSession(
		cfg.ModelPath,
		[]string{inputs[0].Name},
		[]string{cfg.BoxesOutput, cfg.ScoresOutput},
		[]ort.ArbitraryTensor{inputTensor},
		[]ort.ArbitraryTensor{boxesTensor, scoresTensor},
		options,
	)
	if err != nil {
		inputTensor.Destroy()
		boxesTensor.Destroy()
		scoresTensor.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}

	return &ModelSession{
		Session: session,
		Input:   inputTensor,
		Boxes:   boxesTensor,
		Scores:  scoresTensor,
	}, nil
}

func findOutput(outputs []ort.InputOutputInfo, name string) (ort.InputOutputInfo, error) {
	declared := make([]string, 0, len(outputs))
	for _, out := range outputs {
		if out.Name == name {
			return out, nil
		}
		declared = append(declared, out.Name)
	}
	return ort.InputOutputInfo{}, fmt.Errorf("model declares no output named %q (declared outputs: %v)", name, declared)
}

// Destroy releases the session and its tensors.
func (m *ModelSession) Destroy() {
	if m.Session != nil {
		m.Session.Destroy()
	}
	if m.Input != nil {
		m.Input.Destroy()
	}
	if m.Boxes != nil {
		m.Boxes.Destroy()
	}
	if m.Scores != nil {
		m.Scores.Destroy()
	}
}
