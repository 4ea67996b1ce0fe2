package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// Config is everything the process takes from flags and environment.
type Config struct {
	ModelPath  string
	ORTLibPath string

	Device        int
	Listen        string
	CanvasWidth   int
	CanvasHeight  int
	Interval      time.Duration
	Threshold     float64
	MaxDetections int
	PoolSize      int
	BoxesOutput   string
	ScoresOutput  string
	Suppress      string

	Debug bool
}

func loadConfig() (*Config, error) {
	cfg := &Config{}

	flag.StringVar(&cfg.ModelPath, "model", "models/detector.onnx", "path to the ONNX detection model")
	flag.StringVar(&cfg.ORTLibPath, "ort-lib", "", "path to the ONNX Runtime shared library (resolved automatically when empty)")
	flag.IntVar(&cfg.Device, "device", 0, "capture device ID")
	flag.StringVar(&cfg.Listen, "listen", "127.0.0.1:8080", "HTTP listen address")
	flag.IntVar(&cfg.CanvasWidth, "width", 960, "drawing surface width")
	flag.IntVar(&cfg.CanvasHeight, "height", 540, "drawing surface height")
	flag.DurationVar(&cfg.Interval, "interval", 100*time.Millisecond, "inference sampling period")
	flag.Float64Var(&cfg.Threshold, "threshold", 0.9, "normalized confidence threshold")
	flag.IntVar(&cfg.MaxDetections, "max-detections", 100, "maximum boxes drawn per tick")
	flag.IntVar(&cfg.PoolSize, "pool-size", 1, "model session pool depth")
	flag.StringVar(&cfg.BoxesOutput, "boxes-output", "boxes", "model output name carrying box coordinates")
	flag.StringVar(&cfg.ScoresOutput, "scores-output", "scores", "model output name carrying confidence scores")
	flag.StringVar(&cfg.Suppress, "suppress", "none", "detection suppression: none or cluster")
	flag.Parse()

	cfg.Debug = os.Getenv("DEBUG") == "true"

	if cfg.Suppress != "none" && cfg.Suppress != "cluster" {
		return nil, fmt.Errorf("unknown -suppress mode %q", cfg.Suppress)
	}
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("-interval must be positive, got %v", cfg.Interval)
	}
	if cfg.CanvasWidth <= 0 || cfg.CanvasHeight <= 0 {
		return nil, fmt.Errorf("surface size %dx%d is invalid", cfg.CanvasWidth, cfg.CanvasHeight)
	}
	return cfg, nil
}
