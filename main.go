package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ort "github.com/yalue/onnxruntime_go"

	"detectcam/capture"
	"detectcam/detections"
	"detectcam/overlay"
	"detectcam/sampler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	libPath, err := resolveORTLib(cfg.ORTLibPath)
	if err != nil {
		log.Fatalf("resolve onnxruntime library: %v", err)
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		log.Fatalf("initialize onnxruntime: %v", err)
	}
	defer ort.DestroyEnvironment()

	// A model that fails to load is not fatal: the preview and controls keep
	// working, detection ticks stay no-ops.
	var engine sampler.Engine
	var poolStats func() interface{}
	pipeline, err := detections.NewPipeline(detections.Config{
		Session: detections.SessionConfig{
			ModelPath:    cfg.ModelPath,
			BoxesOutput:  cfg.BoxesOutput,
			ScoresOutput: cfg.ScoresOutput,
		},
		PoolSize:      cfg.PoolSize,
		Threshold:     float32(cfg.Threshold),
		MaxDetections: cfg.MaxDetections,
		Suppress:      suppressorFor(cfg.Suppress),
	})
	if err != nil {
		log.Printf("model load failed, running without detection: %v", err)
	} else {
		defer pipeline.Destroy()
		engine = pipeline
		poolStats = func() interface{} { return pipeline.PoolStats() }
	}

	state := &AppState{
		cfg:    cfg,
		engine: engine,
		canvas: overlay.NewCanvas(cfg.CanvasWidth, cfg.CanvasHeight),
		openSource: func() (capture.Source, error) {
			return capture.OpenWebcam(cfg.Device)
		},
		poolStats: poolStats,
	}

	srv := &http.Server{
		Handler:     state.routes(),
		Addr:        cfg.Listen,
		ReadTimeout: 60 * time.Second,
		// No write timeout: /stream is long-lived.
	}

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		<-sig
		log.Printf("shutting down")
		state.handleShutdown()
		srv.Close()
	}()

	log.Printf("listening on %s (model=%s)", cfg.Listen, cfg.ModelPath)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("http server: %v", err)
	}
}

func suppressorFor(mode string) detections.Suppressor {
	if mode == "cluster" {
		return detections.ClusterMerge()
	}
	return nil
}
