package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"detectcam/capture"
	"detectcam/overlay"
	"detectcam/sampler"
)

// AppState wires the HTTP surface to the pipeline. engine is nil when the
// model failed to load at startup; the preview and controls still work, only
// detection stays inert.
type AppState struct {
	cfg    *Config
	engine sampler.Engine
	canvas *overlay.Canvas

	// openSource is swapped out by tests; the default opens the configured
	// webcam device.
	openSource func() (capture.Source, error)

	// poolStats is nil when there is no engine.
	poolStats func() interface{}

	mu       sync.Mutex
	starting bool
	// stopRequested records a stop that arrived while a start was still
	// acquiring the camera; the completing start honors it instead of
	// installing the sampler.
	stopRequested bool
	smp           *sampler.Sampler
	src           capture.Source
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *AppState) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/start", s.handleStart).Methods("POST")
	r.HandleFunc("/stop", s.handleStop).Methods("POST")
	r.HandleFunc("/stream", s.handleStream).Methods("GET")
	r.HandleFunc("/stats", s.handleStats).Methods("GET")
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	return r
}

// handleStart acquires the camera and launches the sampler. The control is
// disabled (409) while a start is underway or the sampler runs; any failure
// re-enables it.
func (s *AppState) handleStart(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	if s.starting || (s.smp != nil && s.smp.Running()) {
		s.mu.Unlock()
		sendError(w, "already_running", "capture is already starting or running", http.StatusConflict)
		return
	}
	s.starting = true
	s.mu.Unlock()

	src, smp, err := s.startCapture()
	s.mu.Lock()
	s.starting = false
	stopped := s.stopRequested
	s.stopRequested = false
	if err == nil && !stopped {
		s.src = src
		s.smp = smp
	}
	s.mu.Unlock()

	if err != nil {
		log.Printf("start capture: %v", err)
		sendError(w, "acquisition_failed", err.Error(), http.StatusInternalServerError)
		return
	}
	if stopped {
		// A stop raced this start and wins: tear down what was acquired.
		smp.Stop()
		src.Close()
		sendJSON(w, statusResponse{Status: "stopped"}, http.StatusOK)
		return
	}
	sendJSON(w, statusResponse{Status: "started"}, http.StatusOK)
}

func (s *AppState) startCapture() (capture.Source, *sampler.Sampler, error) {
	src, err := s.openSource()
	if err != nil {
		return nil, nil, fmt.Errorf("acquire camera: %w", err)
	}

	// Probe one frame so a device that opens but never plays fails here,
	// before any loop starts.
	if _, err := src.Grab(context.Background()); err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("camera playback: %w", err)
	}

	smp := sampler.New(src, s.engine, s.canvas, sampler.Config{
		Interval: s.cfg.Interval,
		Debug:    s.cfg.Debug,
	})
	if err := smp.Start(); err != nil {
		src.Close()
		return nil, nil, err
	}
	return src, smp, nil
}

// handleStop halts the sampler and releases the camera. Stopping when
// nothing runs is not an error.
func (s *AppState) handleStop(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	if s.starting {
		s.stopRequested = true
	}
	smp, src := s.smp, s.src
	s.smp, s.src = nil, nil
	s.mu.Unlock()

	if smp != nil {
		smp.Stop()
	}
	if src != nil {
		if err := src.Close(); err != nil {
			log.Printf("close capture source: %v", err)
		}
	}
	sendJSON(w, statusResponse{Status: "stopped"}, http.StatusOK)
}

// handleStream serves the drawing surface as multipart MJPEG at the display
// rate until the client goes away.
func (s *AppState) handleStream(w http.ResponseWriter, r *http.Request) {
	clientID := uuid.NewString()
	log.Printf("stream client %s connected from %s", clientID, r.RemoteAddr)

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	ticker := time.NewTicker(sampler.DefaultDisplayInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Printf("stream client %s disconnected", clientID)
			return
		case <-ticker.C:
			frame := s.canvas.Snapshot()
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
				return
			}
			if err := jpeg.Encode(w, frame, &jpeg.Options{Quality: 80}); err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "\r\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func (s *AppState) handleStats(w http.ResponseWriter, _ *http.Request) {
	stats := map[string]interface{}{}

	s.mu.Lock()
	smp := s.smp
	s.mu.Unlock()

	if smp != nil {
		stats["sampler"] = smp.Metrics()
	} else {
		stats["sampler"] = sampler.Stats{}
	}
	if s.poolStats != nil {
		stats["pool"] = s.poolStats()
	}
	stats["detection_enabled"] = s.engine != nil

	sendJSON(w, stats, http.StatusOK)
}

// handleShutdown releases the capture state during process shutdown. Safe to
// call with nothing running.
func (s *AppState) handleShutdown() {
	s.mu.Lock()
	smp, src := s.smp, s.src
	s.smp, s.src = nil, nil
	s.mu.Unlock()

	if smp != nil {
		smp.Stop()
	}
	if src != nil {
		src.Close()
	}
}

func (s *AppState) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, statusResponse{Status: "ok"}, http.StatusOK)
}

func sendJSON(w http.ResponseWriter, payload interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func sendError(w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Code: code, Message: message})
}
