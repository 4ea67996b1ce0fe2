package main

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"detectcam/capture"
	"detectcam/models"
	"detectcam/overlay"
)

type stubEngine struct{}

func (stubEngine) Detect(_ context.Context, _ image.Image, _, _ int, _ *models.TickTimings) ([]models.Detection, error) {
	return []models.Detection{{Box: [4]float32{1, 1, 5, 5}, Score: 1.0}}, nil
}

func newTestState(openSource func() (capture.Source, error)) *AppState {
	return &AppState{
		cfg: &Config{
			Interval:     10 * time.Millisecond,
			CanvasWidth:  64,
			CanvasHeight: 48,
		},
		engine:     stubEngine{},
		canvas:     overlay.NewCanvas(64, 48),
		openSource: openSource,
	}
}

func patternSource() (capture.Source, error) {
	return capture.NewPattern(64, 48), nil
}

func TestHealthEndpoint(t *testing.T) {
	state := newTestState(patternSource)
	srv := httptest.NewServer(state.routes())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /healthz = %d, want 200", resp.StatusCode)
	}
}

func TestStartStopLifecycle(t *testing.T) {
	state := newTestState(patternSource)
	srv := httptest.NewServer(state.routes())
	defer srv.Close()
	defer state.handleShutdown()

	resp, err := http.Post(srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("POST /start failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /start = %d, want 200", resp.StatusCode)
	}

	// Starting again while running is rejected.
	resp, err = http.Post(srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("second POST /start failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second POST /start = %d, want 409", resp.StatusCode)
	}
	var errResp errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if errResp.Code != "already_running" {
		t.Errorf("error code = %q, want already_running", errResp.Code)
	}

	// Stop twice: both succeed, the second with nothing to stop.
	for i := 0; i < 2; i++ {
		resp, err := http.Post(srv.URL+"/stop", "", nil)
		if err != nil {
			t.Fatalf("POST /stop #%d failed: %v", i+1, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("POST /stop #%d = %d, want 200", i+1, resp.StatusCode)
		}
	}

	// After stopping, start works again.
	resp, err = http.Post(srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("POST /start after stop failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /start after stop = %d, want 200", resp.StatusCode)
	}
}

func TestStartAcquisitionFailureReenables(t *testing.T) {
	attempts := 0
	state := newTestState(func() (capture.Source, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("permission denied")
		}
		return capture.NewPattern(64, 48), nil
	})
	srv := httptest.NewServer(state.routes())
	defer srv.Close()
	defer state.handleShutdown()

	resp, err := http.Post(srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("POST /start failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("POST /start with failing camera = %d, want 500", resp.StatusCode)
	}

	// The failure re-enabled the control: the next attempt succeeds.
	resp, err = http.Post(srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("retry POST /start failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("retry POST /start = %d, want 200", resp.StatusCode)
	}
}

func TestStopDuringStartWins(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var gate sync.Once
	state := newTestState(func() (capture.Source, error) {
		gate.Do(func() {
			close(entered)
			<-release
		})
		return capture.NewPattern(64, 48), nil
	})
	srv := httptest.NewServer(state.routes())
	defer srv.Close()
	defer state.handleShutdown()

	startResp := make(chan *http.Response, 1)
	go func() {
		resp, err := http.Post(srv.URL+"/start", "", nil)
		if err != nil {
			t.Errorf("POST /start failed: %v", err)
			close(startResp)
			return
		}
		startResp <- resp
	}()

	// The stop lands while the start is still acquiring the camera.
	<-entered
	resp, err := http.Post(srv.URL+"/stop", "", nil)
	if err != nil {
		t.Fatalf("POST /stop failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST /stop = %d, want 200", resp.StatusCode)
	}

	close(release)
	resp, ok := <-startResp
	if !ok {
		t.Fatal("start request never completed")
	}
	defer resp.Body.Close()
	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatalf("decode start response: %v", err)
	}
	if status.Status != "stopped" {
		t.Errorf("raced start reported %q, want stopped", status.Status)
	}

	state.mu.Lock()
	smp := state.smp
	state.mu.Unlock()
	if smp != nil {
		t.Error("raced start installed a sampler despite the stop")
	}

	// The pre-empted start left the controls usable.
	resp, err = http.Post(srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("POST /start after raced stop failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("POST /start after raced stop = %d, want 200", resp.StatusCode)
	}
}

func TestStatsEndpoint(t *testing.T) {
	state := newTestState(patternSource)
	state.poolStats = func() interface{} {
		return map[string]int{"size": 1}
	}
	srv := httptest.NewServer(state.routes())
	defer srv.Close()
	defer state.handleShutdown()

	resp, err := http.Post(srv.URL+"/start", "", nil)
	if err != nil {
		t.Fatalf("POST /start failed: %v", err)
	}
	resp.Body.Close()

	resp, err = http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /stats = %d, want 200", resp.StatusCode)
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	for _, key := range []string{"sampler", "pool", "detection_enabled"} {
		if _, ok := payload[key]; !ok {
			t.Errorf("stats payload missing %q", key)
		}
	}
}
