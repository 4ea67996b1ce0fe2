package capture

import (
	"context"
	"errors"
	"testing"
)

func TestPatternGrab(t *testing.T) {
	src := NewPattern(320, 240)
	defer src.Close()

	img, err := src.Grab(context.Background())
	if err != nil {
		t.Fatalf("Grab() failed: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Errorf("frame is %v, want 320x240", img.Bounds())
	}
	if src.FrameCount() != 1 {
		t.Errorf("FrameCount() = %d, want 1", src.FrameCount())
	}
}

func TestPatternFramesDiffer(t *testing.T) {
	src := NewPattern(100, 100)
	defer src.Close()

	ctx := context.Background()
	first, _ := src.Grab(ctx)
	for i := 0; i < 49; i++ {
		src.Grab(ctx)
	}
	later, _ := src.Grab(ctx)

	same := true
	for y := 0; y < 100 && same; y++ {
		for x := 0; x < 100; x++ {
			if first.At(x, y) != later.At(x, y) {
				same = false
				break
			}
		}
	}
	if same {
		t.Error("pattern did not move between frame 0 and frame 50")
	}
}

func TestPatternGrabAfterClose(t *testing.T) {
	src := NewPattern(100, 100)
	if err := src.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if _, err := src.Grab(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("Grab() after Close = %v, want ErrClosed", err)
	}
	// Closing again is a no-op.
	if err := src.Close(); err != nil {
		t.Errorf("second Close() = %v, want nil", err)
	}
}

func TestPatternGrabHonorsContext(t *testing.T) {
	src := NewPattern(100, 100)
	defer src.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := src.Grab(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Grab() with canceled context = %v, want context.Canceled", err)
	}
}
