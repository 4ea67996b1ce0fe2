package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Webcam reads frames from a local capture device.
type Webcam struct {
	mu     sync.Mutex
	cam    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// OpenWebcam opens the capture device with the given ID. The device stays
// open until Close; a failed open is the caller's acquisition failure to log.
func OpenWebcam(deviceID int) (*Webcam, error) {
	cam, err := gocv.OpenVideoCapture(deviceID)
	if err != nil {
		return nil, fmt.Errorf("open capture device %d: %w", deviceID, err)
	}
	return &Webcam{
		cam: cam,
		mat: gocv.NewMat(),
	}, nil
}

// Grab reads the next frame from the device and converts it to an
// image.Image. An empty read on a still-open device means the device produced
// no frame yet; that is reported as an error so the first Grab can double as
// a playback probe.
func (w *Webcam) Grab(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil, ErrClosed
	}
	if ok := w.cam.Read(&w.mat); !ok || w.mat.Empty() {
		return nil, fmt.Errorf("capture: device returned no frame")
	}
	img, err := w.mat.ToImage()
	if err != nil {
		return nil, fmt.Errorf("capture: convert frame: %w", err)
	}
	return img, nil
}

// Close releases the device and the frame buffer. Safe to call more than
// once.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	w.mat.Close()
	return w.cam.Close()
}
