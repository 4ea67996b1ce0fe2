package capture

import (
	"context"
	"image"
	"image/color"
	"sync"
)

// Pattern is a synthetic frame source: a gray gradient with a moving white
// square. Deterministic per frame index, so tests and local development can
// run the full pipeline without a camera.
type Pattern struct {
	width, height int

	mu     sync.Mutex
	frame  int
	closed bool
}

// NewPattern returns a pattern source with the given native resolution.
func NewPattern(width, height int) *Pattern {
	return &Pattern{width: width, height: height}
}

func (p *Pattern) Grab(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrClosed
	}
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			g := uint8((x * 255) / p.width)
			img.SetNRGBA(x, y, color.NRGBA{R: g, G: g, B: g, A: 255})
		}
	}

	// Square sweeps left to right, wrapping every 100 frames.
	side := p.height / 4
	left := ((p.frame % 100) * p.width) / 100
	for y := side; y < 2*side && y < p.height; y++ {
		for x := left; x < left+side && x < p.width; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	p.frame++
	return img, nil
}

func (p *Pattern) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// FrameCount reports how many frames have been grabbed so far.
func (p *Pattern) FrameCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}
