// Package overlay owns the visible drawing surface and the FPS counter
// stamped onto it.
package overlay

import (
	"fmt"
	"image"
	"sync"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"detectcam/models"
)

const (
	lineWidth = 2.0

	// FPS label anchor, fixed screen position.
	fpsLabelX = 8.0
	fpsLabelY = 18.0
)

// Canvas is a fixed-size 2D raster surface shared by the render loop and the
// postprocessor. All drawing happens under one internal mutex, so the two
// writers interleave without a data race; the last writer wins visually,
// which is the intended behavior for a live preview.
type Canvas struct {
	mu     sync.Mutex
	dc     *gg.Context
	width  int
	height int
}

// NewCanvas allocates a black surface of the declared size.
func NewCanvas(width, height int) *Canvas {
	dc := gg.NewContext(width, height)
	dc.SetFontFace(basicfont.Face7x13)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	return &Canvas{dc: dc, width: width, height: height}
}

// Size returns the declared surface dimensions.
func (c *Canvas) Size() (int, int) {
	return c.width, c.height
}

// DrawFrame blits frame scaled to the full surface. This is the render
// loop's only operation.
func (c *Canvas) DrawFrame(frame image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blit(frame)
}

// Compose is the postprocessor's draw step: clear, redraw the raw frame as
// background, outline each detection with its score label, then stamp the
// FPS value in the corner. One lock acquisition covers the whole pass so a
// viewer never sees a half-drawn tick.
func (c *Canvas) Compose(frame image.Image, detections []models.Detection, fps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dc.SetRGB(0, 0, 0)
	c.dc.Clear()
	c.blit(frame)

	c.dc.SetLineWidth(lineWidth)
	for _, d := range detections {
		x := float64(d.Box[0])
		y := float64(d.Box[1])
		w := float64(d.Box[2] - d.Box[0])
		h := float64(d.Box[3] - d.Box[1])

		c.dc.SetRGB255(46, 204, 113)
		c.dc.DrawRectangle(x, y, w, h)
		c.dc.Stroke()
		c.dc.DrawString(fmt.Sprintf("Score: %.2f", d.Score), x, y-4)
	}

	c.drawFPS(fps)
}

func (c *Canvas) blit(frame image.Image) {
	bounds := frame.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return
	}
	c.dc.Push()
	c.dc.Scale(
		float64(c.width)/float64(bounds.Dx()),
		float64(c.height)/float64(bounds.Dy()),
	)
	c.dc.DrawImage(frame, 0, 0)
	c.dc.Pop()
}

// drawFPS paints an opaque label so the value stays readable over any
// background.
func (c *Canvas) drawFPS(fps float64) {
	label := fmt.Sprintf("FPS: %.1f", fps)
	w, h := c.dc.MeasureString(label)
	c.dc.SetRGB(0, 0, 0)
	c.dc.DrawRectangle(fpsLabelX-2, fpsLabelY-h-2, w+4, h+8)
	c.dc.Fill()
	c.dc.SetRGB255(46, 204, 113)
	c.dc.DrawString(label, fpsLabelX, fpsLabelY)
}

// Snapshot copies the current surface. The copy is the caller's to keep;
// later draws do not show through it.
func (c *Canvas) Snapshot() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()

	src := c.dc.Image()
	out := image.NewRGBA(src.Bounds())
	if rgba, ok := src.(*image.RGBA); ok {
		copy(out.Pix, rgba.Pix)
		return out
	}
	for y := 0; y < c.height; y++ {
		for x := 0; x < c.width; x++ {
			out.Set(x, y, src.At(x, y))
		}
	}
	return out
}
