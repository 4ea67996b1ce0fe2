// Package capture provides live frame sources for the detection pipeline.
//
// The pipeline treats acquisition as an external collaborator: it only ever
// sees the Source interface and reads the latest frame from it, read-only,
// once per tick.
package capture

import (
	"context"
	"errors"
	"image"
)

// ErrClosed is returned by Grab after the source has been closed. Loops that
// see it are expected to stop rescheduling themselves rather than retry.
var ErrClosed = errors.New("capture: source closed")

// Source is a continuously updating pixel source with a fixed native
// resolution. Grab returns the most recent frame; it never blocks waiting for
// a newer one.
type Source interface {
	Grab(ctx context.Context) (image.Image, error)
	Close() error
}
