package ports

import (
	"image"
	"time"
)

// ImageSource supplies background imagery, static or animated.
//
// Thread-safety: Implementations must be safe for use from a single
// producer goroutine; they are not shared.
type ImageSource interface {
	// FrameAt returns the image to show after elapsed playing time and
	// whether it differs from the image returned by the previous call.
	// The returned image must not be modified by the caller.
	FrameAt(elapsed time.Duration) (img image.Image, changed bool)

	// Bounds returns the size of every frame.
	Bounds() image.Rectangle
}
