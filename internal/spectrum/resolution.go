package spectrum

import (
	"math/bits"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// DeriveFFTSize returns the transform size to use for a canvas.
//
// The requested size is clamped to [MinFFTSize, MaxFFTSize], rounded down to
// a power of two and, unless subpixel rendering is on, halved while a filled
// bar would be narrower than one pixel. The result never drops below MinFFTSize.
func DeriveFFTSize(requested int, width, gap float64, subpixel bool) int {
	size := min(max(requested, domain.MinFFTSize), domain.MaxFFTSize)
	size = 1 << (bits.Len(uint(size)) - 1)
	if subpixel {
		return size
	}
	for size > domain.MinFFTSize && FilledBarWidth(size, width, gap) < 1 {
		size /= 2
	}
	return size
}

// FilledBarWidth returns the drawn width of one bar for a transform size.
// The bin count is half the transform size.
func FilledBarWidth(fftSize int, width, gap float64) float64 {
	bins := fftSize / 2
	if bins == 0 {
		return 0
	}
	return width / float64(bins) * (1 - gap)
}
