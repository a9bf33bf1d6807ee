// Package spectrum turns raw analyser magnitudes into drawable bar geometry.
//
// It holds the pure, allocation-light parts of the pipeline: temporal
// interpolation between two magnitude frames, bar layout, and the transform
// resolution that keeps bars at least one pixel wide.
package spectrum

import (
	"fmt"
	"math"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// Control points for the outer cubic samples are taken this far along the
// neighbouring bins' prev→next segments.
const (
	leadingNeighbourT  = 0.75
	trailingNeighbourT = 0.25
)

// Interpolate blends prev toward next per bin and returns a new frame.
// See InterpolateInto.
func Interpolate(prev, next []byte, method domain.InterpolationMethod, t, ratio float64) (domain.Frame, error) {
	dst := make(domain.Frame, len(next))
	if err := InterpolateInto(dst, prev, next, method, t, ratio); err != nil {
		return nil, err
	}
	return dst, nil
}

// InterpolateInto writes the interpolated frame into dst, which must be at
// least as long as next.
//
// For bin i, y1 = prev[i] and y2 = next[i]. The cubic method also uses y0 and
// y3, taken from the neighbouring bins and clamped to [y1·ratio, y1/ratio] and
// [y2·ratio, y2/ratio]. Every output value lies within
// [min(y1,y2)·ratio, max(y1,y2)/ratio] ∩ [0, 255].
func InterpolateInto(dst domain.Frame, prev, next []byte, method domain.InterpolationMethod, t, ratio float64) error {
	if len(prev) != len(next) {
		return fmt.Errorf("interpolate %d bins toward %d: %w", len(prev), len(next), domain.ErrLengthMismatch)
	}
	if len(dst) < len(next) {
		return fmt.Errorf("interpolate into %d bins, need %d: %w", len(dst), len(next), domain.ErrLengthMismatch)
	}
	if !method.Valid() {
		return domain.NewValidationError("interp.type", method, "unknown interpolation method")
	}
	if !(ratio > 0 && ratio <= 1) {
		return domain.NewValidationError("interp.adjacentPointRatio", ratio, "must be within (0, 1]")
	}

	last := len(next) - 1
	for i := range next {
		y1 := float64(prev[i])
		y2 := float64(next[i])

		var v float64
		switch method {
		case domain.InterpLinear:
			v = Linear(y1, y2, t)
		case domain.InterpCosine:
			v = Cosine(y1, y2, t)
		case domain.InterpCubic:
			lo, hi := max(0, i-1), min(last, i+1)
			y0 := clamp(Linear(float64(prev[lo]), float64(next[lo]), leadingNeighbourT), y1*ratio, y1/ratio)
			y3 := clamp(Linear(float64(prev[hi]), float64(next[hi]), trailingNeighbourT), y2*ratio, y2/ratio)
			mu := t
			if y1 == y2 || y1 == 0 || y2 == 0 {
				mu = 1
			}
			v = Cubic(y0, y1, y2, y3, mu)
		}

		lower := math.Max(0, math.Min(y1, y2)*ratio)
		upper := math.Min(domain.MaxMagnitude, math.Max(y1, y2)/ratio)
		dst[i] = clamp(v, lower, upper)
	}
	return nil
}

// Linear interpolates between y1 and y2.
func Linear(y1, y2, mu float64) float64 {
	return y1 + (y2-y1)*mu
}

// Cosine interpolates between y1 and y2 with eased ends.
func Cosine(y1, y2, mu float64) float64 {
	mu2 := (1 - math.Cos(mu*math.Pi)) / 2
	return y1*(1-mu2) + y2*mu2
}

// Cubic evaluates the four-point cubic through y0..y3 between y1 and y2.
func Cubic(y0, y1, y2, y3, mu float64) float64 {
	mu2 := mu * mu
	a0 := y3 - y2 - y0 + y1
	a1 := y0 - y1 - a0
	a2 := y2 - y0
	a3 := y1
	return a0*mu*mu2 + a1*mu2 + a2*mu + a3
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// StoreFrame truncates frame into dst as bytes, ready to be used as the next
// previous frame.
func StoreFrame(dst []byte, frame domain.Frame) {
	n := min(len(dst), len(frame))
	for i := 0; i < n; i++ {
		dst[i] = byte(clamp(frame[i], 0, domain.MaxMagnitude))
	}
}
