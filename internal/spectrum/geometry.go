package spectrum

import (
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

// Layout describes how a frame is laid out across the canvas.
type Layout struct {
	Width    float64
	Height   float64
	Gap      float64 // fraction of each bar slot left empty, in [0, 1)
	Subpixel bool    // keep fractional coordinates instead of flooring
	Style    domain.FillStyle
}

// ComputeBars lays out one bar per bin. Bars start at the bottom edge and
// grow upwards, so heights are zero or negative.
//
// In integer mode the width, x offset and height are floored to whole pixels.
// The x offset uses the unfloored gap, so bars never overlap.
func ComputeBars(frame domain.Frame, l Layout) []domain.BarPrimitive {
	return AppendBars(nil, frame, l)
}

// AppendBars is ComputeBars appending into dst.
func AppendBars(dst []domain.BarPrimitive, frame domain.Frame, l Layout) []domain.BarPrimitive {
	n := len(frame)
	if n == 0 {
		return dst
	}

	total := l.Width / float64(n)
	filled := total * (1 - l.Gap)
	gapWidth := total * l.Gap
	if !l.Subpixel {
		filled = math.Floor(filled)
	}

	for i, v := range frame {
		h := -v * l.Height / domain.MaxMagnitude
		x := float64(i) * total
		if !l.Subpixel {
			h = math.Floor(h)
			x = math.Floor(float64(i) * (filled + gapWidth))
		}
		dst = append(dst, domain.BarPrimitive{
			Fill:   barFill(l.Style, i, n),
			X:      x,
			Y:      l.Height,
			Width:  filled,
			Height: h,
		})
	}
	return dst
}

// barFill returns nil for geometry-only bars.
func barFill(s domain.FillStyle, i, n int) color.Color {
	switch {
	case s.None:
		return nil
	case s.Hue:
		return colorful.Hsl(float64(i)*360/float64(n), 1, 0.5).Clamped()
	default:
		return s.Color
	}
}
