package domain

import (
	"strings"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Fill style keywords accepted by CanvasOptions.FillStyle.
const (
	FillStyleHue  = ""     // hue sweep across the bins
	FillStyleNone = "none" // geometry only
)

// Options is the per-instance configuration tree.
// The yaml keys form the schema that partial configurations are merged against.
type Options struct {
	Analysis AnalysisOptions `yaml:"analyserNode"`
	Canvas   CanvasOptions   `yaml:"canvas"`
}

// AnalysisOptions configures the analysis tap.
type AnalysisOptions struct {
	MinDecibels           float64 `yaml:"minDecibels"`
	MaxDecibels           float64 `yaml:"maxDecibels"`
	FFTSize               int     `yaml:"fftSize"`
	SmoothingTimeConstant float64 `yaml:"smoothingTimeConstant"`
}

// CanvasOptions configures the render surfaces and bar geometry.
type CanvasOptions struct {
	Width             int           `yaml:"width"`
	Height            int           `yaml:"height"`
	Alpha             bool          `yaml:"alpha"`
	Desynchronized    bool          `yaml:"desynchronized"`
	SubpixelRendering bool          `yaml:"subpixelRendering"`
	GapPercent        float64       `yaml:"gapPercent"`
	AlwaysComposite   bool          `yaml:"alwaysComposite"`
	MotionBlur        bool          `yaml:"motionBlur"`
	RenderTimeOverlay bool          `yaml:"renderTimeOverlay"`
	FillStyle         string        `yaml:"fillStyle"`
	Interp            InterpOptions `yaml:"interp"`
}

// InterpOptions configures the temporal interpolation between frames.
type InterpOptions struct {
	Type               InterpolationMethod `yaml:"type"`
	T                  float64             `yaml:"t"`
	AdjacentPointRatio float64             `yaml:"adjacentPointRatio"`
}

// DefaultOptions returns a fresh copy of the built-in defaults.
func DefaultOptions() Options {
	return Options{
		Analysis: AnalysisOptions{
			MinDecibels:           -100,
			MaxDecibels:           -10,
			FFTSize:               1024,
			SmoothingTimeConstant: 0.8,
		},
		Canvas: CanvasOptions{
			Width:          800,
			Height:         600,
			Alpha:          false,
			Desynchronized: true,
			GapPercent:     0.25,
			FillStyle:      FillStyleHue,
			Interp: InterpOptions{
				Type:               InterpLinear,
				T:                  0.2,
				AdjacentPointRatio: 1.0 / 3.0,
			},
		},
	}
}

// Surface returns the render target description derived from the canvas options.
func (o Options) Surface() SurfaceSpec {
	return SurfaceSpec{
		Width:          o.Canvas.Width,
		Height:         o.Canvas.Height,
		Alpha:          o.Canvas.Alpha,
		Desynchronized: o.Canvas.Desynchronized,
	}
}

// Validate checks value ranges that the schema alone cannot express.
func (o Options) Validate() error {
	a := o.Analysis
	if a.MinDecibels >= a.MaxDecibels {
		return NewValidationError("analyserNode.minDecibels", a.MinDecibels, "must be below maxDecibels")
	}
	if a.SmoothingTimeConstant < 0 || a.SmoothingTimeConstant > 1 {
		return NewValidationError("analyserNode.smoothingTimeConstant", a.SmoothingTimeConstant, "must be within [0, 1]")
	}
	if a.FFTSize <= 0 {
		return NewValidationError("analyserNode.fftSize", a.FFTSize, "must be positive")
	}

	c := o.Canvas
	if c.Width <= 0 || c.Height <= 0 {
		return NewValidationError("canvas.width/height", [2]int{c.Width, c.Height}, "must be positive")
	}
	if c.GapPercent < 0 || c.GapPercent >= 1 {
		return NewValidationError("canvas.gapPercent", c.GapPercent, "must be within [0, 1)")
	}
	if _, err := ParseFillStyle(c.FillStyle); err != nil {
		return err
	}

	i := c.Interp
	if !i.Type.Valid() {
		return NewValidationError("canvas.interp.type", i.Type, "unknown interpolation method")
	}
	if i.T < 0 || i.T > 1 {
		return NewValidationError("canvas.interp.t", i.T, "must be within [0, 1]")
	}
	if i.AdjacentPointRatio <= 0 || i.AdjacentPointRatio > 1 {
		return NewValidationError("canvas.interp.adjacentPointRatio", i.AdjacentPointRatio, "must be within (0, 1]")
	}
	return nil
}

// FillStyle is a parsed CanvasOptions.FillStyle.
type FillStyle struct {
	Hue   bool           // hue sweep
	Color colorful.Color // fixed colour when neither Hue nor None
	None  bool           // geometry only
}

// ParseFillStyle interprets a fill style string: "" for the hue sweep,
// "none" for geometry only, or a "#rrggbb" colour.
func ParseFillStyle(s string) (FillStyle, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case FillStyleHue:
		return FillStyle{Hue: true}, nil
	case FillStyleNone:
		return FillStyle{None: true}, nil
	}
	c, err := colorful.Hex(strings.TrimSpace(s))
	if err != nil {
		return FillStyle{}, NewValidationError("canvas.fillStyle", s, "expected \"\", \"none\" or #rrggbb")
	}
	return FillStyle{Color: c}, nil
}
