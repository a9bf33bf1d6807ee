package domain

import (
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitmapOwnership(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	b := NewBitmap(img)
	assert.Equal(t, 4, b.Width())
	assert.Equal(t, 2, b.Height())

	cp, err := b.Clone()
	require.NoError(t, err)
	cp.Image().Pix[0] = 9
	assert.Zero(t, img.Pix[0], "clone is independent")

	got, err := b.Detach()
	require.NoError(t, err)
	assert.Same(t, img, got)
	assert.True(t, b.Closed())
	assert.Zero(t, b.Width())

	_, err = b.Detach()
	assert.ErrorIs(t, err, ErrBitmapClosed)
	_, err = b.Clone()
	assert.ErrorIs(t, err, ErrBitmapClosed)

	var nilBitmap *Bitmap
	nilBitmap.Close()
	_, err = nilBitmap.Detach()
	assert.ErrorIs(t, err, ErrBitmapClosed)
}

func TestBitmapFromImageRebasesBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 13, 12))
	src.Pix[0] = 200

	b := BitmapFromImage(src)
	assert.Equal(t, image.Rect(0, 0, 3, 2), b.Image().Bounds())
	assert.Equal(t, uint8(200), b.Image().Pix[0])
}

func TestLayerOperations(t *testing.T) {
	assert.Equal(t, OpBitmap, LayerMain.BitmapOperation())
	assert.Equal(t, OpForegroundBitmap, LayerForeground.BitmapOperation())
	assert.Equal(t, OpBackgroundBitmap, LayerBackground.BitmapOperation())
	assert.Equal(t, "background", LayerBackground.String())
	assert.Equal(t, "unknown", Layer(7).String())
}

func TestDefaultOptionsValidate(t *testing.T) {
	require.NoError(t, DefaultOptions().Validate())
}

func TestOptionsValidate(t *testing.T) {
	tests := map[string]struct {
		mutate func(*Options)
		field  string
	}{
		"decibel order":  {func(o *Options) { o.Analysis.MinDecibels = 0 }, "analyserNode.minDecibels"},
		"smoothing":      {func(o *Options) { o.Analysis.SmoothingTimeConstant = 1.5 }, "analyserNode.smoothingTimeConstant"},
		"fft size":       {func(o *Options) { o.Analysis.FFTSize = 0 }, "analyserNode.fftSize"},
		"size":           {func(o *Options) { o.Canvas.Height = 0 }, "canvas.width/height"},
		"gap":            {func(o *Options) { o.Canvas.GapPercent = 1 }, "canvas.gapPercent"},
		"fill":           {func(o *Options) { o.Canvas.FillStyle = "stripes" }, "canvas.fillStyle"},
		"interp type":    {func(o *Options) { o.Canvas.Interp.Type = "spline" }, "canvas.interp.type"},
		"interp t":       {func(o *Options) { o.Canvas.Interp.T = -0.1 }, "canvas.interp.t"},
		"adjacent ratio": {func(o *Options) { o.Canvas.Interp.AdjacentPointRatio = 0 }, "canvas.interp.adjacentPointRatio"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			o := DefaultOptions()
			tt.mutate(&o)
			var verr *ValidationError
			require.ErrorAs(t, o.Validate(), &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestParseFillStyle(t *testing.T) {
	s, err := ParseFillStyle("")
	require.NoError(t, err)
	assert.True(t, s.Hue)

	s, err = ParseFillStyle(" NONE ")
	require.NoError(t, err)
	assert.True(t, s.None)

	s, err = ParseFillStyle("#ff8000")
	require.NoError(t, err)
	r, g, b := s.Color.RGB255()
	assert.Equal(t, [3]uint8{255, 128, 0}, [3]uint8{r, g, b})
}

func TestErrorsUnwrap(t *testing.T) {
	err := NewRenderError(OpInit, "abc", "post failed", ErrWorkerClosed)
	assert.ErrorIs(t, err, ErrWorkerClosed)
	assert.Contains(t, err.Error(), "abc")

	serr := NewServiceError("AnalysisController", "ApplyOptions", "rejected", errors.New("boom"))
	assert.EqualError(t, errors.Unwrap(serr), "boom")

	merr := NewMediaError("play", "x.wav", "no source loaded", ErrNotPlaying)
	assert.ErrorIs(t, merr, ErrNotPlaying)
}
