// Package domain contains the core models of the visualizer pipeline.
// These types are independent of any rendering backend or audio library.
package domain

import (
	"image"
	"image/color"
	"image/draw"
	"sync"
)

// MaxFFTSize is the largest supported transform size.
// Magnitude buffers are always allocated at this capacity so the active
// resolution can change without reallocation.
const MaxFFTSize = 1 << 15

// MinFFTSize is the smallest supported transform size.
const MinFFTSize = 1 << 5

// MaxMagnitude is the largest raw per-bin magnitude value.
const MaxMagnitude = 255

// InstanceID uniquely identifies a visualizer instance within a registry.
type InstanceID string

// Frame is one blended snapshot of per-bin magnitudes in the range [0, 255].
type Frame []float64

// InterpolationMethod selects the curve used to blend successive frames.
type InterpolationMethod string

// Supported interpolation methods.
const (
	InterpLinear InterpolationMethod = "linear"
	InterpCosine InterpolationMethod = "cosine"
	InterpCubic  InterpolationMethod = "cubic"
)

// Valid reports whether the method is known.
func (m InterpolationMethod) Valid() bool {
	switch m {
	case InterpLinear, InterpCosine, InterpCubic:
		return true
	}
	return false
}

// BarPrimitive is a single bar draw command. It lives for one render call.
type BarPrimitive struct {
	// Fill is the bar colour. A nil fill means geometry only: the bar is drawn
	// as an opaque stencil so an image mask can be composited through it.
	Fill color.Color

	X      float64
	Y      float64 // baseline
	Width  float64
	Height float64 // negative values grow upwards from the baseline
}

// Top returns the y coordinate of the bar's free end.
func (b BarPrimitive) Top() float64 {
	return b.Y + b.Height
}

// TextOverlay is a line of text drawn on the foreground layer.
type TextOverlay struct {
	Text  string
	X     int
	Y     int // baseline
	Color color.Color
}

// Layer selects one of an instance's render surfaces.
type Layer int

// Render surfaces.
const (
	LayerMain Layer = iota
	LayerForeground
	LayerBackground
)

// String returns a readable layer name.
func (l Layer) String() string {
	switch l {
	case LayerMain:
		return "main"
	case LayerForeground:
		return "foreground"
	case LayerBackground:
		return "background"
	default:
		return "unknown"
	}
}

// BitmapOperation returns the resolver name used for extracting this layer.
func (l Layer) BitmapOperation() Operation {
	switch l {
	case LayerForeground:
		return OpForegroundBitmap
	case LayerBackground:
		return OpBackgroundBitmap
	default:
		return OpBitmap
	}
}

// Bitmap is a transferable pixel buffer.
//
// Ownership moves with the bitmap: once a bitmap has been posted to the
// renderer, the sender must not touch it again. Close releases the buffer.
type Bitmap struct {
	mu  sync.Mutex
	img *image.RGBA
}

// NewBitmap wraps an RGBA image. The image becomes owned by the bitmap.
func NewBitmap(img *image.RGBA) *Bitmap {
	return &Bitmap{img: img}
}

// BitmapFromImage copies any image into a new bitmap.
func BitmapFromImage(src image.Image) *Bitmap {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return NewBitmap(dst)
}

// Image returns the underlying image, or nil when the bitmap is closed.
func (b *Bitmap) Image() *image.RGBA {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.img
}

// Width returns the pixel width (0 when closed).
func (b *Bitmap) Width() int {
	if img := b.Image(); img != nil {
		return img.Bounds().Dx()
	}
	return 0
}

// Height returns the pixel height (0 when closed).
func (b *Bitmap) Height() int {
	if img := b.Image(); img != nil {
		return img.Bounds().Dy()
	}
	return 0
}

// Detach hands over the pixel buffer and leaves the bitmap closed.
func (b *Bitmap) Detach() (*image.RGBA, error) {
	if b == nil {
		return nil, ErrBitmapClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.img == nil {
		return nil, ErrBitmapClosed
	}
	img := b.img
	b.img = nil
	return img, nil
}

// Clone returns an independent copy of the bitmap.
func (b *Bitmap) Clone() (*Bitmap, error) {
	img := b.Image()
	if img == nil {
		return nil, ErrBitmapClosed
	}
	cp := image.NewRGBA(img.Rect)
	copy(cp.Pix, img.Pix)
	return NewBitmap(cp), nil
}

// Close releases the pixel buffer. Closing twice is a no-op.
func (b *Bitmap) Close() {
	if b == nil {
		return
	}
	b.mu.Lock()
	b.img = nil
	b.mu.Unlock()
}

// Closed reports whether the bitmap has been closed or detached.
func (b *Bitmap) Closed() bool {
	return b.Image() == nil
}

// SurfaceSpec describes the render target requested at init.
type SurfaceSpec struct {
	Width  int
	Height int

	// Alpha enables transparency on the main surface. When false the
	// composite is cleared to opaque black.
	Alpha bool

	// Desynchronized is a latency hint carried for presentation backends.
	Desynchronized bool
}
