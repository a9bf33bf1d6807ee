// Package widgets provides custom Fyne widgets for the visual player.
package widgets

import (
	"image"
	"image/draw"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"
	xdraw "golang.org/x/image/draw"
)

// Visualizer displays the composited frames of a visual player. Frames of a
// different size than the widget are scaled to fit.
//
// A primary tap and a secondary tap are forwarded to the callbacks set with
// SetOnTapped and SetOnSecondaryTapped.
type Visualizer struct {
	widget.BaseWidget

	raster *canvas.Raster

	mu             sync.RWMutex
	frame          image.Image
	onTapped       func()
	onSecondaryTap func(*fyne.PointEvent)
}

// NewVisualizer creates an empty visualizer widget.
func NewVisualizer() *Visualizer {
	v := &Visualizer{}
	v.raster = canvas.NewRaster(v.draw)
	v.ExtendBaseWidget(v)
	return v
}

// CreateRenderer implements fyne.Widget.
func (v *Visualizer) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(v.raster)
}

// MinSize returns a minimal size so the widget expands to fill available space.
func (v *Visualizer) MinSize() fyne.Size {
	return fyne.NewSize(0, 0)
}

// SetFrame shows img until the next call. Must be called on the UI goroutine.
func (v *Visualizer) SetFrame(img image.Image) {
	v.mu.Lock()
	v.frame = img
	v.mu.Unlock()

	v.raster.Refresh()
}

// Frame returns the frame on display, or nil.
func (v *Visualizer) Frame() image.Image {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.frame
}

// Clear blanks the widget. Must be called on the UI goroutine.
func (v *Visualizer) Clear() {
	v.SetFrame(nil)
}

// SetOnTapped sets the primary tap callback.
func (v *Visualizer) SetOnTapped(f func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onTapped = f
}

// SetOnSecondaryTapped sets the secondary tap (right-click) callback.
func (v *Visualizer) SetOnSecondaryTapped(f func(*fyne.PointEvent)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onSecondaryTap = f
}

// Tapped implements fyne.Tappable.
func (v *Visualizer) Tapped(*fyne.PointEvent) {
	v.mu.RLock()
	f := v.onTapped
	v.mu.RUnlock()
	if f != nil {
		f()
	}
}

// TappedSecondary implements fyne.SecondaryTappable.
func (v *Visualizer) TappedSecondary(pe *fyne.PointEvent) {
	v.mu.RLock()
	f := v.onSecondaryTap
	v.mu.RUnlock()
	if f != nil {
		f(pe)
	}
}

// draw is the raster generator function.
func (v *Visualizer) draw(w, h int) image.Image {
	frame := v.Frame()
	if frame != nil && frame.Bounds().Dx() == w && frame.Bounds().Dy() == h {
		return frame
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)
	if frame == nil || w == 0 || h == 0 {
		return img
	}
	xdraw.ApproxBiLinear.Scale(img, img.Bounds(), frame, frame.Bounds(), draw.Over, nil)
	return img
}

// Ensure Visualizer implements the required interfaces
var _ fyne.Tappable = (*Visualizer)(nil)
var _ fyne.SecondaryTappable = (*Visualizer)(nil)
