// Package imagery provides background image sources: still images, animated
// GIFs and album art extracted from media files.
package imagery

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/gif"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// Still is a single image.
type Still struct {
	img     image.Image
	emitted bool
}

var _ ports.ImageSource = (*Still)(nil)

// NewStill wraps an image.
func NewStill(img image.Image) *Still {
	return &Still{img: img}
}

// FrameAt implements ports.ImageSource. Only the first call reports a change.
func (s *Still) FrameAt(time.Duration) (image.Image, bool) {
	changed := !s.emitted
	s.emitted = true
	return s.img, changed
}

// Bounds implements ports.ImageSource.
func (s *Still) Bounds() image.Rectangle {
	return s.img.Bounds()
}

// Open loads an image file. Animated GIFs become an Animation; every other
// supported format becomes a Still.
func Open(path string) (ports.ImageSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".gif") {
		g, err := gif.DecodeAll(f)
		if err != nil {
			return nil, fmt.Errorf("decode gif %s: %w", path, err)
		}
		return NewAnimation(g), nil
	}
	return decodeStill(f, path)
}

// FromBytes decodes an in-memory image, such as embedded album art.
func FromBytes(data []byte) (ports.ImageSource, error) {
	if len(data) == 0 {
		return nil, domain.ErrNoArtwork
	}
	if g, err := gif.DecodeAll(bytes.NewReader(data)); err == nil {
		return NewAnimation(g), nil
	}
	return decodeStill(bytes.NewReader(data), "embedded image")
}

func decodeStill(r io.Reader, name string) (ports.ImageSource, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w: %w", name, domain.ErrUnsupportedFormat, err)
	}
	return NewStill(img), nil
}

// ToBitmap copies a frame into a bitmap that can be handed to the renderer.
func ToBitmap(img image.Image) *domain.Bitmap {
	return domain.BitmapFromImage(img)
}

// Animation plays the frames of a GIF on the elapsed-time clock, looping.
type Animation struct {
	frames []*image.RGBA
	starts []time.Duration // start offset of each frame
	total  time.Duration
	last   int
}

var _ ports.ImageSource = (*Animation)(nil)

// minFrameDelay replaces zero GIF delays, as browsers do.
const minFrameDelay = 100 * time.Millisecond

// NewAnimation composes every GIF frame onto the logical screen, honouring
// each frame's disposal method.
func NewAnimation(g *gif.GIF) *Animation {
	bounds := image.Rect(0, 0, g.Config.Width, g.Config.Height)
	if bounds.Empty() && len(g.Image) > 0 {
		bounds = g.Image[0].Bounds()
	}

	a := &Animation{last: -1}
	canvas := image.NewRGBA(bounds)
	for i, frame := range g.Image {
		var restore *image.RGBA
		disposal := byte(gif.DisposalNone)
		if i < len(g.Disposal) {
			disposal = g.Disposal[i]
		}
		if disposal == gif.DisposalPrevious {
			restore = cloneRGBA(canvas)
		}

		draw.Draw(canvas, frame.Bounds(), frame, frame.Bounds().Min, draw.Over)
		a.frames = append(a.frames, cloneRGBA(canvas))

		delay := minFrameDelay
		if i < len(g.Delay) && g.Delay[i] > 1 {
			delay = time.Duration(g.Delay[i]) * 10 * time.Millisecond
		}
		a.starts = append(a.starts, a.total)
		a.total += delay

		switch disposal {
		case gif.DisposalBackground:
			draw.Draw(canvas, frame.Bounds(), image.Transparent, image.Point{}, draw.Src)
		case gif.DisposalPrevious:
			canvas = restore
		}
	}
	return a
}

func cloneRGBA(src *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(src.Bounds())
	copy(dst.Pix, src.Pix)
	return dst
}

// Len returns the number of frames.
func (a *Animation) Len() int {
	return len(a.frames)
}

// Duration returns the length of one loop.
func (a *Animation) Duration() time.Duration {
	return a.total
}

// FrameAt implements ports.ImageSource.
func (a *Animation) FrameAt(elapsed time.Duration) (image.Image, bool) {
	if len(a.frames) == 0 {
		return image.NewRGBA(image.Rectangle{}), false
	}
	idx := a.index(elapsed)
	changed := idx != a.last
	a.last = idx
	return a.frames[idx], changed
}

func (a *Animation) index(elapsed time.Duration) int {
	if a.total <= 0 || len(a.frames) == 1 {
		return 0
	}
	t := elapsed % a.total
	if t < 0 {
		t += a.total
	}
	idx := 0
	for i, start := range a.starts {
		if start > t {
			break
		}
		idx = i
	}
	return idx
}

// Bounds implements ports.ImageSource.
func (a *Animation) Bounds() image.Rectangle {
	if len(a.frames) == 0 {
		return image.Rectangle{}
	}
	return a.frames[0].Bounds()
}
