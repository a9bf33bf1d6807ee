package imagery

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
)

var palette = color.Palette{color.Transparent, color.RGBA{R: 255, A: 255}, color.RGBA{B: 255, A: 255}}

func solidPaletted(r image.Rectangle, idx uint8) *image.Paletted {
	p := image.NewPaletted(r, palette)
	for i := range p.Pix {
		p.Pix[i] = idx
	}
	return p
}

func encodeGIF(t *testing.T, g *gif.GIF) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.EncodeAll(&buf, g))
	return buf.Bytes()
}

func twoFrameGIF(disposal byte) *gif.GIF {
	return &gif.GIF{
		Image: []*image.Paletted{
			solidPaletted(image.Rect(0, 0, 4, 4), 1),
			solidPaletted(image.Rect(2, 0, 4, 4), 2),
		},
		Delay:    []int{5, 0},
		Disposal: []byte{disposal, gif.DisposalNone},
		Config:   image.Config{Width: 4, Height: 4, ColorModel: palette},
	}
}

func TestStillReportsChangeOnce(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 3, 2))
	s := NewStill(img)

	got, changed := s.FrameAt(0)
	assert.True(t, changed)
	assert.Same(t, img, got)

	_, changed = s.FrameAt(time.Hour)
	assert.False(t, changed)
	assert.Equal(t, image.Rect(0, 0, 3, 2), s.Bounds())
}

func TestAnimationTiming(t *testing.T) {
	g, err := gif.DecodeAll(bytes.NewReader(encodeGIF(t, twoFrameGIF(gif.DisposalNone))))
	require.NoError(t, err)

	a := NewAnimation(g)
	require.Equal(t, 2, a.Len())
	// 5 centiseconds, then a zero delay replaced by the minimum.
	assert.Equal(t, 50*time.Millisecond+minFrameDelay, a.Duration())
	assert.Equal(t, image.Rect(0, 0, 4, 4), a.Bounds())

	tests := []struct {
		elapsed time.Duration
		frame   int
	}{
		{0, 0},
		{49 * time.Millisecond, 0},
		{50 * time.Millisecond, 1},
		{149 * time.Millisecond, 1},
		{150 * time.Millisecond, 0}, // looped
		{210 * time.Millisecond, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.frame, a.index(tt.elapsed), "elapsed %v", tt.elapsed)
	}

	_, changed := a.FrameAt(0)
	assert.True(t, changed)
	_, changed = a.FrameAt(10 * time.Millisecond)
	assert.False(t, changed)
	_, changed = a.FrameAt(60 * time.Millisecond)
	assert.True(t, changed)
}

func TestAnimationDisposal(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}

	t.Run("none keeps the previous frame underneath", func(t *testing.T) {
		a := NewAnimation(twoFrameGIF(gif.DisposalNone))
		f, _ := a.FrameAt(60 * time.Millisecond)
		assert.Equal(t, red, f.At(0, 0))
		assert.Equal(t, blue, f.At(3, 0))
	})

	t.Run("background clears the previous frame", func(t *testing.T) {
		a := NewAnimation(twoFrameGIF(gif.DisposalBackground))
		f, _ := a.FrameAt(60 * time.Millisecond)
		assert.Equal(t, color.RGBA{}, f.At(0, 0))
		assert.Equal(t, blue, f.At(3, 0))
	})

	t.Run("first frame is unaffected by its own disposal", func(t *testing.T) {
		a := NewAnimation(twoFrameGIF(gif.DisposalBackground))
		f, _ := a.FrameAt(0)
		assert.Equal(t, red, f.At(3, 3))
	})
}

func TestEmptyAnimation(t *testing.T) {
	a := NewAnimation(&gif.GIF{})
	img, changed := a.FrameAt(time.Second)
	assert.False(t, changed)
	assert.True(t, img.Bounds().Empty())
	assert.True(t, a.Bounds().Empty())
}

func TestFromBytes(t *testing.T) {
	_, err := FromBytes(nil)
	assert.ErrorIs(t, err, domain.ErrNoArtwork)

	src, err := FromBytes(encodeGIF(t, twoFrameGIF(gif.DisposalNone)))
	require.NoError(t, err)
	assert.IsType(t, &Animation{}, src)

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 6))))
	src, err = FromBytes(buf.Bytes())
	require.NoError(t, err)
	assert.IsType(t, &Still{}, src)
	assert.Equal(t, image.Rect(0, 0, 8, 6), src.Bounds())

	_, err = FromBytes([]byte("definitely not an image"))
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	pngPath := filepath.Join(dir, "cover.png")
	f, err := os.Create(pngPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 16, 9))))
	require.NoError(t, f.Close())

	src, err := Open(pngPath)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 9), src.Bounds())

	bm := ToBitmap(mustFrame(src))
	assert.Equal(t, 16, bm.Width())
	assert.Equal(t, 9, bm.Height())

	gifPath := filepath.Join(dir, "loop.GIF")
	require.NoError(t, os.WriteFile(gifPath, encodeGIF(t, twoFrameGIF(gif.DisposalNone)), 0o600))
	src, err = Open(gifPath)
	require.NoError(t, err)
	assert.IsType(t, &Animation{}, src)

	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("hello"), 0o600))
	_, err = Open(txt)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)

	_, err = Open(filepath.Join(dir, "missing.png"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func mustFrame(src interface {
	FrameAt(time.Duration) (image.Image, bool)
}) image.Image {
	img, _ := src.FrameAt(0)
	return img
}
