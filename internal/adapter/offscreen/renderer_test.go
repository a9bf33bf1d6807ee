package offscreen

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/logger"
	"github.com/tejashwikalptaru/visualplayer/internal/testutil"
)

const testID domain.InstanceID = "viz-1"

var red = color.RGBA{R: 255, A: 255}

func newTestRenderer(t *testing.T) *Renderer {
	t.Helper()
	r := New(logger.NewTestLogger(), WithQueueSize(8))
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func post(t *testing.T, r *Renderer, req domain.Request) {
	t.Helper()
	require.NoError(t, r.Post(context.Background(), req))
}

func next(t *testing.T, r *Renderer) domain.Reply {
	t.Helper()
	select {
	case rep, ok := <-r.Replies():
		require.True(t, ok, "replies closed")
		return rep
	case <-time.After(2 * time.Second):
		t.Fatal("no reply from render worker")
		return domain.Reply{}
	}
}

func initInstance(t *testing.T, r *Renderer, w, h int, alpha, always bool) {
	t.Helper()
	post(t, r, domain.Request{Op: domain.OpInit, ID: testID, Init: &domain.InitPayload{
		Surface:         domain.SurfaceSpec{Width: w, Height: h, Alpha: alpha},
		AlwaysComposite: always,
	}})
	rep := next(t, r)
	require.NoError(t, rep.Err)
	require.Equal(t, domain.OpInit, rep.Op)
}

func extract(t *testing.T, r *Renderer, layer domain.Layer) *image.RGBA {
	t.Helper()
	post(t, r, domain.Request{Op: domain.OpBitmap, ID: testID, Layer: layer})
	rep := next(t, r)
	require.NoError(t, rep.Err)
	require.Equal(t, layer.BitmapOperation(), rep.Op)
	img, err := rep.Bitmap.Detach()
	require.NoError(t, err)
	return img
}

func TestEndToEndCompositeHasCanvasSize(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	r := New(logger.NewTestLogger())
	initInstance(t, r, 100, 50, false, false)

	post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{
		Bars: []domain.BarPrimitive{{Fill: red, X: 10, Y: 50, Width: 10, Height: -20}},
	}})
	rep := next(t, r)
	require.NoError(t, rep.Err)
	assert.Equal(t, domain.OpForegroundRender, rep.Op)
	assert.GreaterOrEqual(t, rep.Duration, time.Duration(0))

	post(t, r, domain.Request{Op: domain.OpRender, ID: testID})
	rep = next(t, r)
	require.NoError(t, rep.Err)
	assert.Equal(t, domain.OpRender, rep.Op)

	img := extract(t, r, domain.LayerMain)
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())
	assert.Equal(t, red, img.RGBAAt(15, 40))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(15, 20), "opaque black without alpha")
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(25, 40))

	require.NoError(t, r.Close())
	_, ok := <-r.Replies()
	assert.False(t, ok)
}

func TestTransparentComposite(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 10, 10, true, false)

	post(t, r, domain.Request{Op: domain.OpRender, ID: testID})
	next(t, r)
	img := extract(t, r, domain.LayerMain)
	assert.Equal(t, color.RGBA{}, img.RGBAAt(5, 5))
}

func TestAlwaysCompositeSendsExtraAck(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 10, 10, false, true)

	post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{}})
	assert.Equal(t, domain.OpForegroundRender, next(t, r).Op)
	assert.Equal(t, domain.OpRender, next(t, r).Op)
}

func TestUnknownOperationIsDropped(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 10, 10, false, false)

	post(t, r, domain.Request{Op: "resize", ID: testID})
	post(t, r, domain.Request{Op: domain.OpRender, ID: testID})
	assert.Equal(t, domain.OpRender, next(t, r).Op, "no reply for the unknown operation")
}

func TestRequestsForMissingInstance(t *testing.T) {
	r := newTestRenderer(t)

	post(t, r, domain.Request{Op: domain.OpRender, ID: "ghost"})
	rep := next(t, r)
	assert.ErrorIs(t, rep.Err, domain.ErrInstanceNotFound)
	var rerr *domain.RenderError
	require.ErrorAs(t, rep.Err, &rerr)
	assert.Equal(t, domain.InstanceID("ghost"), rerr.ID)

	post(t, r, domain.Request{Op: domain.OpBitmap, ID: "ghost", Layer: domain.LayerBackground})
	rep = next(t, r)
	assert.Equal(t, domain.OpBackgroundBitmap, rep.Op)
	assert.ErrorIs(t, rep.Err, domain.ErrInstanceNotFound)

	post(t, r, domain.Request{Op: domain.OpInit, ID: "bad", Init: &domain.InitPayload{}})
	assert.Error(t, next(t, r).Err)
}

func TestDeleteFreesSurfaces(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 10, 10, false, false)

	post(t, r, domain.Request{Op: domain.OpDelete, ID: testID})
	rep := next(t, r)
	require.NoError(t, rep.Err)
	assert.Equal(t, domain.OpDelete, rep.Op)

	post(t, r, domain.Request{Op: domain.OpRender, ID: testID})
	assert.ErrorIs(t, next(t, r).Err, domain.ErrInstanceNotFound)
}

func TestBitmapExtractionDetachesSurface(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 4, 4, true, false)

	post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{
		Bars: []domain.BarPrimitive{{Fill: red, X: 0, Y: 4, Width: 4, Height: -4}},
	}})
	next(t, r)

	first := extract(t, r, domain.LayerForeground)
	assert.Equal(t, red, first.RGBAAt(1, 1))

	second := extract(t, r, domain.LayerForeground)
	assert.NotSame(t, &first.Pix[0], &second.Pix[0])
	assert.Equal(t, color.RGBA{}, second.RGBAAt(1, 1), "fresh surface after extraction")

	post(t, r, domain.Request{Op: domain.OpForegroundBitmap, ID: testID})
	assert.Equal(t, domain.OpForegroundBitmap, next(t, r).Op)
}

func TestBackgroundAdoptionAndStretch(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 8, 8, false, false)

	same := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range same.Pix {
		same.Pix[i] = 200
	}
	bm := domain.NewBitmap(same)
	post(t, r, domain.Request{Op: domain.OpBackgroundRender, ID: testID, Background: &domain.BackgroundPayload{Bitmap: bm}})
	require.NoError(t, next(t, r).Err)
	assert.True(t, bm.Closed(), "ownership moved to the renderer")

	adopted := extract(t, r, domain.LayerBackground)
	assert.Same(t, &same.Pix[0], &adopted.Pix[0], "same-size bitmaps are adopted without copying")

	small := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < len(small.Pix); i += 4 {
		small.Pix[i], small.Pix[i+3] = 255, 255
	}
	post(t, r, domain.Request{Op: domain.OpBackgroundRender, ID: testID, Background: &domain.BackgroundPayload{
		Bitmap:  domain.NewBitmap(small),
		Stretch: true,
	}})
	require.NoError(t, next(t, r).Err)
	stretched := extract(t, r, domain.LayerBackground)
	px := stretched.RGBAAt(7, 7)
	assert.InDelta(t, 255, int(px.R), 1)
	assert.InDelta(t, 255, int(px.A), 1)
	assert.Zero(t, px.B)

	post(t, r, domain.Request{Op: domain.OpBackgroundRender, ID: testID, Background: &domain.BackgroundPayload{
		Bitmap: domain.NewBitmap(image.NewRGBA(image.Rect(0, 0, 2, 2))),
	}})
	require.NoError(t, next(t, r).Err)

	closed := domain.NewBitmap(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	closed.Close()
	post(t, r, domain.Request{Op: domain.OpBackgroundRender, ID: testID, Background: &domain.BackgroundPayload{Bitmap: closed}})
	assert.ErrorIs(t, next(t, r).Err, domain.ErrBitmapClosed)
}

func TestMaskOnlyWhereBarsAre(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 10, 10, true, false)

	blue := color.RGBA{B: 255, A: 255}
	maskImg := image.NewRGBA(image.Rect(0, 0, 5, 5))
	for i := 0; i < len(maskImg.Pix); i += 4 {
		maskImg.Pix[i+2], maskImg.Pix[i+3] = 255, 255
	}

	bars := []domain.BarPrimitive{{X: 0, Y: 10, Width: 5, Height: -10}} // geometry only
	post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{
		Bars:    bars,
		Mask:    domain.NewBitmap(maskImg),
		Stretch: true,
	}})
	next(t, r)

	fg := extract(t, r, domain.LayerForeground)
	assert.Equal(t, blue, fg.RGBAAt(2, 2), "mask drawn over the stencil")
	assert.Equal(t, color.RGBA{}, fg.RGBAAt(7, 2), "nothing drawn outside the bars")

	// The cached mask is reused on request.
	post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{
		Bars:      bars,
		ReuseMask: true,
		Stretch:   true,
	}})
	next(t, r)
	fg = extract(t, r, domain.LayerForeground)
	assert.Equal(t, blue, fg.RGBAAt(2, 8))

	post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{Bars: bars}})
	next(t, r)
	fg = extract(t, r, domain.LayerForeground)
	assert.Equal(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, fg.RGBAAt(2, 8), "plain stencil without a mask")
}

func TestSubpixelBarsAreAntialiased(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 10, 10, true, false)

	post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{
		Bars: []domain.BarPrimitive{{Fill: red, X: 2.5, Y: 10, Width: 2, Height: -10}},
	}})
	next(t, r)
	fg := extract(t, r, domain.LayerForeground)

	assert.Equal(t, uint8(255), fg.RGBAAt(3, 5).A)
	edge := fg.RGBAAt(2, 5).A
	assert.Greater(t, edge, uint8(0))
	assert.Less(t, edge, uint8(255))
	assert.Equal(t, uint8(0), fg.RGBAAt(6, 5).A)
}

func TestMotionBlurTrail(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 4, 20, true, false)

	render := func(h float64) *image.RGBA {
		post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{
			Bars:       []domain.BarPrimitive{{Fill: red, X: 0, Y: 20, Width: 4, Height: h}},
			MotionBlur: true,
		}})
		next(t, r)
		return extract(t, r, domain.LayerForeground)
	}

	render(-20)
	fg := render(-10)

	assert.Equal(t, uint8(255), fg.RGBAAt(1, 15).A, "bar body")
	near := fg.RGBAAt(1, 9).A
	far := fg.RGBAAt(1, 1).A
	assert.Greater(t, near, uint8(0), "trail above the falling bar")
	assert.Greater(t, near, far, "trail fades towards the previous top")

	render(-5)
	fg = render(-10)

	assert.Equal(t, uint8(255), fg.RGBAAt(1, 15).A, "bar body")
	assert.Equal(t, uint8(255), fg.RGBAAt(1, 10).A, "new top row is body")
	near = fg.RGBAAt(1, 9).A
	assert.Greater(t, near, uint8(0), "trail visible above the rising bar")
	assert.Greater(t, near, fg.RGBAAt(1, 6).A, "trail fades away from the bar")
	assert.Zero(t, fg.RGBAAt(1, 4).A, "trail is as long as the rise")
}

func TestTextOverlay(t *testing.T) {
	r := newTestRenderer(t)
	initInstance(t, r, 120, 30, true, false)

	post(t, r, domain.Request{Op: domain.OpForegroundRender, ID: testID, Foreground: &domain.ForegroundPayload{
		Overlays: []domain.TextOverlay{{Text: "12.34ms", X: 2, Y: 20}},
	}})
	next(t, r)
	fg := extract(t, r, domain.LayerForeground)

	var lit int
	for i := 3; i < len(fg.Pix); i += 4 {
		if fg.Pix[i] != 0 {
			lit++
		}
	}
	assert.Positive(t, lit)
}

func TestPostAfterClose(t *testing.T) {
	defer testutil.VerifyNoLeaks(t)

	r := New(logger.NewTestLogger())
	require.NoError(t, r.Close())
	assert.NoError(t, r.Close(), "closing twice is a no-op")
	assert.ErrorIs(t, r.Post(context.Background(), domain.Request{Op: domain.OpRender}), domain.ErrWorkerClosed)
}

func TestPostHonoursContext(t *testing.T) {
	r := New(logger.NewTestLogger(), WithQueueSize(1))

	// Nobody drains replies, so the worker stalls and the queue fills up.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	var err error
	for i := 0; i < 10 && err == nil; i++ {
		err = r.Post(ctx, domain.Request{Op: domain.OpRender, ID: "ghost"})
	}
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	go func() {
		for range r.Replies() {
		}
	}()
	require.NoError(t, r.Close())
}
