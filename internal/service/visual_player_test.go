package service

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tejashwikalptaru/visualplayer/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/visualplayer/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/visualplayer/internal/adapter/offscreen"
	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/logger"
	"github.com/tejashwikalptaru/visualplayer/internal/options"
)

type playerFixture struct {
	bus     *eventbus.SyncEventBus
	coord   *RenderCoordinator
	factory *PlayerFactory
}

func newPlayerFixture(t *testing.T) *playerFixture {
	t.Helper()
	log := logger.NewTestLogger()
	bus := eventbus.NewSyncEventBus()
	coord := NewRenderCoordinator(log, offscreen.New(log), NewRegistry(), bus, PolicyQueue)
	t.Cleanup(func() {
		_ = coord.Close()
		_ = bus.Close()
	})
	return &playerFixture{bus: bus, coord: coord, factory: NewPlayerFactory(log, coord, bus)}
}

func (f *playerFixture) newPlayer(t *testing.T, overrides options.Tree) (*VisualPlayer, *mock.Analyser, *mock.Media) {
	t.Helper()
	tap := mock.NewAnalyser()
	tap.SetSource(mock.WaveSource())
	media := mock.NewMedia("media", f.bus)

	p, err := f.factory.NewPlayer(context.Background(), media, tap, overrides)
	require.NoError(t, err)
	return p, tap, media
}

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPlayerFactory_Defaults(t *testing.T) {
	f := newPlayerFixture(t)

	require.NoError(t, f.factory.SetDefaults(options.Tree{
		"canvas":  options.Tree{"width": 320, "height": 240},
		"unknown": true,
	}))
	assert.Equal(t, 320, f.factory.Defaults().Canvas.Width)

	p, _, _ := f.newPlayer(t, options.Tree{"canvas": options.Tree{"height": 100}})
	assert.Equal(t, 320, p.Options().Canvas.Width)
	assert.Equal(t, 100, p.Options().Canvas.Height)
	assert.Equal(t, StateInitialized, mustInstance(t, f.coord, p.ID()).State())

	err := f.factory.SetDefaults(options.Tree{"canvas": options.Tree{"gapPercent": 1.5}})
	assert.Error(t, err)
	assert.Equal(t, 0.25, f.factory.Defaults().Canvas.GapPercent)

	_, err = f.factory.NewPlayer(context.Background(), mock.NewMedia("m", f.bus), mock.NewAnalyser(),
		options.Tree{"canvas": options.Tree{"width": -1}})
	assert.Error(t, err)
	assert.Equal(t, 1, f.coord.Len(), "no instance left behind")
}

func mustInstance(t *testing.T, c *RenderCoordinator, id domain.InstanceID) *Instance {
	t.Helper()
	in, ok := c.Instance(id)
	require.True(t, ok)
	return in
}

func TestVisualPlayer_RenderFrame(t *testing.T) {
	f := newPlayerFixture(t)
	p, _, media := f.newPlayer(t, options.Tree{"canvas": options.Tree{"width": 200, "height": 100}})
	require.NoError(t, media.Play())

	ctx := testCtx(t)
	var bm *domain.Bitmap
	var err error
	for i := 0; i < 5; i++ {
		bm, err = p.RenderFrame(ctx, FrameOptions{})
		require.NoError(t, err)
	}
	img, err := bm.Detach()
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 100), img.Bounds())

	var lit int
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 || img.Pix[i+1] != 0 || img.Pix[i+2] != 0 {
			lit++
		}
	}
	assert.Positive(t, lit, "bars reach the composite")

	require.NoError(t, p.Close(ctx))
	assert.Zero(t, f.coord.Len())
}

func TestVisualPlayer_AlwaysComposite(t *testing.T) {
	f := newPlayerFixture(t)
	p, _, _ := f.newPlayer(t, options.Tree{"canvas": options.Tree{
		"width": 64, "height": 32, "alwaysComposite": true, "motionBlur": true, "renderTimeOverlay": true,
	}})

	ctx := testCtx(t)
	for i := 0; i < 3; i++ {
		bm, err := p.RenderFrame(ctx, FrameOptions{})
		require.NoError(t, err)
		assert.Equal(t, 64, bm.Width())
		bm.Close()
	}
}

func TestVisualPlayer_SetOptionsReinitializesSurfaces(t *testing.T) {
	f := newPlayerFixture(t)
	p, tap, _ := f.newPlayer(t, options.Tree{"canvas": options.Tree{"width": 100, "height": 50}})

	ctx := testCtx(t)
	require.NoError(t, p.SetOptions(ctx, options.Tree{"canvas": options.Tree{"width": 40, "height": 20}}))
	assert.Equal(t, 40, p.Options().Canvas.Width)
	assert.Equal(t, 32, tap.FFTSize(), "narrow canvas lowers the transform size")

	bm, err := p.RenderFrame(ctx, FrameOptions{})
	require.NoError(t, err)
	assert.Equal(t, 40, bm.Width())
	assert.Equal(t, 20, bm.Height())

	require.NoError(t, p.SetOptions(ctx, options.Tree{"canvas": options.Tree{"fillStyle": "#00ff00"}}))
	assert.Equal(t, "#00ff00", p.Options().Canvas.FillStyle)

	assert.Error(t, p.SetOptions(ctx, options.Tree{"canvas": options.Tree{"fillStyle": "plaid"}}))
}

func TestVisualPlayer_BackgroundAndLayers(t *testing.T) {
	f := newPlayerFixture(t)
	p, _, _ := f.newPlayer(t, options.Tree{"canvas": options.Tree{"width": 16, "height": 16, "fillStyle": "none"}})

	ctx := testCtx(t)
	bg := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range bg.Pix {
		bg.Pix[i] = 255
	}
	fut, err := p.RenderBackground(ctx, domain.NewBitmap(bg), true)
	require.NoError(t, err)
	_, err = fut.Wait(ctx)
	require.NoError(t, err)

	fut, err = p.Bitmap(ctx, domain.LayerBackground)
	require.NoError(t, err)
	ack, err := fut.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 16, ack.Bitmap.Width(), "background stretched to the canvas")

	fut, err = p.Composite(ctx)
	require.NoError(t, err)
	_, err = fut.Wait(ctx)
	require.NoError(t, err)
}

func TestVisualPlayer_CloseRejectsLaterRenders(t *testing.T) {
	f := newPlayerFixture(t)
	p, _, _ := f.newPlayer(t, nil)

	ctx := testCtx(t)
	require.NoError(t, p.Close(ctx))

	_, err := p.RenderForeground(ctx, FrameOptions{})
	assert.ErrorIs(t, err, domain.ErrInstanceDeleted)
	assert.ErrorIs(t, p.Close(ctx), domain.ErrInstanceDeleted)
}
