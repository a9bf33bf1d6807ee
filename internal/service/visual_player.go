package service

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/options"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
	"github.com/tejashwikalptaru/visualplayer/internal/spectrum"
)

// Render-time overlay placement.
const (
	overlayX = 100
	overlayY = 100
)

// PlayerFactory creates visual players sharing one render coordinator.
// Its defaults can be changed at runtime; players created afterwards start
// from the new defaults.
//
// Thread-safety: This implementation is thread-safe.
type PlayerFactory struct {
	logger      *slog.Logger
	coordinator *RenderCoordinator
	bus         ports.EventBus

	mu       sync.RWMutex
	defaults domain.Options
}

// NewPlayerFactory creates a factory starting from domain.DefaultOptions.
func NewPlayerFactory(logger *slog.Logger, coordinator *RenderCoordinator, bus ports.EventBus) *PlayerFactory {
	if logger == nil {
		logger = slog.Default()
	}
	return &PlayerFactory{
		logger:      logger,
		coordinator: coordinator,
		bus:         bus,
		defaults:    domain.DefaultOptions(),
	}
}

// Defaults returns a copy of the current defaults.
func (f *PlayerFactory) Defaults() domain.Options {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.defaults
}

// SetDefaults merges a partial tree into the defaults.
func (f *PlayerFactory) SetDefaults(partial options.Tree) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return options.Apply(&f.defaults, partial)
}

// ReplaceDefaults replaces the defaults wholesale.
func (f *PlayerFactory) ReplaceDefaults(o domain.Options) error {
	if err := o.Validate(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.defaults = o
	return nil
}

// NewPlayer creates a player for media, analysing through analyser.
// overrides are merged over the defaults. The call returns once the render
// worker has acknowledged the new instance.
func (f *PlayerFactory) NewPlayer(
	ctx context.Context,
	media ports.MediaElement,
	analyser ports.FrequencyAnalyser,
	overrides options.Tree,
) (*VisualPlayer, error) {
	opts := f.Defaults()
	if err := options.Apply(&opts, overrides); err != nil {
		return nil, err
	}

	analysis, err := NewAnalysisController(f.logger, analyser, f.bus, opts)
	if err != nil {
		return nil, err
	}

	instance, err := f.coordinator.NewInstance()
	if err != nil {
		return nil, err
	}

	p := &VisualPlayer{
		logger:   f.logger.With(slog.String("component", "player"), slog.String("id", string(instance.ID()))),
		media:    media,
		analysis: analysis,
		instance: instance,
	}
	if err := p.init(ctx, opts); err != nil {
		if fut, derr := instance.Delete(context.Background()); derr == nil {
			_, _ = fut.Wait(ctx)
		}
		return nil, err
	}

	analysis.Attach(media)
	p.logger.Info("visual player created",
		slog.String("media_id", media.ID()),
		slog.Int("width", opts.Canvas.Width),
		slog.Int("height", opts.Canvas.Height),
		slog.Int("fft_size", analysis.FFTSize()))
	return p, nil
}

// FrameOptions are the per-frame extras of a foreground render.
type FrameOptions struct {
	// Mask replaces the cached image mask. Ownership moves to the renderer.
	Mask *domain.Bitmap

	// ReuseMask composites the cached mask when Mask is nil.
	ReuseMask bool

	// Stretch scales the mask to the canvas.
	Stretch bool

	Overlays []domain.TextOverlay
}

// VisualPlayer draws the spectrum of one media element.
//
// Thread-safety: This implementation is thread-safe.
type VisualPlayer struct {
	logger   *slog.Logger
	media    ports.MediaElement
	analysis *AnalysisController
	instance *Instance

	mu     sync.Mutex
	layout spectrum.Layout
	motion bool
	timing bool
}

// ID returns the render instance identifier.
func (p *VisualPlayer) ID() domain.InstanceID {
	return p.instance.ID()
}

// Media returns the followed media element.
func (p *VisualPlayer) Media() ports.MediaElement {
	return p.media
}

// Options returns a copy of the active options.
func (p *VisualPlayer) Options() domain.Options {
	return p.analysis.Options()
}

// FFTSize returns the transform size in use.
func (p *VisualPlayer) FFTSize() int {
	return p.analysis.FFTSize()
}

// LastRenderTime returns the duration of the latest acknowledged render.
func (p *VisualPlayer) LastRenderTime() time.Duration {
	return p.instance.LastRenderTime()
}

// SetNodes installs processing nodes in front of the analyser.
func (p *VisualPlayer) SetNodes(nodes ...ports.SampleNode) error {
	return p.analysis.SetNodes(nodes...)
}

// SetOptions merges a partial tree into the player's options. A change of
// canvas size or composite mode re-creates the render surfaces.
func (p *VisualPlayer) SetOptions(ctx context.Context, partial options.Tree) error {
	before := p.analysis.Options()
	if err := p.analysis.SetOptions(partial); err != nil {
		return err
	}
	after := p.analysis.Options()

	if after.Surface() != before.Surface() || after.Canvas.AlwaysComposite != before.Canvas.AlwaysComposite {
		return p.init(ctx, after)
	}
	p.configure(after)
	return nil
}

func (p *VisualPlayer) init(ctx context.Context, o domain.Options) error {
	fut, err := p.instance.Init(ctx, o.Surface(), o.Canvas.AlwaysComposite)
	if err != nil {
		return err
	}
	if _, err := fut.Wait(ctx); err != nil {
		return err
	}
	p.configure(o)
	return nil
}

func (p *VisualPlayer) configure(o domain.Options) {
	style, _ := domain.ParseFillStyle(o.Canvas.FillStyle)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.layout = spectrum.Layout{
		Width:    float64(o.Canvas.Width),
		Height:   float64(o.Canvas.Height),
		Gap:      o.Canvas.GapPercent,
		Subpixel: o.Canvas.SubpixelRendering,
		Style:    style,
	}
	p.motion = o.Canvas.MotionBlur
	p.timing = o.Canvas.RenderTimeOverlay
}

// RenderForeground captures a frame, converts it to bars and sends them to
// the foreground surface.
func (p *VisualPlayer) RenderForeground(ctx context.Context, fo FrameOptions) (*Future, error) {
	frame, err := p.analysis.CaptureFrame()
	if err != nil {
		return nil, domain.NewServiceError("VisualPlayer", "RenderForeground", "frame capture failed", err)
	}

	p.mu.Lock()
	layout, motion, timing := p.layout, p.motion, p.timing
	p.mu.Unlock()

	overlays := fo.Overlays
	if timing {
		ms := float64(p.instance.LastRenderTime()) / float64(time.Millisecond)
		overlays = append(overlays[:len(overlays):len(overlays)], domain.TextOverlay{
			Text:  fmt.Sprintf("%.2fms", ms),
			X:     overlayX,
			Y:     overlayY,
			Color: color.White,
		})
	}

	return p.instance.RequestForegroundRender(ctx, domain.ForegroundPayload{
		Bars:       spectrum.ComputeBars(frame, layout),
		Mask:       fo.Mask,
		ReuseMask:  fo.ReuseMask,
		Stretch:    fo.Stretch,
		MotionBlur: motion,
		Overlays:   overlays,
	})
}

// RenderBackground hands a bitmap to the background surface.
func (p *VisualPlayer) RenderBackground(ctx context.Context, bitmap *domain.Bitmap, stretch bool) (*Future, error) {
	return p.instance.RequestBackgroundRender(ctx, bitmap, stretch)
}

// Composite draws background and foreground onto the main surface.
func (p *VisualPlayer) Composite(ctx context.Context) (*Future, error) {
	return p.instance.RequestComposite(ctx)
}

// Bitmap detaches one of the render surfaces.
func (p *VisualPlayer) Bitmap(ctx context.Context, layer domain.Layer) (*Future, error) {
	return p.instance.RequestBitmap(ctx, layer)
}

// RenderFrame runs a full frame: foreground render, composite and main
// surface extraction, each stage waiting for the previous acknowledgement.
// The caller owns the returned bitmap.
func (p *VisualPlayer) RenderFrame(ctx context.Context, fo FrameOptions) (*domain.Bitmap, error) {
	fut, err := p.RenderForeground(ctx, fo)
	if err != nil {
		return nil, err
	}
	if _, err := fut.Wait(ctx); err != nil {
		return nil, err
	}

	// Always-composite instances are composited by the worker right after
	// the foreground render.
	if !p.analysis.Options().Canvas.AlwaysComposite {
		if fut, err = p.Composite(ctx); err != nil {
			return nil, err
		}
		if _, err := fut.Wait(ctx); err != nil {
			return nil, err
		}
	}

	if fut, err = p.Bitmap(ctx, domain.LayerMain); err != nil {
		return nil, err
	}
	ack, err := fut.Wait(ctx)
	if err != nil {
		return nil, err
	}
	return ack.Bitmap, nil
}

// Close stops following the media element and deletes the render instance.
func (p *VisualPlayer) Close(ctx context.Context) error {
	p.analysis.Close()

	fut, err := p.instance.Delete(ctx)
	if err != nil {
		return err
	}
	_, err = fut.Wait(ctx)
	return err
}
