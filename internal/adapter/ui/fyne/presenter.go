// Package fyne provides Fyne UI adapter implementations.
// This package implements the UI layer using the Fyne toolkit.
package fyne

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/visualplayer/internal/adapter/audio/pcm"
	"github.com/tejashwikalptaru/visualplayer/internal/adapter/imagery"
	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/options"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
	"github.com/tejashwikalptaru/visualplayer/internal/service"
)

// Presenter timing defaults.
const (
	DefaultFrameInterval = time.Second / 60
	frameTimeout         = time.Second
)

// PresenterConfig tunes the render loop.
type PresenterConfig struct {
	// FrameInterval is the delay between frame requests.
	FrameInterval time.Duration

	// FPSWindow is the number of render-time samples per FPS readout.
	FPSWindow int

	// StretchBackground scales background images to the canvas.
	StretchBackground bool
}

// Presenter implements the Presenter pattern (MVP architecture).
// It drives the render loop of one visual player and maps media events and
// user commands onto the view.
//
// Responsibilities:
// - Request a frame every tick while the media plays and present it
// - Feed background imagery (album art, stills, animations) to the player
// - Report the frame rate derived from FrameRendered events
// - Translate UI commands to media, player and preference calls
//
// Thread-safety: All operations are thread-safe.
type Presenter struct {
	logger *slog.Logger
	player *service.VisualPlayer
	media  ports.MediaSource
	prefs  *service.PreferenceService
	bus    ports.EventBus
	view   ports.View
	cfg    PresenterConfig

	mu         sync.Mutex
	meter      *FPSMeter
	background ports.ImageSource
	bgDirty    bool
	retired    bool

	subs         []domain.SubscriptionID
	cancel       context.CancelFunc
	done         chan struct{}
	startOnce    sync.Once
	shutdownOnce sync.Once
}

// NewPresenter creates a presenter. prefs may be nil, in which case option
// changes and opened files are not persisted.
func NewPresenter(
	logger *slog.Logger,
	player *service.VisualPlayer,
	media ports.MediaSource,
	prefs *service.PreferenceService,
	bus ports.EventBus,
	view ports.View,
	cfg PresenterConfig,
) *Presenter {
	if cfg.FrameInterval <= 0 {
		cfg.FrameInterval = DefaultFrameInterval
	}
	p := &Presenter{
		logger: logger.With(slog.String("component", "presenter")),
		player: player,
		media:  media,
		prefs:  prefs,
		bus:    bus,
		view:   view,
		cfg:    cfg,
		meter:  NewFPSMeter(cfg.FPSWindow),
		done:   make(chan struct{}),
	}

	p.subscribeToEvents()
	p.view.SetPlayState(!media.Paused())
	return p
}

// subscribeToEvents follows the lifecycle events of the presenter's media
// element and the render events of its player instance.
func (p *Presenter) subscribeToEvents() {
	instance := string(p.player.ID())
	p.subs = []domain.SubscriptionID{
		p.bus.Subscribe(p.media.ID(), p.onMediaEvent, domain.MediaEventTypes...),
		p.bus.Subscribe(instance, p.onFrameRendered, domain.EventFrameRendered),
		p.bus.Subscribe(instance, p.onInstanceClosed, domain.EventInstanceClosed),
	}
}

// onFrameRendered samples foreground render times for the FPS readout.
func (p *Presenter) onFrameRendered(event domain.Event) {
	e, ok := event.(domain.FrameRenderedEvent)
	if !ok || e.Op != domain.OpForegroundRender {
		return
	}
	p.mu.Lock()
	fps, ready := p.meter.Add(e.Duration)
	p.mu.Unlock()
	if ready {
		p.view.SetFPS(fps)
	}
}

// onInstanceClosed retires the presenter once its player is deleted: the
// canvas is cleared and the render loop stops.
func (p *Presenter) onInstanceClosed(domain.Event) {
	p.mu.Lock()
	p.retired = true
	cancel := p.cancel
	p.mu.Unlock()

	p.view.ClearFrame()
	// Runs on the render dispatch goroutine, so the loop is not awaited here.
	if cancel != nil {
		cancel()
	}
	p.logger.Debug("player closed, render loop stopped")
}

func (p *Presenter) onMediaEvent(event domain.Event) {
	e, ok := event.(domain.MediaEvent)
	if !ok {
		return
	}

	p.view.SetPlayState(e.Resumes())
	switch e.Kind {
	case domain.EventMediaError:
		p.view.ShowError("Playback Error", fmt.Sprintf("%v", e.Err))
	case domain.EventMediaEmptied:
		p.view.ClearFrame()
	}
}

// Start launches the render loop. Calling it again, or after the player
// was closed, has no effect.
func (p *Presenter) Start() {
	p.startOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.retired {
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		go p.loop(ctx)
	})
}

func (p *Presenter) loop(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			frameCtx, cancel := context.WithTimeout(ctx, frameTimeout)
			err := p.Tick(frameCtx)
			cancel()
			if err != nil && ctx.Err() == nil {
				p.logger.Warn("frame failed", slog.Any("error", err))
			}
		}
	}
}

// Tick runs one iteration of the render loop: while the media plays, it
// renders and presents a frame.
func (p *Presenter) Tick(ctx context.Context) error {
	if p.media.Paused() {
		return nil
	}
	if err := p.pushBackground(ctx); err != nil {
		return err
	}

	bm, err := p.player.RenderFrame(ctx, service.FrameOptions{})
	if err != nil {
		return err
	}
	img, err := bm.Detach()
	if err != nil {
		return err
	}
	// A pause during the render leaves the last frame on screen.
	if !p.media.Paused() {
		p.view.SetFrame(img)
	}
	return nil
}

// pushBackground sends the current background frame when it changed.
func (p *Presenter) pushBackground(ctx context.Context) error {
	p.mu.Lock()
	src, dirty := p.background, p.bgDirty
	p.bgDirty = false
	p.mu.Unlock()

	var bitmap *domain.Bitmap
	switch {
	case src != nil:
		img, changed := src.FrameAt(p.media.Position())
		if !changed && !dirty {
			return nil
		}
		bitmap = imagery.ToBitmap(img)
	case !dirty:
		return nil
	}

	fut, err := p.player.RenderBackground(ctx, bitmap, p.cfg.StretchBackground)
	if err != nil {
		return err
	}
	_, err = fut.Wait(ctx)
	return err
}

// SetBackground replaces the background imagery; nil clears it.
// The new background is sent with the next frame.
func (p *Presenter) SetBackground(src ports.ImageSource) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.background = src
	p.bgDirty = true
}

// UI Command handlers (called by UI)

// OnPlayClicked toggles playback.
func (p *Presenter) OnPlayClicked() {
	var err error
	if p.media.Paused() {
		err = p.media.Play()
	} else {
		err = p.media.Pause()
	}

	if err != nil {
		p.logger.Error("play/pause failed", slog.Any("error", err))
		p.view.ShowError("Playback Error", fmt.Sprintf("Failed to start playback: %v", err))
	}
}

// OnFileOpened loads a media file, shows its title and uses its cover art
// as background, then starts playback.
func (p *Presenter) OnFileOpened(path string) error {
	if err := p.media.Load(path); err != nil {
		return err
	}

	md, err := pcm.ReadMetadata(path)
	if err != nil {
		p.logger.Warn("metadata unavailable", slog.String("path", path), slog.Any("error", err))
	}
	p.view.SetTitle(md.DisplayTitle())

	art, err := imagery.FromBytes(md.Picture)
	switch {
	case err == nil:
		p.SetBackground(art)
	case errors.Is(err, domain.ErrNoArtwork):
		p.SetBackground(nil)
	default:
		p.logger.Warn("cover art ignored", slog.Any("error", err))
		p.SetBackground(nil)
	}

	if p.prefs != nil {
		if err := p.prefs.SetMediaPath(path); err != nil {
			p.logger.Warn("media path not saved", slog.Any("error", err))
		}
	}
	return p.media.Play()
}

// OnBackgroundOpened uses an image file (still or animated) as background.
func (p *Presenter) OnBackgroundOpened(path string) error {
	src, err := imagery.Open(path)
	if err != nil {
		return err
	}
	p.SetBackground(src)
	return nil
}

// OnOptionsChanged applies a partial options tree to the player and, when a
// preference service is present, persists it as a default.
func (p *Presenter) OnOptionsChanged(partial options.Tree) error {
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	if err := p.player.SetOptions(ctx, partial); err != nil {
		return err
	}
	if p.prefs != nil {
		return p.prefs.Update(partial)
	}
	return nil
}

// Options returns the player's active options.
func (p *Presenter) Options() domain.Options {
	return p.player.Options()
}

// Shutdown stops the render loop and the event subscriptions.
// It's safe to call multiple times (idempotent).
func (p *Presenter) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.startOnce.Do(func() {})
		for _, id := range p.subs {
			p.bus.Unsubscribe(id)
		}

		p.mu.Lock()
		cancel := p.cancel
		p.mu.Unlock()
		if cancel != nil {
			cancel()
			<-p.done
		}
	})
}
