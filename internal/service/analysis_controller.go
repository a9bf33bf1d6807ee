// Package service provides the visualizer pipeline: frame capture from the
// analysis tap, render coordination with the worker and the player façade
// tying both together.
package service

import (
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/options"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
	"github.com/tejashwikalptaru/visualplayer/internal/spectrum"
)

// AnalysisController owns the analysis tap of one visualizer and produces
// blended magnitude frames from it.
//
// Two byte buffers of capacity domain.MaxFFTSize hold the previous blended
// frame and the latest raw frame, so the transform size can change without
// reallocating. Both are zeroed on every options change.
//
// Thread-safety: This implementation is thread-safe.
type AnalysisController struct {
	// Dependencies (injected)
	logger   *slog.Logger
	analyser ports.FrequencyAnalyser
	bus      ports.EventBus

	// State
	mu       sync.Mutex
	options  domain.Options
	fftSize  int
	previous []byte
	current  []byte
	frame    domain.Frame
	sub      domain.SubscriptionID
}

// NewAnalysisController configures analyser from opts.
func NewAnalysisController(
	logger *slog.Logger,
	analyser ports.FrequencyAnalyser,
	bus ports.EventBus,
	opts domain.Options,
) (*AnalysisController, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &AnalysisController{
		logger:   logger.With(slog.String("component", "analysis")),
		analyser: analyser,
		bus:      bus,
		previous: make([]byte, domain.MaxFFTSize),
		current:  make([]byte, domain.MaxFFTSize),
		frame:    make(domain.Frame, domain.MaxFFTSize),
	}
	if err := a.ApplyOptions(opts); err != nil {
		return nil, err
	}
	return a, nil
}

// Options returns a copy of the active options.
func (a *AnalysisController) Options() domain.Options {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.options
}

// FFTSize returns the transform size derived from the options.
func (a *AnalysisController) FFTSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fftSize
}

// SetOptions merges a partial options tree into the active options.
// Unknown keys and values of the wrong kind are dropped.
func (a *AnalysisController) SetOptions(partial options.Tree) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	merged, err := options.Merged(a.options, partial)
	if err != nil {
		return err
	}
	return a.applyLocked(merged)
}

// ApplyOptions replaces the active options, re-deriving the transform size.
func (a *AnalysisController) ApplyOptions(o domain.Options) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.applyLocked(o)
}

// applyLocked configures the analyser from o. Callers hold a.mu.
func (a *AnalysisController) applyLocked(o domain.Options) error {
	if err := o.Validate(); err != nil {
		return err
	}

	size := spectrum.DeriveFFTSize(
		o.Analysis.FFTSize,
		float64(o.Canvas.Width),
		o.Canvas.GapPercent,
		o.Canvas.SubpixelRendering,
	)

	if err := a.analyser.SetFFTSize(size); err != nil {
		return domain.NewServiceError("AnalysisController", "ApplyOptions", "analyser rejected transform size", err)
	}
	if err := a.analyser.SetDecibelRange(o.Analysis.MinDecibels, o.Analysis.MaxDecibels); err != nil {
		return domain.NewServiceError("AnalysisController", "ApplyOptions", "analyser rejected decibel range", err)
	}
	if err := a.analyser.SetSmoothing(o.Analysis.SmoothingTimeConstant); err != nil {
		return domain.NewServiceError("AnalysisController", "ApplyOptions", "analyser rejected smoothing", err)
	}

	a.options = o
	a.fftSize = size
	clear(a.previous)
	clear(a.current)

	if size != o.Analysis.FFTSize {
		a.logger.Debug("transform size adjusted to canvas",
			slog.Int("requested", o.Analysis.FFTSize),
			slog.Int("fft_size", size),
			slog.Int("width", o.Canvas.Width))
	}
	return nil
}

// CaptureFrame reads the latest magnitudes, blends them with the previous
// frame and keeps the result as the next previous frame.
//
// The returned frame is reused by the next call.
func (a *AnalysisController) CaptureFrame() (domain.Frame, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.fftSize / 2
	cur := a.current[:n]
	prev := a.previous[:n]
	frame := a.frame[:n]

	a.analyser.ByteFrequencyData(cur)

	interp := a.options.Canvas.Interp
	if err := spectrum.InterpolateInto(frame, prev, cur, interp.Type, interp.T, interp.AdjacentPointRatio); err != nil {
		return nil, err
	}
	spectrum.StoreFrame(prev, frame)
	return frame, nil
}

// SetNodes installs processing nodes in front of the analyser.
func (a *AnalysisController) SetNodes(nodes ...ports.SampleNode) error {
	chain, ok := a.analyser.(ports.SampleChain)
	if !ok {
		return domain.NewServiceError("AnalysisController", "SetNodes", "analyser does not accept processing nodes", nil)
	}
	chain.SetNodes(nodes...)
	a.logger.Debug("processing chain replaced", slog.Int("nodes", len(nodes)))
	return nil
}

// Attach follows a media element's lifecycle: the tap runs while it plays
// and is suspended otherwise. Attaching replaces any previous element.
func (a *AnalysisController) Attach(media ports.MediaElement) {
	a.Detach()

	id := media.ID()
	sub := a.bus.Subscribe(id, a.handleMediaEvent, domain.MediaEventTypes...)

	a.mu.Lock()
	a.sub = sub
	a.mu.Unlock()

	if media.Paused() {
		a.analyser.Suspend()
	} else {
		a.analyser.Resume()
	}
	a.logger.Debug("media attached", slog.String("media_id", id))
}

// Detach stops following the attached media element.
func (a *AnalysisController) Detach() {
	a.mu.Lock()
	sub := a.sub
	a.sub = ""
	a.mu.Unlock()

	if sub != "" {
		a.bus.Unsubscribe(sub)
	}
}

func (a *AnalysisController) handleMediaEvent(e domain.Event) {
	me := e.(domain.MediaEvent)
	if me.Resumes() {
		a.analyser.Resume()
	} else {
		a.analyser.Suspend()
	}
	if me.Err != nil {
		a.logger.Warn("media error, analysis suspended", slog.Any("error", me.Err))
		return
	}
	a.logger.Debug("media event", slog.String("event", string(me.Kind)), slog.Bool("suspended", !me.Resumes()))
}

// Close detaches from the media element.
func (a *AnalysisController) Close() {
	a.Detach()
}
