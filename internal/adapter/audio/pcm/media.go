package pcm

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// Element is a media element playing decoded clips through an Output.
//
// Every block the output pulls is also converted to mono and written to the
// sink, so the analyser sees exactly what is being played. Lifecycle changes
// are published on the bus as domain.MediaEvent values.
//
// Event handlers run on the audio goroutine for the ended event and must not
// call back into the element synchronously.
//
// Thread-safety: This implementation is thread-safe.
type Element struct {
	id     string
	out    Output
	sink   ports.SampleSink
	bus    ports.EventBus
	logger *slog.Logger

	mu     sync.Mutex
	path   string
	clip   *Clip
	tap    *tapReader
	voice  Voice
	paused bool
	closed bool
}

var _ ports.MediaSource = (*Element)(nil)

// NewElement creates an element with no source loaded.
func NewElement(id string, out Output, sink ports.SampleSink, bus ports.EventBus, logger *slog.Logger) *Element {
	if logger == nil {
		logger = slog.Default()
	}
	return &Element{
		id:     id,
		out:    out,
		sink:   sink,
		bus:    bus,
		logger: logger.With(slog.String("component", "media"), slog.String("media_id", id)),
		paused: true,
	}
}

// ID implements ports.MediaElement.
func (e *Element) ID() string {
	return e.id
}

// Load decodes a file and makes it the element's source, replacing any
// previous one. The element is left paused at the start.
//
// Replacing a source publishes an emptied event; a failing decode publishes
// an error event and leaves the element without a source.
func (e *Element) Load(path string) error {
	clip, err := Decode(path)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.NewMediaError("load", path, "element closed", nil)
	}
	hadSource := e.clip != nil
	wasPlaying := !e.paused
	old := e.detachVoiceLocked()
	e.clip, e.tap, e.path = nil, nil, ""
	e.paused = true
	if err == nil {
		e.clip = clip.Resample(e.out.SampleRate())
		e.path = path
	}
	e.mu.Unlock()

	closeVoice(old)
	if wasPlaying {
		e.bus.Publish(domain.NewMediaEvent(domain.EventMediaAbort, e.id, 0))
	}
	if hadSource {
		e.bus.Publish(domain.NewMediaEvent(domain.EventMediaEmptied, e.id, 0))
	}
	if err != nil {
		e.logger.Error("failed to load media", slog.String("path", path), slog.Any("error", err))
		e.bus.Publish(domain.NewMediaErrorEvent(e.id, 0, err))
		return err
	}

	e.logger.Info("media loaded",
		slog.String("path", path),
		slog.Duration("duration", e.clip.Duration()),
		slog.Int("sample_rate", e.clip.SampleRate))
	return nil
}

// Path returns the loaded file, or "".
func (e *Element) Path() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.path
}

// Duration returns the playing time of the loaded source.
func (e *Element) Duration() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.clip == nil {
		return 0
	}
	return e.clip.Duration()
}

// Position returns how far the output has pulled into the source.
func (e *Element) Position() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.positionLocked()
}

func (e *Element) positionLocked() time.Duration {
	if e.tap == nil || e.clip == nil || e.clip.SampleRate <= 0 {
		return 0
	}
	return time.Duration(e.tap.offset()/frameSize) * time.Second / time.Duration(e.clip.SampleRate)
}

// Play implements ports.MediaElement. Playing an ended source restarts it.
func (e *Element) Play() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.NewMediaError("play", e.path, "element closed", nil)
	}
	if e.clip == nil {
		e.mu.Unlock()
		return domain.NewMediaError("play", "", "no source loaded", domain.ErrNotPlaying)
	}
	if !e.paused {
		e.mu.Unlock()
		return nil
	}

	var old Voice
	if e.tap == nil || e.tap.ended() {
		old = e.detachVoiceLocked()
		e.tap = newTapReader(e.clip.PCM, e.sink, e.onEnded)
		e.voice = e.out.NewVoice(e.tap)
	}
	voice := e.voice
	e.paused = false
	pos := e.positionLocked()
	e.mu.Unlock()

	closeVoice(old)
	e.bus.Publish(domain.NewMediaEvent(domain.EventMediaPlay, e.id, pos))
	voice.Play()
	return nil
}

// Pause implements ports.MediaElement.
func (e *Element) Pause() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return domain.NewMediaError("pause", e.path, "element closed", nil)
	}
	if e.paused {
		e.mu.Unlock()
		return nil
	}
	voice := e.voice
	e.paused = true
	e.mu.Unlock()

	// The output goroutine may be inside the tap waiting for e.mu, so the
	// voice is paused without holding it.
	if voice != nil {
		voice.Pause()
	}
	pos := e.Position()

	e.bus.Publish(domain.NewMediaEvent(domain.EventMediaPause, e.id, pos))
	return nil
}

// Paused implements ports.MediaElement.
func (e *Element) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Close implements ports.MediaElement.
func (e *Element) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.paused = true
	hadSource := e.clip != nil
	old := e.detachVoiceLocked()
	e.clip, e.tap = nil, nil
	e.mu.Unlock()

	err := closeVoice(old)

	if hadSource {
		e.bus.Publish(domain.NewMediaEvent(domain.EventMediaEmptied, e.id, 0))
	}
	return err
}

// detachVoiceLocked takes the current voice for closing outside the lock.
// Callers hold e.mu.
func (e *Element) detachVoiceLocked() Voice {
	v := e.voice
	e.voice = nil
	return v
}

func closeVoice(v Voice) error {
	if v == nil {
		return nil
	}
	return v.Close()
}

// onEnded runs on the output's goroutine when the source is exhausted.
func (e *Element) onEnded(tap *tapReader) {
	e.mu.Lock()
	if e.tap != tap || e.closed {
		e.mu.Unlock()
		return
	}
	e.paused = true
	pos := e.clip.Duration()
	e.mu.Unlock()

	e.logger.Debug("media ended")
	e.bus.Publish(domain.NewMediaEvent(domain.EventMediaEnded, e.id, pos))
}

// tapReader streams PCM to an output while copying it to a sample sink.
type tapReader struct {
	pcm   []byte
	sink  ports.SampleSink
	onEnd func(*tapReader)

	mu      sync.Mutex
	pos     int
	done    bool
	scratch []float64
}

func newTapReader(pcm []byte, sink ports.SampleSink, onEnd func(*tapReader)) *tapReader {
	return &tapReader{pcm: pcm, sink: sink, onEnd: onEnd}
}

func (t *tapReader) Read(p []byte) (int, error) {
	t.mu.Lock()
	if t.pos >= len(t.pcm) {
		fire := !t.done
		t.done = true
		t.mu.Unlock()
		if fire && t.onEnd != nil {
			t.onEnd(t)
		}
		return 0, io.EOF
	}

	n := copy(p, t.pcm[t.pos:])
	block := t.pcm[t.pos : t.pos+n]
	t.pos += n
	if t.sink != nil {
		t.scratch = monoSamples(t.scratch, block)
	}
	samples := t.scratch
	t.mu.Unlock()

	if t.sink != nil && len(samples) > 0 {
		t.sink.WriteSamples(samples)
	}
	return n, nil
}

func (t *tapReader) offset() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

func (t *tapReader) ended() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}
