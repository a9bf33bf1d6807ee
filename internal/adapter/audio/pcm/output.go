package pcm

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// Voice plays one PCM stream pulled from a reader.
// *oto.Player satisfies it.
type Voice interface {
	Play()
	Pause()
	IsPlaying() bool
	Close() error
}

// Output creates voices for interleaved 16-bit stereo streams at a fixed rate.
type Output interface {
	SampleRate() int
	NewVoice(r io.Reader) Voice
}

// OtoOutput plays through the system audio device.
type OtoOutput struct {
	ctx  *oto.Context
	rate int
}

var (
	otoOnce sync.Once
	otoOut  *OtoOutput
	otoErr  error
)

// NewOtoOutput returns the process-wide device output.
// The device supports only one context, so the first call fixes the sample rate.
func NewOtoOutput(sampleRate int) (*OtoOutput, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   50 * time.Millisecond,
		})
		if err != nil {
			otoErr = fmt.Errorf("opening audio device: %w", err)
			return
		}
		<-ready
		otoOut = &OtoOutput{ctx: ctx, rate: sampleRate}
	})
	return otoOut, otoErr
}

// SampleRate implements Output.
func (o *OtoOutput) SampleRate() int { return o.rate }

// NewVoice implements Output.
func (o *OtoOutput) NewVoice(r io.Reader) Voice {
	return o.ctx.NewPlayer(r)
}

// ClockOutput drains streams in real time without producing sound.
// It drives playback on machines without an audio device and in tests.
type ClockOutput struct {
	rate int
	tick time.Duration
}

// NewClockOutput creates a silent output pulling audio every tick.
func NewClockOutput(sampleRate int, tick time.Duration) *ClockOutput {
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	return &ClockOutput{rate: sampleRate, tick: tick}
}

// SampleRate implements Output.
func (o *ClockOutput) SampleRate() int { return o.rate }

// NewVoice implements Output.
func (o *ClockOutput) NewVoice(r io.Reader) Voice {
	return &clockVoice{r: r, bytesPerSecond: o.rate * frameSize, tick: o.tick}
}

type clockVoice struct {
	r              io.Reader
	bytesPerSecond int
	tick           time.Duration

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	drained bool
	closed  bool
}

func (v *clockVoice) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.stop != nil || v.drained || v.closed {
		return
	}
	v.stop = make(chan struct{})
	v.done = make(chan struct{})
	go v.run(v.stop, v.done)
}

func (v *clockVoice) run(stop, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(v.tick)
	defer ticker.Stop()

	start := time.Now()
	var pulled int64
	buf := make([]byte, 4096)

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			due := int64(now.Sub(start)) * int64(v.bytesPerSecond) / int64(time.Second)
			due -= due % frameSize
			for pulled < due {
				n, err := v.r.Read(buf[:min(int64(len(buf)), due-pulled)])
				pulled += int64(n)
				if err != nil {
					v.mu.Lock()
					v.drained = errors.Is(err, io.EOF) || v.drained
					v.stop = nil
					v.mu.Unlock()
					return
				}
				if n == 0 {
					break
				}
			}
		}
	}
}

func (v *clockVoice) Pause() {
	v.mu.Lock()
	stop, done := v.stop, v.done
	v.stop = nil
	v.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
}

func (v *clockVoice) IsPlaying() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.stop != nil
}

func (v *clockVoice) Close() error {
	v.Pause()
	v.mu.Lock()
	v.closed = true
	done := v.done
	v.mu.Unlock()

	// A voice that drained on its own may still be finishing its last tick.
	if done != nil {
		<-done
	}
	return nil
}
