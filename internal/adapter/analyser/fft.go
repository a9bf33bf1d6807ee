// Package analyser implements the frequency analysis tap on top of gonum's FFT.
//
// The Analyser behaves like a browser AnalyserNode: it keeps the most recent
// FFTSize mono samples, applies a Blackman window, converts bin magnitudes to
// decibels with temporal smoothing and maps a decibel window onto 0..255.
package analyser

import (
	"fmt"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// Analyser is a thread-safe FFT analysis tap.
// Samples arrive through WriteSamples; frames are read with ByteFrequencyData.
type Analyser struct {
	logger *slog.Logger
	mu     sync.Mutex

	fftSize   int
	fft       *fourier.FFT
	minDB     float64
	maxDB     float64
	smoothing float64
	suspended bool
	nodes     []ports.SampleNode

	// Ring of the most recent samples, sized for the largest transform.
	ring   []float64
	head   int
	filled int
	dirty  bool

	smoothed []float64
	bytes    []byte
	scratch  []float64
	coeffs   []complex128
}

// Compile-time interface checks.
var (
	_ ports.FrequencyAnalyser = (*Analyser)(nil)
	_ ports.SampleSink        = (*Analyser)(nil)
	_ ports.SampleChain       = (*Analyser)(nil)
)

// New creates an analyser with AnalyserNode defaults:
// fftSize 2048, decibels [-100, -30], smoothing 0.8.
func New(logger *slog.Logger) *Analyser {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyser{
		logger:    logger.With(slog.String("component", "analyser")),
		minDB:     -100,
		maxDB:     -30,
		smoothing: 0.8,
		ring:      make([]float64, domain.MaxFFTSize),
		smoothed:  make([]float64, domain.MaxFFTSize/2),
		bytes:     make([]byte, domain.MaxFFTSize/2),
		scratch:   make([]float64, domain.MaxFFTSize),
	}
	a.resize(2048)
	return a
}

func (a *Analyser) resize(size int) {
	a.fftSize = size
	a.fft = fourier.NewFFT(size)
	a.coeffs = make([]complex128, size/2+1)
	clear(a.smoothed)
	clear(a.bytes)
	a.dirty = true
}

// SetFFTSize implements ports.FrequencyAnalyser.
func (a *Analyser) SetFFTSize(size int) error {
	if size < domain.MinFFTSize || size > domain.MaxFFTSize || size&(size-1) != 0 {
		return domain.NewValidationError("fftSize", size, fmt.Sprintf("must be a power of two in [%d, %d]", domain.MinFFTSize, domain.MaxFFTSize))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if size == a.fftSize {
		return nil
	}
	a.logger.Debug("fft size changed", slog.Int("from", a.fftSize), slog.Int("to", size))
	a.resize(size)
	return nil
}

// FFTSize implements ports.FrequencyAnalyser.
func (a *Analyser) FFTSize() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fftSize
}

// FrequencyBinCount implements ports.FrequencyAnalyser.
func (a *Analyser) FrequencyBinCount() int {
	return a.FFTSize() / 2
}

// SetDecibelRange implements ports.FrequencyAnalyser.
func (a *Analyser) SetDecibelRange(minDecibels, maxDecibels float64) error {
	if !(minDecibels < maxDecibels) {
		return domain.NewValidationError("minDecibels", minDecibels, "must be below maxDecibels")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.minDB, a.maxDB = minDecibels, maxDecibels
	a.dirty = true
	return nil
}

// SetSmoothing implements ports.FrequencyAnalyser.
func (a *Analyser) SetSmoothing(timeConstant float64) error {
	if timeConstant < 0 || timeConstant > 1 {
		return domain.NewValidationError("smoothingTimeConstant", timeConstant, "must be within [0, 1]")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.smoothing = timeConstant
	return nil
}

// SetNodes implements ports.SampleChain.
func (a *Analyser) SetNodes(nodes ...ports.SampleNode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nodes = append([]ports.SampleNode(nil), nodes...)
}

// WriteSamples implements ports.SampleSink. Samples are dropped while suspended.
func (a *Analyser) WriteSamples(samples []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.suspended || len(samples) == 0 {
		return
	}

	for _, n := range a.nodes {
		samples = n.Process(samples)
	}

	for _, s := range samples {
		a.ring[a.head] = s
		a.head = (a.head + 1) % len(a.ring)
	}
	a.filled = min(a.filled+len(samples), len(a.ring))
	a.dirty = true
}

// ByteFrequencyData implements ports.FrequencyAnalyser.
// A new analysis frame is computed only when samples or settings changed
// since the previous call; otherwise the last frame is returned again.
func (a *Analyser) ByteFrequencyData(dst []byte) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.dirty && !a.suspended {
		a.analyse()
		a.dirty = false
	}
	return copy(dst, a.bytes[:a.fftSize/2])
}

// analyse runs one analysis frame. Callers hold a.mu.
func (a *Analyser) analyse() {
	n := a.fftSize
	seq := a.scratch[:n]

	// Oldest to newest; missing history reads as silence.
	start := a.head - n
	for i := range seq {
		idx := start + i
		if i < n-a.filled {
			seq[i] = 0
			continue
		}
		seq[i] = a.ring[(idx%len(a.ring)+len(a.ring))%len(a.ring)]
	}
	window.Blackman(seq)

	a.coeffs = a.fft.Coefficients(a.coeffs, seq)

	scale := domain.MaxMagnitude / (a.maxDB - a.minDB)
	for k := 0; k < n/2; k++ {
		mag := cmplxAbs(a.coeffs[k]) / float64(n)
		v := a.smoothing*a.smoothed[k] + (1-a.smoothing)*mag
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		a.smoothed[k] = v

		db := 20 * math.Log10(v)
		b := math.Floor(scale * (db - a.minDB))
		switch {
		case math.IsNaN(b) || b < 0:
			a.bytes[k] = 0
		case b > domain.MaxMagnitude:
			a.bytes[k] = domain.MaxMagnitude
		default:
			a.bytes[k] = byte(b)
		}
	}
}

func cmplxAbs(c complex128) float64 {
	return math.Hypot(real(c), imag(c))
}

// Suspend implements ports.FrequencyAnalyser.
func (a *Analyser) Suspend() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.suspended {
		a.logger.Debug("analyser suspended")
	}
	a.suspended = true
}

// Resume implements ports.FrequencyAnalyser.
func (a *Analyser) Resume() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.suspended {
		a.logger.Debug("analyser resumed")
	}
	a.suspended = false
}

// Suspended implements ports.FrequencyAnalyser.
func (a *Analyser) Suspended() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.suspended
}
