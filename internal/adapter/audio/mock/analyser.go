// Package mock provides scripted implementations of the audio ports.
// They are used for testing services without decoding real audio, and for
// the demo mode of the application.
package mock

import (
	"log/slog"
	"math"
	"sync"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// Source fills dst with one frame of magnitudes. tick counts the frames
// produced so far.
type Source func(tick int, dst []byte)

// Analyser is a scripted FrequencyAnalyser.
// Queued frames are returned in order; once the queue is empty the last frame
// is repeated, or the Source is consulted when one is set.
//
// Thread-safety: This implementation is thread-safe.
type Analyser struct {
	// Dependencies
	logger *slog.Logger

	mu        sync.Mutex
	fftSize   int
	minDB     float64
	maxDB     float64
	smoothing float64
	suspended bool
	nodes     []ports.SampleNode

	queue  [][]byte
	last   []byte
	source Source
	tick   int

	// Call counters for assertions
	reads       int
	sizeChanges int

	// Behavior configuration (for testing error scenarios)
	failSetFFTSize bool
}

// Compile-time interface checks.
var (
	_ ports.FrequencyAnalyser = (*Analyser)(nil)
	_ ports.SampleSink        = (*Analyser)(nil)
	_ ports.SampleChain       = (*Analyser)(nil)
)

// NewAnalyser creates a scripted analyser with a 2048-point transform.
func NewAnalyser() *Analyser {
	return &Analyser{
		fftSize:   2048,
		minDB:     -100,
		maxDB:     -30,
		smoothing: 0.8,
	}
}

// SetLogger sets the logger for this analyser.
func (m *Analyser) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetSource installs a frame generator used once queued frames run out.
func (m *Analyser) SetSource(src Source) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.source = src
}

// SetFailSetFFTSize configures the mock to reject size changes (for testing).
func (m *Analyser) SetFailSetFFTSize(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSetFFTSize = fail
}

// PushFrame queues a frame to be returned by a later ByteFrequencyData call.
func (m *Analyser) PushFrame(frame []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, append([]byte(nil), frame...))
}

// SetFFTSize implements ports.FrequencyAnalyser.
func (m *Analyser) SetFFTSize(size int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failSetFFTSize {
		return domain.NewValidationError("fftSize", size, "mock size change failed")
	}
	if size < domain.MinFFTSize || size > domain.MaxFFTSize || size&(size-1) != 0 {
		return domain.NewValidationError("fftSize", size, "must be a power of two")
	}
	if size != m.fftSize {
		m.sizeChanges++
	}
	m.fftSize = size
	return nil
}

// FFTSize implements ports.FrequencyAnalyser.
func (m *Analyser) FFTSize() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fftSize
}

// FrequencyBinCount implements ports.FrequencyAnalyser.
func (m *Analyser) FrequencyBinCount() int {
	return m.FFTSize() / 2
}

// SetDecibelRange implements ports.FrequencyAnalyser.
func (m *Analyser) SetDecibelRange(minDecibels, maxDecibels float64) error {
	if minDecibels >= maxDecibels {
		return domain.NewValidationError("minDecibels", minDecibels, "must be below maxDecibels")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minDB, m.maxDB = minDecibels, maxDecibels
	return nil
}

// DecibelRange returns the configured decibel window.
func (m *Analyser) DecibelRange() (float64, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.minDB, m.maxDB
}

// SetSmoothing implements ports.FrequencyAnalyser.
func (m *Analyser) SetSmoothing(timeConstant float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.smoothing = timeConstant
	return nil
}

// Smoothing returns the configured smoothing constant.
func (m *Analyser) Smoothing() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.smoothing
}

// SetNodes implements ports.SampleChain.
func (m *Analyser) SetNodes(nodes ...ports.SampleNode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nodes = append([]ports.SampleNode(nil), nodes...)
}

// Nodes returns the installed processing chain.
func (m *Analyser) Nodes() []ports.SampleNode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.SampleNode(nil), m.nodes...)
}

// WriteSamples implements ports.SampleSink. Samples run through the chain and are discarded.
func (m *Analyser) WriteSamples(samples []float64) {
	m.mu.Lock()
	nodes := m.nodes
	m.mu.Unlock()
	for _, n := range nodes {
		samples = n.Process(samples)
	}
}

// ByteFrequencyData implements ports.FrequencyAnalyser.
// While suspended, the last frame is returned and the queue is left alone.
func (m *Analyser) ByteFrequencyData(dst []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++
	bins := m.fftSize / 2

	if !m.suspended {
		switch {
		case len(m.queue) > 0:
			m.last = m.queue[0]
			m.queue = m.queue[1:]
		case m.source != nil:
			if len(m.last) != bins {
				m.last = make([]byte, bins)
			}
			m.source(m.tick, m.last)
			m.tick++
		}
	}

	n := min(len(dst), bins)
	copied := copy(dst[:n], m.last)
	clear(dst[copied:n])
	return n
}

// Reads returns how many frames have been requested.
func (m *Analyser) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// SizeChanges returns how many times the transform size changed.
func (m *Analyser) SizeChanges() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sizeChanges
}

// Suspend implements ports.FrequencyAnalyser.
func (m *Analyser) Suspend() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = true
}

// Resume implements ports.FrequencyAnalyser.
func (m *Analyser) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.suspended = false
}

// Suspended implements ports.FrequencyAnalyser.
func (m *Analyser) Suspended() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.suspended
}

// WaveSource returns a Source drawing a travelling sine hump across the bins.
func WaveSource() Source {
	return func(tick int, dst []byte) {
		n := float64(len(dst))
		phase := float64(tick) * 0.05
		for i := range dst {
			x := float64(i) / n
			v := 0.5 + 0.5*math.Sin(2*math.Pi*(x*3-phase))
			v *= 1 - x*0.6
			dst[i] = byte(v * domain.MaxMagnitude)
		}
	}
}
