package fyne

import (
	"math"
	"time"
)

// DefaultFPSWindow is the number of render-time samples averaged per readout.
const DefaultFPSWindow = 60

// FPSMeter turns render durations into a frame-rate estimate. Samples are
// collected in batches; a readout is produced each time a batch fills up.
//
// Thread-safety: Not thread-safe; owned by the render loop.
type FPSMeter struct {
	samples []time.Duration
	n       int
}

// NewFPSMeter creates a meter averaging window samples per readout.
func NewFPSMeter(window int) *FPSMeter {
	if window <= 0 {
		window = DefaultFPSWindow
	}
	return &FPSMeter{samples: make([]time.Duration, window)}
}

// Add records one render duration. When the batch is complete it returns
// the frame rate derived from the batch average and true.
func (m *FPSMeter) Add(d time.Duration) (int, bool) {
	m.samples[m.n] = d
	m.n++
	if m.n < len(m.samples) {
		return 0, false
	}

	var sum time.Duration
	for _, s := range m.samples {
		sum += s
	}
	m.n = 0
	return FPS(sum / time.Duration(len(m.samples))), true
}

// FPS converts an average render time into frames per second. Render times
// below one millisecond count as one millisecond.
func FPS(avg time.Duration) int {
	ms := float64(avg) / float64(time.Millisecond)
	return int(math.Round(1000 / math.Max(1, ms)))
}
