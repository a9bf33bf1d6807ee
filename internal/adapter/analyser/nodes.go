package analyser

import (
	"sync"

	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// NodeFunc adapts a function to ports.SampleNode.
type NodeFunc func(samples []float64) []float64

// Process calls f.
func (f NodeFunc) Process(samples []float64) []float64 {
	return f(samples)
}

// Gain scales samples by a level that can be changed while audio flows.
type Gain struct {
	mu    sync.RWMutex
	level float64
}

var _ ports.SampleNode = (*Gain)(nil)

// NewGain creates a gain node.
func NewGain(level float64) *Gain {
	return &Gain{level: level}
}

// SetLevel changes the gain.
func (g *Gain) SetLevel(level float64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.level = level
}

// Level returns the current gain.
func (g *Gain) Level() float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.level
}

// Process scales samples in place.
func (g *Gain) Process(samples []float64) []float64 {
	level := g.Level()
	if level == 1 {
		return samples
	}
	for i := range samples {
		samples[i] *= level
	}
	return samples
}
