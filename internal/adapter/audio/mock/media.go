package mock

import (
	"sync"
	"time"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// Media is a scripted MediaElement. It publishes lifecycle events on the bus
// as a real element would, without producing audio.
//
// Thread-safety: This implementation is thread-safe.
type Media struct {
	id  string
	bus ports.EventBus

	mu       sync.Mutex
	paused   bool
	closed   bool
	position time.Duration
	path     string

	// Behavior configuration (for testing error scenarios)
	failPlay bool
}

var _ ports.MediaSource = (*Media)(nil)

// NewMedia creates a paused scripted media element.
func NewMedia(id string, bus ports.EventBus) *Media {
	return &Media{
		id:     id,
		bus:    bus,
		paused: true,
	}
}

// SetFailPlay configures the mock to fail playback (for testing).
// A failing Play publishes an error event.
func (m *Media) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// ID implements ports.MediaElement.
func (m *Media) ID() string {
	return m.id
}

// Play implements ports.MediaElement.
func (m *Media) Play() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.NewMediaError("play", m.id, "element closed", nil)
	}
	if m.failPlay {
		pos := m.position
		m.mu.Unlock()
		err := domain.NewMediaError("play", m.id, "mock playback failed", nil)
		m.bus.Publish(domain.NewMediaErrorEvent(m.id, pos, err))
		return err
	}
	if !m.paused {
		m.mu.Unlock()
		return nil
	}
	m.paused = false
	pos := m.position
	m.mu.Unlock()

	m.bus.Publish(domain.NewMediaEvent(domain.EventMediaPlay, m.id, pos))
	return nil
}

// Pause implements ports.MediaElement.
func (m *Media) Pause() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.NewMediaError("pause", m.id, "element closed", nil)
	}
	if m.paused {
		m.mu.Unlock()
		return nil
	}
	m.paused = true
	pos := m.position
	m.mu.Unlock()

	m.bus.Publish(domain.NewMediaEvent(domain.EventMediaPause, m.id, pos))
	return nil
}

// Paused implements ports.MediaElement.
func (m *Media) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Load records path as the source and rewinds, leaving the element paused.
// Replacing a source publishes an emptied event.
func (m *Media) Load(path string) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return domain.NewMediaError("load", path, "element closed", nil)
	}
	replaced := m.path != ""
	m.path = path
	m.position = 0
	m.paused = true
	m.mu.Unlock()

	if replaced {
		m.bus.Publish(domain.NewMediaEvent(domain.EventMediaEmptied, m.id, 0))
	}
	return nil
}

// Path returns the loaded source.
func (m *Media) Path() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.path
}

// Position returns the playback position.
func (m *Media) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

// Advance moves the playback position forward.
func (m *Media) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position += d
}

// Emit publishes an arbitrary lifecycle event, updating the paused state for
// events that stop playback.
func (m *Media) Emit(kind domain.EventType) {
	m.mu.Lock()
	switch kind {
	case domain.EventMediaPlay:
		m.paused = false
	case domain.EventMediaPause, domain.EventMediaEnded, domain.EventMediaEmptied, domain.EventMediaAbort:
		m.paused = true
	}
	pos := m.position
	m.mu.Unlock()

	m.bus.Publish(domain.NewMediaEvent(kind, m.id, pos))
}

// Close implements ports.MediaElement. Closing publishes an emptied event.
func (m *Media) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.paused = true
	pos := m.position
	m.mu.Unlock()

	m.bus.Publish(domain.NewMediaEvent(domain.EventMediaEmptied, m.id, pos))
	return nil
}
