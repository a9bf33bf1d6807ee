// Package memory holds repositories backed by the toolkit's preference store.
package memory

import (
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

const (
	keyOverrides = "visualizer.overrides"
	keyMediaPath = "visualizer.media_path"
)

// OptionsRepository implements ports.OptionsRepository using Fyne preferences.
//
// Thread-safe: All operations protected by sync.RWMutex.
type OptionsRepository struct {
	prefs fyne.Preferences
	mu    sync.RWMutex
}

// NewOptionsRepository creates a repository over prefs, usually
// fyne.CurrentApp().Preferences().
func NewOptionsRepository(prefs fyne.Preferences) *OptionsRepository {
	return &OptionsRepository{prefs: prefs}
}

// SaveOverrides stores a partial YAML document. An empty document removes
// the stored one.
func (r *OptionsRepository) SaveOverrides(doc []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(doc) == 0 {
		r.prefs.RemoveValue(keyOverrides)
		return nil
	}
	r.prefs.SetString(keyOverrides, string(doc))
	return nil
}

// LoadOverrides returns the stored document, or nil.
func (r *OptionsRepository) LoadOverrides() ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	doc := r.prefs.String(keyOverrides)
	if doc == "" {
		return nil, nil
	}
	return []byte(doc), nil
}

// SaveMediaPath remembers the last opened media file.
func (r *OptionsRepository) SaveMediaPath(path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.SetString(keyMediaPath, path)
	return nil
}

// LoadMediaPath returns the last opened media file.
func (r *OptionsRepository) LoadMediaPath() (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.prefs.String(keyMediaPath), nil
}

// Clear removes all saved values.
func (r *OptionsRepository) Clear() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prefs.RemoveValue(keyOverrides)
	r.prefs.RemoveValue(keyMediaPath)
	return nil
}

// Verify interface implementation
var _ ports.OptionsRepository = (*OptionsRepository)(nil)
