// Package ports define repository interfaces for data persistence abstraction.
package ports

// OptionsRepository persists user overrides of the visualizer options.
// Overrides are stored as a partial YAML document so that keys unknown to a
// newer or older schema survive a round trip and are simply dropped on merge.
//
// Thread-safety: Implementations must be thread-safe.
type OptionsRepository interface {
	// SaveOverrides persists a partial options document.
	//
	// Returns an error if saving fails.
	SaveOverrides(doc []byte) error

	// LoadOverrides retrieves the last saved document.
	// If nothing was saved, returns (nil, nil).
	LoadOverrides() ([]byte, error)

	// SaveMediaPath remembers the last opened media file.
	SaveMediaPath(path string) error

	// LoadMediaPath returns the last opened media file, or "".
	LoadMediaPath() (string, error)

	// Clear removes all saved values.
	Clear() error
}
