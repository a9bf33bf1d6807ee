// Package ports define interfaces for dependency inversion.
// These interfaces allow the visualizer core to remain independent of audio libraries,
// render backends and UI toolkits.
package ports

import "time"

// FrequencyAnalyser is the audio analysis tap consumed by the analysis controller.
// It mirrors the contract of a browser AnalyserNode: a power-of-two transform size,
// a decibel window mapped onto byte magnitudes and temporal smoothing.
//
// Implementations must be thread-safe: samples are written from the media
// element's goroutine while frames are read from the producer goroutine.
type FrequencyAnalyser interface {
	// SetFFTSize sets the transform size. size must be a power of two in
	// [domain.MinFFTSize, domain.MaxFFTSize].
	//
	// Returns an error if the size is invalid.
	SetFFTSize(size int) error

	// FFTSize returns the active transform size.
	FFTSize() int

	// FrequencyBinCount returns FFTSize()/2.
	FrequencyBinCount() int

	// SetDecibelRange sets the decibel window that maps onto magnitudes 0..255.
	//
	// Returns an error if min >= max.
	SetDecibelRange(minDecibels, maxDecibels float64) error

	// SetSmoothing sets the averaging constant applied between analysis frames (0..1).
	SetSmoothing(timeConstant float64) error

	// ByteFrequencyData writes the current magnitudes into dst.
	// At most FrequencyBinCount() values are written; the rest of dst is untouched.
	//
	// Returns the number of values written.
	ByteFrequencyData(dst []byte) int

	// Suspend stops the tap from consuming new audio; ByteFrequencyData keeps
	// returning the last analysed frame.
	Suspend()

	// Resume restarts consumption after Suspend.
	Resume()

	// Suspended reports whether the tap is suspended.
	Suspended() bool
}

// SampleSink receives decoded mono PCM samples in the range [-1, 1].
type SampleSink interface {
	WriteSamples(samples []float64)
}

// SampleNode processes a block of samples in front of the analyser.
// Nodes form a chain; each returns the block to hand to the next node.
type SampleNode interface {
	Process(samples []float64) []float64
}

// MediaElement is a playing media source.
// Lifecycle changes are published on the event bus as domain.MediaEvent values
// carrying the element's ID.
type MediaElement interface {
	// ID returns the identifier used in the element's events.
	ID() string

	// Play starts or resumes playback.
	Play() error

	// Pause pauses playback, keeping the position.
	Pause() error

	// Paused reports whether playback is currently paused or stopped.
	Paused() bool

	// Close stops playback and releases resources.
	Close() error
}

// MediaSource is a media element whose source can be replaced at runtime.
type MediaSource interface {
	MediaElement

	// Load replaces the source, leaving the element paused at the start.
	Load(path string) error

	// Path returns the loaded source, or "".
	Path() string

	// Position returns the playback position within the source.
	Position() time.Duration
}

// SampleChain is implemented by analysers that accept processing nodes in
// front of the transform.
type SampleChain interface {
	// SetNodes replaces the chain. With no nodes, samples reach the analyser unchanged.
	SetNodes(nodes ...SampleNode)
}
