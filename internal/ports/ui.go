// Package ports define the UI interface for view abstraction.
// This interface allows the presenter to update the UI without depending on Fyne directly.
package ports

import (
	"image"
)

// View is the presentation surface driven by the presenter.
//
// The presenter calls these methods from its own goroutines; implementations
// are responsible for hopping onto the toolkit's UI thread.
type View interface {
	// SetFrame presents a composited frame. The view may keep img until the next call.
	SetFrame(img image.Image)

	// ClearFrame blanks the presentation surface.
	ClearFrame()

	// SetPlayState updates the play/pause control.
	// playing: true if currently playing, false if paused/stopped
	SetPlayState(playing bool)

	// SetFPS updates the frame-rate readout derived from render times.
	SetFPS(fps int)

	// SetTitle updates the displayed media title.
	SetTitle(title string)

	// ShowError displays an error to the user.
	ShowError(title, message string)
}
