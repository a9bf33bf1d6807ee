package fyne

import (
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
)

// File name filters of the open dialogs.
var (
	mediaExtensions = []string{".mp3", ".wav"}
	imageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}
)

// FileDialog is a helper for creating file open dialogs.
type FileDialog struct {
	window     fyne.Window
	callback   func(string)
	extensions []string
	logger     *slog.Logger
}

// NewFileDialog creates a new file dialog. With no extensions every file is listed.
func NewFileDialog(window fyne.Window, callback func(string), logger *slog.Logger, extensions ...string) *FileDialog {
	return &FileDialog{
		window:     window,
		callback:   callback,
		extensions: extensions,
		logger:     logger,
	}
}

// Show displays the file dialog.
func (d *FileDialog) Show() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			d.logger.Error("file dialog error", slog.Any("error", err))
			return
		}
		if reader == nil {
			return // User cancelled
		}
		defer reader.Close()

		if d.callback != nil {
			d.callback(reader.URI().Path())
		}
	}, d.window)
	if len(d.extensions) > 0 {
		fd.SetFilter(storage.NewExtensionFileFilter(d.extensions))
	}
	fd.Show()
}
