package fyne

import (
	"fmt"
	"image"
	"sync"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/tejashwikalptaru/visualplayer/internal/adapter/ui/fyne/widgets"
	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/options"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
	"github.com/tejashwikalptaru/visualplayer/res"
)

// Window defaults.
const (
	AppName      = "Visual Player"
	windowWidth  = 800
	windowHeight = 520
	noTitle      = "No media loaded"
)

// MainWindow is the main UI window implementing ports.View.
//
// The MainWindow follows the MVP pattern:
// - It's a "dumb view" that just displays data
// - All logic is in the Presenter
// - User interactions are forwarded to the Presenter
//
// View methods may be called from any goroutine; they hop onto the UI
// goroutine with fyne.Do.
type MainWindow struct {
	app    fyneapp.App
	window fyneapp.Window

	// UI components
	visualizer *widgets.Visualizer
	playButton *widget.Button
	openButton *widget.Button
	title      *widget.Label
	fps        *widget.Label

	closeOnce sync.Once

	// Presenter (set after construction)
	presenter *Presenter
}

// NewMainWindow creates a new main window.
func NewMainWindow(app fyneapp.App) *MainWindow {
	w := &MainWindow{app: app}
	w.window = app.NewWindow(AppName)
	w.buildUI()
	w.window.Resize(fyneapp.NewSize(windowWidth, windowHeight))
	return w
}

// SetPresenter connects the presenter to this view.
// This must be called before showing the window.
func (w *MainWindow) SetPresenter(presenter *Presenter) {
	w.presenter = presenter
	w.wirePresenterHandlers()
	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
	w.addShortcuts()
}

// buildUI constructs the UI components.
func (w *MainWindow) buildUI() {
	w.visualizer = widgets.NewVisualizer()

	w.playButton = widget.NewButtonWithIcon("", theme.MediaPlayIcon(), nil)
	w.openButton = widget.NewButtonWithIcon("", theme.FolderOpenIcon(), nil)

	w.title = widget.NewLabel(noTitle)
	w.title.Truncation = fyneapp.TextTruncateEllipsis
	w.title.TextStyle = fyneapp.TextStyle{Bold: true, Italic: true}

	w.fps = widget.NewLabel("")
	w.fps.TextStyle = fyneapp.TextStyle{Monospace: true}

	buttons := container.NewHBox(w.playButton, w.openButton)
	controls := container.NewBorder(nil, nil, buttons, w.fps, w.title)
	w.window.SetContent(container.NewBorder(nil, controls, nil, nil, w.visualizer))
}

// wirePresenterHandlers connects UI events to presenter handlers.
func (w *MainWindow) wirePresenterHandlers() {
	if w.presenter == nil {
		return
	}

	w.playButton.OnTapped = w.presenter.OnPlayClicked
	w.openButton.OnTapped = w.handleOpenMedia
	w.visualizer.SetOnTapped(w.presenter.OnPlayClicked)
	w.visualizer.SetOnSecondaryTapped(func(pe *fyneapp.PointEvent) {
		menu := fyneapp.NewMenu("", w.optionItems()...)
		widget.ShowPopUpMenuAtPosition(menu, w.window.Canvas(), pe.AbsolutePosition)
	})
}

// createMenu creates the application menu.
func (w *MainWindow) createMenu() []*fyneapp.Menu {
	separator := fyneapp.NewMenuItemSeparator()

	openMedia := fyneapp.NewMenuItem("Open Media", w.handleOpenMedia)
	openBackground := fyneapp.NewMenuItem("Open Background", w.handleOpenBackground)
	clearBackground := fyneapp.NewMenuItem("Clear Background", func() {
		w.presenter.SetBackground(nil)
	})
	exitMenu := fyneapp.NewMenuItem("Exit", func() {
		w.window.Close()
	})

	about := fyneapp.NewMenuItem("About", func() {
		content := widget.NewRichTextFromMarkdown(res.AboutContent)
		content.Wrapping = fyneapp.TextWrapWord
		d := dialog.NewCustom("About "+AppName, "Close", content, w.window)
		d.Resize(fyneapp.NewSize(420, 260))
		d.Show()
	})

	return []*fyneapp.Menu{
		fyneapp.NewMenu("File", openMedia, separator, openBackground, clearBackground, separator, exitMenu),
		fyneapp.NewMenu("View", w.optionItems()...),
		fyneapp.NewMenu("Help", about),
	}
}

// optionItems builds the toggles shared by the View menu and the context menu.
func (w *MainWindow) optionItems() []*fyneapp.MenuItem {
	canvas := w.presenter.Options().Canvas

	toggle := func(label, key string, on bool) *fyneapp.MenuItem {
		item := fyneapp.NewMenuItem(label, func() {
			w.applyOptions(options.Tree{"canvas": options.Tree{key: !on}})
		})
		item.Checked = on
		return item
	}
	fill := func(label, style string) *fyneapp.MenuItem {
		item := fyneapp.NewMenuItem(label, func() {
			w.applyOptions(options.Tree{"canvas": options.Tree{"fillStyle": style}})
		})
		item.Checked = canvas.FillStyle == style
		return item
	}

	return []*fyneapp.MenuItem{
		toggle("Motion Blur", "motionBlur", canvas.MotionBlur),
		toggle("Render Time", "renderTimeOverlay", canvas.RenderTimeOverlay),
		toggle("Always Composite", "alwaysComposite", canvas.AlwaysComposite),
		toggle("Subpixel Bars", "subpixelRendering", canvas.SubpixelRendering),
		fyneapp.NewMenuItemSeparator(),
		fill("Hue Fill", domain.FillStyleHue),
		fill("No Fill", domain.FillStyleNone),
	}
}

func (w *MainWindow) applyOptions(partial options.Tree) {
	if err := w.presenter.OnOptionsChanged(partial); err != nil {
		w.ShowError("Options", fmt.Sprintf("Failed to apply options: %v", err))
		return
	}
	// Menu check marks follow the new options.
	w.window.SetMainMenu(fyneapp.NewMainMenu(w.createMenu()...))
}

// handleOpenMedia handles the "Open Media" action.
func (w *MainWindow) handleOpenMedia() {
	if w.presenter == nil {
		return
	}
	NewFileDialog(w.window, func(path string) {
		if err := w.presenter.OnFileOpened(path); err != nil {
			w.ShowError("Error", fmt.Sprintf("Failed to open file: %v", err))
		}
	}, w.presenter.logger, mediaExtensions...).Show()
}

// handleOpenBackground handles the "Open Background" action.
func (w *MainWindow) handleOpenBackground() {
	if w.presenter == nil {
		return
	}
	NewFileDialog(w.window, func(path string) {
		if err := w.presenter.OnBackgroundOpened(path); err != nil {
			w.ShowError("Error", fmt.Sprintf("Failed to open image: %v", err))
		}
	}, w.presenter.logger, imageExtensions...).Show()
}

// addShortcuts adds keyboard shortcuts.
func (w *MainWindow) addShortcuts() {
	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeySpace,
		Modifier: fyneapp.KeyModifierShortcutDefault,
	}, func(fyneapp.Shortcut) {
		w.presenter.OnPlayClicked()
	})

	w.window.Canvas().AddShortcut(&desktop.CustomShortcut{
		KeyName:  fyneapp.KeyO,
		Modifier: fyneapp.KeyModifierShortcutDefault,
	}, func(fyneapp.Shortcut) {
		w.handleOpenMedia()
	})
}

// ShowAndRun shows the window and runs the application.
func (w *MainWindow) ShowAndRun() {
	w.window.ShowAndRun()
}

// Close closes the window.
// It's safe to call multiple times (idempotent).
func (w *MainWindow) Close() {
	w.closeOnce.Do(func() {
		w.window.Close()
	})
}

// GetWindow returns the underlying Fyne window.
func (w *MainWindow) GetWindow() fyneapp.Window {
	return w.window
}

// ports.View implementation

// SetFrame presents a composited frame.
func (w *MainWindow) SetFrame(img image.Image) {
	fyneapp.Do(func() {
		w.visualizer.SetFrame(img)
	})
}

// ClearFrame blanks the visualizer.
func (w *MainWindow) ClearFrame() {
	fyneapp.Do(w.visualizer.Clear)
}

// SetPlayState updates the play/pause button state.
func (w *MainWindow) SetPlayState(playing bool) {
	fyneapp.Do(func() {
		if playing {
			w.playButton.SetIcon(theme.MediaPauseIcon())
		} else {
			w.playButton.SetIcon(theme.MediaPlayIcon())
		}
	})
}

// SetFPS updates the frame-rate readout.
func (w *MainWindow) SetFPS(fps int) {
	fyneapp.Do(func() {
		w.fps.SetText(fmt.Sprintf("FPS (via render time): %d", fps))
	})
}

// SetTitle updates the displayed media title.
func (w *MainWindow) SetTitle(title string) {
	if title == "" {
		title = noTitle
	}
	fyneapp.Do(func() {
		w.title.SetText(title)
		w.window.SetTitle(AppName + " - " + title)
	})
}

// ShowError displays an error dialog.
func (w *MainWindow) ShowError(title, message string) {
	fyneapp.Do(func() {
		dialog.ShowError(fmt.Errorf("%s: %s", title, message), w.window)
	})
}

// Verify View implementation
var _ ports.View = (*MainWindow)(nil)
