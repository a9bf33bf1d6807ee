// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"github.com/tejashwikalptaru/visualplayer/internal/adapter/analyser"
	"github.com/tejashwikalptaru/visualplayer/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/visualplayer/internal/adapter/audio/pcm"
	"github.com/tejashwikalptaru/visualplayer/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/visualplayer/internal/adapter/offscreen"
	"github.com/tejashwikalptaru/visualplayer/internal/adapter/repository/memory"
	fyneui "github.com/tejashwikalptaru/visualplayer/internal/adapter/ui/fyne"
	"github.com/tejashwikalptaru/visualplayer/internal/logger"
	"github.com/tejashwikalptaru/visualplayer/internal/options"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
	"github.com/tejashwikalptaru/visualplayer/internal/service"
)

const (
	mediaID         = "main"
	clockTick       = 10 * time.Millisecond
	shutdownTimeout = 2 * time.Second
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for main.go
type Application struct {
	// Core dependencies
	logger  *slog.Logger
	fyneApp fyne.App

	// Infrastructure
	eventBus    *eventbus.SyncEventBus
	renderer    *offscreen.Renderer
	coordinator *service.RenderCoordinator
	media       ports.MediaSource

	// Services
	factory           *service.PlayerFactory
	preferenceService *service.PreferenceService
	player            *service.VisualPlayer

	// UI
	presenter  *fyneui.Presenter
	mainWindow *fyneui.MainWindow

	shutdownOnce sync.Once
	shutdownErr  error
}

// Config holds application configuration.
type Config struct {
	// AppID is the unique application identifier
	AppID string

	// AppName is the display name
	AppName string

	// SampleRate is the audio output sample rate
	SampleRate int

	// UseMockAudio replaces the decoder, device and analyser with scripted
	// mocks producing a moving spectrum (for testing and demos)
	UseMockAudio bool

	// LogLevel controls logging verbosity
	LogLevel slog.Level

	// LogFormat is "text" or "json"
	LogFormat string

	// OptionsPath is an optional YAML file of visualizer options layered
	// over the built-in defaults and under the saved user overrides
	OptionsPath string

	// MediaPath is opened at startup; empty reopens the last file
	MediaPath string

	// ResolverPolicy is "queue" or "replace"
	ResolverPolicy string

	// RenderQueueSize is the request buffer of the render worker
	RenderQueueSize int

	// FrameInterval is the delay between frame requests
	FrameInterval time.Duration

	// TestFyneApp allows injecting a test Fyne app for testing (nil for production)
	TestFyneApp fyne.App
}

// DefaultConfig returns the default application configuration.
// VISUALPLAYER_OPTIONS and VISUALPLAYER_RESOLVER_POLICY override the
// options file and resolver policy.
func DefaultConfig() Config {
	loggerCfg := logger.DefaultConfig()
	return Config{
		AppID:           "io.github.tejashwikalptaru.visualplayer",
		AppName:         fyneui.AppName,
		SampleRate:      44100,
		UseMockAudio:    false,
		LogLevel:        loggerCfg.Level,
		LogFormat:       loggerCfg.Format,
		OptionsPath:     os.Getenv("VISUALPLAYER_OPTIONS"),
		ResolverPolicy:  os.Getenv("VISUALPLAYER_RESOLVER_POLICY"),
		RenderQueueSize: offscreen.DefaultQueueSize,
		FrameInterval:   fyneui.DefaultFrameInterval,
	}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(config Config) (*Application, error) {
	app := &Application{}

	// Step 1: Create Fyne application
	if config.TestFyneApp != nil {
		app.fyneApp = config.TestFyneApp
	} else {
		app.fyneApp = fyneapp.NewWithID(config.AppID)
	}

	// Step 2: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  config.LogLevel,
		Format: config.LogFormat,
	})
	app.logger.Info("initializing application",
		slog.String("app_id", config.AppID),
		slog.Any("build", GetVersionInfo()))

	policy, err := service.ParseResolverPolicy(config.ResolverPolicy)
	if err != nil {
		return nil, err
	}

	// Step 3: Create an event bus
	app.eventBus = eventbus.NewSyncEventBus()
	app.eventBus.SetLogger(app.logger.With(slog.String("component", "eventbus")))

	// Step 4: Create the render pipeline
	app.renderer = offscreen.New(app.logger, offscreen.WithQueueSize(config.RenderQueueSize))
	app.coordinator = service.NewRenderCoordinator(app.logger, app.renderer, service.NewRegistry(), app.eventBus, policy)
	app.factory = service.NewPlayerFactory(app.logger, app.coordinator, app.eventBus)

	// Step 5: Layer the options: defaults, options file, saved overrides
	if config.OptionsPath != "" {
		tree, err := options.Load(config.OptionsPath)
		if err != nil {
			app.abort()
			return nil, err
		}
		if err := app.factory.SetDefaults(tree); err != nil {
			app.abort()
			return nil, fmt.Errorf("options file %s: %w", config.OptionsPath, err)
		}
	}
	repo := memory.NewOptionsRepository(app.fyneApp.Preferences())
	app.preferenceService = service.NewPreferenceService(app.logger, repo, app.factory)

	// Step 6: Create media element and analysis tap
	media, tap := app.newAudio(config)
	app.media = media

	app.player, err = app.factory.NewPlayer(context.Background(), media, tap, nil)
	if err != nil {
		app.abort()
		return nil, fmt.Errorf("failed to create visual player: %w", err)
	}

	// Step 7: Create UI and presenter
	app.mainWindow = fyneui.NewMainWindow(app.fyneApp)
	app.presenter = fyneui.NewPresenter(
		app.logger,
		app.player,
		app.media,
		app.preferenceService,
		app.eventBus,
		app.mainWindow,
		fyneui.PresenterConfig{
			FrameInterval:     config.FrameInterval,
			FPSWindow:         fyneui.DefaultFPSWindow,
			StretchBackground: true,
		},
	)
	app.mainWindow.SetPresenter(app.presenter)

	// Step 8: Restore the last session
	app.openInitialMedia(config.MediaPath)

	return app, nil
}

// newAudio creates the media element and the analyser it feeds.
func (a *Application) newAudio(config Config) (ports.MediaSource, ports.FrequencyAnalyser) {
	if config.UseMockAudio {
		tap := mock.NewAnalyser()
		tap.SetLogger(a.logger.With(slog.String("engine", "mock")))
		tap.SetSource(mock.WaveSource())
		return mock.NewMedia(mediaID, a.eventBus), tap
	}

	tap := analyser.New(a.logger)
	var out pcm.Output
	device, err := pcm.NewOtoOutput(config.SampleRate)
	if err != nil {
		a.logger.Warn("audio device unavailable, playing silently", slog.Any("error", err))
		out = pcm.NewClockOutput(config.SampleRate, clockTick)
	} else {
		out = device
	}
	return pcm.NewElement(mediaID, out, tap, a.eventBus, a.logger), tap
}

func (a *Application) openInitialMedia(path string) {
	if path == "" {
		path = a.preferenceService.MediaPath()
	}
	if path == "" {
		return
	}
	if err := a.presenter.OnFileOpened(path); err != nil {
		a.logger.Warn("failed to open media", slog.String("path", path), slog.Any("error", err))
	}
}

// abort releases what a failed NewApplication created.
func (a *Application) abort() {
	if a.coordinator != nil {
		_ = a.coordinator.Close()
	}
	if a.eventBus != nil {
		_ = a.eventBus.Close()
	}
}

// Run starts the render loop and shows the window.
// This is called from main.go after the application is created.
func (a *Application) Run() error {
	a.logger.Info("visual player started")

	a.presenter.Start()

	// Show and run UI (blocks until the window is closed)
	a.mainWindow.ShowAndRun()
	return nil
}

// Shutdown gracefully shuts down the application.
// It's safe to call multiple times; later calls return the first result.
func (a *Application) Shutdown() error {
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		// Shutdown in reverse order of creation
		var errs []error
		a.presenter.Shutdown()
		if err := a.player.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close player: %w", err))
		}
		if err := a.media.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close media: %w", err))
		}
		if err := a.coordinator.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close coordinator: %w", err))
		}
		if err := a.eventBus.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
		a.shutdownErr = errors.Join(errs...)

		a.logger.Info("application shutdown complete")
	})
	return a.shutdownErr
}

// Player returns the visual player.
func (a *Application) Player() *service.VisualPlayer {
	return a.player
}

// Presenter returns the UI presenter.
func (a *Application) Presenter() *fyneui.Presenter {
	return a.presenter
}

// Preferences returns the preference service.
func (a *Application) Preferences() *service.PreferenceService {
	return a.preferenceService
}

// Media returns the media element.
func (a *Application) Media() ports.MediaSource {
	return a.media
}

// GetEventBus returns the event bus.
func (a *Application) GetEventBus() ports.EventBus {
	return a.eventBus
}

// GetFyneApp returns the Fyne application.
func (a *Application) GetFyneApp() fyne.App {
	return a.fyneApp
}
