package service

import (
	"log/slog"
	"sync"

	"github.com/tejashwikalptaru/visualplayer/internal/domain"
	"github.com/tejashwikalptaru/visualplayer/internal/options"
	"github.com/tejashwikalptaru/visualplayer/internal/ports"
)

// PreferenceService keeps the factory defaults and the persisted user
// overrides in step. Overrides are stored as the difference between the
// factory defaults found at construction and its current defaults.
//
// Thread-safety: This implementation is thread-safe.
type PreferenceService struct {
	logger     *slog.Logger
	repository ports.OptionsRepository
	factory    *PlayerFactory
	base       domain.Options

	mu        sync.Mutex
	mediaPath string
}

// NewPreferenceService creates a preference service and applies any saved
// overrides to factory. A corrupt or invalid saved document is logged and
// ignored.
func NewPreferenceService(logger *slog.Logger, repository ports.OptionsRepository, factory *PlayerFactory) *PreferenceService {
	s := &PreferenceService{
		logger:     logger.With(slog.String("component", "preferences")),
		repository: repository,
		factory:    factory,
		base:       factory.Defaults(),
	}
	s.load()
	return s
}

func (s *PreferenceService) load() {
	if path, err := s.repository.LoadMediaPath(); err == nil {
		s.mediaPath = path
	}

	doc, err := s.repository.LoadOverrides()
	if err != nil || doc == nil {
		return
	}
	tree, err := options.Parse(doc)
	if err != nil {
		s.logger.Warn("ignoring saved overrides", slog.Any("error", err))
		return
	}
	if err := s.factory.SetDefaults(tree); err != nil {
		s.logger.Warn("ignoring saved overrides", slog.Any("error", err))
		return
	}
	s.logger.Debug("saved overrides applied", slog.Int("keys", len(tree)))
}

// Options returns the current defaults.
func (s *PreferenceService) Options() domain.Options {
	return s.factory.Defaults()
}

// Update merges partial into the defaults and persists the result.
func (s *PreferenceService) Update(partial options.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.factory.SetDefaults(partial); err != nil {
		return err
	}
	return s.persist()
}

func (s *PreferenceService) persist() error {
	diff := options.Diff(s.base, s.factory.Defaults())
	if len(diff) == 0 {
		return s.repository.SaveOverrides(nil)
	}
	doc, err := options.Encode(diff)
	if err != nil {
		return domain.NewServiceError("PreferenceService", "Update", "failed to encode overrides", err)
	}
	return s.repository.SaveOverrides(doc)
}

// MediaPath returns the last opened media file.
func (s *PreferenceService) MediaPath() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mediaPath
}

// SetMediaPath remembers the last opened media file.
func (s *PreferenceService) SetMediaPath(path string) error {
	s.mu.Lock()
	s.mediaPath = path
	s.mu.Unlock()

	return s.repository.SaveMediaPath(path)
}

// ResetToDefaults restores the defaults found at construction and clears
// saved values.
func (s *PreferenceService) ResetToDefaults() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.factory.ReplaceDefaults(s.base); err != nil {
		return err
	}
	s.mediaPath = ""
	return s.repository.Clear()
}
