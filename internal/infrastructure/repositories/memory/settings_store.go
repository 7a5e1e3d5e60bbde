package memory

import (
	"context"
	"sync"

	"facestream/internal/core/domain"
	"facestream/internal/core/ports"
)

// SettingsStore keeps per-user preferences for the lifetime of the process.
// Records are created lazily on first merge and never deleted.
type SettingsStore struct {
	defaults domain.PersistentSettings
	settings map[domain.UserID]domain.PersistentSettings
	mu       sync.RWMutex
}

func NewSettingsStore(defaults domain.PersistentSettings) ports.SettingsStore {
	return &SettingsStore{
		defaults: defaults,
		settings: make(map[domain.UserID]domain.PersistentSettings),
	}
}

func (s *SettingsStore) Get(ctx context.Context, id domain.UserID) (domain.PersistentSettings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.settings[id]
	if !exists {
		return s.defaults, false
	}
	return rec, true
}

func (s *SettingsStore) Merge(ctx context.Context, id domain.UserID, patch domain.SettingsPatch) domain.PersistentSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.settings[id]
	if !exists {
		rec = s.defaults
	}

	if patch.RTMPURL != nil {
		rec.RTMPURL = *patch.RTMPURL
	}
	if patch.StreamMode != nil {
		rec.StreamMode = *patch.StreamMode
	}
	if patch.FaceHighlightingEnabled != nil {
		rec.FaceHighlightingEnabled = *patch.FaceHighlightingEnabled
	}

	s.settings[id] = rec
	return rec
}
