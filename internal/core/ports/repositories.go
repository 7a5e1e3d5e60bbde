package ports

import (
	"context"

	"facestream/internal/core/domain"
)

// SettingsStore owns PersistentSettings records. There are no error conditions:
// reads of absent users return the process-wide defaults, and Merge creates the
// record lazily.
type SettingsStore interface {
	// Get returns the stored settings for the user, or the defaults and false
	// when no record exists yet.
	Get(ctx context.Context, id domain.UserID) (domain.PersistentSettings, bool)
	// Merge overwrites only the fields present in the patch, creating the
	// record from defaults if needed, and returns the resulting full record.
	Merge(ctx context.Context, id domain.UserID, patch domain.SettingsPatch) domain.PersistentSettings
}

// SessionRegistry owns ephemeral SessionState entries, one per connected user.
// Create, Mutate and Remove are individually atomic for the same key.
type SessionRegistry interface {
	// Create installs the state for a freshly connected user, overwriting any
	// stale prior entry: connect always wins over leftover state.
	Create(ctx context.Context, state *domain.SessionState)
	// Get returns a snapshot of the user's session state, if one exists.
	Get(ctx context.Context, id domain.UserID) (domain.SessionState, bool)
	// Mutate applies fn only if the entry still exists and reports whether it
	// did. Callers completing an asynchronous operation must check the result:
	// the user may have disconnected during the await.
	Mutate(ctx context.Context, id domain.UserID, fn func(*domain.SessionState)) bool
	// Remove drops the user's entry. Removing an absent key is a no-op.
	Remove(ctx context.Context, id domain.UserID)
}
