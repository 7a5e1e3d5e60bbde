package ports

import (
	"context"

	"facestream/internal/core/domain"
)

// StartStreamRequest carries the optional parameters of a start-stream command.
// A nil Highlighting keeps the session's current flag; an empty Mode defaults
// to HLS; an empty URL falls back to the session URL, then the process default.
type StartStreamRequest struct {
	URL          string
	Mode         domain.StreamMode
	Highlighting *bool
}

// StreamOrchestrator is the command surface of the core state machine.
type StreamOrchestrator interface {
	StartStream(ctx context.Context, id domain.UserID, req StartStreamRequest) error
	StopStream(ctx context.Context, id domain.UserID) error
	UpdateRTMPURL(ctx context.Context, id domain.UserID, url string) error
	UpdateSettings(ctx context.Context, id domain.UserID, patch domain.SettingsPatch) (domain.PersistentSettings, error)
	GetSettings(ctx context.Context, id domain.UserID) domain.PersistentSettings
	GetStatus(ctx context.Context, id domain.UserID) (domain.StreamStatus, error)
}

// StatusReconciler folds status events pushed by the transport into session
// state. Events for users with no live session are discarded.
type StatusReconciler interface {
	HandleStatus(ctx context.Context, id domain.UserID, event domain.StatusEvent)
}

// HighlightConfigurer negotiates a stream's routing with the external
// highlighting service.
type HighlightConfigurer interface {
	Configure(ctx context.Context, id domain.UserID, mode domain.StreamMode, targetRTMPURL string) (domain.HighlightResult, error)
}
