package services

import (
	"context"
	"encoding/json"
	"testing"

	"facestream/internal/core/domain"
	"facestream/internal/infrastructure/repositories/memory"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestHandleStatus_StoresEvent(t *testing.T) {
	sessions := memory.NewSessionRegistry()
	sessions.Create(context.Background(), &domain.SessionState{UserID: "alice"})

	reconciler := NewStatusService(sessions, nil, zap.NewNop().Sugar())

	stats := json.RawMessage(`{"bitrate":1950000,"fps":30}`)
	reconciler.HandleStatus(context.Background(), "alice", domain.StatusEvent{
		State: domain.StatusActive,
		Stats: stats,
	})

	sess, ok := sessions.Get(context.Background(), "alice")
	assert.True(t, ok)
	assert.Equal(t, domain.StatusActive, sess.Status.State)
	assert.JSONEq(t, string(stats), string(sess.Status.Stats))
	assert.False(t, sess.Status.Timestamp.IsZero())
}

func TestHandleStatus_ErrorEventCarriesDetails(t *testing.T) {
	sessions := memory.NewSessionRegistry()
	sessions.Create(context.Background(), &domain.SessionState{UserID: "alice"})

	reconciler := NewStatusService(sessions, nil, zap.NewNop().Sugar())

	reconciler.HandleStatus(context.Background(), "alice", domain.StatusEvent{
		State:        domain.StatusError,
		ErrorDetails: "encoder crashed",
	})

	sess, _ := sessions.Get(context.Background(), "alice")
	assert.Equal(t, domain.StatusError, sess.Status.State)
	assert.Equal(t, "encoder crashed", sess.Status.ErrorDetails)
}

func TestHandleStatus_DisconnectedUserDiscarded(t *testing.T) {
	sessions := memory.NewSessionRegistry()
	reconciler := NewStatusService(sessions, nil, zap.NewNop().Sugar())

	// Must not panic or create a session.
	reconciler.HandleStatus(context.Background(), "ghost", domain.StatusEvent{State: domain.StatusActive})

	_, ok := sessions.Get(context.Background(), "ghost")
	assert.False(t, ok)
}

func TestHandleStatus_StoppedCanonicalized(t *testing.T) {
	sessions := memory.NewSessionRegistry()
	sessions.Create(context.Background(), &domain.SessionState{
		UserID: "alice",
		Status: domain.StreamStatus{State: domain.StatusError, ErrorDetails: "encoder crashed"},
	})

	reconciler := NewStatusService(sessions, nil, zap.NewNop().Sugar())

	// A stop event carrying leftover fields from the error state is stored
	// as exactly stopped, with the stale detail dropped and final stats kept.
	stats := json.RawMessage(`{"frames_sent":1200}`)
	reconciler.HandleStatus(context.Background(), "alice", domain.StatusEvent{
		State:        domain.StatusStopped,
		ErrorDetails: "encoder crashed",
		Stats:        stats,
	})

	sess, _ := sessions.Get(context.Background(), "alice")
	assert.Equal(t, domain.StatusStopped, sess.Status.State)
	assert.Empty(t, sess.Status.ErrorDetails)
	assert.JSONEq(t, string(stats), string(sess.Status.Stats))
}

func TestHandleStatus_TransitionsOverwrite(t *testing.T) {
	sessions := memory.NewSessionRegistry()
	sessions.Create(context.Background(), &domain.SessionState{UserID: "alice"})

	reconciler := NewStatusService(sessions, nil, zap.NewNop().Sugar())

	for _, state := range []domain.StreamState{
		domain.StatusInitializing,
		domain.StatusActive,
		domain.StatusStopped,
	} {
		reconciler.HandleStatus(context.Background(), "alice", domain.StatusEvent{State: state})
		sess, _ := sessions.Get(context.Background(), "alice")
		assert.Equal(t, state, sess.Status.State)
	}
}
