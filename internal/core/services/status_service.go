package services

import (
	"context"
	"time"

	"facestream/internal/core/domain"
	"facestream/internal/core/ports"

	"go.uber.org/zap"
)

type statusService struct {
	sessions ports.SessionRegistry
	metrics  Metrics
	logger   *zap.SugaredLogger
}

// NewStatusService builds the status reconciler. The transport layer is the
// authority on transition timing; this service only stores what it is told,
// with one canonicalization rule for the stopped case.
func NewStatusService(sessions ports.SessionRegistry, metrics Metrics, logger *zap.SugaredLogger) ports.StatusReconciler {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &statusService{
		sessions: sessions,
		metrics:  metrics,
		logger:   logger,
	}
}

func (s *statusService) HandleStatus(ctx context.Context, id domain.UserID, event domain.StatusEvent) {
	applied := s.sessions.Mutate(ctx, id, func(st *domain.SessionState) {
		prev := st.Status.State

		status := domain.StreamStatus{
			State:        event.State,
			ErrorDetails: event.ErrorDetails,
			Stats:        event.Stats,
			Timestamp:    time.Now(),
		}
		// Upstream stop payloads sometimes carry fields left over from the
		// previous state; a stop is stored as exactly stopped with no error
		// detail. Final stats are kept.
		if event.State == domain.StatusStopped {
			status.ErrorDetails = ""
		}
		st.Status = status

		if prev != domain.StatusActive && status.State == domain.StatusActive {
			s.metrics.StreamStarted()
		}
		if prev == domain.StatusActive && status.State != domain.StatusActive {
			s.metrics.StreamStopped()
		}
	})

	if !applied {
		// Expected when a status arrives after disconnect; not a fault.
		s.metrics.RecordStatusDiscarded()
		s.logger.Warnw("status event for disconnected user discarded",
			"user_id", id,
			"status", event.State,
		)
		return
	}

	s.metrics.RecordStatusEvent(string(event.State))
}
