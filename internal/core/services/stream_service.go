package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"facestream/internal/core/domain"
	"facestream/internal/core/ports"
	"facestream/pkg/validation"

	"go.uber.org/zap"
)

const (
	displayStarting   = "Starting stream..."
	displayStopping   = "Stopping stream..."
	displayURLUpdated = "RTMP URL updated"
)

type streamService struct {
	sessions  ports.SessionRegistry
	settings  ports.SettingsStore
	highlight ports.HighlightConfigurer
	defaults  domain.PersistentSettings
	metrics   Metrics
	logger    *zap.SugaredLogger
}

// NewStreamService builds the stream orchestrator. It owns no state of its
// own: sessions and settings live in the injected stores, and the device
// channel is read from the session entry on every command.
func NewStreamService(
	sessions ports.SessionRegistry,
	settings ports.SettingsStore,
	highlight ports.HighlightConfigurer,
	defaults domain.PersistentSettings,
	metrics Metrics,
	logger *zap.SugaredLogger,
) ports.StreamOrchestrator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &streamService{
		sessions:  sessions,
		settings:  settings,
		highlight: highlight,
		defaults:  defaults,
		metrics:   metrics,
		logger:    logger,
	}
}

func (s *streamService) StartStream(ctx context.Context, id domain.UserID, req ports.StartStreamRequest) error {
	sess, ok := s.sessions.Get(ctx, id)
	if !ok {
		return domain.ErrNoActiveSession
	}

	mode := req.Mode
	if mode == "" {
		mode = domain.ModeHLS
	}
	if !mode.Valid() {
		return domain.ErrUnsupportedModeCombination
	}

	highlighting := sess.FaceHighlightingEnabled
	if req.Highlighting != nil {
		highlighting = *req.Highlighting
	}

	// Simulation is a settings-only operation: no transport command, no
	// highlight call, and no status transition.
	if mode == domain.ModeSimulation {
		s.settings.Merge(ctx, id, domain.SettingsPatch{
			StreamMode:              &mode,
			FaceHighlightingEnabled: &highlighting,
		})
		s.sessions.Mutate(ctx, id, func(st *domain.SessionState) {
			st.StreamMode = mode
			st.FaceHighlightingEnabled = highlighting
		})
		s.logger.Infow("simulation mode recorded", "user_id", id, "highlighting", highlighting)
		return nil
	}

	// HLS output only exists behind the highlighting service, so the flag is
	// overridden rather than the request rejected.
	if mode == domain.ModeHLS {
		highlighting = true
	}

	target := req.URL
	if target == "" {
		target = sess.RTMPURL
	}
	if target == "" {
		target = s.defaults.RTMPURL
	}

	s.settings.Merge(ctx, id, domain.SettingsPatch{
		StreamMode:              &mode,
		FaceHighlightingEnabled: &highlighting,
	})

	effectiveURL := target
	hlsURL := ""
	if highlighting {
		start := time.Now()
		result, err := s.highlight.Configure(ctx, id, mode, target)
		s.metrics.ObserveHighlightConfig(time.Since(start))
		if err != nil {
			s.failSession(ctx, id, err)
			return err
		}
		effectiveURL = result.EffectiveRTMPURL
		hlsURL = result.HLSURL
	}

	// The highlight call may have taken arbitrarily long; the session must
	// still exist before any transport command goes out.
	applied := s.sessions.Mutate(ctx, id, func(st *domain.SessionState) {
		st.RTMPURL = effectiveURL
		st.StreamMode = mode
		st.FaceHighlightingEnabled = highlighting
		if hlsURL != "" {
			st.HLSURL = hlsURL
		}
	})
	if !applied {
		s.logger.Warnw("session vanished during stream start", "user_id", id)
		return domain.ErrNoActiveSession
	}

	sess, ok = s.sessions.Get(ctx, id)
	if !ok {
		return domain.ErrNoActiveSession
	}
	ch := sess.Channel

	if err := ch.SendDisplayText(ctx, displayStarting); err != nil {
		s.logger.Warnw("display notification failed", "user_id", id, "error", err)
	}

	err := ch.RequestStream(ctx, domain.DefaultStreamConfig(effectiveURL))
	s.metrics.RecordTransportCommand("start_stream", err)
	if err != nil {
		terr := asTransportError("start_stream", err)
		s.failSession(ctx, id, terr)
		return terr
	}

	// Status stays as-is: the reconciler advances it to initializing/active
	// when the transport reports back.
	s.logger.Infow("stream requested",
		"user_id", id,
		"mode", mode,
		"highlighting", highlighting,
		"url", effectiveURL,
	)
	return nil
}

func (s *streamService) StopStream(ctx context.Context, id domain.UserID) error {
	sess, ok := s.sessions.Get(ctx, id)
	if !ok {
		return domain.ErrNoActiveSession
	}

	if sess.StreamMode == domain.ModeSimulation {
		return nil
	}

	ch := sess.Channel
	if err := ch.SendDisplayText(ctx, displayStopping); err != nil {
		s.logger.Warnw("display notification failed", "user_id", id, "error", err)
	}

	err := ch.StopStream(ctx)
	s.metrics.RecordTransportCommand("stop_stream", err)
	if err != nil {
		terr := asTransportError("stop_stream", err)
		s.failSession(ctx, id, terr)
		return terr
	}

	// The reconciler moves the status to stopped once the device confirms.
	s.logger.Infow("stream stop requested", "user_id", id)
	return nil
}

func (s *streamService) UpdateRTMPURL(ctx context.Context, id domain.UserID, url string) error {
	if strings.TrimSpace(url) == "" {
		return domain.ErrInvalidURL
	}
	if err := validation.ValidateStreamURL(url); err != nil {
		// Advisory only: accept the URL anyway.
		s.logger.Warnw("stream URL failed validation", "user_id", id, "url", url, "error", err)
	}

	s.settings.Merge(ctx, id, domain.SettingsPatch{RTMPURL: &url})

	applied := s.sessions.Mutate(ctx, id, func(st *domain.SessionState) {
		st.RTMPURL = url
	})
	if applied {
		if sess, ok := s.sessions.Get(ctx, id); ok {
			if err := sess.Channel.SendDisplayText(ctx, displayURLUpdated); err != nil {
				s.logger.Warnw("display notification failed", "user_id", id, "error", err)
			}
		}
	}
	return nil
}

func (s *streamService) UpdateSettings(ctx context.Context, id domain.UserID, patch domain.SettingsPatch) (domain.PersistentSettings, error) {
	if patch.StreamMode != nil && !patch.StreamMode.Valid() {
		return domain.PersistentSettings{}, domain.ErrUnsupportedModeCombination
	}
	if patch.RTMPURL != nil && strings.TrimSpace(*patch.RTMPURL) == "" {
		return domain.PersistentSettings{}, domain.ErrInvalidURL
	}

	merged := s.settings.Merge(ctx, id, patch)

	// HLS implies highlighting; correct the stored record if the merge left
	// them inconsistent.
	if merged.StreamMode == domain.ModeHLS && !merged.FaceHighlightingEnabled {
		enabled := true
		merged = s.settings.Merge(ctx, id, domain.SettingsPatch{FaceHighlightingEnabled: &enabled})
	}

	s.sessions.Mutate(ctx, id, func(st *domain.SessionState) {
		st.RTMPURL = merged.RTMPURL
		st.StreamMode = merged.StreamMode
		st.FaceHighlightingEnabled = merged.FaceHighlightingEnabled
	})

	return merged, nil
}

func (s *streamService) GetSettings(ctx context.Context, id domain.UserID) domain.PersistentSettings {
	// Resolution order: persistent record, then live session, then defaults.
	if rec, ok := s.settings.Get(ctx, id); ok {
		return rec
	}
	if sess, ok := s.sessions.Get(ctx, id); ok {
		return domain.PersistentSettings{
			RTMPURL:                 sess.RTMPURL,
			StreamMode:              sess.StreamMode,
			FaceHighlightingEnabled: sess.FaceHighlightingEnabled,
		}
	}
	return s.defaults
}

func (s *streamService) GetStatus(ctx context.Context, id domain.UserID) (domain.StreamStatus, error) {
	sess, ok := s.sessions.Get(ctx, id)
	if !ok {
		return domain.StreamStatus{}, domain.ErrNoActiveSession
	}
	return sess.Status, nil
}

// failSession records an external failure on the session, if it still exists.
func (s *streamService) failSession(ctx context.Context, id domain.UserID, cause error) {
	s.sessions.Mutate(ctx, id, func(st *domain.SessionState) {
		st.Status = domain.StreamStatus{
			State:        domain.StatusError,
			ErrorDetails: cause.Error(),
			Timestamp:    time.Now(),
		}
	})
}

func asTransportError(op string, err error) error {
	var terr *domain.TransportError
	if errors.As(err, &terr) {
		return err
	}
	return &domain.TransportError{Op: op, Detail: err.Error(), Err: err}
}
