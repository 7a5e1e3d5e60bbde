package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"facestream/internal/core/domain"
	"facestream/internal/core/ports"
	"facestream/pkg/validation"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Should be configured properly for production
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// ConnectionMetrics is the slice of the monitoring collector the transport
// reports into. StreamStopped settles the active-streams gauge for devices
// that drop without reporting a final stopped status.
type ConnectionMetrics interface {
	SessionConnected()
	SessionDisconnected()
	StreamStopped()
}

type noopConnectionMetrics struct{}

func (noopConnectionMetrics) SessionConnected()    {}
func (noopConnectionMetrics) SessionDisconnected() {}
func (noopConnectionMetrics) StreamStopped()       {}

// Options configures websocket session handling.
type Options struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	WriteTimeout time.Duration

	// AuthToken, when non-empty, must be presented by the device in the
	// token query parameter.
	AuthToken string
}

// WebSocketServer owns the device side of the system: each connected device
// holds exactly one websocket, one session registry entry, and one
// deviceChannel wired into that entry.
type WebSocketServer struct {
	sessions   ports.SessionRegistry
	settings   ports.SettingsStore
	reconciler ports.StatusReconciler

	channels map[domain.UserID]*deviceChannel
	mu       sync.RWMutex

	opts    Options
	metrics ConnectionMetrics
	logger  *zap.SugaredLogger
}

func NewWebSocketServer(
	sessions ports.SessionRegistry,
	settings ports.SettingsStore,
	reconciler ports.StatusReconciler,
	opts Options,
	metrics ConnectionMetrics,
	logger *zap.SugaredLogger,
) *WebSocketServer {
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = 60 * time.Second
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 10 * time.Second
	}
	if metrics == nil {
		metrics = noopConnectionMetrics{}
	}
	return &WebSocketServer{
		sessions:   sessions,
		settings:   settings,
		reconciler: reconciler,
		channels:   make(map[domain.UserID]*deviceChannel),
		opts:       opts,
		metrics:    metrics,
		logger:     logger,
	}
}

func (s *WebSocketServer) HandleDeviceSession(w http.ResponseWriter, r *http.Request) {
	rawUserID := r.URL.Query().Get("user_id")
	if err := validation.ValidateUserID(rawUserID); err != nil {
		s.logger.Warnw("rejected device connection", "user_id", rawUserID, "error", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID := domain.UserID(rawUserID)

	if s.opts.AuthToken != "" && r.URL.Query().Get("token") != s.opts.AuthToken {
		s.logger.Warnw("device presented invalid token", "user_id", userID)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("websocket upgrade failed", "user_id", userID, "error", err)
		return
	}
	defer conn.Close()

	channel := newDeviceChannel(conn, s.opts.WriteTimeout, s.logger)

	// A reconnect replaces any previous connection for the same user; the
	// old socket is closed and its pending commands are failed.
	s.mu.Lock()
	old, isReconnect := s.channels[userID]
	if isReconnect && old != nil {
		old.fail(fmt.Errorf("replaced by a newer connection"))
		old.conn.Close()
		s.logger.Infow("closing old connection for reconnecting device", "user_id", userID)
	}
	s.channels[userID] = channel
	s.mu.Unlock()

	s.createSession(r.Context(), userID, channel)
	s.metrics.SessionConnected()
	s.logger.Infow("device connected", "user_id", userID, "reconnect", isReconnect)

	conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
		return nil
	})

	pingTicker := time.NewTicker(s.opts.PingInterval)
	defer pingTicker.Stop()

	messageChan := make(chan inboundMessage, 10)
	errorChan := make(chan error, 1)

	go func() {
		for {
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				errorChan <- err
				return
			}
			conn.SetReadDeadline(time.Now().Add(s.opts.PongTimeout))
			messageChan <- msg
		}
	}()

	var closeErr error
	for {
		select {
		case msg := <-messageChan:
			if err := s.handleMessage(context.Background(), userID, channel, msg); err != nil {
				s.logger.Infow("error handling device message", "user_id", userID, "error", err)
				s.sendError(channel, err.Error())
			}

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(s.opts.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Infow("error sending ping", "user_id", userID, "error", err)
				closeErr = err
				goto cleanup
			}

		case err := <-errorChan:
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Infow("error reading device message", "user_id", userID, "error", err)
			}
			closeErr = err
			goto cleanup
		}
	}

cleanup:
	if closeErr == nil {
		closeErr = fmt.Errorf("connection closed")
	}
	channel.fail(closeErr)

	// Only tear down the session if this connection is still the current one;
	// a reconnect may already have replaced it.
	s.mu.Lock()
	current := s.channels[userID] == channel
	if current {
		delete(s.channels, userID)
	}
	s.mu.Unlock()

	if current {
		// A device that drops while streaming never reports a final stopped
		// status, so the gauge is settled here.
		if sess, ok := s.sessions.Get(context.Background(), userID); ok && sess.Status.State == domain.StatusActive {
			s.metrics.StreamStopped()
		}
		s.sessions.Remove(context.Background(), userID)
		s.metrics.SessionDisconnected()
		s.logger.Infow("device disconnected", "user_id", userID)
	}
}

// createSession seeds the registry entry from the persistent settings record,
// falling back to process defaults for users never seen before.
func (s *WebSocketServer) createSession(ctx context.Context, userID domain.UserID, channel *deviceChannel) {
	// A reconnect can replace an entry that was still active; that stream is
	// gone, so the gauge is settled before the fresh stopped state goes in.
	if prev, ok := s.sessions.Get(ctx, userID); ok && prev.Status.State == domain.StatusActive {
		s.metrics.StreamStopped()
	}

	prefs, _ := s.settings.Get(ctx, userID)

	s.sessions.Create(ctx, &domain.SessionState{
		UserID:                  userID,
		RTMPURL:                 prefs.RTMPURL,
		StreamMode:              prefs.StreamMode,
		FaceHighlightingEnabled: prefs.FaceHighlightingEnabled,
		Status: domain.StreamStatus{
			State:     domain.StatusStopped,
			Timestamp: time.Now(),
		},
		Channel: channel,
	})
}

func (s *WebSocketServer) handleMessage(ctx context.Context, userID domain.UserID, channel *deviceChannel, msg inboundMessage) error {
	switch msg.Type {
	case "status":
		var event domain.StatusEvent
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			return fmt.Errorf("invalid status payload: %w", err)
		}
		if event.State == "" {
			return fmt.Errorf("status is required")
		}
		s.reconciler.HandleStatus(ctx, userID, event)
		return nil

	case "ack":
		if msg.RequestID == "" {
			return fmt.Errorf("ack requires request_id")
		}
		channel.resolve(msg.RequestID, nil)
		return nil

	case "error":
		if msg.RequestID == "" {
			return fmt.Errorf("error requires request_id")
		}
		var payload errorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("invalid error payload: %w", err)
		}
		channel.resolve(msg.RequestID, fmt.Errorf("device rejected command: %s", payload.Message))
		return nil

	default:
		return fmt.Errorf("unknown message type: %s", msg.Type)
	}
}

func (s *WebSocketServer) sendError(channel *deviceChannel, message string) {
	if err := channel.send(outboundMessage{Type: "error", Payload: errorPayload{Message: message}}); err != nil {
		s.logger.Debugw("failed to send error to device", "error", err)
	}
}

// ConnectedUsers returns the users with a live device connection.
func (s *WebSocketServer) ConnectedUsers() []domain.UserID {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserID, 0, len(s.channels))
	for userID := range s.channels {
		users = append(users, userID)
	}
	return users
}

func (s *WebSocketServer) IsConnected(userID domain.UserID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, exists := s.channels[userID]
	return exists
}
