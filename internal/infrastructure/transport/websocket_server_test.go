package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"facestream/internal/core/domain"
	"facestream/internal/core/ports"
	"facestream/internal/core/services"
	"facestream/internal/infrastructure/repositories/memory"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type countingMetrics struct {
	mu             sync.Mutex
	connected      int
	disconnected   int
	streamsStopped int
}

func (m *countingMetrics) SessionConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected++
}

func (m *countingMetrics) SessionDisconnected() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnected++
}

func (m *countingMetrics) StreamStopped() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streamsStopped++
}

func (m *countingMetrics) snapshot() (int, int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected, m.disconnected, m.streamsStopped
}

type transportFixture struct {
	server   *httptest.Server
	sessions ports.SessionRegistry
	settings ports.SettingsStore
	metrics  *countingMetrics
}

func newTransportFixture(t *testing.T, authToken string) *transportFixture {
	t.Helper()

	defaults := domain.PersistentSettings{
		RTMPURL:                 "rtmp://default/live/stream",
		StreamMode:              domain.ModeHLS,
		FaceHighlightingEnabled: true,
	}
	sessions := memory.NewSessionRegistry()
	settings := memory.NewSettingsStore(defaults)
	reconciler := services.NewStatusService(sessions, nil, zap.NewNop().Sugar())
	metrics := &countingMetrics{}

	ws := NewWebSocketServer(sessions, settings, reconciler, Options{
		PingInterval: 50 * time.Millisecond,
		PongTimeout:  2 * time.Second,
		WriteTimeout: time.Second,
		AuthToken:    authToken,
	}, metrics, zap.NewNop().Sugar())

	srv := httptest.NewServer(http.HandlerFunc(ws.HandleDeviceSession))
	t.Cleanup(srv.Close)

	return &transportFixture{server: srv, sessions: sessions, settings: settings, metrics: metrics}
}

func (f *transportFixture) dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (f *transportFixture) waitForSession(t *testing.T, id domain.UserID) domain.SessionState {
	t.Helper()
	var sess domain.SessionState
	require.Eventually(t, func() bool {
		var ok bool
		sess, ok = f.sessions.Get(context.Background(), id)
		return ok
	}, time.Second, 10*time.Millisecond)
	return sess
}

func TestHandleDeviceSession_CreatesSeededSession(t *testing.T) {
	f := newTransportFixture(t, "")

	url := "rtmp://saved/live/key"
	f.settings.Merge(context.Background(), "alice", domain.SettingsPatch{RTMPURL: &url})

	f.dial(t, "user_id=alice")

	sess := f.waitForSession(t, "alice")
	assert.Equal(t, url, sess.RTMPURL)
	assert.Equal(t, domain.StatusStopped, sess.Status.State)
	assert.NotNil(t, sess.Channel)
}

func TestHandleDeviceSession_RejectsMissingUserID(t *testing.T) {
	f := newTransportFixture(t, "")

	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleDeviceSession_RejectsBadToken(t *testing.T) {
	f := newTransportFixture(t, "secret-token")

	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "?user_id=alice&token=wrong"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)

	assert.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	f.dial(t, "user_id=alice&token=secret-token")
	f.waitForSession(t, "alice")
}

func TestHandleDeviceSession_StatusEventUpdatesSession(t *testing.T) {
	f := newTransportFixture(t, "")
	conn := f.dial(t, "user_id=alice")
	f.waitForSession(t, "alice")

	err := conn.WriteJSON(map[string]interface{}{
		"type":    "status",
		"payload": map[string]interface{}{"status": "active"},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		sess, ok := f.sessions.Get(context.Background(), "alice")
		return ok && sess.Status.State == domain.StatusActive
	}, time.Second, 10*time.Millisecond)
}

func TestHandleDeviceSession_DisconnectRemovesSession(t *testing.T) {
	f := newTransportFixture(t, "")
	conn := f.dial(t, "user_id=alice")
	f.waitForSession(t, "alice")

	conn.Close()

	require.Eventually(t, func() bool {
		_, ok := f.sessions.Get(context.Background(), "alice")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestHandleDeviceSession_ReconnectReplacesChannel(t *testing.T) {
	f := newTransportFixture(t, "")

	f.dial(t, "user_id=alice")
	first := f.waitForSession(t, "alice")

	f.dial(t, "user_id=alice")
	require.Eventually(t, func() bool {
		sess, ok := f.sessions.Get(context.Background(), "alice")
		return ok && sess.Channel != first.Channel
	}, time.Second, 10*time.Millisecond)
}

func TestHandleDeviceSession_ActiveDisconnectSettlesStreamGauge(t *testing.T) {
	f := newTransportFixture(t, "")
	conn := f.dial(t, "user_id=alice")
	f.waitForSession(t, "alice")

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":    "status",
		"payload": map[string]interface{}{"status": "active"},
	}))
	require.Eventually(t, func() bool {
		sess, ok := f.sessions.Get(context.Background(), "alice")
		return ok && sess.Status.State == domain.StatusActive
	}, time.Second, 10*time.Millisecond)

	conn.Close()

	require.Eventually(t, func() bool {
		_, disconnected, streamsStopped := f.metrics.snapshot()
		return disconnected == 1 && streamsStopped == 1
	}, time.Second, 10*time.Millisecond)
}

func TestHandleDeviceSession_IdleDisconnectLeavesStreamGauge(t *testing.T) {
	f := newTransportFixture(t, "")
	conn := f.dial(t, "user_id=alice")
	f.waitForSession(t, "alice")

	conn.Close()

	require.Eventually(t, func() bool {
		_, disconnected, _ := f.metrics.snapshot()
		return disconnected == 1
	}, time.Second, 10*time.Millisecond)

	_, _, streamsStopped := f.metrics.snapshot()
	assert.Zero(t, streamsStopped)
}

func TestDeviceChannel_CommandAcked(t *testing.T) {
	f := newTransportFixture(t, "")
	conn := f.dial(t, "user_id=alice")
	sess := f.waitForSession(t, "alice")

	// Device side: ack the first command that arrives.
	go func() {
		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["type"] == "start_stream" {
				conn.WriteJSON(map[string]interface{}{
					"type":       "ack",
					"request_id": msg["request_id"],
				})
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := sess.Channel.RequestStream(ctx, domain.DefaultStreamConfig("rtmp://host/live/key"))
	assert.NoError(t, err)
}

func TestDeviceChannel_CommandRejected(t *testing.T) {
	f := newTransportFixture(t, "")
	conn := f.dial(t, "user_id=alice")
	sess := f.waitForSession(t, "alice")

	go func() {
		for {
			var msg map[string]interface{}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg["type"] == "stop_stream" {
				payload, _ := json.Marshal(map[string]string{"message": "not streaming"})
				conn.WriteJSON(map[string]interface{}{
					"type":       "error",
					"request_id": msg["request_id"],
					"payload":    json.RawMessage(payload),
				})
				return
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := sess.Channel.StopStream(ctx)
	var terr *domain.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Contains(t, terr.Detail, "not streaming")
}

func TestDeviceChannel_CommandCancelled(t *testing.T) {
	f := newTransportFixture(t, "")
	f.dial(t, "user_id=alice")
	sess := f.waitForSession(t, "alice")

	// Device never acks.
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := sess.Channel.RequestStream(ctx, domain.DefaultStreamConfig("rtmp://host/live/key"))
	var terr *domain.TransportError
	require.ErrorAs(t, err, &terr)
	assert.ErrorIs(t, terr.Err, context.DeadlineExceeded)
}

func TestDeviceChannel_SendDisplayText(t *testing.T) {
	f := newTransportFixture(t, "")
	conn := f.dial(t, "user_id=alice")
	sess := f.waitForSession(t, "alice")

	err := sess.Channel.SendDisplayText(context.Background(), "Starting stream...")
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(time.Second))
	for {
		var msg struct {
			Type    string `json:"type"`
			Payload struct {
				Text string `json:"text"`
			} `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == "display_text" {
			assert.Equal(t, "Starting stream...", msg.Payload.Text)
			return
		}
	}
}
