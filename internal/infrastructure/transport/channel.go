package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"facestream/internal/core/domain"
	"facestream/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type outboundMessage struct {
	Type      string      `json:"type"`
	RequestID string      `json:"request_id,omitempty"`
	Payload   interface{} `json:"payload,omitempty"`
}

type inboundMessage struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

type displayTextPayload struct {
	Text string `json:"text"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// deviceChannel is the send side of one websocket device session. Stream
// commands carry a request id and block until the device acknowledges or the
// caller's context is cancelled; no deadline of its own is applied.
type deviceChannel struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	logger       *zap.SugaredLogger

	writeMu sync.Mutex

	mu       sync.Mutex
	pending  map[string]chan error
	closed   bool
	closeErr error
}

func newDeviceChannel(conn *websocket.Conn, writeTimeout time.Duration, logger *zap.SugaredLogger) *deviceChannel {
	return &deviceChannel{
		conn:         conn,
		writeTimeout: writeTimeout,
		logger:       logger,
		pending:      make(map[string]chan error),
	}
}

func (c *deviceChannel) SendDisplayText(ctx context.Context, text string) error {
	if err := c.send(outboundMessage{Type: "display_text", Payload: displayTextPayload{Text: text}}); err != nil {
		return &domain.TransportError{Op: "display_text", Detail: err.Error(), Err: err}
	}
	return nil
}

func (c *deviceChannel) RequestStream(ctx context.Context, cfg domain.StreamConfig) error {
	return c.command(ctx, "start_stream", cfg)
}

func (c *deviceChannel) StopStream(ctx context.Context) error {
	return c.command(ctx, "stop_stream", nil)
}

func (c *deviceChannel) command(ctx context.Context, msgType string, payload interface{}) error {
	id := utils.NewRequestID()
	reply := make(chan error, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return &domain.TransportError{Op: msgType, Detail: "device channel closed", Err: c.closeErr}
	}
	c.pending[id] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.send(outboundMessage{Type: msgType, RequestID: id, Payload: payload}); err != nil {
		return &domain.TransportError{Op: msgType, Detail: err.Error(), Err: err}
	}

	select {
	case err := <-reply:
		if err != nil {
			return &domain.TransportError{Op: msgType, Detail: err.Error(), Err: err}
		}
		return nil
	case <-ctx.Done():
		return &domain.TransportError{Op: msgType, Detail: "command cancelled", Err: ctx.Err()}
	}
}

func (c *deviceChannel) send(msg outboundMessage) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(msg)
}

// resolve completes the pending command for a request id, if any.
func (c *deviceChannel) resolve(requestID string, err error) {
	c.mu.Lock()
	reply, exists := c.pending[requestID]
	c.mu.Unlock()

	if !exists {
		c.logger.Debugw("acknowledgement for unknown request", "request_id", requestID)
		return
	}
	select {
	case reply <- err:
	default:
	}
}

// fail marks the channel closed and completes every pending command with err.
func (c *deviceChannel) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.closeErr = err
	for id, reply := range c.pending {
		select {
		case reply <- err:
		default:
		}
		delete(c.pending, id)
	}
}
