package neuro

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haasonsaas/neurodraws/internal/backoff"
)

const (
	wsMaxPayloadBytes = 1 << 20
	wsWriteWait       = 10 * time.Second
	wsCloseWait       = time.Second
)

// DialConfig configures the websocket connection to the Neuro API.
type DialConfig struct {
	URL              string
	HandshakeTimeout time.Duration
	// Attempts bounds the initial dial. Once connected, a lost connection is
	// never re-dialled.
	Attempts int
	Backoff  backoff.Policy
}

// WebSocketChannel is a Channel over a gorilla websocket connection. A reader
// goroutine feeds Receive and a writer goroutine serializes Send.
type WebSocketChannel struct {
	conn   *websocket.Conn
	logger *slog.Logger

	send     chan outboundFrame
	incoming chan []byte
	readErr  error

	closeOnce sync.Once
	closed    chan struct{}
}

type outboundFrame struct {
	data   []byte
	result chan error
}

// Dial connects to the Neuro API, retrying the handshake with backoff.
func Dial(ctx context.Context, cfg DialConfig, logger *slog.Logger) (*WebSocketChannel, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("neuro url is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "neuro")

	dialer := websocket.Dialer{
		HandshakeTimeout: cfg.HandshakeTimeout,
		ReadBufferSize:   8192,
		WriteBufferSize:  8192,
	}
	result, err := backoff.Retry(ctx, cfg.Backoff, cfg.Attempts, func(attempt int) (*websocket.Conn, error) {
		conn, _, err := dialer.DialContext(ctx, cfg.URL, nil)
		if err != nil {
			logger.Warn("neuro dial failed", "url", cfg.URL, "attempt", attempt, "error", err)
			return nil, err
		}
		return conn, nil
	})
	if err != nil {
		return nil, &ChannelError{Op: "dial", Err: err}
	}
	logger.Info("websocket connection established", "url", cfg.URL, "attempts", result.Attempts)
	return NewWebSocketChannel(result.Value, logger), nil
}

// NewWebSocketChannel wraps an established connection and starts its
// reader and writer goroutines.
func NewWebSocketChannel(conn *websocket.Conn, logger *slog.Logger) *WebSocketChannel {
	if logger == nil {
		logger = slog.Default()
	}
	c := &WebSocketChannel{
		conn:     conn,
		logger:   logger,
		send:     make(chan outboundFrame),
		incoming: make(chan []byte, 16),
		closed:   make(chan struct{}),
	}
	conn.SetReadLimit(wsMaxPayloadBytes)
	go c.readLoop()
	go c.writeLoop()
	return c
}

// Send encodes msg and writes it as a text frame.
func (c *WebSocketChannel) Send(ctx context.Context, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Command, err)
	}
	frame := outboundFrame{data: data, result: make(chan error, 1)}

	select {
	case <-c.closed:
		return &ChannelError{Op: "send", Err: ErrClosed}
	default:
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.closed:
		return &ChannelError{Op: "send", Err: ErrClosed}
	case c.send <- frame:
	}

	select {
	case err := <-frame.result:
		if err != nil {
			return &ChannelError{Op: "send", Err: err}
		}
		return nil
	case <-c.closed:
		return &ChannelError{Op: "send", Err: ErrClosed}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks until the next frame arrives. There is no read timeout.
func (c *WebSocketChannel) Receive(ctx context.Context) (Message, error) {
	select {
	case <-ctx.Done():
		return Message{}, ctx.Err()
	case data, ok := <-c.incoming:
		if !ok {
			err := c.readErr
			if err == nil {
				err = ErrClosed
			}
			return Message{}, &ChannelError{Op: "receive", Err: err}
		}
		msg, err := DecodeMessage(data)
		if err != nil {
			return Message{}, &ChannelError{Op: "decode", Err: err}
		}
		return msg, nil
	}
}

// Close sends a close frame and tears the connection down.
func (c *WebSocketChannel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		deadline := time.Now().Add(wsCloseWait)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline) //nolint:errcheck
		err = c.conn.Close()
	})
	return err
}

func (c *WebSocketChannel) readLoop() {
	defer close(c.incoming)
	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.closed:
				c.readErr = ErrClosed
			default:
				c.readErr = err
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}
		select {
		case c.incoming <- data:
		case <-c.closed:
			c.readErr = ErrClosed
			return
		}
	}
}

func (c *WebSocketChannel) writeLoop() {
	for {
		select {
		case <-c.closed:
			return
		case frame := <-c.send:
			select {
			case <-c.closed:
				frame.result <- ErrClosed
				return
			default:
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck
			frame.result <- c.conn.WriteMessage(websocket.TextMessage, frame.data)
		}
	}
}

var _ Channel = (*WebSocketChannel)(nil)
