// Package neurotest provides an in-process Neuro API server for tests and
// connectivity probes.
package neurotest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/haasonsaas/neurodraws/internal/neuro"
)

// Server accepts game connections the way the Neuro API does.
type Server struct {
	httpServer *httptest.Server
	upgrader   websocket.Upgrader
	conns      chan *Conn
}

// NewServer starts a server on a loopback port.
func NewServer() *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(chan *Conn, 8),
	}
	s.httpServer = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// URL returns the ws:// address of the server.
func (s *Server) URL() string {
	return "ws" + strings.TrimPrefix(s.httpServer.URL, "http") + "/"
}

// Close shuts the server down.
func (s *Server) Close() {
	s.httpServer.CloseClientConnections()
	s.httpServer.Close()
}

// Accept waits for the next game connection.
func (s *Server) Accept(ctx context.Context) (*Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case conn := <-s.conns:
		return conn, nil
	}
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	s.conns <- &Conn{ws: ws}
}

// Conn is the server side of one game connection.
type Conn struct {
	ws *websocket.Conn
}

// Send writes a message to the game.
func (c *Conn) Send(msg neuro.Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.SendRaw(data)
}

// SendRaw writes a raw text frame to the game.
func (c *Conn) SendRaw(data []byte) error {
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// SendAction sends an action invocation. params may be nil, a json.RawMessage,
// or any value that is marshalled as the data field.
func (c *Conn) SendAction(id, name string, params any) error {
	payload := map[string]any{"id": id, "name": name}
	if params != nil {
		payload["data"] = params
	}
	msg, err := neuro.NewMessage(neuro.CommandAction, "", payload)
	if err != nil {
		return err
	}
	return c.Send(msg)
}

// Receive reads the next message from the game, waiting at most timeout.
func (c *Conn) Receive(timeout time.Duration) (neuro.Message, error) {
	if err := c.ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return neuro.Message{}, err
	}
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return neuro.Message{}, err
	}
	return neuro.DecodeMessage(data)
}

// ReceiveResult reads the next message and decodes it as an action result.
func (c *Conn) ReceiveResult(timeout time.Duration) (neuro.ResultData, error) {
	msg, err := c.Receive(timeout)
	if err != nil {
		return neuro.ResultData{}, err
	}
	if msg.Command != neuro.CommandActionResult {
		return neuro.ResultData{}, fmt.Errorf("expected %s, got %s", neuro.CommandActionResult, msg.Command)
	}
	var result neuro.ResultData
	if err := json.Unmarshal(msg.Data, &result); err != nil {
		return neuro.ResultData{}, err
	}
	return result, nil
}

// Close drops the connection without a close handshake.
func (c *Conn) Close() error {
	return c.ws.Close()
}
