// Package neuro implements the Neuro game SDK wire protocol: JSON messages
// exchanged with the Neuro API over a websocket.
package neuro

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Commands understood or emitted by the game.
const (
	CommandStartup       = "startup"
	CommandRegister      = "actions/register"
	CommandUnregister    = "actions/unregister"
	CommandReregisterAll = "actions/reregister_all"
	CommandAction        = "action"
	CommandActionResult  = "action/result"
)

// ErrMalformedMessage marks a frame that cannot be interpreted at the
// envelope level.
var ErrMalformedMessage = errors.New("neuro: malformed message")

// Message is the top-level envelope of every frame.
type Message struct {
	Command string          `json:"command"`
	Game    string          `json:"game,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ActionDefinition describes one action in a registration.
type ActionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Schema      json.RawMessage `json:"schema"`
}

// RegisterData is the payload of actions/register.
type RegisterData struct {
	Actions []ActionDefinition `json:"actions"`
}

// UnregisterData is the payload of actions/unregister.
type UnregisterData struct {
	ActionNames []string `json:"action_names"`
}

// ActionData is the payload of an inbound action invocation. Data holds the
// raw parameters, which may be an object or a string containing JSON.
type ActionData struct {
	// ID is the id as text, for logs and tracing.
	ID string `json:"-"`
	// RawID is the id exactly as the agent sent it.
	RawID json.RawMessage `json:"-"`
	Name  string          `json:"name"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ResultData is the payload of action/result. When RawID is set it is
// written verbatim, so a numeric id goes back as a number; otherwise ID is
// written as a string.
type ResultData struct {
	ID      string
	RawID   json.RawMessage
	Success bool
	Message string
}

type resultWire struct {
	ID      json.RawMessage `json:"id"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
}

func (r ResultData) MarshalJSON() ([]byte, error) {
	id := r.RawID
	if len(bytes.TrimSpace(id)) == 0 {
		encoded, err := json.Marshal(r.ID)
		if err != nil {
			return nil, err
		}
		id = encoded
	}
	return json.Marshal(resultWire{ID: id, Success: r.Success, Message: r.Message})
}

func (r *ResultData) UnmarshalJSON(data []byte) error {
	var wire resultWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	id, err := decodeID(wire.ID)
	if err != nil {
		return err
	}
	*r = ResultData{ID: id, RawID: wire.ID, Success: wire.Success, Message: wire.Message}
	return nil
}

// NewMessage builds an envelope, encoding data when it is non-nil.
func NewMessage(command, game string, data any) (Message, error) {
	msg := Message{Command: command, Game: game}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s data: %w", command, err)
	}
	msg.Data = raw
	return msg, nil
}

// DecodeMessage parses a raw frame.
func DecodeMessage(raw []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if msg.Command == "" {
		return Message{}, fmt.Errorf("%w: missing command", ErrMalformedMessage)
	}
	return msg, nil
}

// DecodeAction extracts the invocation from an action message. The id is
// required and may be a string or a number; a missing name is left to the
// dispatcher to reject.
func DecodeAction(msg Message) (ActionData, error) {
	if msg.Command != CommandAction {
		return ActionData{}, fmt.Errorf("%w: expected %q, got %q", ErrMalformedMessage, CommandAction, msg.Command)
	}
	if len(bytes.TrimSpace(msg.Data)) == 0 {
		return ActionData{}, fmt.Errorf("%w: action without data", ErrMalformedMessage)
	}

	var payload struct {
		ID json.RawMessage `json:"id"`
		ActionData
	}
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return ActionData{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	id, err := decodeID(payload.ID)
	if err != nil {
		return ActionData{}, err
	}
	action := payload.ActionData
	action.ID = id
	action.RawID = bytes.TrimSpace(payload.ID)
	return action, nil
}

func decodeID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", fmt.Errorf("%w: action without id", ErrMalformedMessage)
	}
	if raw[0] == '"' {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			return "", fmt.Errorf("%w: invalid id: %v", ErrMalformedMessage, err)
		}
		return id, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: id must be a string or number", ErrMalformedMessage)
	}
	return n.String(), nil
}
