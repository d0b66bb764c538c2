package neuro

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecodeMessage(t *testing.T) {
	msg, err := DecodeMessage([]byte(`{"command":"actions/reregister_all"}`))
	if err != nil {
		t.Fatalf("DecodeMessage() error = %v", err)
	}
	if msg.Command != CommandReregisterAll {
		t.Fatalf("expected reregister command, got %q", msg.Command)
	}

	for _, raw := range []string{`not json`, `{"game":"x"}`, `[]`} {
		if _, err := DecodeMessage([]byte(raw)); !errors.Is(err, ErrMalformedMessage) {
			t.Errorf("DecodeMessage(%s) error = %v, want ErrMalformedMessage", raw, err)
		}
	}
}

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantID   string
		wantRaw  string
		wantName string
		wantData string
		wantErr  bool
	}{
		{
			name:     "object params",
			data:     `{"id":"abc","name":"move_square","data":{"x":1,"y":2}}`,
			wantID:   "abc",
			wantRaw:  `"abc"`,
			wantName: "move_square",
			wantData: `{"x":1,"y":2}`,
		},
		{
			name:     "string params",
			data:     `{"id":"abc","name":"move_square","data":"{\"x\":1,\"y\":2}"}`,
			wantID:   "abc",
			wantRaw:  `"abc"`,
			wantName: "move_square",
			wantData: `"{\"x\":1,\"y\":2}"`,
		},
		{
			name:     "numeric id",
			data:     `{"id":42,"name":"place"}`,
			wantID:   "42",
			wantRaw:  `42`,
			wantName: "place",
		},
		{
			name:    "missing name",
			data:    `{"id":"n1"}`,
			wantID:  "n1",
			wantRaw: `"n1"`,
		},
		{
			name:    "missing id",
			data:    `{"name":"place"}`,
			wantErr: true,
		},
		{
			name:    "boolean id",
			data:    `{"id":true,"name":"place"}`,
			wantErr: true,
		},
		{
			name:    "data not an object",
			data:    `"place"`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			action, err := DecodeAction(Message{Command: CommandAction, Data: json.RawMessage(tt.data)})
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedMessage) {
					t.Fatalf("expected ErrMalformedMessage, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAction() error = %v", err)
			}
			if action.ID != tt.wantID || action.Name != tt.wantName {
				t.Fatalf("got id=%q name=%q", action.ID, action.Name)
			}
			if string(action.RawID) != tt.wantRaw {
				t.Fatalf("got raw id %s, want %s", action.RawID, tt.wantRaw)
			}
			if string(action.Data) != tt.wantData {
				t.Fatalf("got data %s, want %s", action.Data, tt.wantData)
			}
		})
	}
}

func TestDecodeActionRequiresData(t *testing.T) {
	if _, err := DecodeAction(Message{Command: CommandAction}); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage, got %v", err)
	}
	if _, err := DecodeAction(Message{Command: CommandStartup, Data: json.RawMessage(`{}`)}); !errors.Is(err, ErrMalformedMessage) {
		t.Fatalf("expected ErrMalformedMessage for wrong command, got %v", err)
	}
}

func TestNewMessageEncodesResult(t *testing.T) {
	msg, err := NewMessage(CommandActionResult, "NeuroDraws", ResultData{ID: "1", Success: false, Message: "bad"})
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"command":"action/result","game":"NeuroDraws","data":{"id":"1","success":false,"message":"bad"}}`
	if string(raw) != want {
		t.Fatalf("got %s\nwant %s", raw, want)
	}
}

func TestResultDataEchoesRawID(t *testing.T) {
	tests := []struct {
		name   string
		result ResultData
		want   string
	}{
		{
			name:   "numeric id",
			result: ResultData{ID: "42", RawID: json.RawMessage(`42`), Success: true, Message: "ok"},
			want:   `{"id":42,"success":true,"message":"ok"}`,
		},
		{
			name:   "string id",
			result: ResultData{ID: "a", RawID: json.RawMessage(`"a"`), Message: "bad"},
			want:   `{"id":"a","success":false,"message":"bad"}`,
		},
		{
			name:   "text id only",
			result: ResultData{ID: "7"},
			want:   `{"id":"7","success":false,"message":""}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			if string(raw) != tt.want {
				t.Fatalf("got %s\nwant %s", raw, tt.want)
			}

			var decoded ResultData
			if err := json.Unmarshal(raw, &decoded); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if decoded.ID != tt.result.ID || decoded.Success != tt.result.Success || decoded.Message != tt.result.Message {
				t.Fatalf("decoded %+v, want %+v", decoded, tt.result)
			}
		})
	}
}

func TestNewMessageWithoutData(t *testing.T) {
	msg, err := NewMessage(CommandStartup, "NeuroDraws", nil)
	if err != nil {
		t.Fatalf("NewMessage() error = %v", err)
	}
	raw, _ := json.Marshal(msg)
	if string(raw) != `{"command":"startup","game":"NeuroDraws"}` {
		t.Fatalf("unexpected encoding %s", raw)
	}
}

func TestChannelErrorUnwrap(t *testing.T) {
	err := error(&ChannelError{Op: "receive", Err: ErrClosed})
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ChannelError to unwrap to ErrClosed")
	}
	var chErr *ChannelError
	if !errors.As(err, &chErr) || chErr.Op != "receive" {
		t.Fatalf("expected errors.As to find ChannelError")
	}
}
