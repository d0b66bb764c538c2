package actions

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
)

// ErrUnknownAction marks an invocation of an action that is not in the catalog.
var ErrUnknownAction = errors.New("unknown action")

// ValidationError reports an invocation that was rejected before being
// applied: unknown action name or malformed parameters.
type ValidationError struct {
	Action string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if errors.Is(e.Err, ErrUnknownAction) {
		return fmt.Sprintf("unknown action %q", e.Action)
	}
	return fmt.Sprintf("invalid parameters for %s: %s", e.Action, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// UnknownAction returns the validation error for an unregistered name.
func UnknownAction(name string) *ValidationError {
	return &ValidationError{Action: name, Reason: "not registered", Err: ErrUnknownAction}
}

// SpawnSquareParams are the parameters of spawn_square.
type SpawnSquareParams struct {
	X   int    `json:"x"`
	Y   int    `json:"y"`
	RGB [3]int `json:"rgb"`
}

// MoveSquareParams are the parameters of move_square.
type MoveSquareParams struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Normalize turns raw invocation parameters into a generic JSON value.
//
// Parameters arrive either as a nested object or as a string holding encoded
// JSON. Absent, null, and empty-string parameters become an empty object.
// Numbers are kept as json.Number so large integers are not rounded.
func Normalize(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("decode string parameters: %w", err)
		}
		encoded = strings.TrimSpace(encoded)
		if encoded == "" {
			return map[string]any{}, nil
		}
		raw = json.RawMessage(encoded)
	}

	value, err := decodeExact(raw)
	if err != nil {
		return nil, fmt.Errorf("parameters are not valid JSON: %w", err)
	}
	if _, ok := value.(map[string]any); !ok {
		return nil, fmt.Errorf("parameters must be a JSON object")
	}
	return value, nil
}

// Decode normalizes raw, validates it against the schema of action name, and
// decodes it into T. Every failure is a *ValidationError.
func Decode[T any](name string, raw json.RawMessage) (T, error) {
	var out T
	if _, ok := Lookup(name); !ok {
		return out, UnknownAction(name)
	}

	value, err := Normalize(raw)
	if err != nil {
		return out, &ValidationError{Action: name, Reason: err.Error(), Err: err}
	}
	if err := validate(name, value); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return out, verr
		}
		return out, &ValidationError{Action: name, Reason: err.Error(), Err: err}
	}

	// Re-encoding the validated value normalizes numbers such as 5.0 to 5.
	normalized, err := json.Marshal(integralNumbers(value))
	if err != nil {
		return out, &ValidationError{Action: name, Reason: err.Error(), Err: err}
	}
	if err := json.Unmarshal(normalized, &out); err != nil {
		return out, &ValidationError{Action: name, Reason: err.Error(), Err: err}
	}
	return out, nil
}

// decodeExact parses a single JSON value, keeping numbers as json.Number.
func decodeExact(raw []byte) (any, error) {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()
	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if _, err := decoder.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after the JSON value")
	}
	return value, nil
}

// integralNumbers rewrites integral numbers such as 5.0 or 1e2 that fit in an
// int64 to plain integer text so they decode into int fields. Other numbers
// keep their exact text and fail to decode into int fields.
func integralNumbers(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = integralNumbers(item)
		}
	case []any:
		for i, item := range v {
			v[i] = integralNumbers(item)
		}
	case json.Number:
		if _, err := v.Int64(); err == nil {
			return v
		}
		f, _, err := big.ParseFloat(v.String(), 10, 128, big.ToNearestEven)
		if err != nil || !f.IsInt() {
			return v
		}
		if n, acc := f.Int64(); acc == big.Exact {
			return json.Number(strconv.FormatInt(n, 10))
		}
	}
	return value
}
