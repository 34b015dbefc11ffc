package dust

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidResponse is returned when a successful upstream response
	// cannot be decoded into the expected shape.
	ErrInvalidResponse = errors.New("invalid response from agent platform")

	// ErrNoAgentResponse is returned when an event stream ends without any
	// answer text.
	ErrNoAgentResponse = errors.New("no response received from agent")

	// ErrFileIDMissing is returned when an upload response has no usable
	// file identifier.
	ErrFileIDMissing = errors.New("no file identifier in upload response")
)

// APIError is a non-2xx answer from the agent platform.
type APIError struct {
	StatusCode int
	Message    string
	// Body holds the response body when it was valid JSON.
	Body json.RawMessage
	Raw  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("dust api %d: %s", e.StatusCode, e.Message)
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{
		StatusCode: status,
		Message:    ErrorMessage(body),
		Raw:        string(body),
	}
	if trimmed := bytes.TrimSpace(body); json.Valid(trimmed) && len(trimmed) > 0 {
		e.Body = json.RawMessage(trimmed)
	}
	return e
}

// StreamError is a terminal error event read from an event stream.
type StreamError struct {
	Type    string
	Message string
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("agent stream %s: %s", e.Type, e.Message)
}

// ErrorMessage extracts a human readable message from an upstream error
// body, trying error.message, a string error, then message, and falling
// back to the raw text.
func ErrorMessage(body []byte) string {
	var parsed struct {
		Error   json.RawMessage `json:"error"`
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if msg := messageOf(parsed.Error); msg != "" {
			return msg
		}
		if msg := stringOf(parsed.Message); msg != "" {
			return msg
		}
	}
	return strings.TrimSpace(string(body))
}

// messageOf reads a message from either a bare string or an object with a
// string message field.
func messageOf(raw json.RawMessage) string {
	if s := stringOf(raw); s != "" {
		return s
	}
	var obj struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ""
	}
	return stringOf(obj.Message)
}

func stringOf(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}
