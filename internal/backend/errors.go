package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ServerError means the backend answered with a non-2xx status.
type ServerError struct {
	StatusCode int
	// Detail is the server-provided explanation; non-string details are JSON-encoded.
	Detail string
}

func (e *ServerError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Detail)
}

// TransportError means no response reached the client.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "backend unreachable: " + e.Err.Error() }

func (e *TransportError) Unwrap() error { return e.Err }

// RequestError means the request could not be built or sent from the client side.
type RequestError struct {
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// errorDetail extracts a human-readable message from an error body.
// FastAPI puts it under "detail"; some routes use "error" or "message".
func errorDetail(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, key := range []string{"detail", "error", "message"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s = strings.TrimSpace(s); s != "" {
				return s
			}
			continue
		}
		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err == nil && compact.String() != "null" {
			return compact.String()
		}
	}
	return ""
}
