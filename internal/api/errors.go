package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotSignedIn is returned by authenticated calls when no token is stored.
var ErrNotSignedIn = errors.New("not signed in (run 'calmerge login')")

// Error is a non-2xx response from the backend.
type Error struct {
	Status    int
	Message   string
	Method    string
	Path      string
	RequestID string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// Recoverable reports whether the caller is expected to handle the failure
// itself (not found, validation) rather than the user being alerted.
func (e *Error) Recoverable() bool {
	return e.Status == http.StatusNotFound || e.Status == http.StatusUnprocessableEntity
}

// NotFound reports whether the resource did not exist.
func (e *Error) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// TransportError means no response was received: DNS, refused
// connections, TLS failures and timeouts all end up here.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ConfigError means the client cannot build a request at all.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "api configuration: " + e.Reason
}

// RejectedError is a 2xx response whose body reports failure, as the
// Apple connect and sync endpoints do.
type RejectedError struct {
	Op      string
	Message string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return e.Op + " was rejected by the server"
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// IsNotFound reports whether err is a 404 from the backend.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// Message returns the text to show a user for err: the backend's own
// message for HTTP failures, the error text otherwise.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}

// errorMessage extracts a displayable message from an error body. FastAPI
// style bodies carry "detail" as a string or a list of {msg} objects.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if msg := detailText(payload.Detail); msg != "" {
			return msg
		}
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return text
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return fmt.Sprintf("request failed with status %d", status)
}

func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
		Loc []any  `json:"loc"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		var msgs []string
		for _, item := range items {
			if item.Msg == "" {
				continue
			}
			if len(item.Loc) > 0 {
				msgs = append(msgs, fmt.Sprintf("%v: %s", item.Loc[len(item.Loc)-1], item.Msg))
			} else {
				msgs = append(msgs, item.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}

	return ""
}
