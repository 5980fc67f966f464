package domain

import (
	"errors"
	"fmt"
)

// ConfigurationError reports a required setting that is missing. It is
// fatal for the request that needs the setting.
type ConfigurationError struct {
	Name string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not set", e.Name)
}

// UpstreamError reports a non-2xx or unparseable response from an
// upstream API. Body holds the raw response text and must only be logged.
type UpstreamError struct {
	Upstream   string
	Stage      string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		if e.StatusCode != 0 {
			return fmt.Sprintf("%s %s: HTTP %d: %v, Description: %s", e.Upstream, e.Stage, e.StatusCode, e.Err, e.Body)
		}
		return fmt.Sprintf("%s %s: %v", e.Upstream, e.Stage, e.Err)
	}
	return fmt.Sprintf("HTTP error! Status: %d, Description: %s", e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// SessionError reports a failure while resolving a caller's identity. An
// absent token is not a SessionError.
type SessionError struct {
	Stage string
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Stage, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// ErrMissingToken is returned when a scoped view is requested without a
// session token.
var ErrMissingToken = errors.New("session token missing")

// UserMessage reduces err to a message that is safe to show on a page.
// Upstream bodies and internal details are never included.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var cfgErr *ConfigurationError
	if errors.As(err, &cfgErr) {
		return cfgErr.Error()
	}
	if errors.Is(err, ErrMissingToken) {
		return "Open this page from the client portal to see your tasks."
	}
	var sessErr *SessionError
	if errors.As(err, &sessErr) {
		return "Couldn't verify your session."
	}
	return "Couldn't fetch tasks."
}
