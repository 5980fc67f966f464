package domain

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestConfigurationErrorMessage(t *testing.T) {
	err := &ConfigurationError{Name: "AIRTABLE_API_KEY"}
	if err.Error() != "AIRTABLE_API_KEY is not set" {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestUpstreamErrorCarriesStatusAndBody(t *testing.T) {
	err := &UpstreamError{Upstream: "airtable", Stage: "list", StatusCode: 403, Body: `{"error":"NOT_AUTHORIZED"}`}
	msg := err.Error()
	if !strings.Contains(msg, "403") || !strings.Contains(msg, "NOT_AUTHORIZED") {
		t.Errorf("expected status and body in %q", msg)
	}
}

func TestSessionErrorUnwrapsUpstream(t *testing.T) {
	up := &UpstreamError{Upstream: "copilot", Stage: "workspace", StatusCode: 401, Body: "nope"}
	err := fmt.Errorf("resolve: %w", &SessionError{Stage: "workspace", Err: up})

	var sessErr *SessionError
	if !errors.As(err, &sessErr) {
		t.Fatal("expected SessionError")
	}
	var got *UpstreamError
	if !errors.As(err, &got) || got.StatusCode != 401 {
		t.Fatalf("expected wrapped UpstreamError, got %v", got)
	}
}

func TestUserMessageNeverLeaksBody(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"config", &ConfigurationError{Name: "AIRTABLE_BASE_ID"}, "AIRTABLE_BASE_ID is not set"},
		{"upstream", &UpstreamError{StatusCode: 403, Body: "secret-body"}, "Couldn't fetch tasks."},
		{"session", &SessionError{Stage: "company", Err: errors.New("secret-body")}, "Couldn't verify your session."},
		{"missing token", fmt.Errorf("portal: %w", ErrMissingToken), "Open this page from the client portal to see your tasks."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
			if strings.Contains(got, "secret-body") {
				t.Errorf("message leaked upstream body: %q", got)
			}
		})
	}
}
