package apperr

import (
	"errors"
	"net/http"
	"testing"
)

func TestCodeAndStatus(t *testing.T) {
	tests := []struct {
		name       string
		err        *Error
		wantCode   string
		wantStatus int
	}{
		{"validation", Validation("bad input"), "validation_error", http.StatusBadRequest},
		{"authorization", Authorization("nope"), "authorization_error", http.StatusForbidden},
		{"invalid transition", InvalidTransition("cannot", "ready", "approve"), "invalid_transition", http.StatusConflict},
		{"precondition", PreconditionNotMet("not completed"), "precondition_not_met", http.StatusConflict},
		{"session conflict", SessionConflict("already running"), "session_conflict", http.StatusConflict},
		{"not found", NotFound("missing"), "not_found", http.StatusNotFound},
		{"infrastructure", Infrastructure("db down", errors.New("conn refused")), "infrastructure_error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Code(); got != tt.wantCode {
				t.Errorf("Code() = %q, want %q", got, tt.wantCode)
			}
			if got := tt.err.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestInvalidTransitionCarriesContext(t *testing.T) {
	err := InvalidTransition("cannot approve", "in_progress", "approve")
	if err.Current != "in_progress" {
		t.Errorf("Current = %q, want %q", err.Current, "in_progress")
	}
	if err.Requested != "approve" {
		t.Errorf("Requested = %q, want %q", err.Requested, "approve")
	}
}

func TestFromWrapsUnknownErrors(t *testing.T) {
	plain := errors.New("boom")
	ae := From(plain)
	if ae.Kind != KindInfrastructure {
		t.Errorf("Kind = %v, want KindInfrastructure", ae.Kind)
	}
	if !errors.Is(ae, plain) {
		t.Error("wrapped error should unwrap to the original")
	}
}

func TestFromPreservesAppErrors(t *testing.T) {
	orig := NotFound("phase not found")
	ae := From(orig)
	if ae != orig {
		t.Error("From should return the original *Error unchanged")
	}
}

func TestIsKind(t *testing.T) {
	err := SessionConflict("busy")
	if !IsKind(err, KindSessionConflict) {
		t.Error("IsKind should match the error's kind")
	}
	if IsKind(err, KindValidation) {
		t.Error("IsKind should not match a different kind")
	}
	if IsKind(errors.New("plain"), KindValidation) {
		t.Error("IsKind should be false for non-app errors")
	}
}
