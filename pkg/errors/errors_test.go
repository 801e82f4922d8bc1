package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			appErr:   &AppError{Code: CodeNotFound, Message: "booking not found"},
			expected: "NOT_FOUND: booking not found",
		},
		{
			name: "with underlying error",
			appErr: &AppError{
				Code:    CodeInternal,
				Message: "internal error",
				Err:     errors.New("database connection failed"),
			},
			expected: "INTERNAL_ERROR: internal error (caused by: database connection failed)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appErr.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	originalErr := errors.New("original error")
	appErr := Wrap(originalErr, CodeInternal, "wrapped", http.StatusInternalServerError)

	if !errors.Is(appErr, originalErr) {
		t.Errorf("errors.Is should find the wrapped error")
	}
}

func TestAppError_StatusCodeDefaultsToInternal(t *testing.T) {
	err := &AppError{Code: CodeInternal}
	if err.StatusCode() != http.StatusInternalServerError {
		t.Errorf("StatusCode() = %d, want %d", err.StatusCode(), http.StatusInternalServerError)
	}
}

func TestTaxonomy(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"invalid input", InvalidInput("bad time"), CodeInvalidInput, http.StatusBadRequest},
		{"validation", Validation("bad body", nil), CodeValidation, http.StatusUnprocessableEntity},
		{"not found", NotFound("Venue"), CodeNotFound, http.StatusNotFound},
		{"unavailable", Unavailable("slot taken", "10:30"), CodeUnavailable, http.StatusConflict},
		{"conflict", Conflict("lost race"), CodeConflict, http.StatusConflict},
		{"forbidden", Forbidden("not yours"), CodeForbidden, http.StatusForbidden},
		{"unauthorized", Unauthorized("login"), CodeUnauthorized, http.StatusUnauthorized},
		{"payment rejected", PaymentRejected("bad signature"), CodePaymentRejected, http.StatusPaymentRequired},
		{"invalid state", InvalidState("already cancelled", "cancelled"), CodeInvalidState, http.StatusConflict},
		{"internal", Internal("boom", errors.New("x")), CodeInternal, http.StatusInternalServerError},
		{"timeout", Timeout("slow"), CodeTimeout, http.StatusGatewayTimeout},
		{"service unavailable", ServiceUnavailable("Payment gateway"), CodeServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
			if tt.err.StatusCode() != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.StatusCode())
			}
		})
	}
}

func TestUnavailable_CarriesSlotTime(t *testing.T) {
	err := Unavailable("Time range not available", "14:00")
	if err.Details["time"] != "14:00" {
		t.Errorf("expected time detail 14:00, got %v", err.Details["time"])
	}

	err = Unavailable("Venue is not available for booking", "")
	if err.Details != nil {
		t.Errorf("expected no details for venue-level unavailability, got %v", err.Details)
	}
}

func TestInvalidState_CarriesStatus(t *testing.T) {
	err := InvalidState("Cannot cancel completed booking", "completed")
	if err.Details["status"] != "completed" {
		t.Errorf("expected status detail, got %v", err.Details)
	}
}

func TestNotFoundWithID(t *testing.T) {
	err := NotFoundWithID("Booking", "12345")

	if err.Details["id"] != "12345" {
		t.Errorf("expected id '12345', got %v", err.Details["id"])
	}
	if err.Details["resource"] != "Booking" {
		t.Errorf("expected resource 'Booking', got %v", err.Details["resource"])
	}
}

func TestAsAppError(t *testing.T) {
	appErr := NotFound("Booking")
	if AsAppError(appErr) != appErr {
		t.Errorf("AsAppError() should return same AppError")
	}

	wrapped := fmt.Errorf("context: %w", appErr)
	if AsAppError(wrapped) != appErr {
		t.Errorf("AsAppError() should unwrap to the AppError")
	}

	regularErr := errors.New("regular error")
	result := AsAppError(regularErr)
	if result.Code != CodeInternal {
		t.Errorf("AsAppError() should wrap regular error as internal error")
	}
	if result.Err != regularErr {
		t.Errorf("AsAppError() should wrap the original error")
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("claim: %w", Conflict("taken"))
	if !HasCode(err, CodeConflict) {
		t.Errorf("HasCode() should match wrapped conflict")
	}
	if HasCode(err, CodeNotFound) {
		t.Errorf("HasCode() should not match a different code")
	}
	if HasCode(errors.New("plain"), CodeConflict) {
		t.Errorf("HasCode() should not match plain errors")
	}
}

func TestAppError_ToJSON(t *testing.T) {
	var decoded ErrorResponse
	if err := json.Unmarshal(Unavailable("taken", "10:00").ToJSON(), &decoded); err != nil {
		t.Fatalf("ToJSON() produced invalid JSON: %v", err)
	}
	if decoded.Code != CodeUnavailable {
		t.Errorf("expected code %s, got %s", CodeUnavailable, decoded.Code)
	}
	if decoded.Details["time"] != "10:00" {
		t.Errorf("expected time detail, got %v", decoded.Details)
	}
}
