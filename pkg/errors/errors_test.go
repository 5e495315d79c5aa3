package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "insufficient role", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "concurrent modification, re-read and retry", retryable: true, detailsOK: true},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "transition not allowed from current status", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("row locked")
	wrapped := Wrap(CodeConflict, cause, "update invoice status")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("expected wrapped error to match cause")
	}
	if As(wrapped).Code() != CodeConflict {
		t.Fatalf("expected conflict code, got %s", As(wrapped).Code())
	}
}

func TestAsOnPlainError(t *testing.T) {
	if As(stdErrors.New("plain")) != nil {
		t.Fatalf("plain errors should not convert")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeStateConflict, "approve not allowed").WithDetails(map[string]any{
		"invoice_id": "abc",
		"status":     "approved",
	})
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details")
	}
	if details["status"] != "approved" {
		t.Fatalf("unexpected details: %v", details)
	}
}
