package errors

import (
	"errors"
	"testing"
)

func TestNotFoundError_Creation(t *testing.T) {
	message := "order with tran_id AQ1-42 not found"
	err := NewNotFoundError(message)

	if err.Error() != message {
		t.Errorf("expected message %q, got %q", message, err.Error())
	}
}

func TestNotFoundError_IsNotFoundError(t *testing.T) {
	err := NewNotFoundError("not found")

	notFoundErr, ok := IsNotFoundError(err)
	if !ok {
		t.Errorf("expected IsNotFoundError to return true")
	}
	if notFoundErr == nil {
		t.Errorf("expected non-nil error")
	}
}

func TestNotFoundError_IsNotFoundError_WithOtherError(t *testing.T) {
	err := errors.New("plain error")

	notFoundErr, ok := IsNotFoundError(err)
	if ok {
		t.Errorf("expected IsNotFoundError to return false")
	}
	if notFoundErr != nil {
		t.Errorf("expected nil error")
	}
}

func TestValidationError_Details(t *testing.T) {
	err := NewValidationError("validation failed",
		ValidationDetail{Field: "addressId", Message: "addressId is required"},
	)

	ve, ok := IsValidationError(err)
	if !ok {
		t.Fatalf("expected IsValidationError to return true")
	}
	if len(ve.Details) != 1 {
		t.Fatalf("expected 1 detail, got %d", len(ve.Details))
	}
	if ve.Details[0].Field != "addressId" {
		t.Errorf("expected field addressId, got %q", ve.Details[0].Field)
	}
}

func TestRejectionError_Kind(t *testing.T) {
	err := NewRejectionError(KindPromo, "promo code usage limit reached")

	re, ok := IsRejectionError(err)
	if !ok {
		t.Fatalf("expected IsRejectionError to return true")
	}
	if re.Kind != KindPromo {
		t.Errorf("expected kind %q, got %q", KindPromo, re.Kind)
	}
	if re.Message != "promo code usage limit reached" {
		t.Errorf("unexpected message %q", re.Message)
	}
}

func TestRejectionError_NotRejection(t *testing.T) {
	if _, ok := IsRejectionError(NewNotFoundError("nope")); ok {
		t.Errorf("expected IsRejectionError to return false for NotFoundError")
	}
}

func TestGatewayError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewGatewayError("session init failed", cause)

	if !errors.Is(err, cause) {
		t.Errorf("expected errors.Is to find the cause")
	}

	ge, ok := IsGatewayError(err)
	if !ok {
		t.Fatalf("expected IsGatewayError to return true")
	}
	if ge.Cause != cause {
		t.Errorf("expected cause to be preserved")
	}
}

func TestConflictError(t *testing.T) {
	err := NewConflictError("order is not in PENDING status")

	if _, ok := IsConflictError(err); !ok {
		t.Errorf("expected IsConflictError to return true")
	}
	if _, ok := IsConflictError(errors.New("x")); ok {
		t.Errorf("expected IsConflictError to return false")
	}
}

func TestInternalError_ErrorInterface(t *testing.T) {
	cause := errors.New("db down")
	var err error = NewInternalError("settlement failed", cause)

	if err.Error() != "settlement failed: db down" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
