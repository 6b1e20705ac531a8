package errors

import "fmt"

type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Message string
	Details []ValidationDetail
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(message string, details ...ValidationDetail) *ValidationError {
	return &ValidationError{
		Message: message,
		Details: details,
	}
}

func IsValidationError(err error) (*ValidationError, bool) {
	if ve, ok := err.(*ValidationError); ok {
		return ve, true
	}
	return nil, false
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

func NewNotFoundError(message string) *NotFoundError {
	return &NotFoundError{Message: message}
}

func IsNotFoundError(err error) (*NotFoundError, bool) {
	if nfe, ok := err.(*NotFoundError); ok {
		return nfe, true
	}
	return nil, false
}

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

func NewConflictError(message string) *ConflictError {
	return &ConflictError{Message: message}
}

func IsConflictError(err error) (*ConflictError, bool) {
	if ce, ok := err.(*ConflictError); ok {
		return ce, true
	}
	return nil, false
}

// RejectionKind is the machine-readable category of a business rejection.
// The message next to it is shown verbatim to the end user.
type RejectionKind string

const (
	KindEmptyCart RejectionKind = "EMPTY_CART"
	KindStock     RejectionKind = "STOCK_ERROR"
	KindAddress   RejectionKind = "ADDRESS_ERROR"
	KindPromo     RejectionKind = "PROMO_ERROR"
	KindPayment   RejectionKind = "PAYMENT_ERROR"
)

type RejectionError struct {
	Kind    RejectionKind
	Message string
}

func (e *RejectionError) Error() string {
	return e.Message
}

func NewRejectionError(kind RejectionKind, message string) *RejectionError {
	return &RejectionError{Kind: kind, Message: message}
}

func IsRejectionError(err error) (*RejectionError, bool) {
	if re, ok := err.(*RejectionError); ok {
		return re, true
	}
	return nil, false
}

// GatewayError marks a failure of the external payment gateway itself
// (unreachable, malformed response, explicit rejection). The operation
// that triggered it is left in a retryable state by the caller.
type GatewayError struct {
	Message string
	Cause   error
}

func (e *GatewayError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

func NewGatewayError(message string, cause error) *GatewayError {
	return &GatewayError{Message: message, Cause: cause}
}

func IsGatewayError(err error) (*GatewayError, bool) {
	if ge, ok := err.(*GatewayError); ok {
		return ge, true
	}
	return nil, false
}

type DeadlockError struct {
	Message string
}

func (e *DeadlockError) Error() string {
	return e.Message
}

func NewDeadlockError(message string) *DeadlockError {
	return &DeadlockError{Message: message}
}

func IsDeadlockError(err error) (*DeadlockError, bool) {
	if de, ok := err.(*DeadlockError); ok {
		return de, true
	}
	return nil, false
}

type InternalError struct {
	Message string
	Cause   error
}

func (e *InternalError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func NewInternalError(message string, cause error) *InternalError {
	return &InternalError{
		Message: message,
		Cause:   cause,
	}
}
