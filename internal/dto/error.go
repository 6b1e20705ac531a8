package dto

import (
	"time"

	apperrors "aquamart/internal/errors"
)

type ErrorResponse struct {
	TraceID   string                       `json:"traceId"`
	Error     string                       `json:"error"`
	Message   string                       `json:"message"`
	Details   []apperrors.ValidationDetail `json:"details,omitempty"`
	Timestamp time.Time                    `json:"timestamp"`
}
