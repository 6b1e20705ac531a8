package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"aquamart/internal/dto"
	apperrors "aquamart/internal/errors"
)

type CheckoutUseCase interface {
	Checkout(ctx context.Context, userID int64, req dto.CheckoutRequest) (*dto.CheckoutResponse, error)
}

type CheckoutController struct {
	useCase CheckoutUseCase
	logger  *zap.Logger
}

func NewCheckoutController(useCase CheckoutUseCase, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{
		useCase: useCase,
		logger:  logger,
	}
}

func (c *CheckoutController) Checkout(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	userID, err := strconv.ParseInt(r.Header.Get("X-User-ID"), 10, 64)
	if err != nil || userID <= 0 {
		c.writeError(w, traceID, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid user identity", nil)
		return
	}

	var req dto.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		c.writeError(w, traceID, http.StatusBadRequest, "VALIDATION_ERROR", "request body must be valid JSON",
			[]apperrors.ValidationDetail{{Field: "body", Message: "request body must be valid JSON"}})
		return
	}

	if req.AddressID <= 0 {
		c.writeError(w, traceID, http.StatusBadRequest, "VALIDATION_ERROR", "validation failed",
			[]apperrors.ValidationDetail{{Field: "addressId", Message: "addressId must be a positive integer"}})
		return
	}

	result, err := c.useCase.Checkout(r.Context(), userID, req)
	if err != nil {
		c.handleUseCaseError(w, traceID, err, logger)
		return
	}

	result.TraceID = traceID
	result.Timestamp = time.Now().UTC()
	c.writeJSON(w, http.StatusCreated, result)
}

func (c *CheckoutController) handleUseCaseError(w http.ResponseWriter, traceID string, err error, logger *zap.Logger) {
	if ve, ok := apperrors.IsValidationError(err); ok {
		c.writeError(w, traceID, http.StatusBadRequest, "VALIDATION_ERROR", ve.Message, ve.Details)
		return
	}

	if re, ok := apperrors.IsRejectionError(err); ok {
		c.writeError(w, traceID, rejectionStatus(re.Kind), string(re.Kind), re.Message, nil)
		return
	}

	if _, ok := apperrors.IsNotFoundError(err); ok {
		c.writeError(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
		return
	}

	if _, ok := apperrors.IsConflictError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "CONFLICT", err.Error(), nil)
		return
	}

	if _, ok := apperrors.IsDeadlockError(err); ok {
		c.writeError(w, traceID, http.StatusConflict, "DEADLOCK", err.Error(), nil)
		return
	}

	logger.Error("unexpected error", zap.Error(err))
	c.writeError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred", nil)
}

func rejectionStatus(kind apperrors.RejectionKind) int {
	switch kind {
	case apperrors.KindEmptyCart, apperrors.KindAddress:
		return http.StatusBadRequest
	case apperrors.KindStock:
		return http.StatusConflict
	case apperrors.KindPromo:
		return http.StatusUnprocessableEntity
	case apperrors.KindPayment:
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}

func (c *CheckoutController) writeError(w http.ResponseWriter, traceID string, status int, code, message string, details []apperrors.ValidationDetail) {
	c.writeJSON(w, status, dto.ErrorResponse{
		TraceID:   traceID,
		Error:     code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
	})
}

func (c *CheckoutController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
