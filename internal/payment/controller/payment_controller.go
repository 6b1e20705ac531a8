package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"aquamart/internal/dto"
	apperrors "aquamart/internal/errors"
)

type SettleWebhookUseCase interface {
	Process(ctx context.Context, payload dto.IPNPayload) (*dto.WebhookResult, error)
	Poll(ctx context.Context, tranID string) (*dto.StatusPollResponse, error)
}

type RefundUseCase interface {
	Refund(ctx context.Context, orderID uint, reason string) (*dto.RefundResponse, error)
}

type PaymentController struct {
	webhook SettleWebhookUseCase
	refund  RefundUseCase
	logger  *zap.Logger
}

func NewPaymentController(webhook SettleWebhookUseCase, refund RefundUseCase, logger *zap.Logger) *PaymentController {
	return &PaymentController{
		webhook: webhook,
		refund:  refund,
		logger:  logger,
	}
}

// HandleIPN receives the gateway's form-encoded notification. The
// response must be quick and idempotent: the gateway retries anything
// non-2xx, so genuine outcomes (including duplicates and recorded
// failures) get 200, forged or inconsistent payloads get 400, and only
// infrastructure trouble returns 5xx to invite a retry.
func (c *PaymentController) HandleIPN(w http.ResponseWriter, r *http.Request) {
	logger := c.logger.With(zap.String("traceId", uuid.New().String()))

	if err := r.ParseForm(); err != nil {
		logger.Warn("malformed IPN form", zap.Error(err))
		c.writeJSON(w, http.StatusBadRequest, dto.IPNAck{Status: "rejected", Message: "malformed form body"})
		return
	}

	amount, err := decimal.NewFromString(r.PostForm.Get("amount"))
	if err != nil {
		// Leave it zero; the signature and amount gates decide.
		amount = decimal.Zero
	}

	payload := dto.IPNPayload{
		TranID:   r.PostForm.Get("tran_id"),
		ValID:    r.PostForm.Get("val_id"),
		Amount:   amount,
		Status:   r.PostForm.Get("status"),
		CardType: r.PostForm.Get("card_type"),
		Raw:      r.PostForm,
	}

	result, err := c.webhook.Process(r.Context(), payload)
	if err != nil {
		if _, ok := apperrors.IsRejectionError(err); ok {
			c.writeJSON(w, http.StatusBadRequest, dto.IPNAck{Status: "rejected"})
			return
		}
		if _, ok := apperrors.IsNotFoundError(err); ok {
			c.writeJSON(w, http.StatusNotFound, dto.IPNAck{Status: "rejected", Message: "unknown transaction"})
			return
		}
		// Gateway unreachable or database trouble: let the gateway
		// retry the delivery later.
		logger.Error("IPN processing failed", zap.String("tranId", payload.TranID), zap.Error(err))
		c.writeJSON(w, http.StatusInternalServerError, dto.IPNAck{Status: "error"})
		return
	}

	c.writeJSON(w, http.StatusOK, dto.IPNAck{Status: "ok", Message: string(result.Outcome)})
}

func (c *PaymentController) PollStatus(w http.ResponseWriter, r *http.Request) {
	tranID := chi.URLParam(r, "tranId")

	result, err := c.webhook.Poll(r.Context(), tranID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			c.writeJSON(w, http.StatusNotFound, dto.IPNAck{Status: "rejected", Message: "unknown transaction"})
			return
		}
		c.logger.Error("status poll failed", zap.String("tranId", tranID), zap.Error(err))
		c.writeJSON(w, http.StatusInternalServerError, dto.IPNAck{Status: "error"})
		return
	}

	c.writeJSON(w, http.StatusOK, result)
}

type refundRequest struct {
	Reason string `json:"reason,omitempty"`
}

func (c *PaymentController) Refund(w http.ResponseWriter, r *http.Request) {
	traceID := uuid.New().String()
	logger := c.logger.With(zap.String("traceId", traceID))

	orderID, err := strconv.ParseUint(chi.URLParam(r, "orderId"), 10, 64)
	if err != nil {
		c.writeError(w, traceID, http.StatusBadRequest, "VALIDATION_ERROR", "orderId must be a positive integer")
		return
	}

	var req refundRequest
	if r.Body != nil {
		// An empty body means refund without a reason.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	result, err := c.refund.Refund(r.Context(), uint(orderID), req.Reason)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			c.writeError(w, traceID, http.StatusNotFound, "NOT_FOUND", err.Error())
			return
		}
		if _, ok := apperrors.IsConflictError(err); ok {
			c.writeError(w, traceID, http.StatusConflict, "CONFLICT", err.Error())
			return
		}
		if re, ok := apperrors.IsRejectionError(err); ok {
			c.writeError(w, traceID, http.StatusBadGateway, string(re.Kind), re.Message)
			return
		}
		logger.Error("refund failed", zap.Uint64("orderId", orderID), zap.Error(err))
		c.writeError(w, traceID, http.StatusInternalServerError, "INTERNAL_ERROR", "an unexpected error occurred")
		return
	}

	result.TraceID = traceID
	result.Timestamp = time.Now().UTC()
	c.writeJSON(w, http.StatusOK, result)
}

func (c *PaymentController) writeError(w http.ResponseWriter, traceID string, status int, code, message string) {
	c.writeJSON(w, status, dto.ErrorResponse{
		TraceID:   traceID,
		Error:     code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func (c *PaymentController) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		c.logger.Error("failed to encode response", zap.Error(err))
	}
}
