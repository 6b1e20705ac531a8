package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"aquamart/internal/config"
	"aquamart/internal/errors"
)

// Transaction statuses the gateway reports, both in webhooks and from
// its validation endpoint.
const (
	StatusValid     = "VALID"
	StatusValidated = "VALIDATED"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

// Client talks to the hosted payment gateway over its form-encoded HTTP
// API: session creation, server-side transaction validation, refunds.
type Client struct {
	httpClient *http.Client
	cfg        config.GatewayConfig
}

func NewClient(cfg config.GatewayConfig) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

type SessionRequest struct {
	TranID          string
	Amount          decimal.Decimal
	CustomerName    string
	CustomerPhone   string
	CustomerAddress string
	CustomerCity    string
	ProductSummary  string
}

type SessionResponse struct {
	Status         string `json:"status"`
	FailedReason   string `json:"failedreason"`
	SessionKey     string `json:"sessionkey"`
	GatewayPageURL string `json:"GatewayPageURL"`
}

// CreateSession registers the order with the gateway and returns the
// hosted payment page the customer is redirected to.
func (c *Client) CreateSession(ctx context.Context, req SessionRequest) (*SessionResponse, error) {
	form := url.Values{}
	form.Set("store_id", c.cfg.StoreID)
	form.Set("store_passwd", c.cfg.StorePassword)
	form.Set("total_amount", req.Amount.StringFixed(2))
	form.Set("currency", "BDT")
	form.Set("tran_id", req.TranID)
	form.Set("success_url", c.cfg.SuccessURL)
	form.Set("fail_url", c.cfg.FailURL)
	form.Set("cancel_url", c.cfg.CancelURL)
	form.Set("ipn_url", c.cfg.IPNURL)
	form.Set("cus_name", req.CustomerName)
	form.Set("cus_phone", req.CustomerPhone)
	form.Set("cus_add1", req.CustomerAddress)
	form.Set("cus_city", req.CustomerCity)
	form.Set("product_name", req.ProductSummary)
	form.Set("product_category", "Beverage")
	form.Set("product_profile", "physical-goods")
	form.Set("shipping_method", "Courier")

	var resp SessionResponse
	if err := c.postForm(ctx, "/v4/session", form, &resp); err != nil {
		return nil, errors.NewGatewayError("gateway session init failed", err)
	}

	if !strings.EqualFold(resp.Status, "SUCCESS") {
		return nil, errors.NewGatewayError(
			fmt.Sprintf("gateway rejected session: %s", resp.FailedReason), nil)
	}

	return &resp, nil
}

type ValidationResponse struct {
	Status   string          `json:"status"`
	TranID   string          `json:"tran_id"`
	ValID    string          `json:"val_id"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	CardType string          `json:"card_type"`
}

// Confirmed reports whether the gateway's own server vouches for the
// transaction.
func (v *ValidationResponse) Confirmed() bool {
	return v.Status == StatusValid || v.Status == StatusValidated
}

// ValidateTransaction queries the gateway's validator by val_id. This is
// the authoritative channel: nothing in it was supplied by the webhook
// caller.
func (c *Client) ValidateTransaction(ctx context.Context, valID string) (*ValidationResponse, error) {
	query := url.Values{}
	query.Set("val_id", valID)
	query.Set("store_id", c.cfg.StoreID)
	query.Set("store_passwd", c.cfg.StorePassword)
	query.Set("format", "json")

	reqURL := fmt.Sprintf("%s/v4/validator?%s", c.cfg.BaseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.NewGatewayError("building validation request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewGatewayError("gateway validation request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewGatewayError(
			fmt.Sprintf("gateway validation returned status %d", resp.StatusCode), nil)
	}

	var vr ValidationResponse
	if err := json.NewDecoder(resp.Body).Decode(&vr); err != nil {
		return nil, errors.NewGatewayError("decoding validation response", err)
	}

	return &vr, nil
}

type refundResponse struct {
	Status       string `json:"status"`
	ErrorReason  string `json:"errorReason"`
	RefundRefID  string `json:"refund_ref_id"`
	TransRefID   string `json:"trans_id"`
	RefundStatus string `json:"refund_status"`
}

// InitiateRefund asks the gateway to return the settled amount against a
// validated transaction.
func (c *Client) InitiateRefund(ctx context.Context, valID string, amount decimal.Decimal, remark string) error {
	form := url.Values{}
	form.Set("store_id", c.cfg.StoreID)
	form.Set("store_passwd", c.cfg.StorePassword)
	form.Set("val_id", valID)
	form.Set("refund_amount", amount.StringFixed(2))
	form.Set("refund_remarks", remark)

	var resp refundResponse
	if err := c.postForm(ctx, "/v4/refund", form, &resp); err != nil {
		return errors.NewGatewayError("gateway refund request failed", err)
	}

	if !strings.EqualFold(resp.Status, "SUCCESS") {
		return errors.NewGatewayError(
			fmt.Sprintf("gateway rejected refund: %s", resp.ErrorReason), nil)
	}

	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	return nil
}
