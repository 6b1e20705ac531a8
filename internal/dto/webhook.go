package dto

import (
	"net/url"

	"github.com/shopspring/decimal"
)

// IPNPayload is the parsed asynchronous payment notification. Raw keeps
// the full form so the signature can be recomputed over the fields the
// payload itself names.
type IPNPayload struct {
	TranID   string
	ValID    string
	Amount   decimal.Decimal
	Status   string
	CardType string
	Raw      url.Values
}

type WebhookOutcome string

const (
	WebhookSettled        WebhookOutcome = "SETTLED"
	WebhookAlreadySettled WebhookOutcome = "ALREADY_SETTLED"
	WebhookFailureNoted   WebhookOutcome = "FAILURE_NOTED"
)

type WebhookResult struct {
	Outcome WebhookOutcome
	OrderID uint
	OrderNo string
}

type IPNAck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type StatusPollResponse struct {
	OrderID uint   `json:"orderId"`
	OrderNo string `json:"orderNo"`
	Status  string `json:"status"`
	Paid    bool   `json:"paid"`
}
