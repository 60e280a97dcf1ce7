package models

import "time"

// Payment target kinds.
const (
	TargetApplication = "application"
	TargetTicket      = "ticket"
)

// Payment transaction statuses. Rows are append-only: one "created" row per
// gateway order, at most one "verified" row per target, any number of
// "failed" rows for abandoned or rejected attempts.
const (
	TxStatusCreated  = "created"
	TxStatusVerified = "verified"
	TxStatusFailed   = "failed"
)

// PaymentTransaction records one gateway interaction for an application or
// a one-day ticket.
type PaymentTransaction struct {
	ID               int64     `json:"id"`
	TargetKind       string    `json:"target_kind"`
	TargetID         int64     `json:"target_id"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	Status           string    `json:"status"`
	Amount           int64     `json:"amount"`
	Currency         string    `json:"currency"`
	Signature        string    `json:"-"`
	Reason           string    `json:"reason,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
