package models

import "time"

// Pass application statuses. An application moves
// payment_pending -> payment_verified -> pending_approval -> approved/rejected.
// payment_failed, rejected and expired are terminal; approved turns into
// expired once the pass validity window elapses.
const (
	AppStatusPaymentPending  = "payment_pending"
	AppStatusPaymentVerified = "payment_verified"
	AppStatusPendingApproval = "pending_approval"
	AppStatusApproved        = "approved"
	AppStatusRejected        = "rejected"
	AppStatusPaymentFailed   = "payment_failed"
	AppStatusExpired         = "expired"
)

// OpenAppStatuses are the states that block a new application for the same
// student. Approved stays blocking until the sweeper expires the pass.
var OpenAppStatuses = []string{
	AppStatusPaymentPending,
	AppStatusPaymentVerified,
	AppStatusPendingApproval,
	AppStatusApproved,
}

// TerminalAppStatus reports whether s is a state the application never
// leaves. Terminal rows drop their open_flag so the per-student unique key
// admits a fresh application.
func TerminalAppStatus(s string) bool {
	return s == AppStatusPaymentFailed || s == AppStatusRejected || s == AppStatusExpired
}

// PassApplication is a student's request for a semester pass.
type PassApplication struct {
	ID              int64     `json:"id"`
	StudentID       int64     `json:"student_id"`
	RouteID         int64     `json:"route_id"`
	Stop            string    `json:"stop"`
	Shift           string    `json:"shift"`
	Status          string    `json:"status"`
	ReferenceNumber string    `json:"reference_number"`
	Amount          int64     `json:"amount"` // charge snapshot at apply time
	PaymentAttempts int       `json:"payment_attempts"`
	RejectReason    string    `json:"reject_reason,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Pass statuses.
const (
	PassStatusActive  = "active"
	PassStatusExpired = "expired"
)

// Pass is the approved semester entitlement produced by a staff decision.
type Pass struct {
	ID             int64     `json:"id"`
	ApplicationID  int64     `json:"application_id"`
	StudentID      int64     `json:"student_id"`
	RouteID        int64     `json:"route_id"`
	Stop           string    `json:"stop"`
	Shift          string    `json:"shift"`
	ValidFrom      time.Time `json:"valid_from"`
	ValidUntil     time.Time `json:"valid_until"` // approval time + 6 months
	SemesterCharge int64     `json:"semester_charge"`
	Status         string    `json:"status"`
}
