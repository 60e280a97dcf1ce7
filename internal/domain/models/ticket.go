package models

import "time"

// Ticket statuses: issued -> used | expired.
const (
	TicketStatusIssued  = "issued"
	TicketStatusUsed    = "used"
	TicketStatusExpired = "expired"
)

// Ticket is a single-day, single-use travel entitlement.
type Ticket struct {
	ID         int64      `json:"id"`
	StudentID  int64      `json:"student_id"`
	RouteID    int64      `json:"route_id"`
	Shift      string     `json:"shift"`
	IssuedDate string     `json:"issued_date"` // YYYY-MM-DD, the only day it is usable
	Amount     int64      `json:"amount"`
	Status     string     `json:"status"`
	UsedAt     *time.Time `json:"used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
