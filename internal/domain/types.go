package domain

// ID is used across domain entities.
type ID int64

// Status represents a lightweight state value.
type Status string

// Roles known to the service. Master-data admin roles stay outside the core.
const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleDriver  = "driver"
)

// Shifts are the two daily service windows a route operates.
const (
	ShiftMorning   = "morning"
	ShiftAfternoon = "afternoon"
)

// Session carries the verified identity for one request. It is built by the
// auth collaborator (JWT middleware) and passed explicitly into the core;
// the core never reads ambient globals for identity.
type Session struct {
	UserID ID     `json:"userId"`
	Role   string `json:"role"`
}

// IsStaff reports whether the session may perform staff-only operations.
func (s Session) IsStaff() bool { return s.Role == RoleStaff }

// IsDriver reports whether the session may perform boarding scans.
func (s Session) IsDriver() bool { return s.Role == RoleDriver || s.Role == RoleStaff }

// ValidShift reports whether s names a known service window.
func ValidShift(s string) bool {
	return s == ShiftMorning || s == ShiftAfternoon
}
