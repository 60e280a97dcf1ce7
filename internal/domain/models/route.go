package models

// RouteSnapshot is a point-in-time view of route master data, read at apply
// or purchase time. Charges are copied onto the created record so later
// master-data edits never retroactively change open applications.
type RouteSnapshot struct {
	RouteID        int64    `json:"route_id"`
	Name           string   `json:"name"`
	Stops          []string `json:"stops"`
	Shifts         []string `json:"shifts"`
	SemesterCharge int64    `json:"semester_charge"`
	TicketFare     int64    `json:"ticket_fare"`
}

// HasStop reports whether the stop exists on this route.
func (r RouteSnapshot) HasStop(stop string) bool {
	for _, s := range r.Stops {
		if s == stop {
			return true
		}
	}
	return false
}

// HasShift reports whether the route operates the given shift.
func (r RouteSnapshot) HasShift(shift string) bool {
	for _, s := range r.Shifts {
		if s == shift {
			return true
		}
	}
	return false
}

// StudentProfile is the slice of the profile collaborator the core consults:
// the completeness flag gates new applications.
type StudentProfile struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	ProfileComplete bool   `json:"profile_complete"`
}
