package models

import "time"

// AttendanceRecord is one student's boarding for one day. CheckOutTime is
// nil while the student is aboard; records are never deleted.
type AttendanceRecord struct {
	ID           int64      `json:"id"`
	StudentID    int64      `json:"student_id"`
	RouteID      int64      `json:"route_id"`
	BusID        int64      `json:"bus_id"`
	Shift        string     `json:"shift"`
	TravelDate   string     `json:"travel_date"` // YYYY-MM-DD
	CheckInTime  time.Time  `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
}

// Open reports whether the student is still aboard on this record.
func (r AttendanceRecord) Open() bool { return r.CheckOutTime == nil }

// BusOccupancy is the live per-bus counter. It is only ever mutated through
// conditional atomic updates alongside an attendance record write.
type BusOccupancy struct {
	BusID            int64 `json:"bus_id"`
	Capacity         int   `json:"capacity"`
	CurrentOccupancy int   `json:"current_occupancy"`
}

// RouteDayCount is one row of the per-route daily summary.
type RouteDayCount struct {
	RouteID   int64  `json:"route_id"`
	RouteName string `json:"route_name"`
	CheckIns  int    `json:"check_ins"`
	CheckOuts int    `json:"check_outs"`
}

// ActiveStudent is one currently-onboard rider.
type ActiveStudent struct {
	RecordID    int64     `json:"record_id"`
	StudentID   int64     `json:"student_id"`
	StudentName string    `json:"student_name"`
	RouteID     int64     `json:"route_id"`
	RouteName   string    `json:"route_name"`
	BusID       int64     `json:"bus_id"`
	Shift       string    `json:"shift"`
	CheckInTime time.Time `json:"check_in_time"`
}

// ReportRow is one line of the daily ridership report.
type ReportRow struct {
	RecordID     int64      `json:"record_id"`
	StudentID    int64      `json:"student_id"`
	StudentName  string     `json:"student_name"`
	RouteID      int64      `json:"route_id"`
	RouteName    string     `json:"route_name"`
	BusID        int64      `json:"bus_id"`
	Shift        string     `json:"shift"`
	TravelDate   string     `json:"travel_date"`
	CheckInTime  time.Time  `json:"check_in_time"`
	CheckOutTime *time.Time `json:"check_out_time,omitempty"`
}
