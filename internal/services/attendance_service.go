package services

import (
	"fmt"
	"time"

	intconfig "buspass/internal/config"
	"buspass/internal/domain"
	"buspass/internal/domain/models"
	"buspass/internal/metrics"
	"buspass/internal/repositories"
	"buspass/internal/utils"
)

// AttendanceService records boarding scans and drives the occupancy counter.
// One open trip per student per day; the counter moves in the same
// transaction as the record so it cannot drift under concurrent scans.
type AttendanceService struct {
	Repo           repositories.AttendanceRepository
	CapacityPolicy string
	RequestID      string
}

func (s AttendanceService) enforceCapacity() bool {
	return s.CapacityPolicy == intconfig.CapacityEnforce
}

// CheckIn opens today's trip for a student. A second scan while a trip is
// open is a conflict the driver sees as a message, not a crash.
func (s AttendanceService) CheckIn(sess domain.Session, studentID, busID, routeID int64, shift string) (models.AttendanceRecord, error) {
	if !sess.IsDriver() {
		return models.AttendanceRecord{}, domain.AuthorizationError{Role: sess.Role, Op: "record boardings"}
	}
	if studentID <= 0 || busID <= 0 || routeID <= 0 {
		return models.AttendanceRecord{}, domain.ValidationError{Field: "ids", Msg: "student, bus and route ids are required"}
	}
	shift = utils.NormalizeShift(shift)
	if !domain.ValidShift(shift) {
		return models.AttendanceRecord{}, domain.ValidationError{Field: "shift", Msg: "shift must be morning or afternoon"}
	}

	rec := models.AttendanceRecord{
		StudentID:   studentID,
		RouteID:     routeID,
		BusID:       busID,
		Shift:       shift,
		TravelDate:  utils.Today(),
		CheckInTime: time.Now(),
	}
	res, err := s.Repo.CheckIn(rec, s.enforceCapacity())
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	if res.OverCapacity {
		metrics.OverCapacityBoardings.Inc()
		utils.LogEvent(s.RequestID, "attendance", "check_in",
			fmt.Sprintf("bus_id=%d over capacity: %d/%d", busID, res.Occupancy, res.Capacity))
	}
	metrics.CheckIns.Inc()
	utils.LogEvent(s.RequestID, "attendance", "check_in",
		fmt.Sprintf("student_id=%d bus_id=%d occupancy=%d", studentID, busID, res.Occupancy))
	return res.Record, nil
}

// CheckOut closes today's open trip for the student on that bus. A missing
// open record is NotFoundError; a counter already at zero is reported as an
// internal fault but does not fail the student's checkout.
func (s AttendanceService) CheckOut(sess domain.Session, studentID, busID int64) (models.AttendanceRecord, error) {
	if !sess.IsDriver() {
		return models.AttendanceRecord{}, domain.AuthorizationError{Role: sess.Role, Op: "record boardings"}
	}
	if studentID <= 0 || busID <= 0 {
		return models.AttendanceRecord{}, domain.ValidationError{Field: "ids", Msg: "student and bus ids are required"}
	}

	res, err := s.Repo.CheckOut(studentID, busID, utils.Today(), time.Now())
	if err != nil {
		return models.AttendanceRecord{}, err
	}

	if res.Drift {
		metrics.OccupancyDriftFaults.Inc()
		utils.LogFault(s.RequestID, "attendance",
			fmt.Sprintf("occupancy for bus_id=%d was already zero at checkout of student_id=%d", busID, studentID))
	}
	metrics.CheckOuts.Inc()
	utils.LogEvent(s.RequestID, "attendance", "check_out",
		fmt.Sprintf("student_id=%d bus_id=%d", studentID, busID))
	return res.Record, nil
}

// Occupancy returns the live counter for a bus.
func (s AttendanceService) Occupancy(busID int64) (models.BusOccupancy, error) {
	if busID <= 0 {
		return models.BusOccupancy{}, domain.ValidationError{Field: "bus_id", Msg: "bus id is required"}
	}
	return s.Repo.GetOccupancy(busID)
}

// AdjustOccupancy applies a staff correction delta to a bus counter.
func (s AttendanceService) AdjustOccupancy(sess domain.Session, busID int64, delta int) (models.BusOccupancy, error) {
	if !sess.IsStaff() {
		return models.BusOccupancy{}, domain.AuthorizationError{Role: sess.Role, Op: "adjust occupancy"}
	}
	if busID <= 0 {
		return models.BusOccupancy{}, domain.ValidationError{Field: "bus_id", Msg: "bus id is required"}
	}
	if delta == 0 {
		return models.BusOccupancy{}, domain.ValidationError{Field: "delta", Msg: "delta must be non-zero"}
	}
	occ, err := s.Repo.AdjustOccupancy(busID, delta)
	if err != nil {
		return models.BusOccupancy{}, err
	}
	utils.LogEvent(s.RequestID, "attendance", "adjust_occupancy",
		fmt.Sprintf("bus_id=%d delta=%d occupancy=%d", busID, delta, occ.CurrentOccupancy))
	return occ, nil
}
