package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	intconfig "buspass/internal/config"
	"buspass/internal/domain"
	"buspass/internal/utils"
)

func driverSession() domain.Session {
	return domain.Session{UserID: 50, Role: domain.RoleDriver}
}

func TestCheckInIncrementsOccupancyWithRecord(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec("INSERT INTO bus_occupancy").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM bus_occupancy").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"bus_id", "capacity", "current_occupancy"}).
			AddRow(5, 40, 12))
	mock.ExpectCommit()

	svc := AttendanceService{}
	rec, err := svc.CheckIn(driverSession(), 7, 5, 3, "morning")
	if err != nil {
		t.Fatalf("CheckIn returned error: %v", err)
	}
	if rec.ID != 41 {
		t.Fatalf("record id not set, got %d", rec.ID)
	}
	if rec.TravelDate != utils.Today() {
		t.Fatalf("record should be keyed by today, got %s", rec.TravelDate)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckInSecondScanSameDayConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
	mock.ExpectRollback()

	svc := AttendanceService{}
	_, err := svc.CheckIn(driverSession(), 7, 5, 3, "morning")
	if !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError for double check-in, got %v", err)
	}
}

func TestCheckInEnforcedCapacityRefusesFullBus(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO attendance_records").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec("UPDATE bus_occupancy").
		WillReturnResult(sqlmock.NewResult(0, 0)) // conditional increment missed: bus full
	mock.ExpectRollback()

	svc := AttendanceService{CapacityPolicy: intconfig.CapacityEnforce}
	_, err := svc.CheckIn(driverSession(), 7, 5, 3, "morning")
	if !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError for full bus, got %v", err)
	}
}

func TestCheckInRequiresDriver(t *testing.T) {
	svc := AttendanceService{}
	_, err := svc.CheckIn(domain.Session{UserID: 7, Role: domain.RoleStudent}, 7, 5, 3, "morning")
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected AuthorizationError for student scan, got %v", err)
	}
}

func TestCheckOutClosesRecordAndDecrements(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	// close time is bound as a parameter so it shares the check-in clock
	mock.ExpectExec("UPDATE attendance_records").
		WithArgs(sqlmock.AnyArg(), int64(7), int64(5), utils.Today()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bus_occupancy").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("FROM attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "student_id", "route_id", "bus_id", "shift", "travel_date",
			"check_in_time", "check_out_time",
		}).AddRow(41, 7, 3, 5, "morning", utils.Today(), now.Add(-40*time.Minute), now))
	mock.ExpectCommit()

	svc := AttendanceService{}
	rec, err := svc.CheckOut(driverSession(), 7, 5)
	if err != nil {
		t.Fatalf("CheckOut returned error: %v", err)
	}
	if rec.Open() {
		t.Fatalf("checked-out record should be closed: %+v", rec)
	}
	if rec.CheckOutTime != nil && rec.CheckOutTime.Before(rec.CheckInTime) {
		t.Fatalf("check-out time precedes check-in: %+v", rec)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCheckOutWithoutOpenRecord(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	svc := AttendanceService{}
	_, err := svc.CheckOut(driverSession(), 7, 5)
	if !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError without an open record, got %v", err)
	}
}

func TestCheckOutSucceedsWhenCounterAlreadyZero(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE attendance_records").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE bus_occupancy").
		WillReturnResult(sqlmock.NewResult(0, 0)) // guarded decrement missed: counter drifted
	mock.ExpectQuery("FROM attendance_records").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "student_id", "route_id", "bus_id", "shift", "travel_date",
			"check_in_time", "check_out_time",
		}).AddRow(41, 7, 3, 5, "morning", utils.Today(), now.Add(-40*time.Minute), now))
	mock.ExpectCommit()

	svc := AttendanceService{}
	rec, err := svc.CheckOut(driverSession(), 7, 5)
	if err != nil {
		t.Fatalf("drift must not fail the student's checkout: %v", err)
	}
	if rec.ID != 41 {
		t.Fatalf("closed record not returned, got %+v", rec)
	}
}

func TestAdjustOccupancyRefusesBelowZero(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectExec("UPDATE bus_occupancy").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM bus_occupancy").WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"bus_id", "capacity", "current_occupancy"}).
			AddRow(5, 40, 1))

	svc := AttendanceService{}
	_, err := svc.AdjustOccupancy(domain.Session{UserID: 2, Role: domain.RoleStaff}, 5, -3)
	if !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError when delta would go below zero, got %v", err)
	}
}

func TestAdjustOccupancyRequiresStaff(t *testing.T) {
	svc := AttendanceService{}
	_, err := svc.AdjustOccupancy(driverSession(), 5, 1)
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected AuthorizationError for driver adjustment, got %v", err)
	}
}
