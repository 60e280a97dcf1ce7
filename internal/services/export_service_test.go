package services

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"buspass/internal/domain"
)

func TestDailyReportXLSX(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("FROM attendance_records").WithArgs("2026-03-02").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "student_id", "student_name", "route_id", "route_name",
			"bus_id", "shift", "travel_date", "check_in_time", "check_out_time",
		}).
			AddRow(41, 7, "Asha Rao", 3, "North Loop", 5, "morning", "2026-03-02", now.Add(-40*time.Minute), now).
			AddRow(42, 8, "Vikram Shah", 3, "North Loop", 5, "morning", "2026-03-02", now.Add(-35*time.Minute), nil))

	svc := ExportService{Analytics: AnalyticsService{}}
	data, filename, err := svc.DailyReportXLSX("2026-03-02")
	if err != nil {
		t.Fatalf("DailyReportXLSX returned error: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("workbook is empty")
	}
	if filename != "ridership_2026-03-02.xlsx" {
		t.Fatalf("unexpected filename %q", filename)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDailyReportRejectsBadDate(t *testing.T) {
	svc := AnalyticsService{}
	if _, err := svc.DailyReport("02-03-2026"); !domain.IsValidation(err) {
		t.Fatalf("expected ValidationError for malformed date, got %v", err)
	}
}
