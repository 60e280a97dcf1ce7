package repositories

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"buspass/internal/domain"
	"buspass/internal/domain/models"
)

func TestTicketInsertDuplicateDayIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO tickets").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	repo := TicketRepository{DB: db}
	_, err = repo.Insert(models.Ticket{
		StudentID:  7,
		RouteID:    3,
		Shift:      "morning",
		IssuedDate: "2026-03-02",
		Amount:     120,
		Status:     models.TicketStatusIssued,
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError on duplicate live ticket, got %v", err)
	}
}

func TestMarkUsedConditionalOnDateAndState(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE tickets SET status=").
		WithArgs(models.TicketStatusUsed, int64(21), models.TicketStatusIssued, "2026-03-02").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tickets SET status=").
		WithArgs(models.TicketStatusUsed, int64(21), models.TicketStatusIssued, "2026-03-02").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := TicketRepository{DB: db}

	ok, err := repo.MarkUsed(21, "2026-03-02")
	if err != nil || !ok {
		t.Fatalf("first redemption should apply, got ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkUsed(21, "2026-03-02")
	if err != nil {
		t.Fatalf("second redemption errored: %v", err)
	}
	if ok {
		t.Fatalf("a ticket must redeem at most once")
	}
}
