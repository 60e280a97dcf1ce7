package repositories

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"

	"buspass/internal/domain"
	"buspass/internal/domain/models"
)

func TestUpdateStatusReportsCompareAndSetMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE pass_applications SET status=").
		WithArgs(models.AppStatusPaymentVerified, 1, int64(11), models.AppStatusPaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE pass_applications SET status=").
		WithArgs(models.AppStatusPaymentVerified, 1, int64(11), models.AppStatusPaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := ApplicationRepository{DB: db}

	ok, err := repo.UpdateStatus(nil, 11, models.AppStatusPaymentPending, models.AppStatusPaymentVerified)
	if err != nil || !ok {
		t.Fatalf("first transition should apply, got ok=%v err=%v", ok, err)
	}

	ok, err = repo.UpdateStatus(nil, 11, models.AppStatusPaymentPending, models.AppStatusPaymentVerified)
	if err != nil {
		t.Fatalf("second transition errored: %v", err)
	}
	if ok {
		t.Fatalf("transition from a stale state must miss")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestApplicationInsertDuplicateOpenIsConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("INSERT INTO pass_applications").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	repo := ApplicationRepository{DB: db}
	_, err = repo.Insert(models.PassApplication{
		StudentID:       7,
		RouteID:         3,
		Stop:            "Main Gate",
		Shift:           "morning",
		Status:          models.AppStatusPaymentPending,
		ReferenceNumber: "BP-1A2B3C4D",
		Amount:          45000,
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError on duplicate open application, got %v", err)
	}
}

func TestUpdateStatusTerminalMoveClearsOpenFlag(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE pass_applications SET status=").
		WithArgs(models.AppStatusRejected, nil, int64(11), models.AppStatusPendingApproval).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := ApplicationRepository{DB: db}
	ok, err := repo.UpdateStatus(nil, 11, models.AppStatusPendingApproval, models.AppStatusRejected)
	if err != nil || !ok {
		t.Fatalf("terminal transition should apply, got ok=%v err=%v", ok, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByIDMapsMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("FROM pass_applications WHERE id=").WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := ApplicationRepository{DB: db}
	if _, err := repo.GetByID(404); !domain.IsNotFound(err) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}
