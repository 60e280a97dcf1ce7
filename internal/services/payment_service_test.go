package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"buspass/internal/domain"
	"buspass/internal/domain/models"
	"buspass/internal/gateway"
)

func transactionRows(id int64, targetKind string, targetID int64, orderID, paymentID, status string, amount int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "target_kind", "target_id", "gateway_order_id", "gateway_payment_id",
		"status", "amount", "currency", "signature", "reason", "created_at",
	}).AddRow(id, targetKind, targetID, orderID, paymentID, status, amount, "INR", "", "", time.Now())
}

func TestVerifyCommitsLedgerMoveWithTransactionRow(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	// no verified row yet, but the order we opened exists
	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), models.TxStatusVerified).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), "order_1", models.TxStatusCreated).
		WillReturnRows(transactionRows(20, models.TargetApplication, 11, "order_1", "", models.TxStatusCreated, 45000))

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO payment_transactions").
		WillReturnResult(sqlmock.NewResult(21, 1))
	mock.ExpectExec("UPDATE pass_applications SET status=").
		WithArgs(models.AppStatusPaymentVerified, 1, int64(11), models.AppStatusPaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE pass_applications SET status=").
		WithArgs(models.AppStatusPendingApproval, 1, int64(11), models.AppStatusPaymentVerified).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	svc := PaymentService{
		DB:      db,
		Ledger:  LedgerService{},
		Gateway: gateway.Client{Secret: "topsecret"},
	}
	tx, err := svc.Verify(context.Background(), VerifyInput{
		TargetKind: models.TargetApplication,
		TargetID:   11,
		OrderID:    "order_1",
		PaymentID:  "pay_1",
		Signature:  gateway.Sign("order_1", "pay_1", "topsecret"),
	})
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if tx.Status != models.TxStatusVerified || tx.ID != 21 {
		t.Fatalf("unexpected verified transaction: %+v", tx)
	}
	if tx.Amount != 45000 {
		t.Fatalf("verified amount should come from the order row, got %d", tx.Amount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerifyReplaysDuplicateCallback(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), models.TxStatusVerified).
		WillReturnRows(transactionRows(21, models.TargetApplication, 11, "order_1", "pay_1", models.TxStatusVerified, 45000))

	svc := PaymentService{DB: db, Gateway: gateway.Client{Secret: "topsecret"}}
	tx, err := svc.Verify(context.Background(), VerifyInput{
		TargetKind: models.TargetApplication,
		TargetID:   11,
		OrderID:    "order_1",
		PaymentID:  "pay_1",
		Signature:  gateway.Sign("order_1", "pay_1", "topsecret"),
	})
	if err != nil {
		t.Fatalf("duplicate callback must replay, got error: %v", err)
	}
	if tx.ID != 21 {
		t.Fatalf("expected the prior transaction back, got %+v", tx)
	}
	// replay: no insert, no ledger move
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerifyRejectsSecondOrderForVerifiedTarget(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), models.TxStatusVerified).
		WillReturnRows(transactionRows(21, models.TargetApplication, 11, "order_1", "pay_1", models.TxStatusVerified, 45000))

	svc := PaymentService{DB: db, Gateway: gateway.Client{Secret: "topsecret"}}
	_, err := svc.Verify(context.Background(), VerifyInput{
		TargetKind: models.TargetApplication,
		TargetID:   11,
		OrderID:    "order_2",
		PaymentID:  "pay_2",
		Signature:  gateway.Sign("order_2", "pay_2", "topsecret"),
	})
	if !domain.IsConflict(err) {
		t.Fatalf("expected ConflictError for a second order on a paid target, got %v", err)
	}
}

func TestVerifySignatureMismatchIsFatal(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), models.TxStatusVerified).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), "order_1", models.TxStatusCreated).
		WillReturnRows(transactionRows(20, models.TargetApplication, 11, "order_1", "", models.TxStatusCreated, 45000))

	svc := PaymentService{DB: db, Gateway: gateway.Client{Secret: "topsecret"}}
	_, err := svc.Verify(context.Background(), VerifyInput{
		TargetKind: models.TargetApplication,
		TargetID:   11,
		OrderID:    "order_1",
		PaymentID:  "pay_1",
		Signature:  "forged",
	})
	if !domain.IsPayment(err) {
		t.Fatalf("expected PaymentError for signature mismatch, got %v", err)
	}
	// no insert and no ledger move happened
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestVerifyRejectsUnknownOrder(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), models.TxStatusVerified).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), "order_x", models.TxStatusCreated).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	svc := PaymentService{DB: db, Gateway: gateway.Client{Secret: "topsecret"}}
	_, err := svc.Verify(context.Background(), VerifyInput{
		TargetKind: models.TargetApplication,
		TargetID:   11,
		OrderID:    "order_x",
		PaymentID:  "pay_1",
		Signature:  gateway.Sign("order_x", "pay_1", "topsecret"),
	})
	if !domain.IsPayment(err) {
		t.Fatalf("expected PaymentError for unknown order, got %v", err)
	}
}

func TestVerifyCancelledContextStartsNoWrites(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), models.TxStatusVerified).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery("FROM payment_transactions").
		WithArgs(models.TargetApplication, int64(11), "order_1", models.TxStatusCreated).
		WillReturnRows(transactionRows(20, models.TargetApplication, 11, "order_1", "", models.TxStatusCreated, 45000))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := PaymentService{DB: db, Gateway: gateway.Client{Secret: "topsecret"}}
	_, err := svc.Verify(ctx, VerifyInput{
		TargetKind: models.TargetApplication,
		TargetID:   11,
		OrderID:    "order_1",
		PaymentID:  "pay_1",
		Signature:  gateway.Sign("order_1", "pay_1", "topsecret"),
	})
	if err == nil {
		t.Fatalf("expected error for cancelled context")
	}
	// the transaction never began: no insert, no ledger move
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMarkFailedAppendsRowAndCountsAttempt(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO payment_transactions").
		WillReturnResult(sqlmock.NewResult(31, 1))
	mock.ExpectExec("UPDATE pass_applications SET payment_attempts").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COALESCE").WithArgs(int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"payment_attempts"}).AddRow(3))
	mock.ExpectExec("UPDATE pass_applications SET status=").
		WithArgs(models.AppStatusPaymentFailed, nil, int64(11), models.AppStatusPaymentPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	svc := PaymentService{DB: db, Ledger: LedgerService{RetryLimit: 3}}
	if err := svc.MarkFailed(models.TargetApplication, 11, "upi timeout"); err != nil {
		t.Fatalf("MarkFailed returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateOrderRejectsForeignApplication(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM pass_applications WHERE id=").WithArgs(int64(11)).
		WillReturnRows(applicationRows(11, 7, 3, models.AppStatusPaymentPending, 45000))

	svc := PaymentService{DB: db, Gateway: gateway.Client{Secret: "topsecret"}}
	_, err := svc.CreateOrder(context.Background(), domain.Session{UserID: 8, Role: domain.RoleStudent},
		models.TargetApplication, 11)
	if !domain.IsAuthorization(err) {
		t.Fatalf("expected AuthorizationError for another student's application, got %v", err)
	}
}

func TestCreateOrderRejectsNonPayableState(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM pass_applications WHERE id=").WithArgs(int64(11)).
		WillReturnRows(applicationRows(11, 7, 3, models.AppStatusApproved, 45000))

	svc := PaymentService{DB: db, Gateway: gateway.Client{Secret: "topsecret"}}
	_, err := svc.CreateOrder(context.Background(), domain.Session{UserID: 7, Role: domain.RoleStudent},
		models.TargetApplication, 11)
	if !domain.IsPayment(err) {
		t.Fatalf("expected PaymentError for approved application, got %v", err)
	}
}

func TestCreateOrderLocalGatewayWritesCreatedRow(t *testing.T) {
	db, mock := newMockDB(t)
	defer db.Close()

	mock.ExpectQuery("FROM pass_applications WHERE id=").WithArgs(int64(11)).
		WillReturnRows(applicationRows(11, 7, 3, models.AppStatusPaymentPending, 45000))
	mock.ExpectExec("INSERT INTO payment_transactions").
		WillReturnResult(sqlmock.NewResult(20, 1))

	svc := PaymentService{DB: db, Gateway: gateway.Client{Secret: "topsecret"}}
	order, err := svc.CreateOrder(context.Background(), domain.Session{UserID: 7, Role: domain.RoleStudent},
		models.TargetApplication, 11)
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if order.Amount != 45000 || order.Currency != "INR" {
		t.Fatalf("order not built from the application amount: %+v", order)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
