package services

import (
	"context"
	"database/sql"
	"fmt"

	intconfig "buspass/internal/config"
	intdb "buspass/internal/db"
	"buspass/internal/domain"
	"buspass/internal/domain/models"
	"buspass/internal/gateway"
	"buspass/internal/metrics"
	"buspass/internal/repositories"
	"buspass/internal/utils"
)

// PaymentService bridges the external gateway and the ledger. It appends
// payment_transactions rows and asks the ledger for state moves; it never
// writes application or ticket status itself, so there is a single owner
// for lifecycle state.
type PaymentService struct {
	DB         *sql.DB
	AppRepo    repositories.ApplicationRepository
	TicketRepo repositories.TicketRepository
	PayRepo    repositories.PaymentRepository
	Ledger     LedgerService
	Gateway    gateway.Gateway
	Currency   string
	RequestID  string
}

func (s PaymentService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s PaymentService) currency() string {
	if s.Currency != "" {
		return s.Currency
	}
	return "INR"
}

// CreateOrder opens a gateway order for a payable target. The gateway call
// happens outside any transaction or lock; only the resulting order row is
// written afterwards.
func (s PaymentService) CreateOrder(ctx context.Context, sess domain.Session, targetKind string, targetID int64) (gateway.Order, error) {
	amount, err := s.payableAmount(sess, targetKind, targetID)
	if err != nil {
		return gateway.Order{}, err
	}

	order, err := s.Gateway.CreateOrder(ctx, amount, s.currency(), utils.NewReceipt(targetKind))
	if err != nil {
		return gateway.Order{}, domain.PaymentError{Stage: "create_order", Msg: "gateway refused the order", Err: err}
	}

	if _, err := s.PayRepo.Insert(nil, models.PaymentTransaction{
		TargetKind:     targetKind,
		TargetID:       targetID,
		GatewayOrderID: order.ID,
		Status:         models.TxStatusCreated,
		Amount:         order.Amount,
		Currency:       order.Currency,
	}); err != nil {
		return gateway.Order{}, err
	}

	utils.LogEvent(s.RequestID, "payment", "create_order",
		fmt.Sprintf("%s_id=%d order_id=%s amount=%d", targetKind, targetID, order.ID, order.Amount))
	return order, nil
}

func (s PaymentService) payableAmount(sess domain.Session, targetKind string, targetID int64) (int64, error) {
	if targetID <= 0 {
		return 0, domain.ValidationError{Field: "target_id", Msg: "target id is required"}
	}
	switch targetKind {
	case models.TargetApplication:
		app, err := s.AppRepo.GetByID(targetID)
		if err != nil {
			return 0, err
		}
		if app.StudentID != int64(sess.UserID) && !sess.IsStaff() {
			return 0, domain.AuthorizationError{Role: sess.Role, Op: "pay for another student's application"}
		}
		if app.Status != models.AppStatusPaymentPending {
			return 0, domain.PaymentError{
				Stage: "create_order",
				Msg:   fmt.Sprintf("application is %s, not payable", app.Status),
			}
		}
		return app.Amount, nil
	case models.TargetTicket:
		t, err := s.TicketRepo.GetByID(targetID)
		if err != nil {
			return 0, err
		}
		if t.StudentID != int64(sess.UserID) && !sess.IsStaff() {
			return 0, domain.AuthorizationError{Role: sess.Role, Op: "pay for another student's ticket"}
		}
		if t.Status != models.TicketStatusIssued {
			return 0, domain.PaymentError{
				Stage: "create_order",
				Msg:   fmt.Sprintf("ticket is %s, not payable", t.Status),
			}
		}
		return t.Amount, nil
	default:
		return 0, domain.ValidationError{Field: "target_kind", Msg: "target must be application or ticket"}
	}
}

// VerifyInput is one gateway completion callback.
type VerifyInput struct {
	TargetKind string
	TargetID   int64
	OrderID    string
	PaymentID  string
	Signature  string
}

// Verify validates the gateway signature and applies the verified outcome
// exactly once. Re-delivery of the same (order, payment, signature) returns
// the previously recorded transaction without side effects; a mismatched
// signature is fatal for the attempt and never retried here.
func (s PaymentService) Verify(ctx context.Context, in VerifyInput) (models.PaymentTransaction, error) {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" {
		return models.PaymentTransaction{}, domain.ValidationError{Field: "callback", Msg: "order id, payment id and signature are required"}
	}

	if prior, found, err := s.PayRepo.FindVerified(in.TargetKind, in.TargetID); err != nil {
		return models.PaymentTransaction{}, err
	} else if found {
		if prior.GatewayOrderID == in.OrderID && prior.GatewayPaymentID == in.PaymentID {
			utils.LogEvent(s.RequestID, "payment", "verify",
				fmt.Sprintf("duplicate callback for %s_id=%d order_id=%s, replaying prior result", in.TargetKind, in.TargetID, in.OrderID))
			return prior, nil
		}
		return models.PaymentTransaction{}, domain.ConflictError{
			Resource: "payment",
			Msg:      "target already has a verified payment for a different order",
		}
	}

	order, found, err := s.PayRepo.FindOrder(in.TargetKind, in.TargetID, in.OrderID)
	if err != nil {
		return models.PaymentTransaction{}, err
	}
	if !found {
		return models.PaymentTransaction{}, domain.PaymentError{Stage: "verify", Msg: "no such order for this target"}
	}

	if !s.Gateway.VerifySignature(in.OrderID, in.PaymentID, in.Signature) {
		utils.LogEvent(s.RequestID, "payment", "verify",
			fmt.Sprintf("signature mismatch for %s_id=%d order_id=%s", in.TargetKind, in.TargetID, in.OrderID))
		return models.PaymentTransaction{}, domain.PaymentError{Stage: "verify_signature", Msg: "signature mismatch"}
	}

	verified := models.PaymentTransaction{
		TargetKind:       in.TargetKind,
		TargetID:         in.TargetID,
		GatewayOrderID:   in.OrderID,
		GatewayPaymentID: in.PaymentID,
		Status:           models.TxStatusVerified,
		Amount:           order.Amount,
		Currency:         order.Currency,
		Signature:        in.Signature,
	}

	// Transaction row and ledger transition commit together, so a crash can
	// never leave a verified payment without its state move.
	err = intdb.WithinTxContext(ctx, s.db(), func(tx *sql.Tx) error {
		id, err := s.PayRepo.Insert(tx, verified)
		if err != nil {
			return err
		}
		verified.ID = id
		if in.TargetKind == models.TargetApplication {
			return s.Ledger.TransitionOnPayment(tx, in.TargetID, OutcomeVerified)
		}
		return nil
	})
	if err != nil {
		if s.PayRepo.IsDuplicateVerified(err) {
			// Lost a race with a concurrent duplicate delivery; replay its result.
			if prior, found, ferr := s.PayRepo.FindVerified(in.TargetKind, in.TargetID); ferr == nil && found {
				return prior, nil
			}
		}
		return models.PaymentTransaction{}, err
	}

	metrics.PaymentsVerified.Inc()
	utils.LogEvent(s.RequestID, "payment", "verify",
		fmt.Sprintf("%s_id=%d order_id=%s payment_id=%s verified", in.TargetKind, in.TargetID, in.OrderID, in.PaymentID))
	return verified, nil
}

// MarkFailed records an abandoned or rejected payment attempt. Cancellation
// of the gateway flow lands here too, so applications never hang in
// payment_pending waiting for a callback that was dismissed.
func (s PaymentService) MarkFailed(targetKind string, targetID int64, reason string) error {
	if targetID <= 0 {
		return domain.ValidationError{Field: "target_id", Msg: "target id is required"}
	}
	if targetKind != models.TargetApplication && targetKind != models.TargetTicket {
		return domain.ValidationError{Field: "target_kind", Msg: "target must be application or ticket"}
	}
	reason = utils.NormalizeSpace(reason)
	if reason == "" {
		reason = "payment abandoned"
	}

	if _, err := s.PayRepo.Insert(nil, models.PaymentTransaction{
		TargetKind: targetKind,
		TargetID:   targetID,
		Status:     models.TxStatusFailed,
		Currency:   s.currency(),
		Reason:     reason,
	}); err != nil {
		return err
	}

	if targetKind == models.TargetApplication {
		if err := s.Ledger.TransitionOnPayment(nil, targetID, OutcomeFailed); err != nil {
			return err
		}
	}

	metrics.PaymentsFailed.Inc()
	utils.LogEvent(s.RequestID, "payment", "mark_failed",
		fmt.Sprintf("%s_id=%d reason=%s", targetKind, targetID, reason))
	return nil
}
