package repositories

import (
	"database/sql"
	"errors"

	intconfig "buspass/internal/config"
	intdb "buspass/internal/db"
	"buspass/internal/domain/models"
)

// PaymentRepository appends payment_transactions rows. It never touches
// application or ticket state; the reconciler asks the ledger for that.
type PaymentRepository struct {
	DB *sql.DB
}

func (r PaymentRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const txColumns = `id,
       COALESCE(target_kind,''),
       target_id,
       COALESCE(gateway_order_id,''),
       COALESCE(gateway_payment_id,''),
       COALESCE(status,''),
       COALESCE(amount,0),
       COALESCE(currency,''),
       COALESCE(signature,''),
       COALESCE(reason,''),
       created_at`

func scanTransaction(row *sql.Row) (models.PaymentTransaction, error) {
	var t models.PaymentTransaction
	err := row.Scan(
		&t.ID, &t.TargetKind, &t.TargetID, &t.GatewayOrderID, &t.GatewayPaymentID,
		&t.Status, &t.Amount, &t.Currency, &t.Signature, &t.Reason, &t.CreatedAt,
	)
	return t, err
}

// Insert appends one transaction row. Verified rows carry verified_flag=1 so
// the unique key (target_kind, target_id, verified_flag) admits at most one
// verified outcome per target even under concurrent duplicate callbacks.
func (r PaymentRepository) Insert(q intdb.Queryer, t models.PaymentTransaction) (int64, error) {
	if q == nil {
		q = r.db()
	}
	var verifiedFlag any
	if t.Status == models.TxStatusVerified {
		verifiedFlag = 1
	}
	res, err := q.Exec(`
		INSERT INTO payment_transactions
			(target_kind, target_id, gateway_order_id, gateway_payment_id, status, amount, currency, signature, reason, verified_flag, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,NOW())`,
		t.TargetKind, t.TargetID, t.GatewayOrderID,
		intdb.NullIfEmpty(t.GatewayPaymentID), t.Status, t.Amount, t.Currency,
		intdb.NullIfEmpty(t.Signature), intdb.NullIfEmpty(t.Reason), verifiedFlag,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// IsDuplicateVerified reports whether err is the unique-key rejection of a
// second verified row for the same target.
func (r PaymentRepository) IsDuplicateVerified(err error) bool {
	return isDuplicateKey(err)
}

// FindVerified returns the verified transaction for a target, if one exists.
func (r PaymentRepository) FindVerified(targetKind string, targetID int64) (models.PaymentTransaction, bool, error) {
	t, err := scanTransaction(r.db().QueryRow(`
		SELECT `+txColumns+`
		FROM payment_transactions
		WHERE target_kind=? AND target_id=? AND status=? LIMIT 1`,
		targetKind, targetID, models.TxStatusVerified))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PaymentTransaction{}, false, nil
		}
		return models.PaymentTransaction{}, false, err
	}
	return t, true, nil
}

// FindOrder returns the "created" row for a gateway order on a target, used
// to check that a callback refers to an order we actually opened.
func (r PaymentRepository) FindOrder(targetKind string, targetID int64, orderID string) (models.PaymentTransaction, bool, error) {
	t, err := scanTransaction(r.db().QueryRow(`
		SELECT `+txColumns+`
		FROM payment_transactions
		WHERE target_kind=? AND target_id=? AND gateway_order_id=? AND status=?
		ORDER BY id DESC LIMIT 1`,
		targetKind, targetID, orderID, models.TxStatusCreated))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PaymentTransaction{}, false, nil
		}
		return models.PaymentTransaction{}, false, err
	}
	return t, true, nil
}

// ListByTarget returns the full transaction history for a target, newest last.
func (r PaymentRepository) ListByTarget(targetKind string, targetID int64) ([]models.PaymentTransaction, error) {
	rows, err := r.db().Query(`
		SELECT `+txColumns+`
		FROM payment_transactions
		WHERE target_kind=? AND target_id=? ORDER BY id ASC`, targetKind, targetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PaymentTransaction
	for rows.Next() {
		var t models.PaymentTransaction
		if err := rows.Scan(
			&t.ID, &t.TargetKind, &t.TargetID, &t.GatewayOrderID, &t.GatewayPaymentID,
			&t.Status, &t.Amount, &t.Currency, &t.Signature, &t.Reason, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
