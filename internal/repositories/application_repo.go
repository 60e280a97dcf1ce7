package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	intconfig "buspass/internal/config"
	intdb "buspass/internal/db"
	"buspass/internal/domain"
	"buspass/internal/domain/models"
)

type ApplicationRepository struct {
	DB *sql.DB
}

func (r ApplicationRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// Conn exposes the underlying handle so services can span a status move and
// a dependent write in one transaction.
func (r ApplicationRepository) Conn() *sql.DB { return r.db() }

const applicationColumns = `id,
       student_id,
       route_id,
       COALESCE(stop,''),
       COALESCE(shift,''),
       COALESCE(status,''),
       COALESCE(reference_number,''),
       COALESCE(amount,0),
       COALESCE(payment_attempts,0),
       COALESCE(reject_reason,''),
       created_at,
       updated_at`

func scanApplication(row *sql.Row) (models.PassApplication, error) {
	var a models.PassApplication
	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.RouteID,
		&a.Stop,
		&a.Shift,
		&a.Status,
		&a.ReferenceNumber,
		&a.Amount,
		&a.PaymentAttempts,
		&a.RejectReason,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// Insert creates a new application row in payment_pending state. The unique
// key (student_id, open_flag) rejects a second live application for the same
// student even when two Apply calls race past the pre-insert check; that
// duplicate comes back as ConflictError.
func (r ApplicationRepository) Insert(a models.PassApplication) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO pass_applications
			(student_id, route_id, stop, shift, status, reference_number, amount, payment_attempts, open_flag, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,0,1,NOW(),NOW())`,
		a.StudentID, a.RouteID, a.Stop, a.Shift, a.Status, a.ReferenceNumber, a.Amount,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "application", Msg: "student already has an open application"}
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID fetches one application.
func (r ApplicationRepository) GetByID(id int64) (models.PassApplication, error) {
	a, err := scanApplication(r.db().QueryRow(`
		SELECT `+applicationColumns+` FROM pass_applications WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PassApplication{}, domain.NotFoundError{Resource: "application"}
		}
		return models.PassApplication{}, err
	}
	return a, nil
}

// FindOpenByStudent returns the student's non-terminal application, if any.
func (r ApplicationRepository) FindOpenByStudent(studentID int64) (models.PassApplication, bool, error) {
	placeholders := make([]string, len(models.OpenAppStatuses))
	args := []any{studentID}
	for i, s := range models.OpenAppStatuses {
		placeholders[i] = "?"
		args = append(args, s)
	}

	a, err := scanApplication(r.db().QueryRow(`
		SELECT `+applicationColumns+`
		FROM pass_applications
		WHERE student_id=? AND status IN (`+strings.Join(placeholders, ",")+`)
		ORDER BY id DESC LIMIT 1`, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.PassApplication{}, false, nil
		}
		return models.PassApplication{}, false, err
	}
	return a, true, nil
}

// UpdateStatus performs a compare-and-set transition, keeping open_flag in
// step: a move into a terminal state clears it so the per-student unique key
// frees up. It reports false when the row was not in the expected state,
// which callers surface as a conflict.
func (r ApplicationRepository) UpdateStatus(q intdb.Queryer, id int64, from, to string) (bool, error) {
	if q == nil {
		q = r.db()
	}
	var openFlag any
	if !models.TerminalAppStatus(to) {
		openFlag = 1
	}
	res, err := q.Exec(`
		UPDATE pass_applications SET status=?, open_flag=?, updated_at=NOW()
		WHERE id=? AND status=?`, to, openFlag, id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Reject moves a pending_approval application to rejected with the staff reason.
func (r ApplicationRepository) Reject(id int64, reason string) (bool, error) {
	res, err := r.db().Exec(`
		UPDATE pass_applications SET status=?, reject_reason=?, open_flag=NULL, updated_at=NOW()
		WHERE id=? AND status=?`,
		models.AppStatusRejected, reason, id, models.AppStatusPendingApproval)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// IncrementPaymentAttempts bumps the retry counter and returns the new value.
func (r ApplicationRepository) IncrementPaymentAttempts(id int64) (int, error) {
	if _, err := r.db().Exec(`
		UPDATE pass_applications SET payment_attempts=payment_attempts+1, updated_at=NOW()
		WHERE id=?`, id); err != nil {
		return 0, err
	}
	var n int
	err := r.db().QueryRow(`SELECT COALESCE(payment_attempts,0) FROM pass_applications WHERE id=?`, id).Scan(&n)
	return n, err
}

// InsertPass records the approved semester pass.
func (r ApplicationRepository) InsertPass(q intdb.Queryer, p models.Pass) (int64, error) {
	if q == nil {
		q = r.db()
	}
	res, err := q.Exec(`
		INSERT INTO passes
			(application_id, student_id, route_id, stop, shift, valid_from, valid_until, semester_charge, status)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ApplicationID, p.StudentID, p.RouteID, p.Stop, p.Shift,
		p.ValidFrom, p.ValidUntil, p.SemesterCharge, p.Status,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetPassByApplication fetches the pass produced by an approval.
func (r ApplicationRepository) GetPassByApplication(applicationID int64) (models.Pass, error) {
	var p models.Pass
	err := r.db().QueryRow(`
		SELECT id, application_id, student_id, route_id, COALESCE(stop,''), COALESCE(shift,''),
		       valid_from, valid_until, COALESCE(semester_charge,0), COALESCE(status,'')
		FROM passes WHERE application_id=? LIMIT 1`, applicationID).Scan(
		&p.ID, &p.ApplicationID, &p.StudentID, &p.RouteID, &p.Stop, &p.Shift,
		&p.ValidFrom, &p.ValidUntil, &p.SemesterCharge, &p.Status,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Pass{}, domain.NotFoundError{Resource: "pass"}
		}
		return models.Pass{}, err
	}
	return p, nil
}

// ListByStatus returns applications in one state, oldest first (staff queue).
func (r ApplicationRepository) ListByStatus(status string) ([]models.PassApplication, error) {
	rows, err := r.db().Query(`
		SELECT `+applicationColumns+`
		FROM pass_applications WHERE status=? ORDER BY id ASC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PassApplication
	for rows.Next() {
		var a models.PassApplication
		if err := rows.Scan(
			&a.ID, &a.StudentID, &a.RouteID, &a.Stop, &a.Shift, &a.Status,
			&a.ReferenceNumber, &a.Amount, &a.PaymentAttempts, &a.RejectReason,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListStalePaymentPending returns applications stuck in payment_pending
// since before the cutoff, for the expiry sweep.
func (r ApplicationRepository) ListStalePaymentPending(cutoff time.Time) ([]int64, error) {
	rows, err := r.db().Query(`
		SELECT id FROM pass_applications
		WHERE status=? AND updated_at < ?`, models.AppStatusPaymentPending, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListExpiredPasses returns active passes whose validity elapsed before now.
func (r ApplicationRepository) ListExpiredPasses(now time.Time) ([]models.Pass, error) {
	rows, err := r.db().Query(`
		SELECT id, application_id, student_id, route_id, COALESCE(stop,''), COALESCE(shift,''),
		       valid_from, valid_until, COALESCE(semester_charge,0), COALESCE(status,'')
		FROM passes WHERE status=? AND valid_until < ?`, models.PassStatusActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Pass
	for rows.Next() {
		var p models.Pass
		if err := rows.Scan(
			&p.ID, &p.ApplicationID, &p.StudentID, &p.RouteID, &p.Stop, &p.Shift,
			&p.ValidFrom, &p.ValidUntil, &p.SemesterCharge, &p.Status,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ExpirePass marks a pass and its application expired in one transaction,
// making the student appliable again.
func (r ApplicationRepository) ExpirePass(p models.Pass) error {
	return intdb.WithinTx(r.db(), func(tx *sql.Tx) error {
		res, err := tx.Exec(`UPDATE passes SET status=? WHERE id=? AND status=?`,
			models.PassStatusExpired, p.ID, models.PassStatusActive)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil // already swept
		}
		if _, err := tx.Exec(`UPDATE pass_applications SET status=?, open_flag=NULL, updated_at=NOW() WHERE id=? AND status=?`,
			models.AppStatusExpired, p.ApplicationID, models.AppStatusApproved); err != nil {
			return fmt.Errorf("expire application %d: %w", p.ApplicationID, err)
		}
		return nil
	})
}
