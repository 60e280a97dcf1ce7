package repositories

import (
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"

	intconfig "buspass/internal/config"
	"buspass/internal/domain"
	"buspass/internal/domain/models"
)

type TicketRepository struct {
	DB *sql.DB
}

func (r TicketRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const ticketColumns = `id,
       student_id,
       route_id,
       COALESCE(shift,''),
       COALESCE(issued_date,''),
       COALESCE(amount,0),
       COALESCE(status,''),
       used_at,
       created_at`

func scanTicket(row *sql.Row) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(
		&t.ID, &t.StudentID, &t.RouteID, &t.Shift, &t.IssuedDate,
		&t.Amount, &t.Status, &t.UsedAt, &t.CreatedAt,
	)
	return t, err
}

// Insert creates an issued ticket. The unique key on
// (student_id, issued_date, open_flag) rejects a second live ticket for the
// same student and day; that duplicate comes back as ConflictError.
func (r TicketRepository) Insert(t models.Ticket) (int64, error) {
	res, err := r.db().Exec(`
		INSERT INTO tickets
			(student_id, route_id, shift, issued_date, amount, status, open_flag, created_at)
		VALUES (?,?,?,?,?,?,1,NOW())`,
		t.StudentID, t.RouteID, t.Shift, t.IssuedDate, t.Amount, t.Status,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "ticket", Msg: "a ticket for this date already exists"}
		}
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID fetches one ticket.
func (r TicketRepository) GetByID(id int64) (models.Ticket, error) {
	t, err := scanTicket(r.db().QueryRow(`
		SELECT `+ticketColumns+` FROM tickets WHERE id=? LIMIT 1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ticket{}, domain.NotFoundError{Resource: "ticket"}
		}
		return models.Ticket{}, err
	}
	return t, nil
}

// FindIssuedForDate returns the student's live ticket for a date, if any.
func (r TicketRepository) FindIssuedForDate(studentID int64, date string) (models.Ticket, bool, error) {
	t, err := scanTicket(r.db().QueryRow(`
		SELECT `+ticketColumns+`
		FROM tickets
		WHERE student_id=? AND issued_date=? AND status=? LIMIT 1`,
		studentID, date, models.TicketStatusIssued))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Ticket{}, false, nil
		}
		return models.Ticket{}, false, err
	}
	return t, true, nil
}

// MarkUsed flips issued -> used exactly once, and only on the issue date.
// It reports false when the conditional update matched no row.
func (r TicketRepository) MarkUsed(id int64, date string) (bool, error) {
	res, err := r.db().Exec(`
		UPDATE tickets SET status=?, used_at=NOW(), open_flag=NULL
		WHERE id=? AND status=? AND issued_date=?`,
		models.TicketStatusUsed, id, models.TicketStatusIssued, date)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n == 1, err
}

// ExpireBefore retires unused tickets from past days. Idempotent.
func (r TicketRepository) ExpireBefore(date string) (int64, error) {
	res, err := r.db().Exec(`
		UPDATE tickets SET status=?, open_flag=NULL
		WHERE status=? AND issued_date < ?`,
		models.TicketStatusExpired, models.TicketStatusIssued, date)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
