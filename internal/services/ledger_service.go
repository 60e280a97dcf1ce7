package services

import (
	"database/sql"
	"fmt"
	"time"

	intdb "buspass/internal/db"
	"buspass/internal/domain"
	"buspass/internal/domain/models"
	"buspass/internal/metrics"
	"buspass/internal/repositories"
	"buspass/internal/utils"
)

// Payment outcomes the reconciler reports to the ledger.
const (
	OutcomeVerified  = "verified"
	OutcomeFailed    = "failed"
	OutcomeCancelled = "cancelled"
)

// LedgerService owns the pass application and ticket lifecycle. All status
// moves are compare-and-set so concurrent callers and stale UIs get a
// conflict instead of silently clobbering state.
type LedgerService struct {
	AppRepo    repositories.ApplicationRepository
	TicketRepo repositories.TicketRepository
	RouteRepo  repositories.RouteRepository
	RetryLimit int
	RequestID  string
}

func (s LedgerService) retryLimit() int {
	if s.RetryLimit > 0 {
		return s.RetryLimit
	}
	return 3
}

// Apply creates a semester pass application for the session's student.
// The route charge is copied onto the application so later fee changes do
// not touch open applications.
func (s LedgerService) Apply(sess domain.Session, routeID int64, stop, shift string) (models.PassApplication, error) {
	shift = utils.NormalizeShift(shift)
	stop = utils.TrimOrEmpty(stop)
	if routeID <= 0 {
		return models.PassApplication{}, domain.ValidationError{Field: "route_id", Msg: "route id is required"}
	}
	if !domain.ValidShift(shift) {
		return models.PassApplication{}, domain.ValidationError{Field: "shift", Msg: "shift must be morning or afternoon"}
	}

	profile, err := s.RouteRepo.StudentProfile(int64(sess.UserID))
	if err != nil {
		return models.PassApplication{}, err
	}
	if !profile.ProfileComplete {
		return models.PassApplication{}, domain.ValidationError{Field: "profile", Msg: "complete your profile before applying"}
	}

	if existing, found, err := s.AppRepo.FindOpenByStudent(int64(sess.UserID)); err != nil {
		return models.PassApplication{}, err
	} else if found {
		return models.PassApplication{}, domain.ConflictError{
			Resource: "application",
			Msg:      fmt.Sprintf("application %s is still %s", existing.ReferenceNumber, existing.Status),
		}
	}

	snap, err := s.RouteRepo.Snapshot(routeID)
	if err != nil {
		return models.PassApplication{}, err
	}
	if !snap.HasShift(shift) {
		return models.PassApplication{}, domain.ValidationError{Field: "shift", Msg: "route does not operate this shift"}
	}
	if !snap.HasStop(stop) {
		return models.PassApplication{}, domain.ValidationError{Field: "stop", Msg: "stop does not exist on this route"}
	}

	app := models.PassApplication{
		StudentID:       int64(sess.UserID),
		RouteID:         routeID,
		Stop:            stop,
		Shift:           shift,
		Status:          models.AppStatusPaymentPending,
		ReferenceNumber: utils.NewReferenceNumber(),
		Amount:          snap.SemesterCharge,
	}
	id, err := s.AppRepo.Insert(app)
	if err != nil {
		return models.PassApplication{}, err
	}
	app.ID = id

	metrics.ApplicationsCreated.Inc()
	utils.LogEvent(s.RequestID, "ledger", "apply",
		fmt.Sprintf("application_id=%d student_id=%d ref=%s amount=%d", id, app.StudentID, app.ReferenceNumber, app.Amount))
	return s.AppRepo.GetByID(id)
}

// TransitionOnPayment applies a payment outcome to an application. Verified
// moves payment_pending through payment_verified to pending_approval in one
// transaction; failed/cancelled leaves the application retryable until the
// ceiling, then parks it in terminal payment_failed.
func (s LedgerService) TransitionOnPayment(tx intdb.Queryer, applicationID int64, outcome string) error {
	switch outcome {
	case OutcomeVerified:
		return s.markVerified(tx, applicationID)
	case OutcomeFailed, OutcomeCancelled:
		return s.markFailed(applicationID)
	default:
		return domain.ValidationError{Field: "outcome", Msg: "unknown payment outcome " + outcome}
	}
}

func (s LedgerService) markVerified(tx intdb.Queryer, applicationID int64) error {
	ok, err := s.AppRepo.UpdateStatus(tx, applicationID, models.AppStatusPaymentPending, models.AppStatusPaymentVerified)
	if err != nil {
		return err
	}
	if !ok {
		app, err := s.AppRepo.GetByID(applicationID)
		if err != nil {
			return err
		}
		return domain.ConflictError{
			Resource: "application",
			Msg:      fmt.Sprintf("payment outcome for application in state %s", app.Status),
		}
	}
	ok, err = s.AppRepo.UpdateStatus(tx, applicationID, models.AppStatusPaymentVerified, models.AppStatusPendingApproval)
	if err != nil {
		return err
	}
	if !ok {
		// Both updates run in the caller's transaction; a miss here is a bug.
		return domain.InternalError{Msg: fmt.Sprintf("application %d lost between verified and pending_approval", applicationID)}
	}
	utils.LogEvent(s.RequestID, "ledger", "payment_verified", fmt.Sprintf("application_id=%d", applicationID))
	return nil
}

func (s LedgerService) markFailed(applicationID int64) error {
	attempts, err := s.AppRepo.IncrementPaymentAttempts(applicationID)
	if err != nil {
		return err
	}
	if attempts < s.retryLimit() {
		utils.LogEvent(s.RequestID, "ledger", "payment_failed",
			fmt.Sprintf("application_id=%d attempts=%d still retryable", applicationID, attempts))
		return nil
	}
	ok, err := s.AppRepo.UpdateStatus(nil, applicationID, models.AppStatusPaymentPending, models.AppStatusPaymentFailed)
	if err != nil {
		return err
	}
	if ok {
		utils.LogEvent(s.RequestID, "ledger", "payment_failed",
			fmt.Sprintf("application_id=%d attempts=%d moved to %s", applicationID, attempts, models.AppStatusPaymentFailed))
	}
	return nil
}

// DecisionResult is what a staff decision returns: the updated application
// and, for approvals, the freshly minted pass.
type DecisionResult struct {
	Application models.PassApplication `json:"application"`
	Pass        *models.Pass           `json:"pass,omitempty"`
}

// Decide approves or rejects a pending application. Approval mints a pass
// valid for six months from the decision time; rejection requires a reason
// and frees the student to apply again. Deciding an application in any other
// state is a conflict, surfacing stale-UI retries to the caller.
func (s LedgerService) Decide(sess domain.Session, applicationID int64, decision, reason string) (DecisionResult, error) {
	if !sess.IsStaff() {
		return DecisionResult{}, domain.AuthorizationError{Role: sess.Role, Op: "decide applications"}
	}

	app, err := s.AppRepo.GetByID(applicationID)
	if err != nil {
		return DecisionResult{}, err
	}

	switch decision {
	case "approve":
		now := time.Now()
		pass := models.Pass{
			ApplicationID:  app.ID,
			StudentID:      app.StudentID,
			RouteID:        app.RouteID,
			Stop:           app.Stop,
			Shift:          app.Shift,
			ValidFrom:      now,
			ValidUntil:     utils.SemesterEnd(now),
			SemesterCharge: app.Amount,
			Status:         models.PassStatusActive,
		}
		var approved bool
		err := intdb.WithinTx(s.AppRepo.Conn(), func(tx *sql.Tx) error {
			ok, err := s.AppRepo.UpdateStatus(tx, app.ID, models.AppStatusPendingApproval, models.AppStatusApproved)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			id, err := s.AppRepo.InsertPass(tx, pass)
			if err != nil {
				return err
			}
			pass.ID = id
			approved = true
			return nil
		})
		if err != nil {
			return DecisionResult{}, err
		}
		if !approved {
			return DecisionResult{}, domain.ConflictError{
				Resource: "application",
				Msg:      fmt.Sprintf("cannot approve application in state %s", app.Status),
			}
		}
		utils.LogEvent(s.RequestID, "ledger", "approve",
			fmt.Sprintf("application_id=%d pass_id=%d valid_until=%s", app.ID, pass.ID, utils.FormatDate(pass.ValidUntil)))
		updated, err := s.AppRepo.GetByID(app.ID)
		if err != nil {
			return DecisionResult{}, err
		}
		return DecisionResult{Application: updated, Pass: &pass}, nil

	case "reject":
		reason = utils.NormalizeSpace(reason)
		if reason == "" {
			return DecisionResult{}, domain.ValidationError{Field: "reason", Msg: "a rejection reason is required"}
		}
		ok, err := s.AppRepo.Reject(app.ID, reason)
		if err != nil {
			return DecisionResult{}, err
		}
		if !ok {
			return DecisionResult{}, domain.ConflictError{
				Resource: "application",
				Msg:      fmt.Sprintf("cannot reject application in state %s", app.Status),
			}
		}
		utils.LogEvent(s.RequestID, "ledger", "reject", fmt.Sprintf("application_id=%d", app.ID))
		updated, err := s.AppRepo.GetByID(app.ID)
		if err != nil {
			return DecisionResult{}, err
		}
		return DecisionResult{Application: updated}, nil

	default:
		return DecisionResult{}, domain.ValidationError{Field: "decision", Msg: "decision must be approve or reject"}
	}
}

// IssueTicket atomically creates a one-day ticket for the session's student.
// A second live ticket for the same day is a conflict.
func (s LedgerService) IssueTicket(sess domain.Session, routeID int64, shift, date string) (models.Ticket, error) {
	shift = utils.NormalizeShift(shift)
	if routeID <= 0 {
		return models.Ticket{}, domain.ValidationError{Field: "route_id", Msg: "route id is required"}
	}
	if !domain.ValidShift(shift) {
		return models.Ticket{}, domain.ValidationError{Field: "shift", Msg: "shift must be morning or afternoon"}
	}
	if utils.TrimOrEmpty(date) == "" {
		date = utils.Today()
	}
	day, err := utils.ParseDate(date)
	if err != nil {
		return models.Ticket{}, domain.ValidationError{Field: "date", Msg: "date must be YYYY-MM-DD"}
	}
	if utils.FormatDate(day) < utils.Today() {
		return models.Ticket{}, domain.ValidationError{Field: "date", Msg: "ticket date is in the past"}
	}
	date = utils.FormatDate(day)

	snap, err := s.RouteRepo.Snapshot(routeID)
	if err != nil {
		return models.Ticket{}, err
	}
	if !snap.HasShift(shift) {
		return models.Ticket{}, domain.ValidationError{Field: "shift", Msg: "route does not operate this shift"}
	}

	if existing, found, err := s.TicketRepo.FindIssuedForDate(int64(sess.UserID), date); err != nil {
		return models.Ticket{}, err
	} else if found {
		return models.Ticket{}, domain.ConflictError{
			Resource: "ticket",
			Msg:      fmt.Sprintf("ticket %d for %s is still unused", existing.ID, date),
		}
	}

	ticket := models.Ticket{
		StudentID:  int64(sess.UserID),
		RouteID:    routeID,
		Shift:      shift,
		IssuedDate: date,
		Amount:     snap.TicketFare,
		Status:     models.TicketStatusIssued,
	}
	id, err := s.TicketRepo.Insert(ticket)
	if err != nil {
		return models.Ticket{}, err
	}
	utils.LogEvent(s.RequestID, "ledger", "issue_ticket",
		fmt.Sprintf("ticket_id=%d student_id=%d date=%s", id, ticket.StudentID, date))
	return s.TicketRepo.GetByID(id)
}

// UseTicket redeems a ticket at boarding. The flip is a conditional update:
// it can succeed exactly once, and only on the issue date.
func (s LedgerService) UseTicket(sess domain.Session, ticketID int64) (models.Ticket, error) {
	if !sess.IsDriver() {
		return models.Ticket{}, domain.AuthorizationError{Role: sess.Role, Op: "redeem tickets"}
	}

	today := utils.Today()
	ok, err := s.TicketRepo.MarkUsed(ticketID, today)
	if err != nil {
		return models.Ticket{}, err
	}
	if !ok {
		t, err := s.TicketRepo.GetByID(ticketID)
		if err != nil {
			return models.Ticket{}, err
		}
		switch {
		case t.Status == models.TicketStatusUsed:
			return models.Ticket{}, domain.ConflictError{Resource: "ticket", Msg: "ticket has already been used"}
		case t.Status == models.TicketStatusExpired:
			return models.Ticket{}, domain.ConflictError{Resource: "ticket", Msg: "ticket has expired"}
		case t.IssuedDate != today:
			return models.Ticket{}, domain.ValidationError{Field: "ticket", Msg: "ticket is only valid on " + t.IssuedDate}
		default:
			return models.Ticket{}, domain.InternalError{Msg: fmt.Sprintf("ticket %d in unexpected state %s", ticketID, t.Status)}
		}
	}
	utils.LogEvent(s.RequestID, "ledger", "use_ticket", fmt.Sprintf("ticket_id=%d", ticketID))
	return s.TicketRepo.GetByID(ticketID)
}
