package services

import (
	"context"
	"fmt"
	"time"

	"buspass/internal/domain/models"
	"buspass/internal/metrics"
	"buspass/internal/repositories"
	"buspass/internal/utils"
)

// Sweeper runs the periodic expiry passes: applications stuck in
// payment_pending, passes whose validity elapsed, and unused tickets from
// past days. Every sweep is idempotent and a failure on one record never
// blocks the rest.
type Sweeper struct {
	AppRepo    repositories.ApplicationRepository
	TicketRepo repositories.TicketRepository
	PendingTTL time.Duration
}

func (s Sweeper) pendingTTL() time.Duration {
	if s.PendingTTL > 0 {
		return s.PendingTTL
	}
	return 48 * time.Hour
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepOnce(time.Now())
		}
	}
}

// SweepOnce executes all three expiry passes for the given instant.
func (s Sweeper) SweepOnce(now time.Time) {
	s.sweepStalePayments(now)
	s.sweepExpiredPasses(now)
	s.sweepExpiredTickets(now)
}

func (s Sweeper) sweepStalePayments(now time.Time) {
	ids, err := s.AppRepo.ListStalePaymentPending(now.Add(-s.pendingTTL()))
	if err != nil {
		utils.LogEvent("", "sweeper", "stale_payments", "list failed: "+err.Error())
		return
	}
	for _, id := range ids {
		ok, err := s.AppRepo.UpdateStatus(nil, id, models.AppStatusPaymentPending, models.AppStatusPaymentFailed)
		if err != nil {
			utils.LogEvent("", "sweeper", "stale_payments", fmt.Sprintf("application_id=%d failed: %v", id, err))
			continue
		}
		if ok {
			metrics.SweepExpirations.WithLabelValues("stale_payment").Inc()
			utils.LogEvent("", "sweeper", "stale_payments", fmt.Sprintf("application_id=%d timed out", id))
		}
	}
}

func (s Sweeper) sweepExpiredPasses(now time.Time) {
	passes, err := s.AppRepo.ListExpiredPasses(now)
	if err != nil {
		utils.LogEvent("", "sweeper", "expired_passes", "list failed: "+err.Error())
		return
	}
	for _, p := range passes {
		if err := s.AppRepo.ExpirePass(p); err != nil {
			utils.LogEvent("", "sweeper", "expired_passes", fmt.Sprintf("pass_id=%d failed: %v", p.ID, err))
			continue
		}
		metrics.SweepExpirations.WithLabelValues("pass").Inc()
		utils.LogEvent("", "sweeper", "expired_passes", fmt.Sprintf("pass_id=%d expired", p.ID))
	}
}

func (s Sweeper) sweepExpiredTickets(now time.Time) {
	n, err := s.TicketRepo.ExpireBefore(utils.FormatDate(now))
	if err != nil {
		utils.LogEvent("", "sweeper", "expired_tickets", "update failed: "+err.Error())
		return
	}
	if n > 0 {
		metrics.SweepExpirations.WithLabelValues("ticket").Add(float64(n))
		utils.LogEvent("", "sweeper", "expired_tickets", fmt.Sprintf("expired %d tickets", n))
	}
}
