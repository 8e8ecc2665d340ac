package service

import (
	"context"
	"fmt"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/internal/metrics"
	"court-reservation-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CleanupConfig tunes the periodic sweeps.
type CleanupConfig struct {
	Interval       time.Duration
	PendingTimeout time.Duration
	// Reminders go out for bookings starting in [now+ReminderFrom, now+ReminderTo].
	ReminderFrom time.Duration
	ReminderTo   time.Duration
	// BatchSize caps the items one sweep picks up; <= 0 means all.
	BatchSize int
}

// DefaultCleanupConfig returns a one-minute tick, five-minute payment window
// and a 23h-24h reminder window.
func DefaultCleanupConfig() CleanupConfig {
	return CleanupConfig{
		Interval:       time.Minute,
		PendingTimeout: domain.DefaultPendingTimeout,
		ReminderFrom:   23 * time.Hour,
		ReminderTo:     24 * time.Hour,
		BatchSize:      500,
	}
}

// SweepReport counts what one tick did.
type SweepReport struct {
	HoldsReclaimed    int
	BookingsTimedOut  int
	RemindersSent     int
	BookingsCompleted int
	Failures          int
}

// CleanupScheduler reclaims expired holds, times out unpaid bookings, sends
// reminders and completes finished bookings. Items are processed one by one;
// a failing item is logged and the sweep moves on.
type CleanupScheduler struct {
	holds  ports.HoldStore
	repos  Repositories
	events ports.EventPublisher
	retry  RetryPolicy
	cfg    CleanupConfig
	now    func() time.Time
	log    zerolog.Logger
}

// NewCleanupScheduler creates a new CleanupScheduler.
func NewCleanupScheduler(holds ports.HoldStore, repos Repositories, events ports.EventPublisher, retry RetryPolicy, cfg CleanupConfig, log zerolog.Logger) *CleanupScheduler {
	def := DefaultCleanupConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.PendingTimeout <= 0 {
		cfg.PendingTimeout = def.PendingTimeout
	}
	if cfg.ReminderTo <= 0 || cfg.ReminderFrom > cfg.ReminderTo {
		cfg.ReminderFrom, cfg.ReminderTo = def.ReminderFrom, def.ReminderTo
	}
	return &CleanupScheduler{
		holds:  holds,
		repos:  repos,
		events: events,
		retry:  retry,
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// Run sweeps on every tick until ctx is done.
func (c *CleanupScheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	c.log.Info().Dur("interval", c.cfg.Interval).Msg("cleanup scheduler started")
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Msg("cleanup scheduler stopped")
			return nil
		case <-ticker.C:
			c.RunOnce(ctx)
		}
	}
}

// RunOnce performs every sweep once, in order.
func (c *CleanupScheduler) RunOnce(ctx context.Context) SweepReport {
	var report SweepReport
	c.sweepHolds(ctx, &report)
	c.sweepUnpaid(ctx, &report)
	c.sweepReminders(ctx, &report)
	c.sweepCompleted(ctx, &report)

	if report != (SweepReport{}) {
		c.log.Info().
			Int("holds_reclaimed", report.HoldsReclaimed).
			Int("bookings_timed_out", report.BookingsTimedOut).
			Int("reminders_sent", report.RemindersSent).
			Int("bookings_completed", report.BookingsCompleted).
			Int("failures", report.Failures).
			Msg("cleanup sweep finished")
	}
	return report
}

func (c *CleanupScheduler) sweepHolds(ctx context.Context, report *SweepReport) {
	now := c.now()
	purged, err := c.holds.PurgeExpired(ctx, now)
	for i := range purged {
		hold := purged[i]
		c.events.Publish(ctx, domain.NewSlotAvailableEvent(hold.Key, hold.HolderID, now))
		metrics.IncSweep("holds", "ok")
		report.HoldsReclaimed++
	}
	if err != nil {
		metrics.IncSweep("holds", "failed")
		report.Failures++
		c.log.Error().Err(err).Msg("hold expiry sweep failed")
	}
}

func (c *CleanupScheduler) sweepUnpaid(ctx context.Context, report *SweepReport) {
	cutoff := c.now().Add(-c.cfg.PendingTimeout)
	pending, err := c.repos.Bookings.ListPendingCreatedBefore(ctx, cutoff, c.cfg.BatchSize)
	if err != nil {
		metrics.IncSweep("unpaid", "failed")
		report.Failures++
		c.log.Error().Err(err).Msg("unpaid booking sweep: list failed")
		return
	}

	for _, b := range pending {
		booking, err := c.transition(ctx, "timeout", b.ID, func(b *domain.Booking, now time.Time) bool {
			if b.Status != domain.BookingStatusPendingPayment || now.Sub(b.CreatedAt) < c.cfg.PendingTimeout {
				return false
			}
			b.Cancel(now, domain.CancelReasonTimeout)
			return true
		})
		if c.record(report, "unpaid", b.ID, booking, err) {
			report.BookingsTimedOut++
			c.events.Publish(ctx, domain.NewBookingEvent(domain.EventBookingTimedOut, booking, c.now()))
		}
	}
}

func (c *CleanupScheduler) sweepReminders(ctx context.Context, report *SweepReport) {
	now := c.now()
	upcoming, err := c.repos.Bookings.ListConfirmedStartingBetween(ctx, now.Add(c.cfg.ReminderFrom), now.Add(c.cfg.ReminderTo), c.cfg.BatchSize)
	if err != nil {
		metrics.IncSweep("reminders", "failed")
		report.Failures++
		c.log.Error().Err(err).Msg("reminder sweep: list failed")
		return
	}

	for i := range upcoming {
		b := upcoming[i]
		// Claim the flag first so a slow or repeated tick never sends twice
		claimed, err := c.repos.Bookings.MarkReminderSent(ctx, b.ID)
		if err != nil {
			metrics.IncSweep("reminders", "failed")
			report.Failures++
			c.log.Error().Err(err).Str("booking_id", b.ID.String()).Msg("reminder sweep: claim failed")
			continue
		}
		if !claimed {
			metrics.IncSweep("reminders", "skipped")
			continue
		}
		b.ReminderSent = true
		c.events.Publish(ctx, domain.NewBookingEvent(domain.EventBookingReminder, &b, now))
		metrics.IncSweep("reminders", "ok")
		report.RemindersSent++
	}
}

func (c *CleanupScheduler) sweepCompleted(ctx context.Context, report *SweepReport) {
	ended, err := c.repos.Bookings.ListConfirmedEndedBefore(ctx, c.now(), c.cfg.BatchSize)
	if err != nil {
		metrics.IncSweep("completion", "failed")
		report.Failures++
		c.log.Error().Err(err).Msg("completion sweep: list failed")
		return
	}

	for _, b := range ended {
		booking, err := c.transition(ctx, "complete", b.ID, func(b *domain.Booking, now time.Time) bool {
			if b.Status != domain.BookingStatusConfirmed || b.EndTime.After(now) {
				return false
			}
			b.Complete(now)
			return true
		})
		if c.record(report, "completion", b.ID, booking, err) {
			report.BookingsCompleted++
			c.events.Publish(ctx, domain.NewBookingEvent(domain.EventBookingCompleted, booking, c.now()))
		}
	}
}

// transition re-reads the booking under lock and applies change if it still
// applies. A nil booking with a nil error means the item no longer qualifies.
func (c *CleanupScheduler) transition(ctx context.Context, operation string, id uuid.UUID, change func(*domain.Booking, time.Time) bool) (*domain.Booking, error) {
	var result *domain.Booking
	err := c.retry.Do(ctx, c.log, operation, func(ctx context.Context) error {
		result = nil
		tx, err := c.repos.Transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer tx.Rollback(ctx) //nolint:errcheck

		booking, err := c.repos.Bookings.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("lock booking: %w", err))
		}
		if booking == nil || !change(booking, c.now()) {
			return nil
		}
		if err := c.repos.Bookings.UpdateStatus(ctx, tx, booking); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("update booking: %w", err))
		}
		if err := tx.Commit(ctx); err != nil {
			return apperror.ErrDatabaseError(fmt.Errorf("commit %s: %w", operation, err))
		}
		result = booking
		return nil
	})
	return result, err
}

// record counts the item outcome and reports whether it changed state.
func (c *CleanupScheduler) record(report *SweepReport, sweep string, id uuid.UUID, booking *domain.Booking, err error) bool {
	switch {
	case err != nil:
		metrics.IncSweep(sweep, "failed")
		report.Failures++
		c.log.Error().Err(err).Str("sweep", sweep).Str("booking_id", id.String()).Msg("sweep item failed")
		return false
	case booking == nil:
		metrics.IncSweep(sweep, "skipped")
		return false
	default:
		metrics.IncSweep(sweep, "ok")
		return true
	}
}
