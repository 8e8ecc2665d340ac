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

// CancellationServiceImpl implements ports.CancellationService.
type CancellationServiceImpl struct {
	repos  Repositories
	events ports.EventPublisher
	retry  RetryPolicy
	cutoff time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewCancellationService creates a new CancellationServiceImpl. A
// non-positive cutoff falls back to domain.DefaultCancellationCutoff.
func NewCancellationService(repos Repositories, events ports.EventPublisher, retry RetryPolicy, cutoff time.Duration, log zerolog.Logger) *CancellationServiceImpl {
	if cutoff <= 0 {
		cutoff = domain.DefaultCancellationCutoff
	}
	return &CancellationServiceImpl{
		repos:  repos,
		events: events,
		retry:  retry,
		cutoff: cutoff,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// Cancel refunds a CONFIRMED booking that starts at least the cutoff from now.
// Credit, refund entry and status change commit together.
func (s *CancellationServiceImpl) Cancel(ctx context.Context, bookingID, memberID uuid.UUID) (*domain.Booking, error) {
	// Cheap eligibility check before taking any lock
	current, err := s.repos.Bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get booking: %w", err))
	}
	if err := s.checkEligible(current, memberID, s.now()); err != nil {
		return nil, err
	}

	started := time.Now()
	var booking *domain.Booking
	err = s.retry.Do(ctx, s.log, "cancel", func(ctx context.Context) error {
		b, err := s.cancelOnce(ctx, bookingID, memberID)
		booking = b
		return err
	})
	metrics.ObserveCommit("cancel", resultCode(err), time.Since(started))
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, domain.NewBookingEvent(domain.EventBookingCancelled, booking, s.now()))
	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("member_id", booking.MemberID.String()).
		Int64("refund", booking.TotalPrice).
		Msg("booking cancelled and refunded")
	return booking, nil
}

func (s *CancellationServiceImpl) cancelOnce(ctx context.Context, bookingID, memberID uuid.UUID) (*domain.Booking, error) {
	tx, err := s.repos.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	booking, err := s.repos.Bookings.GetByIDForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock booking: %w", err))
	}
	now := s.now()
	if err := s.checkEligible(booking, memberID, now); err != nil {
		return nil, err
	}

	if err := creditWallet(ctx, s.repos.Wallets, tx, booking.MemberID, booking.TotalPrice, now); err != nil {
		return nil, err
	}
	if err := s.repos.Ledger.Append(ctx, tx, domain.NewRefundEntry(booking, now)); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("append refund entry: %w", err))
	}
	booking.Cancel(now, domain.CancelReasonMember)
	if err := s.repos.Bookings.UpdateStatus(ctx, tx, booking); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("cancel booking: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit cancellation: %w", err))
	}
	return booking, nil
}

func (s *CancellationServiceImpl) checkEligible(b *domain.Booking, memberID uuid.UUID, now time.Time) error {
	if b == nil {
		return apperror.ErrNotFound("booking")
	}
	if !b.IsOwnedBy(memberID) {
		return apperror.ErrBookingNotOwned()
	}
	if b.Status != domain.BookingStatusConfirmed {
		return apperror.ErrInvalidBookingStatus(string(b.Status))
	}
	if !b.CancellableAt(now, s.cutoff) {
		return apperror.ErrCancellationWindowClosed()
	}
	return nil
}
