package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/internal/metrics"
	"court-reservation-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// Repositories bundles the persistence ports the coordinators work against.
type Repositories struct {
	Resources  ports.ResourceRepository
	Members    ports.MemberRepository
	Bookings   ports.BookingRepository
	Wallets    ports.WalletRepository
	Ledger     ports.LedgerRepository
	Transactor ports.DBTransactor
}

// BookingServiceImpl implements ports.BookingService.
type BookingServiceImpl struct {
	repos        Repositories
	reservations ports.ReservationService
	holds        ports.HoldStore
	events       ports.EventPublisher
	retry        RetryPolicy
	// pendingTimeout bounds how long a PENDING_PAYMENT booking may be confirmed.
	pendingTimeout time.Duration
	now            func() time.Time
	log            zerolog.Logger
}

// NewBookingService creates a new BookingServiceImpl.
func NewBookingService(
	repos Repositories,
	reservations ports.ReservationService,
	holds ports.HoldStore,
	events ports.EventPublisher,
	retry RetryPolicy,
	pendingTimeout time.Duration,
	log zerolog.Logger,
) *BookingServiceImpl {
	if pendingTimeout <= 0 {
		pendingTimeout = domain.DefaultPendingTimeout
	}
	return &BookingServiceImpl{
		repos:          repos,
		reservations:   reservations,
		holds:          holds,
		events:         events,
		retry:          retry,
		pendingTimeout: pendingTimeout,
		now:            func() time.Time { return time.Now().UTC() },
		log:            log,
	}
}

type commitOptions struct {
	kind      string
	status    domain.BookingStatus
	recurring bool
	parentID  *uuid.UUID
}

// CreateBooking turns the caller's live hold into a CONFIRMED booking and
// debits the wallet in the same unit of work.
func (s *BookingServiceImpl) CreateBooking(ctx context.Context, req ports.SlotRequest) (*domain.Booking, error) {
	return s.commit(ctx, req, commitOptions{kind: "create", status: domain.BookingStatusConfirmed})
}

// CreatePendingBooking turns the caller's live hold into a PENDING_PAYMENT
// booking. Nothing is debited until ConfirmPendingBooking.
func (s *BookingServiceImpl) CreatePendingBooking(ctx context.Context, req ports.SlotRequest) (*domain.Booking, error) {
	return s.commit(ctx, req, commitOptions{kind: "create_pending", status: domain.BookingStatusPendingPayment})
}

// CreateOccurrence commits one occurrence of a weekly series as CONFIRMED.
func (s *BookingServiceImpl) CreateOccurrence(ctx context.Context, req ports.SlotRequest, parentID *uuid.UUID) (*domain.Booking, error) {
	return s.commit(ctx, req, commitOptions{
		kind:      "create_recurring",
		status:    domain.BookingStatusConfirmed,
		recurring: true,
		parentID:  parentID,
	})
}

func (s *BookingServiceImpl) commit(ctx context.Context, req ports.SlotRequest, opts commitOptions) (*domain.Booking, error) {
	key, err := slotKey(req.ResourceID, req.Start, req.End)
	if err != nil {
		return nil, err
	}
	if err := checkMember(ctx, s.repos.Members, req.MemberID); err != nil {
		return nil, err
	}

	hold, err := s.reservations.Inspect(ctx, key.ResourceID, key.Start, key.End)
	if err != nil {
		return nil, err
	}
	if hold == nil || !hold.HeldBy(req.MemberID) {
		return nil, apperror.ErrNoHold()
	}

	started := time.Now()
	var booking *domain.Booking
	err = s.retry.Do(ctx, s.log, opts.kind, func(ctx context.Context) error {
		b, err := s.commitOnce(ctx, key, req.MemberID, opts)
		booking = b
		return err
	})
	metrics.ObserveCommit(opts.kind, resultCode(err), time.Since(started))
	if err != nil {
		return nil, err
	}

	// Post-commit: hold release and events are best-effort
	s.releaseCommittedHold(ctx, key, booking)
	s.events.Publish(ctx, domain.NewBookingEvent(domain.EventBookingCreated, booking, s.now()))

	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("member_id", booking.MemberID.String()).
		Str("slot", key.String()).
		Str("status", string(booking.Status)).
		Int64("total_price", booking.TotalPrice).
		Msg("booking created")
	return booking, nil
}

// releaseCommittedHold drops the caller's hold once the booking is durable and
// announces the slot like any other release. The booking itself now blocks
// the interval, so subscribers tracking holds see it leave RESERVED.
func (s *BookingServiceImpl) releaseCommittedHold(ctx context.Context, key domain.SlotKey, booking *domain.Booking) {
	now := s.now()
	released, err := s.holds.Release(ctx, key, booking.MemberID, now)
	if err != nil {
		s.log.Warn().Err(err).Str("slot", key.String()).Msg("failed to release hold after commit")
		return
	}
	if released {
		s.events.Publish(ctx, domain.NewHoldConsumedEvent(key, booking.MemberID, booking.ID, now))
	}
}

func (s *BookingServiceImpl) commitOnce(ctx context.Context, key domain.SlotKey, memberID uuid.UUID, opts commitOptions) (*domain.Booking, error) {
	tx, err := s.repos.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	resource, err := lockBookableResource(ctx, s.repos, tx, key.ResourceID)
	if err != nil {
		return nil, err
	}
	if err := ensureNoOverlap(ctx, s.repos.Bookings, tx, key.ResourceID, key.Start, key.End, nil); err != nil {
		return nil, err
	}

	now := s.now()
	booking := domain.NewBooking(key, memberID, resource.PriceFor(key.Start, key.End), opts.status, now)
	if opts.recurring {
		booking.MarkRecurring(opts.parentID)
	}

	confirmed := booking.Status == domain.BookingStatusConfirmed
	if confirmed {
		if err := debitWallet(ctx, s.repos.Wallets, tx, memberID, booking.TotalPrice, now); err != nil {
			return nil, err
		}
	}
	if err := s.repos.Bookings.Create(ctx, tx, booking); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create booking: %w", err))
	}
	if confirmed {
		if err := s.repos.Ledger.Append(ctx, tx, domain.NewPaymentEntry(booking, now)); err != nil {
			return nil, apperror.ErrDatabaseError(fmt.Errorf("append payment entry: %w", err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit booking: %w", err))
	}
	return booking, nil
}

// ConfirmPendingBooking debits the wallet for a PENDING_PAYMENT booking and
// moves it to CONFIRMED. It races the unpaid-booking sweep on the version token.
func (s *BookingServiceImpl) ConfirmPendingBooking(ctx context.Context, bookingID, memberID uuid.UUID) (*domain.Booking, error) {
	started := time.Now()
	var booking *domain.Booking
	err := s.retry.Do(ctx, s.log, "confirm", func(ctx context.Context) error {
		b, err := s.confirmOnce(ctx, bookingID, memberID)
		booking = b
		return err
	})
	metrics.ObserveCommit("confirm", resultCode(err), time.Since(started))
	if err != nil {
		return nil, err
	}

	s.events.Publish(ctx, domain.NewBookingEvent(domain.EventBookingConfirmed, booking, s.now()))
	s.log.Info().
		Str("booking_id", booking.ID.String()).
		Str("member_id", booking.MemberID.String()).
		Int64("total_price", booking.TotalPrice).
		Msg("pending booking confirmed")
	return booking, nil
}

func (s *BookingServiceImpl) confirmOnce(ctx context.Context, bookingID, memberID uuid.UUID) (*domain.Booking, error) {
	tx, err := s.repos.Transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	booking, err := s.repos.Bookings.GetByIDForUpdate(ctx, tx, bookingID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock booking: %w", err))
	}
	if booking == nil {
		return nil, apperror.ErrNotFound("booking")
	}
	if !booking.IsOwnedBy(memberID) {
		return nil, apperror.ErrBookingNotOwned()
	}
	if booking.Status != domain.BookingStatusPendingPayment {
		return nil, apperror.ErrInvalidBookingStatus(string(booking.Status))
	}
	now := s.now()
	if booking.PaymentExpiredAt(now, s.pendingTimeout) {
		return nil, apperror.ErrPaymentWindowClosed()
	}

	if _, err := lockBookableResource(ctx, s.repos, tx, booking.ResourceID); err != nil {
		return nil, err
	}
	if err := ensureNoOverlap(ctx, s.repos.Bookings, tx, booking.ResourceID, booking.StartTime, booking.EndTime, &booking.ID); err != nil {
		return nil, err
	}

	if err := debitWallet(ctx, s.repos.Wallets, tx, memberID, booking.TotalPrice, now); err != nil {
		return nil, err
	}
	booking.Confirm(now)
	if err := s.repos.Bookings.UpdateStatus(ctx, tx, booking); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("confirm booking: %w", err))
	}
	if err := s.repos.Ledger.Append(ctx, tx, domain.NewPaymentEntry(booking, now)); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("append payment entry: %w", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("commit confirmation: %w", err))
	}
	return booking, nil
}

func checkMember(ctx context.Context, members ports.MemberRepository, memberID uuid.UUID) error {
	member, err := members.GetByID(ctx, memberID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("get member: %w", err))
	}
	if member == nil {
		return apperror.ErrNotFound("member")
	}
	if !member.IsActive() {
		return apperror.ErrMemberInactive()
	}
	return nil
}

// lockBookableResource takes the court row lock so commits on one court serialize.
func lockBookableResource(ctx context.Context, repos Repositories, tx pgx.Tx, resourceID uuid.UUID) (*domain.Resource, error) {
	resource, err := repos.Resources.GetByIDForUpdate(ctx, tx, resourceID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("lock resource: %w", err))
	}
	if resource == nil {
		return nil, apperror.ErrNotFound("resource")
	}
	if !resource.IsActive {
		return nil, apperror.ErrResourceInactive()
	}
	return resource, nil
}

func ensureNoOverlap(ctx context.Context, bookings ports.BookingRepository, tx pgx.Tx, resourceID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) error {
	overlapping, err := bookings.FindConfirmedOverlapping(ctx, tx, resourceID, start, end, excludeID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("check overlap: %w", err))
	}
	if len(overlapping) > 0 {
		return apperror.ErrTimeConflict()
	}
	return nil
}

func debitWallet(ctx context.Context, wallets ports.WalletRepository, tx pgx.Tx, memberID uuid.UUID, amount int64, now time.Time) error {
	wallet, err := wallets.GetByMemberIDForUpdate(ctx, tx, memberID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}
	if err := wallet.Debit(amount, now); err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			return apperror.ErrInsufficientFunds()
		}
		return apperror.InternalError(err)
	}
	if err := wallets.Update(ctx, tx, wallet); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update wallet: %w", err))
	}
	return nil
}

func creditWallet(ctx context.Context, wallets ports.WalletRepository, tx pgx.Tx, memberID uuid.UUID, amount int64, now time.Time) error {
	wallet, err := wallets.GetByMemberIDForUpdate(ctx, tx, memberID)
	if err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return apperror.ErrNotFound("wallet")
	}
	wallet.Credit(amount, now)
	if err := wallets.Update(ctx, tx, wallet); err != nil {
		return apperror.ErrDatabaseError(fmt.Errorf("update wallet: %w", err))
	}
	return nil
}

// resultCode labels an outcome for metrics.
func resultCode(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "error"
}
