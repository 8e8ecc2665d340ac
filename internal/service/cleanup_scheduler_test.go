package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestCleanup_HoldExpirySweep(t *testing.T) {
	env := newMemEnv(t)
	court := uuid.New()
	ctx := context.Background()

	_, err := env.reservations.Reserve(ctx, slotReq(uuid.New(), court, t0.Add(24*time.Hour), time.Hour))
	require.NoError(t, err)
	_, err = env.reservations.Reserve(ctx, slotReq(uuid.New(), court, t0.Add(26*time.Hour), time.Hour))
	require.NoError(t, err)

	report := env.cleanup.RunOnce(ctx)
	assert.Zero(t, report.HoldsReclaimed, "live holds survive")

	env.clock.Advance(6 * time.Minute)
	report = env.cleanup.RunOnce(ctx)
	assert.Equal(t, 2, report.HoldsReclaimed)
	assert.Zero(t, env.holds.Len())

	states := env.events.slotStates()
	assert.Equal(t, []domain.SlotState{
		domain.SlotStateReserved, domain.SlotStateReserved,
		domain.SlotStateAvailable, domain.SlotStateAvailable,
	}, states)
}

func TestCleanup_UnpaidBookingTimesOut(t *testing.T) {
	env := newMemEnv(t)
	court := env.addCourt(t, 100000)
	member := env.addMember(t, 150000)
	ctx := context.Background()
	req := slotReq(member, court, t0.Add(48*time.Hour), time.Hour)

	_, err := env.reservations.Reserve(ctx, req)
	require.NoError(t, err)
	pending, err := env.booking.CreatePendingBooking(ctx, req)
	require.NoError(t, err)

	env.clock.Advance(4 * time.Minute)
	assert.Zero(t, env.cleanup.RunOnce(ctx).BookingsTimedOut)

	env.clock.Advance(2 * time.Minute)
	report := env.cleanup.RunOnce(ctx)
	assert.Equal(t, 1, report.BookingsTimedOut)

	b, err := env.bookings.GetByID(ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCancelled, b.Status)
	assert.Equal(t, domain.CancelReasonTimeout, *b.CancelReason)
	assert.Equal(t, t0.Add(6*time.Minute), *b.CancelledAt)
	assert.Equal(t, int64(150000), env.wallet(t, member).Balance, "no refund, nothing was charged")
	assert.Len(t, env.events.ofType(domain.EventBookingTimedOut), 1)

	_, err = env.booking.ConfirmPendingBooking(ctx, pending.ID, member)
	assert.Error(t, err, "timed out booking cannot be confirmed")
}

func TestCleanup_ConfirmedPendingIsSkipped(t *testing.T) {
	env := newMemEnv(t)
	court := env.addCourt(t, 100000)
	member := env.addMember(t, 150000)
	ctx := context.Background()
	req := slotReq(member, court, t0.Add(48*time.Hour), time.Hour)

	_, err := env.reservations.Reserve(ctx, req)
	require.NoError(t, err)
	pending, err := env.booking.CreatePendingBooking(ctx, req)
	require.NoError(t, err)
	_, err = env.booking.ConfirmPendingBooking(ctx, pending.ID, member)
	require.NoError(t, err)

	env.clock.Advance(10 * time.Minute)
	report := env.cleanup.RunOnce(ctx)
	assert.Zero(t, report.BookingsTimedOut)
	assert.Zero(t, report.Failures)
}

func TestCleanup_ReminderSentOnce(t *testing.T) {
	env := newMemEnv(t)
	court := env.addCourt(t, 100000)
	member := env.addMember(t, 500000)
	ctx := context.Background()

	soon, err := env.reserveAndBook(t, member, court, t0.Add(23*time.Hour+30*time.Minute), t0.Add(24*time.Hour+30*time.Minute))
	require.NoError(t, err)
	_, err = env.reserveAndBook(t, member, court, t0.Add(30*time.Hour), t0.Add(31*time.Hour))
	require.NoError(t, err)

	report := env.cleanup.RunOnce(ctx)
	assert.Equal(t, 1, report.RemindersSent)

	reminders := env.events.ofType(domain.EventBookingReminder)
	require.Len(t, reminders, 1)
	assert.Equal(t, soon.ID, reminders[0].Booking.ID)

	report = env.cleanup.RunOnce(ctx)
	assert.Zero(t, report.RemindersSent)
	assert.Len(t, env.events.ofType(domain.EventBookingReminder), 1)
}

func TestCleanup_CompletionSweep(t *testing.T) {
	env := newMemEnv(t)
	court := env.addCourt(t, 100000)
	member := env.addMember(t, 500000)
	ctx := context.Background()

	b, err := env.reserveAndBook(t, member, court, t0.Add(time.Hour), t0.Add(2*time.Hour))
	require.NoError(t, err)

	env.clock.Advance(90 * time.Minute)
	assert.Zero(t, env.cleanup.RunOnce(ctx).BookingsCompleted)

	env.clock.Advance(30 * time.Minute)
	report := env.cleanup.RunOnce(ctx)
	assert.Equal(t, 1, report.BookingsCompleted)

	got, err := env.bookings.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingStatusCompleted, got.Status)
	assert.Len(t, env.events.ofType(domain.EventBookingCompleted), 1)
}

func TestCleanup_ItemFailureDoesNotStopSweep(t *testing.T) {
	ctrl := gomock.NewController(t)
	holds := mocks.NewMockHoldStore(ctrl)
	bookings := mocks.NewMockBookingRepository(ctrl)
	transactor := mocks.NewMockDBTransactor(ctrl)
	events := &recordingPublisher{}

	c := NewCleanupScheduler(holds, Repositories{Bookings: bookings, Transactor: transactor}, events,
		RetryPolicy{MaxAttempts: 1}, DefaultCleanupConfig(), zerolog.Nop())
	c.now = func() time.Time { return t0 }

	key, _ := domain.NewSlotKey(uuid.New(), t0.Add(time.Hour), t0.Add(2*time.Hour))
	broken := domain.NewBooking(key, uuid.New(), 1000, domain.BookingStatusPendingPayment, t0.Add(-time.Hour))
	stale := domain.NewBooking(key, uuid.New(), 1000, domain.BookingStatusPendingPayment, t0.Add(-time.Hour))
	tx := &mockTx{}

	holds.EXPECT().PurgeExpired(gomock.Any(), t0).Return(nil, errors.New("redis down"))
	bookings.EXPECT().ListPendingCreatedBefore(gomock.Any(), t0.Add(-domain.DefaultPendingTimeout), 500).
		Return([]domain.Booking{*broken, *stale}, nil)
	transactor.EXPECT().Begin(gomock.Any()).Return(tx, nil).Times(2)
	bookings.EXPECT().GetByIDForUpdate(gomock.Any(), tx, broken.ID).Return(nil, errors.New("row lock timeout"))
	bookings.EXPECT().GetByIDForUpdate(gomock.Any(), tx, stale.ID).DoAndReturn(func(context.Context, pgx.Tx, uuid.UUID) (*domain.Booking, error) {
		b := *stale
		return &b, nil
	})
	bookings.EXPECT().UpdateStatus(gomock.Any(), tx, gomock.Any()).Return(nil)
	bookings.EXPECT().ListConfirmedStartingBetween(gomock.Any(), t0.Add(23*time.Hour), t0.Add(24*time.Hour), 500).Return(nil, nil)
	bookings.EXPECT().ListConfirmedEndedBefore(gomock.Any(), t0, 500).Return(nil, errors.New("db down"))

	report := c.RunOnce(context.Background())
	assert.Equal(t, 1, report.BookingsTimedOut)
	assert.Equal(t, 3, report.Failures)
}

func TestCleanup_RunStopsOnCancel(t *testing.T) {
	env := newMemEnv(t)
	env.cleanup.cfg.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- env.cleanup.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
