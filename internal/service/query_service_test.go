package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/internal/core/ports/mocks"
	"court-reservation-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestQueryService_ListMemberBookings_ClampsPaging(t *testing.T) {
	ctrl := gomock.NewController(t)
	bookings := mocks.NewMockBookingRepository(ctrl)
	svc := NewQueryService(Repositories{Bookings: bookings}, nil)
	member := uuid.New()

	bookings.EXPECT().ListByMember(gomock.Any(), ports.BookingListParams{MemberID: member, Page: 1, PageSize: 100}).
		Return([]domain.Booking{}, int64(0), nil)
	bookings.EXPECT().ListByMember(gomock.Any(), ports.BookingListParams{MemberID: member, Page: 1, PageSize: 20}).
		Return(nil, int64(0), errors.New("db down"))

	_, _, err := svc.ListMemberBookings(context.Background(), ports.BookingListParams{MemberID: member, Page: -3, PageSize: 500})
	require.NoError(t, err)

	_, _, err = svc.ListMemberBookings(context.Background(), ports.BookingListParams{MemberID: member})
	assert.True(t, apperror.HasCode(err, apperror.CodeInternal))
}

func TestQueryService_ListCalendar_Validation(t *testing.T) {
	svc := NewQueryService(Repositories{}, nil)
	court := uuid.New()

	_, err := svc.ListCalendar(context.Background(), court, t0, t0)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidInterval))

	_, err = svc.ListCalendar(context.Background(), court, t0, t0.Add(40*24*time.Hour))
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestQueryService_GetWallet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	wallets := mocks.NewMockWalletRepository(ctrl)
	svc := NewQueryService(Repositories{Wallets: wallets}, nil)
	member := uuid.New()

	wallets.EXPECT().GetByMemberID(gomock.Any(), member).Return(nil, nil)

	_, err := svc.GetWallet(context.Background(), member)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestQueryService_ListLedger_ClampsPaging(t *testing.T) {
	ctrl := gomock.NewController(t)
	ledger := mocks.NewMockLedgerRepository(ctrl)
	svc := NewQueryService(Repositories{Ledger: ledger}, nil)
	member := uuid.New()

	ledger.EXPECT().ListByMemberPaged(gomock.Any(), member, 1, 100).Return([]domain.LedgerEntry{}, int64(0), nil)
	ledger.EXPECT().ListByMemberPaged(gomock.Any(), member, 1, 20).Return(nil, int64(0), errors.New("db down"))

	_, _, err := svc.ListLedger(context.Background(), member, 0, 1000)
	require.NoError(t, err)

	_, _, err = svc.ListLedger(context.Background(), member, -1, 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeInternal))
}

// Against the memory store.

func TestQuery_CheckAvailability(t *testing.T) {
	env := newMemEnv(t)
	court := env.addCourt(t, 100000)
	member := env.addMember(t, 500000)
	start := t0.Add(48 * time.Hour)
	ctx := context.Background()

	avail, err := env.query.CheckAvailability(ctx, court, start, start.Add(time.Hour), nil)
	require.NoError(t, err)
	assert.True(t, avail.Available)
	assert.Nil(t, avail.CurrentHold)

	b, err := env.reserveAndBook(t, member, court, start, start.Add(time.Hour))
	require.NoError(t, err)

	avail, err = env.query.CheckAvailability(ctx, court, start.Add(30*time.Minute), start.Add(90*time.Minute), nil)
	require.NoError(t, err)
	assert.False(t, avail.Available)
	require.Len(t, avail.Conflicts, 1)
	assert.Equal(t, b.ID, avail.Conflicts[0].ID)

	avail, err = env.query.CheckAvailability(ctx, court, start, start.Add(time.Hour), &b.ID)
	require.NoError(t, err)
	assert.True(t, avail.Available, "excluded booking does not conflict")

	avail, err = env.query.CheckAvailability(ctx, court, start.Add(time.Hour), start.Add(2*time.Hour), nil)
	require.NoError(t, err)
	assert.True(t, avail.Available, "adjacent slot is free")

	_, err = env.reservations.Reserve(ctx, slotReq(member, court, start.Add(time.Hour), time.Hour))
	require.NoError(t, err)
	avail, err = env.query.CheckAvailability(ctx, court, start.Add(time.Hour), start.Add(2*time.Hour), nil)
	require.NoError(t, err)
	require.NotNil(t, avail.CurrentHold)
	assert.Equal(t, member, avail.CurrentHold.HolderID)

	_, err = env.query.CheckAvailability(ctx, uuid.New(), start, start.Add(time.Hour), nil)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestQuery_CalendarAndWallet(t *testing.T) {
	env := newMemEnv(t)
	court := env.addCourt(t, 100000)
	member := env.addMember(t, 500000)
	start := t0.Add(48 * time.Hour)
	ctx := context.Background()

	first, err := env.reserveAndBook(t, member, court, start.Add(2*time.Hour), start.Add(3*time.Hour))
	require.NoError(t, err)
	req := slotReq(member, court, start, time.Hour)
	_, err = env.reservations.Reserve(ctx, req)
	require.NoError(t, err)
	pending, err := env.booking.CreatePendingBooking(ctx, req)
	require.NoError(t, err)

	calendar, err := env.query.ListCalendar(ctx, court, start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, calendar, 2)
	assert.Equal(t, pending.ID, calendar[0].ID, "ordered by start")
	assert.Equal(t, first.ID, calendar[1].ID)

	summary, err := env.query.GetWallet(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, int64(400000), summary.Account.Balance)
	require.Len(t, summary.RecentEntries, 1)
	assert.Equal(t, domain.LedgerKindPayment, summary.RecentEntries[0].Kind)

	page, total, err := env.query.ListMemberBookings(ctx, ports.BookingListParams{MemberID: member, Page: 1, PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, page, 1)
}

var _ ports.QueryService = (*QueryServiceImpl)(nil)

func TestQuery_LedgerHistoryPages(t *testing.T) {
	env := newMemEnv(t)
	court := env.addCourt(t, 100000)
	member := env.addMember(t, 500000)
	start := t0.Add(48 * time.Hour)
	ctx := context.Background()

	first, err := env.reserveAndBook(t, member, court, start, start.Add(time.Hour))
	require.NoError(t, err)
	env.clock.Advance(time.Minute)
	second, err := env.reserveAndBook(t, member, court, start.Add(time.Hour), start.Add(2*time.Hour))
	require.NoError(t, err)

	entries, total, err := env.query.ListLedger(ctx, member, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, entries, 1)
	assert.Equal(t, second.ID, *entries[0].RelatedBookingID, "newest first")

	entries, _, err = env.query.ListLedger(ctx, member, 2, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, first.ID, *entries[0].RelatedBookingID)

	entries, total, err = env.query.ListLedger(ctx, env.addMember(t, 0), 1, 20)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, entries)
}
