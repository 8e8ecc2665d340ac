package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(resourceID, memberID uuid.UUID, start time.Time, status domain.BookingStatus) *domain.Booking {
	key, _ := domain.NewSlotKey(resourceID, start, start.Add(time.Hour))
	return domain.NewBooking(key, memberID, 100000, status, t0)
}

func insert(t *testing.T, s *Store, b *domain.Booking) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, NewBookingRepo(s).Create(ctx, tx, b))
	require.NoError(t, tx.Commit(ctx))
}

func TestStore_CommitPublishesWork(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewBookingRepo(s)
	b := newBooking(uuid.New(), uuid.New(), t0, domain.BookingStatusConfirmed)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, b))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got, "uncommitted work is invisible")

	require.NoError(t, tx.Commit(ctx))

	got, err = repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.ID, got.ID)
}

func TestStore_RollbackDiscardsWork(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewBookingRepo(s)
	b := newBooking(uuid.New(), uuid.New(), t0, domain.BookingStatusConfirmed)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, tx, b))
	require.NoError(t, tx.Rollback(ctx))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.ErrorIs(t, tx.Rollback(ctx), pgx.ErrTxClosed)
	assert.ErrorIs(t, tx.Commit(ctx), pgx.ErrTxClosed)
}

func TestStore_BeginWaitsForRunningTx(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = s.Begin(waitCtx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, tx.Rollback(ctx))

	tx2, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx2.Rollback(ctx))
}

func TestStore_ClosedTxIsRejected(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))

	err = NewBookingRepo(s).Create(ctx, tx, newBooking(uuid.New(), uuid.New(), t0, domain.BookingStatusConfirmed))
	assert.ErrorIs(t, err, pgx.ErrTxClosed)
}

func TestBookingRepo_UpdateStatusChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewBookingRepo(s)
	b := newBooking(uuid.New(), uuid.New(), t0, domain.BookingStatusPendingPayment)
	insert(t, s, b)

	stale := *b

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	b.Confirm(t0)
	require.NoError(t, repo.UpdateStatus(ctx, tx, b))
	assert.Equal(t, int64(1), b.Version)
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	stale.Cancel(t0, domain.CancelReasonTimeout)
	err = repo.UpdateStatus(ctx, tx, &stale)
	assert.ErrorIs(t, err, ports.ErrConcurrencyConflict)
}

func TestBookingRepo_FindConfirmedOverlapping(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewBookingRepo(s)
	court := uuid.New()

	confirmed := newBooking(court, uuid.New(), t0, domain.BookingStatusConfirmed)
	pending := newBooking(court, uuid.New(), t0, domain.BookingStatusPendingPayment)
	adjacent := newBooking(court, uuid.New(), t0.Add(time.Hour), domain.BookingStatusConfirmed)
	otherCourt := newBooking(uuid.New(), uuid.New(), t0, domain.BookingStatusConfirmed)
	for _, b := range []*domain.Booking{confirmed, pending, adjacent, otherCourt} {
		insert(t, s, b)
	}

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	got, err := repo.FindConfirmedOverlapping(ctx, tx, court, t0.Add(30*time.Minute), t0.Add(time.Hour), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, confirmed.ID, got[0].ID)

	got, err = repo.FindConfirmedOverlapping(ctx, tx, court, t0, t0.Add(time.Hour), &confirmed.ID)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestBookingRepo_SweepQueries(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewBookingRepo(s)
	court := uuid.New()

	oldPending := newBooking(court, uuid.New(), t0.Add(48*time.Hour), domain.BookingStatusPendingPayment)
	oldPending.CreatedAt = t0.Add(-10 * time.Minute)
	freshPending := newBooking(court, uuid.New(), t0.Add(50*time.Hour), domain.BookingStatusPendingPayment)
	tomorrow := newBooking(court, uuid.New(), t0.Add(23*time.Hour+30*time.Minute), domain.BookingStatusConfirmed)
	finished := newBooking(court, uuid.New(), t0.Add(-2*time.Hour), domain.BookingStatusConfirmed)
	for _, b := range []*domain.Booking{oldPending, freshPending, tomorrow, finished} {
		insert(t, s, b)
	}

	pending, err := repo.ListPendingCreatedBefore(ctx, t0.Add(-5*time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, oldPending.ID, pending[0].ID)

	upcoming, err := repo.ListConfirmedStartingBetween(ctx, t0.Add(23*time.Hour), t0.Add(24*time.Hour), 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, tomorrow.ID, upcoming[0].ID)

	claimed, err := repo.MarkReminderSent(ctx, tomorrow.ID)
	require.NoError(t, err)
	assert.True(t, claimed)
	claimed, err = repo.MarkReminderSent(ctx, tomorrow.ID)
	require.NoError(t, err)
	assert.False(t, claimed, "flag is claimed once")

	upcoming, err = repo.ListConfirmedStartingBetween(ctx, t0.Add(23*time.Hour), t0.Add(24*time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, upcoming)

	ended, err := repo.ListConfirmedEndedBefore(ctx, t0, 10)
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, finished.ID, ended[0].ID)
}

func TestBookingRepo_ListByMemberPages(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewBookingRepo(s)
	member := uuid.New()

	for i := 0; i < 5; i++ {
		b := newBooking(uuid.New(), member, t0.Add(time.Duration(i)*time.Hour), domain.BookingStatusConfirmed)
		b.CreatedAt = t0.Add(time.Duration(i) * time.Minute)
		insert(t, s, b)
	}
	insert(t, s, newBooking(uuid.New(), uuid.New(), t0, domain.BookingStatusConfirmed))

	page, total, err := repo.ListByMember(ctx, ports.BookingListParams{MemberID: member, Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, page, 2)
	assert.True(t, page[0].CreatedAt.After(page[1].CreatedAt), "newest first")

	page, _, err = repo.ListByMember(ctx, ports.BookingListParams{MemberID: member, Page: 3, PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	cancelled := domain.BookingStatusCancelled
	page, total, err = repo.ListByMember(ctx, ports.BookingListParams{MemberID: member, Status: &cancelled, Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, page)
}

func TestWalletRepo_UpdateChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewWalletRepo(s)
	member := uuid.New()
	require.NoError(t, repo.Put(ctx, domain.WalletAccount{MemberID: member, Balance: 150000}))

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	w, err := repo.GetByMemberIDForUpdate(ctx, tx, member)
	require.NoError(t, err)
	stale := *w
	require.NoError(t, w.Debit(100000, t0))
	require.NoError(t, repo.Update(ctx, tx, w))
	require.NoError(t, tx.Commit(ctx))

	tx, err = s.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck
	assert.ErrorIs(t, repo.Update(ctx, tx, &stale), ports.ErrConcurrencyConflict)

	committed, err := repo.GetByMemberID(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, int64(50000), committed.Balance)
	assert.Equal(t, int64(100000), committed.CumulativeSpend)
	assert.Equal(t, int64(1), committed.Version)
}

func TestLedgerRepo_Lists(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	repo := NewLedgerRepo(s)
	b := newBooking(uuid.New(), uuid.New(), t0, domain.BookingStatusConfirmed)

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, repo.Append(ctx, tx, domain.NewPaymentEntry(b, t0)))
	require.NoError(t, repo.Append(ctx, tx, domain.NewRefundEntry(b, t0.Add(time.Hour))))
	require.NoError(t, tx.Commit(ctx))

	byBooking, err := repo.ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, byBooking, 2)
	assert.Equal(t, domain.LedgerKindPayment, byBooking[0].Kind)

	byMember, err := repo.ListByMember(ctx, b.MemberID, 1)
	require.NoError(t, err)
	require.Len(t, byMember, 1)
	assert.Equal(t, domain.LedgerKindRefund, byMember[0].Kind)

	paged, total, err := repo.ListByMemberPaged(ctx, b.MemberID, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, paged, 1)
	assert.Equal(t, domain.LedgerKindPayment, paged[0].Kind, "second page holds the older entry")

	paged, total, err = repo.ListByMemberPaged(ctx, b.MemberID, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Empty(t, paged)
}

func TestSeed_LoadAndApply(t *testing.T) {
	ctx := context.Background()
	court, member := uuid.New(), uuid.New()
	doc := []byte(`
resources:
  - id: "` + court.String() + `"
    name: "Court 1"
    hourly_rate: 100000
members:
  - id: "` + member.String() + `"
    full_name: "Jamie Doe"
wallets:
  - member_id: "` + member.String() + `"
    balance: 150000
`)
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, doc, 0644))

	seed, err := LoadSeedFile(path)
	require.NoError(t, err)

	s := NewStore()
	require.NoError(t, s.Apply(ctx, seed, t0))

	res, err := NewResourceRepo(s).GetByID(ctx, court)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.IsActive)
	assert.Equal(t, int64(100000), res.HourlyRate)

	m, err := NewMemberRepo(s).GetByID(ctx, member)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.True(t, m.IsActive())

	w, err := NewWalletRepo(s).GetByMemberID(ctx, member)
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, int64(150000), w.Balance)
}

func TestSeed_RejectsBadIDs(t *testing.T) {
	s := NewStore()
	err := s.Apply(context.Background(), &Seed{Resources: []SeedResource{{ID: "court-1", Name: "Court 1"}}}, t0)
	assert.Error(t, err)
}
