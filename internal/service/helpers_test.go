package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"court-reservation-engine/internal/adapter/storage/memory"
	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(at time.Time) *testClock { return &testClock{now: at} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) ofType(t domain.EventType) []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.Event
	for _, e := range p.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (p *recordingPublisher) slotStates() []domain.SlotState {
	var out []domain.SlotState
	for _, e := range p.ofType(domain.EventSlotStatusChanged) {
		out = append(out, e.Slot.State)
	}
	return out
}

// memEnv wires every coordinator against the memory storage driver.
type memEnv struct {
	clock  *testClock
	store  *memory.Store
	holds  *memory.HoldStore
	events *recordingPublisher

	resources *memory.ResourceRepo
	members   *memory.MemberRepo
	bookings  *memory.BookingRepo
	wallets   *memory.WalletRepo
	ledger    *memory.LedgerRepo

	reservations *ReservationServiceImpl
	booking      *BookingServiceImpl
	cancel       *CancellationServiceImpl
	recurrence   *RecurrenceServiceImpl
	query        *QueryServiceImpl
	cleanup      *CleanupScheduler
}

func newMemEnv(t *testing.T) *memEnv {
	t.Helper()
	store := memory.NewStore()
	e := &memEnv{
		clock:     newTestClock(t0),
		store:     store,
		holds:     memory.NewHoldStore(),
		events:    &recordingPublisher{},
		resources: memory.NewResourceRepo(store),
		members:   memory.NewMemberRepo(store),
		bookings:  memory.NewBookingRepo(store),
		wallets:   memory.NewWalletRepo(store),
		ledger:    memory.NewLedgerRepo(store),
	}
	repos := Repositories{
		Resources:  e.resources,
		Members:    e.members,
		Bookings:   e.bookings,
		Wallets:    e.wallets,
		Ledger:     e.ledger,
		Transactor: store,
	}
	retry := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}
	log := zerolog.Nop()

	e.reservations = NewReservationService(e.holds, e.events, domain.DefaultHoldTTL, log)
	e.reservations.now = e.clock.Now
	e.booking = NewBookingService(repos, e.reservations, e.holds, e.events, retry, domain.DefaultPendingTimeout, log)
	e.booking.now = e.clock.Now
	e.cancel = NewCancellationService(repos, e.events, retry, domain.DefaultCancellationCutoff, log)
	e.cancel.now = e.clock.Now
	e.recurrence = NewRecurrenceService(e.members, e.reservations, e.booking, domain.DefaultMaxOccurrences, log)
	e.query = NewQueryService(repos, e.reservations)
	e.cleanup = NewCleanupScheduler(e.holds, repos, e.events, retry, DefaultCleanupConfig(), log)
	e.cleanup.now = e.clock.Now
	return e
}

func (e *memEnv) addCourt(t *testing.T, hourlyRate int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	require.NoError(t, e.resources.Put(context.Background(), domain.Resource{
		ID: id, Name: "Court " + id.String()[:4], HourlyRate: hourlyRate, IsActive: true, CreatedAt: t0, UpdatedAt: t0,
	}))
	return id
}

func (e *memEnv) addMember(t *testing.T, balance int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	ctx := context.Background()
	require.NoError(t, e.members.Put(ctx, domain.Member{ID: id, FullName: "Member " + id.String()[:4], Status: domain.MemberStatusActive, CreatedAt: t0}))
	require.NoError(t, e.wallets.Put(ctx, domain.WalletAccount{MemberID: id, Balance: balance, UpdatedAt: t0}))
	return id
}

func (e *memEnv) wallet(t *testing.T, memberID uuid.UUID) *domain.WalletAccount {
	t.Helper()
	w, err := e.wallets.GetByMemberID(context.Background(), memberID)
	require.NoError(t, err)
	require.NotNil(t, w)
	return w
}

// reserveAndBook holds the slot, then commits it as CONFIRMED.
func (e *memEnv) reserveAndBook(t *testing.T, memberID, courtID uuid.UUID, start, end time.Time) (*domain.Booking, error) {
	t.Helper()
	req := ports.SlotRequest{MemberID: memberID, ResourceID: courtID, Start: start, End: end}
	_, err := e.reservations.Reserve(context.Background(), req)
	require.NoError(t, err)
	return e.booking.CreateBooking(context.Background(), req)
}

func slotReq(memberID, courtID uuid.UUID, start time.Time, d time.Duration) ports.SlotRequest {
	return ports.SlotRequest{MemberID: memberID, ResourceID: courtID, Start: start, End: start.Add(d)}
}
