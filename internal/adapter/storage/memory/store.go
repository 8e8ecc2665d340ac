// Package memory is a process-local storage driver. It keeps the whole
// dataset in maps and runs one unit of work at a time, which gives the same
// serializable outcome the PostgreSQL driver gets from SERIALIZABLE isolation
// and row locks.
package memory

import (
	"context"
	"errors"
	"sync"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

type state struct {
	resources map[uuid.UUID]domain.Resource
	members   map[uuid.UUID]domain.Member
	bookings  map[uuid.UUID]domain.Booking
	wallets   map[uuid.UUID]domain.WalletAccount
	ledger    []domain.LedgerEntry
}

func newState() *state {
	return &state{
		resources: make(map[uuid.UUID]domain.Resource),
		members:   make(map[uuid.UUID]domain.Member),
		bookings:  make(map[uuid.UUID]domain.Booking),
		wallets:   make(map[uuid.UUID]domain.WalletAccount),
	}
}

func (s *state) clone() *state {
	c := &state{
		resources: make(map[uuid.UUID]domain.Resource, len(s.resources)),
		members:   make(map[uuid.UUID]domain.Member, len(s.members)),
		bookings:  make(map[uuid.UUID]domain.Booking, len(s.bookings)),
		wallets:   make(map[uuid.UUID]domain.WalletAccount, len(s.wallets)),
		ledger:    make([]domain.LedgerEntry, len(s.ledger)),
	}
	for k, v := range s.resources {
		c.resources[k] = v
	}
	for k, v := range s.members {
		c.members[k] = v
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	copy(c.ledger, s.ledger)
	return c
}

// Store owns the committed dataset.
//
// txSem admits one unit of work (or one out-of-transaction write) at a time.
// mu guards the committed pointer and the maps behind it for readers.
type Store struct {
	txSem     chan struct{}
	mu        sync.RWMutex
	committed *state
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		txSem:     make(chan struct{}, 1),
		committed: newState(),
	}
}

// Begin implements ports.DBTransactor. The returned transaction works on a
// private copy of the dataset that replaces the committed one on Commit.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	working := s.committed.clone()
	s.mu.RUnlock()
	return &memTx{store: s, state: working}, nil
}

// Ping implements ports.HealthChecker.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Name implements ports.HealthChecker.
func (s *Store) Name() string {
	return "memory"
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.txSem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) release() {
	<-s.txSem
}

// view runs fn against the committed dataset under a read lock.
func (s *Store) view(fn func(st *state)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.committed)
}

// update mutates the committed dataset outside any unit of work. It waits
// for the running transaction so its write is not lost when that commits.
func (s *Store) update(ctx context.Context, fn func(st *state) error) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.committed)
}

func (s *Store) stateFor(tx pgx.Tx) (*state, error) {
	mt, ok := tx.(*memTx)
	if !ok || mt.store != s {
		return nil, errForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt.state, nil
}

// memTx satisfies pgx.Tx for the repositories of this package. Only Commit
// and Rollback are meaningful; the embedded interface is never set.
type memTx struct {
	pgx.Tx
	store *Store
	state *state
	done  bool
}

func (t *memTx) Commit(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.store.mu.Lock()
	t.store.committed = t.state
	t.store.mu.Unlock()
	t.done = true
	t.store.release()
	return nil
}

func (t *memTx) Rollback(_ context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.release()
	return nil
}
