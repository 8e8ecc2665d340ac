package memory

import (
	"context"
	"fmt"
	"sort"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	store *Store
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(store *Store) *WalletRepo {
	return &WalletRepo{store: store}
}

// GetByMemberID returns the committed wallet or nil.
func (r *WalletRepo) GetByMemberID(_ context.Context, memberID uuid.UUID) (*domain.WalletAccount, error) {
	var out *domain.WalletAccount
	r.store.view(func(st *state) {
		if w, ok := st.wallets[memberID]; ok {
			out = &w
		}
	})
	return out, nil
}

// GetByMemberIDForUpdate returns the wallet as seen by tx.
func (r *WalletRepo) GetByMemberIDForUpdate(_ context.Context, tx pgx.Tx, memberID uuid.UUID) (*domain.WalletAccount, error) {
	st, err := r.store.stateFor(tx)
	if err != nil {
		return nil, err
	}
	w, ok := st.wallets[memberID]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// Update writes balance and spend if the stored version matches.
func (r *WalletRepo) Update(_ context.Context, tx pgx.Tx, w *domain.WalletAccount) error {
	st, err := r.store.stateFor(tx)
	if err != nil {
		return err
	}
	stored, ok := st.wallets[w.MemberID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", w.MemberID)
	}
	if stored.Version != w.Version {
		return fmt.Errorf("update wallet %s at version %d: %w", w.MemberID, w.Version, ports.ErrConcurrencyConflict)
	}
	stored.Balance = w.Balance
	stored.CumulativeSpend = w.CumulativeSpend
	stored.UpdatedAt = w.UpdatedAt
	stored.Version++
	st.wallets[w.MemberID] = stored
	w.Version = stored.Version
	return nil
}

// Put inserts or replaces a wallet.
func (r *WalletRepo) Put(ctx context.Context, w domain.WalletAccount) error {
	return r.store.update(ctx, func(st *state) error {
		st.wallets[w.MemberID] = w
		return nil
	})
}

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct {
	store *Store
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(store *Store) *LedgerRepo {
	return &LedgerRepo{store: store}
}

// Append adds an entry within tx.
func (r *LedgerRepo) Append(_ context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	st, err := r.store.stateFor(tx)
	if err != nil {
		return err
	}
	st.ledger = append(st.ledger, *e)
	return nil
}

// ListByBooking returns the entries tied to a booking in insertion order.
func (r *LedgerRepo) ListByBooking(_ context.Context, bookingID uuid.UUID) ([]domain.LedgerEntry, error) {
	out := []domain.LedgerEntry{}
	r.store.view(func(st *state) {
		for _, e := range st.ledger {
			if e.RelatedBookingID != nil && *e.RelatedBookingID == bookingID {
				out = append(out, e)
			}
		}
	})
	return out, nil
}

// ListByMember returns the member's newest entries first.
func (r *LedgerRepo) ListByMember(_ context.Context, memberID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	out := []domain.LedgerEntry{}
	r.store.view(func(st *state) {
		for i := len(st.ledger) - 1; i >= 0; i-- {
			if st.ledger[i].MemberID == memberID {
				out = append(out, st.ledger[i])
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByMemberPaged returns one page of the member's entries, newest first.
func (r *LedgerRepo) ListByMemberPaged(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	all, err := r.ListByMember(ctx, memberID, 0)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(all))

	offset := (page - 1) * pageSize
	if offset >= len(all) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := min(offset+pageSize, len(all))
	return all[offset:end], total, nil
}
