package postgres

import (
	"context"
	"errors"
	"fmt"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `member_id, balance, cumulative_spend, version, updated_at`

// GetByMemberID fetches a wallet without locking.
func (r *WalletRepo) GetByMemberID(ctx context.Context, memberID uuid.UUID) (*domain.WalletAccount, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE member_id = $1`
	w, err := scanWallet(r.pool.QueryRow(ctx, query, memberID))
	if err != nil {
		return nil, fmt.Errorf("get wallet by member: %w", err)
	}
	return w, nil
}

// GetByMemberIDForUpdate fetches a wallet with pessimistic locking.
// This MUST be called within a transaction.
func (r *WalletRepo) GetByMemberIDForUpdate(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (*domain.WalletAccount, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE member_id = $1 FOR UPDATE`
	w, err := scanWallet(tx.QueryRow(ctx, query, memberID))
	if err != nil {
		return nil, fmt.Errorf("get wallet for update: %w", classify(err))
	}
	return w, nil
}

// Update writes balance and spend guarded by the version token.
func (r *WalletRepo) Update(ctx context.Context, tx pgx.Tx, w *domain.WalletAccount) error {
	query := `UPDATE wallets
		SET balance = $1, cumulative_spend = $2, updated_at = $3, version = version + 1
		WHERE member_id = $4 AND version = $5`

	tag, err := tx.Exec(ctx, query, w.Balance, w.CumulativeSpend, w.UpdatedAt, w.MemberID, w.Version)
	if err != nil {
		return fmt.Errorf("update wallet: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update wallet %s at version %d: %w", w.MemberID, w.Version, ports.ErrConcurrencyConflict)
	}
	w.Version++
	return nil
}

func scanWallet(row pgx.Row) (*domain.WalletAccount, error) {
	w := &domain.WalletAccount{}
	err := row.Scan(&w.MemberID, &w.Balance, &w.CumulativeSpend, &w.Version, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return w, nil
}
