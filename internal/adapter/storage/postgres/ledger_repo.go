package postgres

import (
	"context"
	"fmt"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerRepo implements ports.LedgerRepository. Entries are insert-only.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

const ledgerColumns = `id, member_id, amount, kind, status, related_booking_id, description, created_at`

// Append inserts an entry within a database transaction.
func (r *LedgerRepo) Append(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.MemberID, e.Amount, e.Kind, e.Status,
		e.RelatedBookingID, e.Description, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", classify(err))
	}
	return nil
}

// ListByBooking returns the entries tied to a booking, oldest first.
func (r *LedgerRepo) ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE related_booking_id = $1 ORDER BY created_at ASC`
	return r.list(ctx, query, bookingID)
}

// ListByMember returns the member's latest entries, newest first.
func (r *LedgerRepo) ListByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
			WHERE member_id = $1 ORDER BY created_at DESC`
		return r.list(ctx, query, memberID)
	}
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE member_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.list(ctx, query, memberID, limit)
}

// ListByMemberPaged pages through the member's full history, newest first.
func (r *LedgerRepo) ListByMemberPaged(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM ledger_entries WHERE member_id = $1`
	if err := r.pool.QueryRow(ctx, countQuery, memberID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (page - 1) * pageSize
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE member_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	entries, err := r.list(ctx, query, memberID, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func (r *LedgerRepo) list(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []domain.LedgerEntry{}
	for rows.Next() {
		e := domain.LedgerEntry{}
		if err := rows.Scan(
			&e.ID, &e.MemberID, &e.Amount, &e.Kind, &e.Status,
			&e.RelatedBookingID, &e.Description, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}
