package postgres

import (
	"context"
	"errors"
	"fmt"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemberRepo implements ports.MemberRepository. Rows are owned by the
// identity service; this core only reads them.
type MemberRepo struct {
	pool Pool
}

// NewMemberRepo creates a new MemberRepo.
func NewMemberRepo(pool Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

// GetByID fetches a member by UUID.
func (r *MemberRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	query := `SELECT id, full_name, status, created_at FROM members WHERE id = $1`

	m := &domain.Member{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.FullName, &m.Status, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get member by id: %w", err)
	}
	return m, nil
}
