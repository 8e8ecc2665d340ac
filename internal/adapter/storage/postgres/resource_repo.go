package postgres

import (
	"context"
	"errors"
	"fmt"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResourceRepo implements ports.ResourceRepository.
type ResourceRepo struct {
	pool Pool
}

// NewResourceRepo creates a new ResourceRepo.
func NewResourceRepo(pool Pool) *ResourceRepo {
	return &ResourceRepo{pool: pool}
}

const resourceColumns = `id, name, hourly_rate, is_active, created_at, updated_at`

// GetByID fetches a court by its UUID.
func (r *ResourceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1`
	res, err := scanResource(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get resource by id: %w", err)
	}
	return res, nil
}

// GetByIDForUpdate locks the court row until tx ends. Concurrent commits on
// the same court queue behind this lock.
func (r *ResourceRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Resource, error) {
	query := `SELECT ` + resourceColumns + ` FROM resources WHERE id = $1 FOR UPDATE`
	res, err := scanResource(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get resource for update: %w", classify(err))
	}
	return res, nil
}

func scanResource(row pgx.Row) (*domain.Resource, error) {
	res := &domain.Resource{}
	err := row.Scan(&res.ID, &res.Name, &res.HourlyRate, &res.IsActive, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return res, nil
}
