package memory

import (
	"context"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResourceRepo implements ports.ResourceRepository.
type ResourceRepo struct {
	store *Store
}

// NewResourceRepo creates a new ResourceRepo.
func NewResourceRepo(store *Store) *ResourceRepo {
	return &ResourceRepo{store: store}
}

// GetByID returns the court or nil when unknown.
func (r *ResourceRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Resource, error) {
	var out *domain.Resource
	r.store.view(func(st *state) {
		if res, ok := st.resources[id]; ok {
			out = &res
		}
	})
	return out, nil
}

// GetByIDForUpdate reads the court inside tx. The store-wide transaction
// lock already excludes other writers.
func (r *ResourceRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Resource, error) {
	st, err := r.store.stateFor(tx)
	if err != nil {
		return nil, err
	}
	res, ok := st.resources[id]
	if !ok {
		return nil, nil
	}
	return &res, nil
}

// Put inserts or replaces a court.
func (r *ResourceRepo) Put(ctx context.Context, res domain.Resource) error {
	return r.store.update(ctx, func(st *state) error {
		if res.CreatedAt.IsZero() {
			res.CreatedAt = time.Now().UTC()
		}
		if res.UpdatedAt.IsZero() {
			res.UpdatedAt = res.CreatedAt
		}
		st.resources[res.ID] = res
		return nil
	})
}

// MemberRepo implements ports.MemberRepository.
type MemberRepo struct {
	store *Store
}

// NewMemberRepo creates a new MemberRepo.
func NewMemberRepo(store *Store) *MemberRepo {
	return &MemberRepo{store: store}
}

// GetByID returns the member or nil when unknown.
func (r *MemberRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Member, error) {
	var out *domain.Member
	r.store.view(func(st *state) {
		if m, ok := st.members[id]; ok {
			out = &m
		}
	})
	return out, nil
}

// Put inserts or replaces a member.
func (r *MemberRepo) Put(ctx context.Context, m domain.Member) error {
	return r.store.update(ctx, func(st *state) error {
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		st.members[m.ID] = m
		return nil
	})
}
