package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookingRepo implements ports.BookingRepository.
type BookingRepo struct {
	store *Store
}

// NewBookingRepo creates a new BookingRepo.
func NewBookingRepo(store *Store) *BookingRepo {
	return &BookingRepo{store: store}
}

// Create inserts a booking within tx.
func (r *BookingRepo) Create(_ context.Context, tx pgx.Tx, b *domain.Booking) error {
	st, err := r.store.stateFor(tx)
	if err != nil {
		return err
	}
	if _, exists := st.bookings[b.ID]; exists {
		return fmt.Errorf("insert booking: duplicate id %s", b.ID)
	}
	st.bookings[b.ID] = *b
	return nil
}

// GetByID returns the committed booking or nil.
func (r *BookingRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	var out *domain.Booking
	r.store.view(func(st *state) {
		if b, ok := st.bookings[id]; ok {
			out = &b
		}
	})
	return out, nil
}

// GetByIDForUpdate returns the booking as seen by tx.
func (r *BookingRepo) GetByIDForUpdate(_ context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Booking, error) {
	st, err := r.store.stateFor(tx)
	if err != nil {
		return nil, err
	}
	b, ok := st.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

// FindConfirmedOverlapping scans the tx view for CONFIRMED bookings on the
// court intersecting [start, end).
func (r *BookingRepo) FindConfirmedOverlapping(_ context.Context, tx pgx.Tx, resourceID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]domain.Booking, error) {
	st, err := r.store.stateFor(tx)
	if err != nil {
		return nil, err
	}
	return filterSorted(st, func(b *domain.Booking) bool {
		if excludeID != nil && b.ID == *excludeID {
			return false
		}
		return b.ResourceID == resourceID &&
			b.Status == domain.BookingStatusConfirmed &&
			b.Overlaps(start, end)
	}, byStart, 0), nil
}

// UpdateStatus applies the status fields if the stored version matches.
func (r *BookingRepo) UpdateStatus(_ context.Context, tx pgx.Tx, b *domain.Booking) error {
	st, err := r.store.stateFor(tx)
	if err != nil {
		return err
	}
	stored, ok := st.bookings[b.ID]
	if !ok {
		return fmt.Errorf("booking not found: %s", b.ID)
	}
	if stored.Version != b.Version {
		return fmt.Errorf("update booking %s at version %d: %w", b.ID, b.Version, ports.ErrConcurrencyConflict)
	}
	stored.Status = b.Status
	stored.CancelledAt = b.CancelledAt
	stored.CancelReason = b.CancelReason
	stored.UpdatedAt = b.UpdatedAt
	stored.Version++
	st.bookings[b.ID] = stored
	b.Version = stored.Version
	return nil
}

// MarkReminderSent flips the reminder flag once.
func (r *BookingRepo) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	var claimed bool
	err := r.store.update(ctx, func(st *state) error {
		b, ok := st.bookings[id]
		if !ok || b.ReminderSent {
			return nil
		}
		b.ReminderSent = true
		st.bookings[id] = b
		claimed = true
		return nil
	})
	return claimed, err
}

// ListPendingCreatedBefore returns unpaid bookings created before cutoff, oldest first.
func (r *BookingRepo) ListPendingCreatedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	r.store.view(func(st *state) {
		out = filterSorted(st, func(b *domain.Booking) bool {
			return b.Status == domain.BookingStatusPendingPayment && b.CreatedAt.Before(cutoff)
		}, byCreated, limit)
	})
	return out, nil
}

// ListConfirmedStartingBetween returns unreminded CONFIRMED bookings starting in [from, to].
func (r *BookingRepo) ListConfirmedStartingBetween(_ context.Context, from, to time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	r.store.view(func(st *state) {
		out = filterSorted(st, func(b *domain.Booking) bool {
			return b.Status == domain.BookingStatusConfirmed &&
				!b.ReminderSent &&
				!b.StartTime.Before(from) &&
				!b.StartTime.After(to)
		}, byStart, limit)
	})
	return out, nil
}

// ListConfirmedEndedBefore returns CONFIRMED bookings whose end is at or before cutoff.
func (r *BookingRepo) ListConfirmedEndedBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	r.store.view(func(st *state) {
		out = filterSorted(st, func(b *domain.Booking) bool {
			return b.Status == domain.BookingStatusConfirmed && !b.EndTime.After(cutoff)
		}, byStart, limit)
	})
	return out, nil
}

// ListByMember returns one page of the member's bookings, newest first.
func (r *BookingRepo) ListByMember(_ context.Context, params ports.BookingListParams) ([]domain.Booking, int64, error) {
	var all []domain.Booking
	r.store.view(func(st *state) {
		all = filterSorted(st, func(b *domain.Booking) bool {
			if b.MemberID != params.MemberID {
				return false
			}
			return params.Status == nil || b.Status == *params.Status
		}, byCreatedDesc, 0)
	})

	total := int64(len(all))
	offset := (params.Page - 1) * params.PageSize
	if offset < 0 || offset >= len(all) {
		return []domain.Booking{}, total, nil
	}
	end := offset + params.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

// ListByResource returns the court's live bookings intersecting [from, to).
func (r *BookingRepo) ListByResource(_ context.Context, resourceID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	r.store.view(func(st *state) {
		out = filterSorted(st, func(b *domain.Booking) bool {
			return b.ResourceID == resourceID &&
				(b.Status == domain.BookingStatusConfirmed || b.Status == domain.BookingStatusPendingPayment) &&
				b.Overlaps(from, to)
		}, byStart, 0)
	})
	return out, nil
}

type bookingOrder func(a, b *domain.Booking) bool

func byStart(a, b *domain.Booking) bool {
	if a.StartTime.Equal(b.StartTime) {
		return a.ID.String() < b.ID.String()
	}
	return a.StartTime.Before(b.StartTime)
}

func byCreated(a, b *domain.Booking) bool {
	return a.CreatedAt.Before(b.CreatedAt)
}

func byCreatedDesc(a, b *domain.Booking) bool {
	return a.CreatedAt.After(b.CreatedAt)
}

func filterSorted(st *state, keep func(b *domain.Booking) bool, less bookingOrder, limit int) []domain.Booking {
	out := []domain.Booking{}
	for _, b := range st.bookings {
		if keep(&b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return less(&out[i], &out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
