package ports

import (
	"context"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ResourceRepository reads the court catalog.
type ResourceRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
	// GetByIDForUpdate locks the court row so commits on one court serialize.
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Resource, error)
}

// MemberRepository reads member identity and status.
type MemberRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Member, error)
}

// BookingRepository defines persistence operations for bookings.
// Methods accepting pgx.Tx run inside the caller's unit of work.
type BookingRepository interface {
	Create(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Booking, error)
	// FindConfirmedOverlapping returns CONFIRMED bookings on the court that
	// intersect [start, end), skipping excludeID when set.
	FindConfirmedOverlapping(ctx context.Context, tx pgx.Tx, resourceID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]domain.Booking, error)
	// UpdateStatus persists status and cancellation fields if the stored
	// version still equals booking.Version, then bumps booking.Version.
	// A version mismatch returns ErrConcurrencyConflict.
	UpdateStatus(ctx context.Context, tx pgx.Tx, booking *domain.Booking) error
	// MarkReminderSent sets the reminder flag; false means it was already set.
	MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error)

	// Sweep queries. limit <= 0 means no limit.
	ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error)
	// ListConfirmedStartingBetween skips bookings already reminded.
	ListConfirmedStartingBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Booking, error)
	ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error)

	// Read queries
	ListByMember(ctx context.Context, params BookingListParams) ([]domain.Booking, int64, error)
	// ListByResource returns CONFIRMED and PENDING_PAYMENT bookings
	// intersecting [from, to), ordered by start time.
	ListByResource(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]domain.Booking, error)
}

// BookingListParams holds filter + pagination for a member's bookings.
type BookingListParams struct {
	MemberID uuid.UUID
	Status   *domain.BookingStatus
	Page     int
	PageSize int
}

// WalletRepository defines persistence operations for wallets.
type WalletRepository interface {
	GetByMemberID(ctx context.Context, memberID uuid.UUID) (*domain.WalletAccount, error)
	GetByMemberIDForUpdate(ctx context.Context, tx pgx.Tx, memberID uuid.UUID) (*domain.WalletAccount, error)
	// Update persists balance and spend if the stored version still equals
	// wallet.Version, then bumps wallet.Version. A version mismatch returns
	// ErrConcurrencyConflict.
	Update(ctx context.Context, tx pgx.Tx, wallet *domain.WalletAccount) error
}

// LedgerRepository is the append-only audit sink for wallet movements.
type LedgerRepository interface {
	Append(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	ListByBooking(ctx context.Context, bookingID uuid.UUID) ([]domain.LedgerEntry, error)
	ListByMember(ctx context.Context, memberID uuid.UUID, limit int) ([]domain.LedgerEntry, error)
	ListByMemberPaged(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error)
}

// DBTransactor provides database transaction management.
// Transactions it begins run at serializable isolation.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
