package ports

import (
	"context"
	"time"

	"court-reservation-engine/internal/core/domain"

	"github.com/google/uuid"
)

// HoldStore is the soft-hold map. Every method is one atomic operation on
// its slot key. now is passed in so expiry is decided by the caller's clock.
type HoldStore interface {
	// Acquire creates or renews the hold for holderID. A live hold owned by
	// someone else yields HoldRejected and that hold.
	Acquire(ctx context.Context, key domain.SlotKey, holderID uuid.UUID, now time.Time, ttl time.Duration) (domain.HoldOutcome, *domain.SoftHold, error)
	// Release deletes the hold if holderID owns it and it is live.
	Release(ctx context.Context, key domain.SlotKey, holderID uuid.UUID, now time.Time) (bool, error)
	// Get returns the live hold, or nil. An expired entry is deleted and
	// returned as reclaimed.
	Get(ctx context.Context, key domain.SlotKey, now time.Time) (live *domain.SoftHold, reclaimed *domain.SoftHold, err error)
	// PurgeExpired deletes every expired hold and returns them. A backend that
	// lost an entry's holder reports it with a zero HolderID.
	PurgeExpired(ctx context.Context, now time.Time) ([]domain.SoftHold, error)
}

// EventPublisher receives domain events after the state they describe is committed.
// Publishing never fails the caller.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.Event)
}

// Notifier delivers a member-facing message. Fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, memberID uuid.UUID, title, message string, severity domain.Severity)
}

// TokenVerifier validates bearer tokens issued by the identity service.
type TokenVerifier interface {
	Verify(tokenString string) (*MemberClaims, error)
}

// MemberClaims holds the parsed token claims.
type MemberClaims struct {
	MemberID uuid.UUID
	Role     string
}

// --- Service Ports (Business Logic) ---

// SlotRequest names a slot on behalf of a member.
type SlotRequest struct {
	MemberID   uuid.UUID
	ResourceID uuid.UUID
	Start      time.Time
	End        time.Time
}

// ReservationService manages soft holds.
type ReservationService interface {
	Reserve(ctx context.Context, req SlotRequest) (*domain.SoftHold, error)
	Release(ctx context.Context, req SlotRequest) error
	Inspect(ctx context.Context, resourceID uuid.UUID, start, end time.Time) (*domain.SoftHold, error)
}

// BookingService commits hard bookings.
type BookingService interface {
	CreateBooking(ctx context.Context, req SlotRequest) (*domain.Booking, error)
	CreatePendingBooking(ctx context.Context, req SlotRequest) (*domain.Booking, error)
	// CreateOccurrence commits one occurrence of a weekly series. A nil
	// parentID marks the first occurrence.
	CreateOccurrence(ctx context.Context, req SlotRequest, parentID *uuid.UUID) (*domain.Booking, error)
	ConfirmPendingBooking(ctx context.Context, bookingID, memberID uuid.UUID) (*domain.Booking, error)
}

// RecurringRequest asks for a weekly series.
type RecurringRequest struct {
	SlotRequest
	RecurrenceEndDate time.Time
}

// OccurrenceFailure explains why one occurrence was not booked.
type OccurrenceFailure struct {
	Occurrence domain.Occurrence
	Code       string
	Message    string
}

// RecurringResult lists what a series produced. Successes are never rolled back.
type RecurringResult struct {
	Bookings []domain.Booking
	Failures []OccurrenceFailure
}

// RecurrenceService expands and books weekly series.
type RecurrenceService interface {
	CreateRecurring(ctx context.Context, req RecurringRequest) (*RecurringResult, error)
}

// CancellationService cancels confirmed bookings with a refund.
type CancellationService interface {
	Cancel(ctx context.Context, bookingID, memberID uuid.UUID) (*domain.Booking, error)
}

// Availability reports whether a slot can be booked right now.
type Availability struct {
	Available   bool
	Conflicts   []domain.Booking
	CurrentHold *domain.SoftHold
}

// WalletSummary is a member's balance with recent movements.
type WalletSummary struct {
	Account       domain.WalletAccount
	RecentEntries []domain.LedgerEntry
}

// QueryService answers read-only questions.
type QueryService interface {
	CheckAvailability(ctx context.Context, resourceID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (*Availability, error)
	ListMemberBookings(ctx context.Context, params BookingListParams) ([]domain.Booking, int64, error)
	ListCalendar(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]domain.Booking, error)
	GetWallet(ctx context.Context, memberID uuid.UUID) (*WalletSummary, error)
	ListLedger(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error)
}

// HealthChecker reports whether an infrastructure dependency is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
	// Name labels the dependency in the health report ("postgresql", "redis", ...).
	Name() string
}

// RateLimiter counts requests per key in fixed windows.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (*RateLimitResult, error)
}

// RateLimitResult holds the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int64
	Remaining int64
	ResetAt   int64 // Unix timestamp
}
