package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// BookingRepo implements ports.BookingRepository.
type BookingRepo struct {
	pool Pool
}

// NewBookingRepo creates a new BookingRepo.
func NewBookingRepo(pool Pool) *BookingRepo {
	return &BookingRepo{pool: pool}
}

const bookingColumns = `id, resource_id, member_id, start_time, end_time, total_price, status, version,
		parent_booking_id, is_recurring, recurrence_rule, reminder_sent, cancelled_at, cancel_reason,
		created_at, updated_at`

// Create inserts a new booking within a database transaction.
func (r *BookingRepo) Create(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	query := `INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err := tx.Exec(ctx, query,
		b.ID, b.ResourceID, b.MemberID, b.StartTime, b.EndTime, b.TotalPrice, b.Status, b.Version,
		b.ParentBookingID, b.IsRecurring, b.RecurrenceRule, b.ReminderSent, b.CancelledAt, b.CancelReason,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", classify(err))
	}
	return nil
}

// GetByID fetches a booking by UUID.
func (r *BookingRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	b, err := scanBooking(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get booking by id: %w", err)
	}
	return b, nil
}

// GetByIDForUpdate fetches a booking with pessimistic locking.
// This MUST be called within a transaction.
func (r *BookingRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	b, err := scanBooking(tx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get booking for update: %w", classify(err))
	}
	return b, nil
}

// FindConfirmedOverlapping re-reads CONFIRMED bookings intersecting
// [start, end) inside tx. Under SERIALIZABLE the read takes a predicate lock,
// so a concurrent insert into the range aborts one of the two commits.
func (r *BookingRepo) FindConfirmedOverlapping(ctx context.Context, tx pgx.Tx, resourceID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE resource_id = $1 AND status = 'CONFIRMED' AND start_time < $2 AND end_time > $3`
	args := []any{resourceID, end, start}
	if excludeID != nil {
		query += ` AND id <> $4`
		args = append(args, *excludeID)
	}
	query += ` ORDER BY start_time`

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find overlapping bookings: %w", classify(err))
	}
	return collectBookings(rows)
}

// UpdateStatus writes the status fields guarded by the version token.
func (r *BookingRepo) UpdateStatus(ctx context.Context, tx pgx.Tx, b *domain.Booking) error {
	query := `UPDATE bookings
		SET status = $1, cancelled_at = $2, cancel_reason = $3, updated_at = $4, version = version + 1
		WHERE id = $5 AND version = $6`

	tag, err := tx.Exec(ctx, query, b.Status, b.CancelledAt, b.CancelReason, b.UpdatedAt, b.ID, b.Version)
	if err != nil {
		return fmt.Errorf("update booking status: %w", classify(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update booking %s at version %d: %w", b.ID, b.Version, ports.ErrConcurrencyConflict)
	}
	b.Version++
	return nil
}

// MarkReminderSent sets the reminder flag if it is still clear.
func (r *BookingRepo) MarkReminderSent(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE bookings SET reminder_sent = TRUE WHERE id = $1 AND reminder_sent = FALSE`

	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("mark reminder sent: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListPendingCreatedBefore returns unpaid bookings older than cutoff, oldest first.
func (r *BookingRepo) ListPendingCreatedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'PENDING_PAYMENT' AND created_at < $1 ORDER BY created_at`
	return r.listLimited(ctx, query, limit, cutoff)
}

// ListConfirmedStartingBetween returns unreminded CONFIRMED bookings starting in [from, to].
func (r *BookingRepo) ListConfirmedStartingBetween(ctx context.Context, from, to time.Time, limit int) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'CONFIRMED' AND reminder_sent = FALSE AND start_time >= $1 AND start_time <= $2
		ORDER BY start_time`
	return r.listLimited(ctx, query, limit, from, to)
}

// ListConfirmedEndedBefore returns CONFIRMED bookings that ended at or before cutoff.
func (r *BookingRepo) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE status = 'CONFIRMED' AND end_time <= $1 ORDER BY start_time`
	return r.listLimited(ctx, query, limit, cutoff)
}

// ListByMember fetches a member's bookings with filtering and pagination.
func (r *BookingRepo) ListByMember(ctx context.Context, params ports.BookingListParams) ([]domain.Booking, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("member_id = $%d", argIdx))
	args = append(args, params.MemberID)
	argIdx++

	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM bookings %s", where)
	var total int64
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM bookings %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		bookingColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list member bookings: %w", err)
	}
	bookings, err := collectBookings(rows)
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// ListByResource returns CONFIRMED and PENDING_PAYMENT bookings on the court
// intersecting [from, to).
func (r *BookingRepo) ListByResource(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings
		WHERE resource_id = $1 AND status IN ('CONFIRMED', 'PENDING_PAYMENT')
		AND start_time < $2 AND end_time > $3
		ORDER BY start_time`

	rows, err := r.pool.Query(ctx, query, resourceID, to, from)
	if err != nil {
		return nil, fmt.Errorf("list resource bookings: %w", err)
	}
	return collectBookings(rows)
}

func (r *BookingRepo) listLimited(ctx context.Context, query string, limit int, args ...any) ([]domain.Booking, error) {
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", len(args)+1)
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	defer rows.Close()

	bookings := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate booking rows: %w", classify(err))
	}
	return bookings, nil
}

// scanBooking scans a single row into a Booking; no row yields nil, nil.
func scanBooking(row pgx.Row) (*domain.Booking, error) {
	b := &domain.Booking{}
	err := row.Scan(
		&b.ID, &b.ResourceID, &b.MemberID, &b.StartTime, &b.EndTime, &b.TotalPrice, &b.Status, &b.Version,
		&b.ParentBookingID, &b.IsRecurring, &b.RecurrenceRule, &b.ReminderSent, &b.CancelledAt, &b.CancelReason,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return b, nil
}
