package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPendingPayment BookingStatus = "PENDING_PAYMENT"
	BookingStatusConfirmed      BookingStatus = "CONFIRMED"
	BookingStatusCancelled      BookingStatus = "CANCELLED"
	BookingStatusCompleted      BookingStatus = "COMPLETED"
)

const (
	// DefaultPendingTimeout is how long an unpaid booking survives.
	DefaultPendingTimeout = 5 * time.Minute
	// DefaultCancellationCutoff is the minimum notice for a member cancellation.
	DefaultCancellationCutoff = 24 * time.Hour

	RecurrenceWeekly = "WEEKLY"

	CancelReasonTimeout = "timeout"
	CancelReasonMember  = "cancelled by member"
)

// Booking is a hard claim on a court. Bookings are never deleted; they end
// CANCELLED or COMPLETED.
type Booking struct {
	ID              uuid.UUID     `json:"id"`
	ResourceID      uuid.UUID     `json:"resource_id"`
	MemberID        uuid.UUID     `json:"member_id"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	TotalPrice      int64         `json:"total_price"`
	Status          BookingStatus `json:"status"`
	Version         int64         `json:"version"`
	ParentBookingID *uuid.UUID    `json:"parent_booking_id,omitempty"`
	IsRecurring     bool          `json:"is_recurring"`
	RecurrenceRule  *string       `json:"recurrence_rule,omitempty"`
	ReminderSent    bool          `json:"reminder_sent"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason    *string       `json:"cancel_reason,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewBooking builds a booking for the slot at version 0.
func NewBooking(key SlotKey, memberID uuid.UUID, price int64, status BookingStatus, now time.Time) *Booking {
	return &Booking{
		ID:         uuid.New(),
		ResourceID: key.ResourceID,
		MemberID:   memberID,
		StartTime:  key.Start,
		EndTime:    key.End,
		TotalPrice: price,
		Status:     status,
		Version:    0,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Slot returns the booking's slot key.
func (b *Booking) Slot() SlotKey {
	return SlotKey{ResourceID: b.ResourceID, Start: b.StartTime, End: b.EndTime}
}

// Overlaps reports whether the booking intersects [start, end).
func (b *Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// IsOwnedBy returns true if memberID made the booking.
func (b *Booking) IsOwnedBy(memberID uuid.UUID) bool {
	return b.MemberID == memberID
}

// IsTerminal returns true if the booking can no longer change state.
func (b *Booking) IsTerminal() bool {
	return b.Status == BookingStatusCancelled || b.Status == BookingStatusCompleted
}

// CancellableAt returns true if at least cutoff remains before the start.
func (b *Booking) CancellableAt(now time.Time, cutoff time.Duration) bool {
	return b.StartTime.Sub(now) >= cutoff
}

// MarkRecurring tags the booking as one occurrence of a weekly series.
func (b *Booking) MarkRecurring(parentID *uuid.UUID) {
	rule := RecurrenceWeekly
	b.IsRecurring = true
	b.RecurrenceRule = &rule
	b.ParentBookingID = parentID
}

// PaymentExpiredAt reports whether an unpaid booking has outlived timeout.
func (b *Booking) PaymentExpiredAt(now time.Time, timeout time.Duration) bool {
	return b.Status == BookingStatusPendingPayment && now.Sub(b.CreatedAt) >= timeout
}

// Confirm moves the booking to CONFIRMED.
func (b *Booking) Confirm(now time.Time) {
	b.Status = BookingStatusConfirmed
	b.UpdatedAt = now
}

// Cancel moves the booking to CANCELLED and records why.
func (b *Booking) Cancel(now time.Time, reason string) {
	b.Status = BookingStatusCancelled
	b.CancelledAt = &now
	b.CancelReason = &reason
	b.UpdatedAt = now
}

// Complete moves the booking to COMPLETED.
func (b *Booking) Complete(now time.Time) {
	b.Status = BookingStatusCompleted
	b.UpdatedAt = now
}
