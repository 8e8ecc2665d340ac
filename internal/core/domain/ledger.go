package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LedgerKind is the direction of a wallet movement.
type LedgerKind string

const (
	LedgerKindPayment LedgerKind = "PAYMENT"
	LedgerKindRefund  LedgerKind = "REFUND"
)

// LedgerStatus is the processing state of an entry.
type LedgerStatus string

const (
	LedgerStatusPending   LedgerStatus = "PENDING"
	LedgerStatusCompleted LedgerStatus = "COMPLETED"
	LedgerStatusFailed    LedgerStatus = "FAILED"
)

// LedgerEntry is an immutable audit record of a balance change.
// Amount is signed: negative for debits, positive for credits.
type LedgerEntry struct {
	ID               uuid.UUID    `json:"id"`
	MemberID         uuid.UUID    `json:"member_id"`
	Amount           int64        `json:"amount"`
	Kind             LedgerKind   `json:"kind"`
	Status           LedgerStatus `json:"status"`
	RelatedBookingID *uuid.UUID   `json:"related_booking_id,omitempty"`
	Description      string       `json:"description"`
	CreatedAt        time.Time    `json:"created_at"`
}

// NewPaymentEntry records the debit for a confirmed booking.
func NewPaymentEntry(b *Booking, now time.Time) *LedgerEntry {
	bookingID := b.ID
	return &LedgerEntry{
		ID:               uuid.New(),
		MemberID:         b.MemberID,
		Amount:           -b.TotalPrice,
		Kind:             LedgerKindPayment,
		Status:           LedgerStatusCompleted,
		RelatedBookingID: &bookingID,
		Description:      fmt.Sprintf("Court booking %s %s", b.StartTime.Format("2006-01-02 15:04"), b.EndTime.Format("15:04")),
		CreatedAt:        now,
	}
}

// NewRefundEntry records the credit for a cancelled booking.
func NewRefundEntry(b *Booking, now time.Time) *LedgerEntry {
	bookingID := b.ID
	return &LedgerEntry{
		ID:               uuid.New(),
		MemberID:         b.MemberID,
		Amount:           b.TotalPrice,
		Kind:             LedgerKindRefund,
		Status:           LedgerStatusCompleted,
		RelatedBookingID: &bookingID,
		Description:      fmt.Sprintf("Refund for booking %s", b.ID),
		CreatedAt:        now,
	}
}
