package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventType names a domain event.
type EventType string

const (
	EventSlotStatusChanged EventType = "slot.status_changed"
	EventBookingCreated    EventType = "booking.created"
	EventBookingConfirmed  EventType = "booking.confirmed"
	EventBookingCancelled  EventType = "booking.cancelled"
	EventBookingTimedOut   EventType = "booking.timed_out"
	EventBookingReminder   EventType = "booking.reminder"
	EventBookingCompleted  EventType = "booking.completed"
)

// SlotState is the advisory availability of a slot.
type SlotState string

const (
	SlotStateReserved  SlotState = "RESERVED"
	SlotStateAvailable SlotState = "AVAILABLE"
)

// SlotStatus is the payload of a slot.status_changed event.
type SlotStatus struct {
	Key       SlotKey    `json:"slot"`
	State     SlotState  `json:"state"`
	HolderID  *uuid.UUID `json:"holder_id,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	// BookingID is set when the hold ended because it became this booking.
	BookingID *uuid.UUID `json:"booking_id,omitempty"`
}

// Event is published after the state it describes is durable.
type Event struct {
	ID         uuid.UUID   `json:"id"`
	Type       EventType   `json:"type"`
	OccurredAt time.Time   `json:"occurred_at"`
	ResourceID uuid.UUID   `json:"resource_id"`
	MemberID   uuid.UUID   `json:"member_id"`
	Booking    *Booking    `json:"booking,omitempty"`
	Slot       *SlotStatus `json:"slot,omitempty"`
}

// NewBookingEvent snapshots the booking into an event.
func NewBookingEvent(t EventType, b *Booking, now time.Time) Event {
	snapshot := *b
	return Event{
		ID:         uuid.New(),
		Type:       t,
		OccurredAt: now,
		ResourceID: b.ResourceID,
		MemberID:   b.MemberID,
		Booking:    &snapshot,
	}
}

// NewSlotReservedEvent announces that hold now owns its slot.
func NewSlotReservedEvent(hold *SoftHold, now time.Time) Event {
	holder := hold.HolderID
	expires := hold.ExpiresAt
	return Event{
		ID:         uuid.New(),
		Type:       EventSlotStatusChanged,
		OccurredAt: now,
		ResourceID: hold.Key.ResourceID,
		MemberID:   hold.HolderID,
		Slot: &SlotStatus{
			Key:       hold.Key,
			State:     SlotStateReserved,
			HolderID:  &holder,
			ExpiresAt: &expires,
		},
	}
}

// NewSlotAvailableEvent announces that the slot was released by or reclaimed from holderID.
func NewSlotAvailableEvent(key SlotKey, holderID uuid.UUID, now time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       EventSlotStatusChanged,
		OccurredAt: now,
		ResourceID: key.ResourceID,
		MemberID:   holderID,
		Slot: &SlotStatus{
			Key:   key,
			State: SlotStateAvailable,
		},
	}
}

// NewHoldConsumedEvent announces that holderID's hold was released because it
// was committed as bookingID.
func NewHoldConsumedEvent(key SlotKey, holderID, bookingID uuid.UUID, now time.Time) Event {
	e := NewSlotAvailableEvent(key, holderID, now)
	e.Slot.BookingID = &bookingID
	return e
}
