package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultHoldTTL is how long a soft hold stays live without renewal.
const DefaultHoldTTL = 5 * time.Minute

const slotKeyPrefix = "slot"

var (
	ErrInvalidInterval = errors.New("start time must be before end time")
	ErrInvalidSlotKey  = errors.New("malformed slot key")
)

// SlotKey identifies a reservable unit: one court over one interval.
// Times are normalised to UTC with second precision so that equal
// intervals always produce equal keys.
type SlotKey struct {
	ResourceID uuid.UUID `json:"resource_id"`
	Start      time.Time `json:"start_time"`
	End        time.Time `json:"end_time"`
}

// NewSlotKey validates the interval and builds a normalised key.
func NewSlotKey(resourceID uuid.UUID, start, end time.Time) (SlotKey, error) {
	start = start.UTC().Truncate(time.Second)
	end = end.UTC().Truncate(time.Second)
	if !start.Before(end) {
		return SlotKey{}, ErrInvalidInterval
	}
	return SlotKey{ResourceID: resourceID, Start: start, End: end}, nil
}

// String renders the key as slot:<resource>:<start unix>:<end unix>.
func (k SlotKey) String() string {
	return fmt.Sprintf("%s:%s:%d:%d", slotKeyPrefix, k.ResourceID, k.Start.Unix(), k.End.Unix())
}

// ParseSlotKey is the inverse of SlotKey.String.
func ParseSlotKey(s string) (SlotKey, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 || parts[0] != slotKeyPrefix {
		return SlotKey{}, fmt.Errorf("%w: %q", ErrInvalidSlotKey, s)
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return SlotKey{}, fmt.Errorf("%w: %v", ErrInvalidSlotKey, err)
	}
	start, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return SlotKey{}, fmt.Errorf("%w: %v", ErrInvalidSlotKey, err)
	}
	end, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return SlotKey{}, fmt.Errorf("%w: %v", ErrInvalidSlotKey, err)
	}
	return NewSlotKey(id, time.Unix(start, 0), time.Unix(end, 0))
}

// Duration returns the length of the interval.
func (k SlotKey) Duration() time.Duration {
	return k.End.Sub(k.Start)
}

// Overlaps reports whether two keys on the same court intersect on [start, end).
func (k SlotKey) Overlaps(other SlotKey) bool {
	return k.ResourceID == other.ResourceID &&
		k.Start.Before(other.End) &&
		k.End.After(other.Start)
}

// HoldOutcome describes what a successful or failed acquire did.
type HoldOutcome string

const (
	HoldAcquired HoldOutcome = "ACQUIRED"
	HoldRenewed  HoldOutcome = "RENEWED"
	HoldRejected HoldOutcome = "REJECTED"
)

// SoftHold is an ephemeral single-owner claim on a slot. It is never persisted.
type SoftHold struct {
	Key        SlotKey   `json:"slot"`
	HolderID   uuid.UUID `json:"holder_id"`
	AcquiredAt time.Time `json:"acquired_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// IsLive returns true while the hold has not expired.
func (h *SoftHold) IsLive(now time.Time) bool {
	return now.Before(h.ExpiresAt)
}

// HeldBy returns true if memberID owns the hold.
func (h *SoftHold) HeldBy(memberID uuid.UUID) bool {
	return h.HolderID == memberID
}
