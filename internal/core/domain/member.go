package domain

import (
	"time"

	"github.com/google/uuid"
)

// MemberStatus mirrors the account state owned by the identity service.
type MemberStatus string

const (
	MemberStatusActive    MemberStatus = "ACTIVE"
	MemberStatusSuspended MemberStatus = "SUSPENDED"
)

// Member is the read-only view of a club member.
type Member struct {
	ID        uuid.UUID    `json:"id"`
	FullName  string       `json:"full_name"`
	Status    MemberStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// IsActive returns true if the member may create bookings.
func (m *Member) IsActive() bool {
	return m.Status == MemberStatusActive
}
