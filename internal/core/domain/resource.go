package domain

import (
	"time"

	"github.com/google/uuid"
)

// Resource is a bookable court. The catalog is managed elsewhere; this core only reads it.
type Resource struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	HourlyRate int64     `json:"hourly_rate"` // In smallest currency unit per hour
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PriceFor returns the price of holding the court over [start, end).
func (r *Resource) PriceFor(start, end time.Time) int64 {
	return CalculatePrice(r.HourlyRate, start, end)
}
