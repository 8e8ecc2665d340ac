package dto

import (
	"court-reservation-engine/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("booking_status", validateBookingStatus)
	}
}

// validateBookingStatus accepts the four booking states, case-sensitive.
func validateBookingStatus(fl validator.FieldLevel) bool {
	switch domain.BookingStatus(fl.Field().String()) {
	case domain.BookingStatusPendingPayment, domain.BookingStatusConfirmed,
		domain.BookingStatusCancelled, domain.BookingStatusCompleted:
		return true
	}
	return false
}

// OptionalUUID parses s, treating "" as absent. Callers validate the format
// through the uuid binding tag first.
func OptionalUUID(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

// OptionalStatus converts a validated status filter.
func OptionalStatus(s string) *domain.BookingStatus {
	if s == "" {
		return nil
	}
	status := domain.BookingStatus(s)
	return &status
}
