package service

import (
	"context"
	"errors"
	"fmt"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RecurrenceServiceImpl implements ports.RecurrenceService. Every occurrence
// is an independent reserve-then-commit; a failure never undoes earlier ones.
type RecurrenceServiceImpl struct {
	members        ports.MemberRepository
	reservations   ports.ReservationService
	bookings       ports.BookingService
	maxOccurrences int
	log            zerolog.Logger
}

// NewRecurrenceService creates a new RecurrenceServiceImpl. A non-positive
// maxOccurrences falls back to domain.DefaultMaxOccurrences.
func NewRecurrenceService(
	members ports.MemberRepository,
	reservations ports.ReservationService,
	bookings ports.BookingService,
	maxOccurrences int,
	log zerolog.Logger,
) *RecurrenceServiceImpl {
	if maxOccurrences <= 0 {
		maxOccurrences = domain.DefaultMaxOccurrences
	}
	return &RecurrenceServiceImpl{
		members:        members,
		reservations:   reservations,
		bookings:       bookings,
		maxOccurrences: maxOccurrences,
		log:            log,
	}
}

// CreateRecurring books the weekly series. The first successful occurrence
// becomes the parent of the ones after it.
func (s *RecurrenceServiceImpl) CreateRecurring(ctx context.Context, req ports.RecurringRequest) (*ports.RecurringResult, error) {
	occurrences, err := domain.WeeklyOccurrences(req.Start, req.End, req.RecurrenceEndDate, s.maxOccurrences)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidInterval):
			return nil, apperror.ErrInvalidInterval()
		case errors.Is(err, domain.ErrTooManyOccurrences):
			return nil, apperror.ErrInvalidRecurrence(fmt.Sprintf("Recurring series is limited to %d occurrences", s.maxOccurrences))
		default:
			return nil, apperror.ErrInvalidRecurrence(err.Error())
		}
	}
	if err := checkMember(ctx, s.members, req.MemberID); err != nil {
		return nil, err
	}

	result := &ports.RecurringResult{Bookings: []domain.Booking{}, Failures: []ports.OccurrenceFailure{}}
	var parentID *uuid.UUID
	for _, occ := range occurrences {
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, occurrenceFailure(occ, apperror.InternalError(err)))
			continue
		}

		booking, err := s.bookOccurrence(ctx, req.MemberID, req.ResourceID, occ, parentID)
		if err != nil {
			s.log.Warn().Err(err).
				Str("member_id", req.MemberID.String()).
				Int("occurrence", occ.Index).
				Time("start_time", occ.Start).
				Msg("recurring occurrence not booked")
			result.Failures = append(result.Failures, occurrenceFailure(occ, err))
			continue
		}
		if parentID == nil {
			id := booking.ID
			parentID = &id
		}
		result.Bookings = append(result.Bookings, *booking)
	}

	s.log.Info().
		Str("member_id", req.MemberID.String()).
		Str("resource_id", req.ResourceID.String()).
		Int("requested", len(occurrences)).
		Int("booked", len(result.Bookings)).
		Int("failed", len(result.Failures)).
		Msg("recurring series processed")
	return result, nil
}

func (s *RecurrenceServiceImpl) bookOccurrence(ctx context.Context, memberID, resourceID uuid.UUID, occ domain.Occurrence, parentID *uuid.UUID) (*domain.Booking, error) {
	req := ports.SlotRequest{MemberID: memberID, ResourceID: resourceID, Start: occ.Start, End: occ.End}
	if _, err := s.reservations.Reserve(ctx, req); err != nil {
		return nil, err
	}

	booking, err := s.bookings.CreateOccurrence(ctx, req, parentID)
	if err != nil {
		if relErr := s.reservations.Release(ctx, req); relErr != nil && !apperror.HasCode(relErr, apperror.CodeHoldNotFound) {
			s.log.Warn().Err(relErr).Int("occurrence", occ.Index).Msg("failed to release occurrence hold")
		}
		return nil, err
	}
	return booking, nil
}

func occurrenceFailure(occ domain.Occurrence, err error) ports.OccurrenceFailure {
	failure := ports.OccurrenceFailure{Occurrence: occ, Code: apperror.CodeInternal, Message: "Internal server error"}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		failure.Code = appErr.Code
		failure.Message = appErr.Message
	}
	return failure
}
