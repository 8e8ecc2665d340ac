package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/internal/metrics"
	"court-reservation-engine/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReservationServiceImpl implements ports.ReservationService on top of a hold store.
type ReservationServiceImpl struct {
	holds  ports.HoldStore
	events ports.EventPublisher
	ttl    time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewReservationService creates a new ReservationServiceImpl. A non-positive
// ttl falls back to domain.DefaultHoldTTL.
func NewReservationService(holds ports.HoldStore, events ports.EventPublisher, ttl time.Duration, log zerolog.Logger) *ReservationServiceImpl {
	if ttl <= 0 {
		ttl = domain.DefaultHoldTTL
	}
	return &ReservationServiceImpl{
		holds:  holds,
		events: events,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
		log:    log,
	}
}

// Reserve acquires or renews the caller's soft hold on the slot.
func (s *ReservationServiceImpl) Reserve(ctx context.Context, req ports.SlotRequest) (*domain.SoftHold, error) {
	key, err := slotKey(req.ResourceID, req.Start, req.End)
	if err != nil {
		return nil, err
	}

	now := s.now()
	outcome, hold, err := s.holds.Acquire(ctx, key, req.MemberID, now, s.ttl)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("acquire hold: %w", err))
	}
	metrics.IncHold(string(outcome))

	if outcome == domain.HoldRejected {
		return nil, apperror.ErrSlotUnavailable()
	}

	s.events.Publish(ctx, domain.NewSlotReservedEvent(hold, now))
	s.log.Info().
		Str("slot", key.String()).
		Str("member_id", req.MemberID.String()).
		Str("outcome", string(outcome)).
		Time("expires_at", hold.ExpiresAt).
		Msg("slot held")
	return hold, nil
}

// Release drops the caller's live hold.
func (s *ReservationServiceImpl) Release(ctx context.Context, req ports.SlotRequest) error {
	key, err := slotKey(req.ResourceID, req.Start, req.End)
	if err != nil {
		return err
	}

	now := s.now()
	released, err := s.holds.Release(ctx, key, req.MemberID, now)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("release hold: %w", err))
	}
	if !released {
		return apperror.ErrHoldNotFound()
	}

	s.events.Publish(ctx, domain.NewSlotAvailableEvent(key, req.MemberID, now))
	s.log.Info().Str("slot", key.String()).Str("member_id", req.MemberID.String()).Msg("slot released")
	return nil
}

// Inspect returns the live hold on the slot, or nil. An expired hold found
// here is reclaimed and announced.
func (s *ReservationServiceImpl) Inspect(ctx context.Context, resourceID uuid.UUID, start, end time.Time) (*domain.SoftHold, error) {
	key, err := slotKey(resourceID, start, end)
	if err != nil {
		return nil, err
	}

	now := s.now()
	live, reclaimed, err := s.holds.Get(ctx, key, now)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("inspect hold: %w", err))
	}
	if reclaimed != nil {
		s.events.Publish(ctx, domain.NewSlotAvailableEvent(key, reclaimed.HolderID, now))
		s.log.Debug().Str("slot", key.String()).Msg("expired hold reclaimed")
	}
	return live, nil
}

func slotKey(resourceID uuid.UUID, start, end time.Time) (domain.SlotKey, error) {
	key, err := domain.NewSlotKey(resourceID, start, end)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInterval) {
			return domain.SlotKey{}, apperror.ErrInvalidInterval()
		}
		return domain.SlotKey{}, apperror.Validation(err.Error())
	}
	return key, nil
}
