package service

import (
	"context"
	"fmt"
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize   = 20
	maxPageSize       = 100
	walletRecentLimit = 10
	maxCalendarWindow = 31 * 24 * time.Hour
)

// QueryServiceImpl implements ports.QueryService. Nothing here takes a lock
// or opens a unit of work.
type QueryServiceImpl struct {
	repos        Repositories
	reservations ports.ReservationService
}

// NewQueryService creates a new QueryServiceImpl.
func NewQueryService(repos Repositories, reservations ports.ReservationService) *QueryServiceImpl {
	return &QueryServiceImpl{repos: repos, reservations: reservations}
}

// CheckAvailability reports whether [start, end) is free of CONFIRMED
// bookings and who, if anyone, holds the exact slot.
func (s *QueryServiceImpl) CheckAvailability(ctx context.Context, resourceID uuid.UUID, start, end time.Time, excludeBookingID *uuid.UUID) (*ports.Availability, error) {
	key, err := slotKey(resourceID, start, end)
	if err != nil {
		return nil, err
	}

	resource, err := s.repos.Resources.GetByID(ctx, resourceID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get resource: %w", err))
	}
	if resource == nil {
		return nil, apperror.ErrNotFound("resource")
	}

	calendar, err := s.repos.Bookings.ListByResource(ctx, resourceID, key.Start, key.End)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list resource bookings: %w", err))
	}
	conflicts := []domain.Booking{}
	for _, b := range calendar {
		if b.Status != domain.BookingStatusConfirmed {
			continue
		}
		if excludeBookingID != nil && b.ID == *excludeBookingID {
			continue
		}
		conflicts = append(conflicts, b)
	}

	hold, err := s.reservations.Inspect(ctx, resourceID, key.Start, key.End)
	if err != nil {
		return nil, err
	}

	return &ports.Availability{
		Available:   resource.IsActive && len(conflicts) == 0,
		Conflicts:   conflicts,
		CurrentHold: hold,
	}, nil
}

// ListMemberBookings pages through a member's bookings, newest first.
func (s *QueryServiceImpl) ListMemberBookings(ctx context.Context, params ports.BookingListParams) ([]domain.Booking, int64, error) {
	params.Page, params.PageSize = clampPage(params.Page, params.PageSize)

	bookings, total, err := s.repos.Bookings.ListByMember(ctx, params)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list member bookings: %w", err))
	}
	return bookings, total, nil
}

// ListCalendar returns the CONFIRMED and PENDING_PAYMENT bookings on a court
// within [from, to), ordered by start.
func (s *QueryServiceImpl) ListCalendar(ctx context.Context, resourceID uuid.UUID, from, to time.Time) ([]domain.Booking, error) {
	if !from.Before(to) {
		return nil, apperror.ErrInvalidInterval()
	}
	if to.Sub(from) > maxCalendarWindow {
		return nil, apperror.Validation("Calendar range cannot exceed 31 days")
	}

	bookings, err := s.repos.Bookings.ListByResource(ctx, resourceID, from, to)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list calendar: %w", err))
	}
	return bookings, nil
}

// GetWallet returns the member's balance and latest ledger entries.
func (s *QueryServiceImpl) GetWallet(ctx context.Context, memberID uuid.UUID) (*ports.WalletSummary, error) {
	wallet, err := s.repos.Wallets.GetByMemberID(ctx, memberID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	entries, err := s.repos.Ledger.ListByMember(ctx, memberID, walletRecentLimit)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list ledger entries: %w", err))
	}
	return &ports.WalletSummary{Account: *wallet, RecentEntries: entries}, nil
}

// ListLedger pages through the member's complete wallet history, newest first.
func (s *QueryServiceImpl) ListLedger(ctx context.Context, memberID uuid.UUID, page, pageSize int) ([]domain.LedgerEntry, int64, error) {
	page, pageSize = clampPage(page, pageSize)

	entries, total, err := s.repos.Ledger.ListByMemberPaged(ctx, memberID, page, pageSize)
	if err != nil {
		return nil, 0, apperror.ErrDatabaseError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, total, nil
}

func clampPage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return page, pageSize
}
