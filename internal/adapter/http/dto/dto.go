package dto

import (
	"time"

	"court-reservation-engine/internal/core/domain"
	"court-reservation-engine/internal/core/ports"
)

// SlotRequest names a court and an interval. Times are RFC 3339.
type SlotRequest struct {
	ResourceID string    `json:"resource_id" binding:"required,uuid"`
	StartTime  time.Time `json:"start_time" binding:"required"`
	EndTime    time.Time `json:"end_time" binding:"required,gtfield=StartTime"`
}

// RecurringRequest asks for the same slot every week up to RecurrenceEndDate.
type RecurringRequest struct {
	SlotRequest
	RecurrenceEndDate time.Time `json:"recurrence_end_date" binding:"required"`
}

// SlotQuery is the query string for availability and hold lookups.
type SlotQuery struct {
	ResourceID       string    `form:"resource_id" binding:"omitempty,uuid"`
	StartTime        time.Time `form:"start_time" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	EndTime          time.Time `form:"end_time" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	ExcludeBookingID string    `form:"exclude_booking_id" binding:"omitempty,uuid"`
}

// CalendarQuery is the query string for a court calendar.
type CalendarQuery struct {
	From time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
	To   time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00" binding:"required"`
}

// BookingListQuery is the query string for a member's bookings.
type BookingListQuery struct {
	Status   string `form:"status" binding:"omitempty,booking_status"`
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
}

// PageQuery is the query string for a paged listing.
type PageQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// HoldResponse describes a soft hold.
type HoldResponse struct {
	ResourceID string `json:"resource_id"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	HolderID   string `json:"holder_id"`
	AcquiredAt string `json:"acquired_at"`
	ExpiresAt  string `json:"expires_at"`
}

// BookingResponse describes a booking.
type BookingResponse struct {
	ID              string  `json:"id"`
	ResourceID      string  `json:"resource_id"`
	MemberID        string  `json:"member_id"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	TotalPrice      int64   `json:"total_price"`
	Status          string  `json:"status"`
	IsRecurring     bool    `json:"is_recurring"`
	ParentBookingID *string `json:"parent_booking_id,omitempty"`
	CancelledAt     *string `json:"cancelled_at,omitempty"`
	CancelReason    *string `json:"cancel_reason,omitempty"`
	CreatedAt       string  `json:"created_at"`
}

// OccurrenceFailureResponse explains a skipped week.
type OccurrenceFailureResponse struct {
	Index     int    `json:"index"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// RecurringResponse lists the booked and skipped occurrences of a series.
type RecurringResponse struct {
	Bookings []BookingResponse          `json:"bookings"`
	Failures []OccurrenceFailureResponse `json:"failures"`
}

// AvailabilityResponse answers an availability query.
type AvailabilityResponse struct {
	Available   bool              `json:"available"`
	Conflicts   []BookingResponse `json:"conflicts"`
	CurrentHold *HoldResponse     `json:"current_hold,omitempty"`
}

// LedgerEntryResponse describes one wallet movement.
type LedgerEntryResponse struct {
	ID               string  `json:"id"`
	Amount           int64   `json:"amount"`
	Kind             string  `json:"kind"`
	Status           string  `json:"status"`
	RelatedBookingID *string `json:"related_booking_id,omitempty"`
	Description      string  `json:"description"`
	CreatedAt        string  `json:"created_at"`
}

// WalletResponse is the response for a wallet query.
type WalletResponse struct {
	Balance         int64                 `json:"balance"`
	CumulativeSpend int64                 `json:"cumulative_spend"`
	RecentEntries   []LedgerEntryResponse `json:"recent_entries"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatOptionalTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToHoldResponse converts a hold; nil stays nil.
func ToHoldResponse(h *domain.SoftHold) *HoldResponse {
	if h == nil {
		return nil
	}
	return &HoldResponse{
		ResourceID: h.Key.ResourceID.String(),
		StartTime:  formatTime(h.Key.Start),
		EndTime:    formatTime(h.Key.End),
		HolderID:   h.HolderID.String(),
		AcquiredAt: formatTime(h.AcquiredAt),
		ExpiresAt:  formatTime(h.ExpiresAt),
	}
}

// ToBookingResponse converts a booking.
func ToBookingResponse(b *domain.Booking) BookingResponse {
	resp := BookingResponse{
		ID:           b.ID.String(),
		ResourceID:   b.ResourceID.String(),
		MemberID:     b.MemberID.String(),
		StartTime:    formatTime(b.StartTime),
		EndTime:      formatTime(b.EndTime),
		TotalPrice:   b.TotalPrice,
		Status:       string(b.Status),
		IsRecurring:  b.IsRecurring,
		CancelledAt:  formatOptionalTime(b.CancelledAt),
		CancelReason: b.CancelReason,
		CreatedAt:    formatTime(b.CreatedAt),
	}
	if b.ParentBookingID != nil {
		s := b.ParentBookingID.String()
		resp.ParentBookingID = &s
	}
	return resp
}

// ToBookingResponses converts a list, never returning nil.
func ToBookingResponses(bs []domain.Booking) []BookingResponse {
	out := make([]BookingResponse, 0, len(bs))
	for i := range bs {
		out = append(out, ToBookingResponse(&bs[i]))
	}
	return out
}

// ToRecurringResponse converts a series result.
func ToRecurringResponse(r *ports.RecurringResult) RecurringResponse {
	resp := RecurringResponse{
		Bookings: ToBookingResponses(r.Bookings),
		Failures: make([]OccurrenceFailureResponse, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		resp.Failures = append(resp.Failures, OccurrenceFailureResponse{
			Index:     f.Occurrence.Index,
			StartTime: formatTime(f.Occurrence.Start),
			EndTime:   formatTime(f.Occurrence.End),
			ErrorCode: f.Code,
			Message:   f.Message,
		})
	}
	return resp
}

// ToAvailabilityResponse converts an availability answer.
func ToAvailabilityResponse(a *ports.Availability) AvailabilityResponse {
	return AvailabilityResponse{
		Available:   a.Available,
		Conflicts:   ToBookingResponses(a.Conflicts),
		CurrentHold: ToHoldResponse(a.CurrentHold),
	}
}

// ToWalletResponse converts a wallet summary.
func ToWalletResponse(s *ports.WalletSummary) WalletResponse {
	resp := WalletResponse{
		Balance:         s.Account.Balance,
		CumulativeSpend: s.Account.CumulativeSpend,
		RecentEntries:   ToLedgerEntryResponses(s.RecentEntries),
	}
	return resp
}

// ToLedgerEntryResponses converts ledger entries, never returning nil.
func ToLedgerEntryResponses(entries []domain.LedgerEntry) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		entry := LedgerEntryResponse{
			ID:          e.ID.String(),
			Amount:      e.Amount,
			Kind:        string(e.Kind),
			Status:      string(e.Status),
			Description: e.Description,
			CreatedAt:   formatTime(e.CreatedAt),
		}
		if e.RelatedBookingID != nil {
			s := e.RelatedBookingID.String()
			entry.RelatedBookingID = &s
		}
		out = append(out, entry)
	}
	return out
}
