package handler

import (
	"court-reservation-engine/internal/adapter/http/dto"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/pkg/apperror"
	"court-reservation-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// Mirror the query service clamps so the page meta matches what was served.
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BookingHandler exposes booking commits, series and cancellation.
type BookingHandler struct {
	bookings     ports.BookingService
	recurrence   ports.RecurrenceService
	cancellation ports.CancellationService
	queries      ports.QueryService
}

// NewBookingHandler creates a new BookingHandler.
func NewBookingHandler(bookings ports.BookingService, recurrence ports.RecurrenceService, cancellation ports.CancellationService, queries ports.QueryService) *BookingHandler {
	return &BookingHandler{
		bookings:     bookings,
		recurrence:   recurrence,
		cancellation: cancellation,
		queries:      queries,
	}
}

// Create handles POST /api/v1/bookings. The member must hold the slot.
func (h *BookingHandler) Create(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	req, ok := bindSlot(c, member)
	if !ok {
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToBookingResponse(booking))
}

// CreatePending handles POST /api/v1/bookings/pending.
func (h *BookingHandler) CreatePending(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	req, ok := bindSlot(c, member)
	if !ok {
		return
	}

	booking, err := h.bookings.CreatePendingBooking(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToBookingResponse(booking))
}

// Confirm handles POST /api/v1/bookings/:id/confirm.
func (h *BookingHandler) Confirm(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.bookings.ConfirmPendingBooking(c.Request.Context(), id, member)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToBookingResponse(booking))
}

// CreateRecurring handles POST /api/v1/bookings/recurring. Weeks that cannot
// be booked are listed under failures; the rest stay booked.
func (h *BookingHandler) CreateRecurring(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	var req dto.RecurringRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	result, err := h.recurrence.CreateRecurring(c.Request.Context(), ports.RecurringRequest{
		SlotRequest:       toSlotRequest(member, req.SlotRequest),
		RecurrenceEndDate: req.RecurrenceEndDate,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToRecurringResponse(result))
}

// Cancel handles POST /api/v1/bookings/:id/cancel.
func (h *BookingHandler) Cancel(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	id, ok := pathUUID(c, "id")
	if !ok {
		return
	}

	booking, err := h.cancellation.Cancel(c.Request.Context(), id, member)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToBookingResponse(booking))
}

// ListMine handles GET /api/v1/bookings/me.
func (h *BookingHandler) ListMine(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	var q dto.BookingListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	params := ports.BookingListParams{
		MemberID: member,
		Status:   dto.OptionalStatus(q.Status),
		Page:     q.Page,
		PageSize: q.PageSize,
	}
	bookings, total, err := h.queries.ListMemberBookings(c.Request.Context(), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	page, pageSize := pageBounds(q.Page, q.PageSize)
	response.Paged(c, dto.ToBookingResponses(bookings), page, pageSize, total)
}

// pageBounds mirrors the clamping the query service applies.
func pageBounds(page, pageSize int) (int, int) {
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
