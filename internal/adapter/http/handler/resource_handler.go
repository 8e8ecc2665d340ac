package handler

import (
	"court-reservation-engine/internal/adapter/http/dto"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/pkg/apperror"
	"court-reservation-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// ResourceHandler answers availability and calendar questions about a court.
type ResourceHandler struct {
	queries ports.QueryService
}

// NewResourceHandler creates a new ResourceHandler.
func NewResourceHandler(queries ports.QueryService) *ResourceHandler {
	return &ResourceHandler{queries: queries}
}

// Availability handles GET /api/v1/resources/:id/availability.
func (h *ResourceHandler) Availability(c *gin.Context) {
	resourceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var q dto.SlotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	avail, err := h.queries.CheckAvailability(c.Request.Context(), resourceID, q.StartTime, q.EndTime, dto.OptionalUUID(q.ExcludeBookingID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToAvailabilityResponse(avail))
}

// Calendar handles GET /api/v1/resources/:id/calendar?from=&to=.
func (h *ResourceHandler) Calendar(c *gin.Context) {
	resourceID, ok := pathUUID(c, "id")
	if !ok {
		return
	}
	var q dto.CalendarQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	bookings, err := h.queries.ListCalendar(c.Request.Context(), resourceID, q.From, q.To)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToBookingResponses(bookings))
}
