package handler

import (
	"net/http"

	"court-reservation-engine/internal/adapter/http/dto"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/pkg/apperror"
	"court-reservation-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HoldHandler exposes soft holds.
type HoldHandler struct {
	reservations ports.ReservationService
}

// NewHoldHandler creates a new HoldHandler.
func NewHoldHandler(reservations ports.ReservationService) *HoldHandler {
	return &HoldHandler{reservations: reservations}
}

// Reserve handles POST /api/v1/holds. Holding a slot again renews it.
func (h *HoldHandler) Reserve(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	req, ok := bindSlot(c, member)
	if !ok {
		return
	}

	hold, err := h.reservations.Reserve(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToHoldResponse(hold))
}

// Release handles POST /api/v1/holds/release.
func (h *HoldHandler) Release(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	req, ok := bindSlot(c, member)
	if !ok {
		return
	}

	if err := h.reservations.Release(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Inspect handles GET /api/v1/holds?resource_id=&start_time=&end_time=.
func (h *HoldHandler) Inspect(c *gin.Context) {
	var q dto.SlotQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if q.ResourceID == "" {
		response.Error(c, apperror.Validation("resource_id is required"))
		return
	}

	hold, err := h.reservations.Inspect(c.Request.Context(), uuid.MustParse(q.ResourceID), q.StartTime, q.EndTime)
	if err != nil {
		response.Error(c, err)
		return
	}
	if hold == nil {
		response.Error(c, apperror.ErrHoldNotFound())
		return
	}
	response.OK(c, dto.ToHoldResponse(hold))
}
