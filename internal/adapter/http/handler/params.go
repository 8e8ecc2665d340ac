package handler

import (
	"court-reservation-engine/internal/adapter/http/dto"
	"court-reservation-engine/internal/adapter/http/middleware"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/pkg/apperror"
	"court-reservation-engine/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// memberID reads the authenticated member or writes a 401.
func memberID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.MemberID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return uuid.Nil, false
	}
	return id, true
}

// pathUUID parses a path parameter or writes a 400.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.Error(c, apperror.Validation("Invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// bindSlot binds a slot body for the authenticated member.
func bindSlot(c *gin.Context, member uuid.UUID) (ports.SlotRequest, bool) {
	var req dto.SlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return ports.SlotRequest{}, false
	}
	return toSlotRequest(member, req), true
}

func toSlotRequest(member uuid.UUID, req dto.SlotRequest) ports.SlotRequest {
	return ports.SlotRequest{
		MemberID:   member,
		ResourceID: uuid.MustParse(req.ResourceID),
		Start:      req.StartTime,
		End:        req.EndTime,
	}
}
