package handler

import (
	"court-reservation-engine/internal/adapter/http/dto"
	"court-reservation-engine/internal/core/ports"
	"court-reservation-engine/pkg/apperror"
	"court-reservation-engine/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet-related endpoints.
type WalletHandler struct {
	queries ports.QueryService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(queries ports.QueryService) *WalletHandler {
	return &WalletHandler{queries: queries}
}

// Get handles GET /api/v1/wallet.
func (h *WalletHandler) Get(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}

	summary, err := h.queries.GetWallet(c.Request.Context(), member)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToWalletResponse(summary))
}

// Transactions handles GET /api/v1/wallet/transactions.
func (h *WalletHandler) Transactions(c *gin.Context) {
	member, ok := memberID(c)
	if !ok {
		return
	}
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	entries, total, err := h.queries.ListLedger(c.Request.Context(), member, q.Page, q.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	page, pageSize := pageBounds(q.Page, q.PageSize)
	response.Paged(c, dto.ToLedgerEntryResponses(entries), page, pageSize, total)
}
