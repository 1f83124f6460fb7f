package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lottolink/lottolink-api/internal/services"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

// AddSelectionsRequest appends ticket selections to the wallet's pending set.
type AddSelectionsRequest struct {
	Selections []business.PurchaseSelection `json:"selections" binding:"required,min=1"`
}

// SubmitRequest chooses how the operation's gas is paid.
type SubmitRequest struct {
	PaymentType business.PaymentType   `json:"payment_type"`
	Token       *business.PaymentToken `json:"token,omitempty"`
}

// ClaimRequest claims the prize for one round.
type ClaimRequest struct {
	SubmitRequest
	RoundID uint64 `json:"round_id" binding:"required"`
}

// AddSelections appends ticket selections for later batch submission.
func (h *CommonServices) AddSelections(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	var req AddSelectionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid selections", err)
		return
	}

	h.purchase.AddSelections(sender, req.Selections)
	sendSuccess(c, http.StatusCreated, gin.H{
		"pending": h.purchase.PendingSelections(sender),
	})
}

// GetSelections lists the wallet's pending selections.
func (h *CommonServices) GetSelections(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}
	sendSuccess(c, http.StatusOK, gin.H{
		"pending": h.purchase.PendingSelections(sender),
	})
}

// ClearSelections drops the wallet's pending selections.
func (h *CommonServices) ClearSelections(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}
	h.purchase.ClearSelections(sender)
	sendSuccessMessage(c, http.StatusOK, "Selections cleared")
}

// SubmitPurchase submits every pending selection as one batch user operation.
func (h *CommonServices) SubmitPurchase(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid submit request", err)
		return
	}

	result, err := h.purchase.SubmitBatch(c.Request.Context(), services.SubmitParams{
		Sender:      sender,
		PaymentType: req.PaymentType,
		Token:       req.Token,
	})
	if err != nil {
		sendAAError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, result)
}

// SubmitClaim submits a prize claim for a round.
func (h *CommonServices) SubmitClaim(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid claim request", err)
		return
	}

	result, err := h.purchase.SubmitClaim(c.Request.Context(), services.SubmitParams{
		Sender:      sender,
		PaymentType: req.PaymentType,
		Token:       req.Token,
	}, req.RoundID)
	if err != nil {
		sendAAError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, result)
}

// SubmitCheckIn submits the daily check-in.
func (h *CommonServices) SubmitCheckIn(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid check-in request", err)
		return
	}

	result, err := h.purchase.SubmitCheckIn(c.Request.Context(), services.SubmitParams{
		Sender:      sender,
		PaymentType: req.PaymentType,
		Token:       req.Token,
	})
	if err != nil {
		sendAAError(c, err)
		return
	}
	sendSuccess(c, http.StatusOK, result)
}

// GetOperations lists the wallet's submitted operation history.
func (h *CommonServices) GetOperations(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}
	if h.store == nil {
		sendError(c, http.StatusNotImplemented, "Operation history is not enabled", nil)
		return
	}

	limit := int64(50)
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 32)
		if err != nil || parsed <= 0 {
			sendError(c, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = parsed
	}

	records, err := h.store.ListOperationsBySender(c.Request.Context(), sender, int32(limit))
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to list operations", err)
		return
	}
	if records == nil {
		records = []business.OperationRecord{}
	}
	sendSuccess(c, http.StatusOK, gin.H{
		"object": "list",
		"data":   records,
	})
}
