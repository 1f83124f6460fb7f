package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/lottolink/lottolink-api/internal/types/business"
)

// UpdateFactorRequest sets one optimization weight; the other two are
// rebalanced server-side so the weights keep summing to 100.
type UpdateFactorRequest struct {
	Factor business.Factor `json:"factor" binding:"required"`
	Value  *int            `json:"value" binding:"required"`
}

// SelectTokenRequest records an explicit user token choice.
type SelectTokenRequest struct {
	Address  string  `json:"address" binding:"required"`
	Symbol   string  `json:"symbol" binding:"required"`
	Decimals uint8   `json:"decimals"`
	USDPrice float64 `json:"usd_price"`
}

// GetFactors returns the wallet's current optimization weights.
func (h *CommonServices) GetFactors(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}
	sendSuccess(c, http.StatusOK, h.strategy.Factors(sender))
}

// UpdateFactor adjusts one optimization weight and returns the rebalanced set.
func (h *CommonServices) UpdateFactor(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	var req UpdateFactorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid factor update", err)
		return
	}

	switch req.Factor {
	case business.FactorBalance, business.FactorVolatility, business.FactorGasCost:
	default:
		sendError(c, http.StatusBadRequest, "Unknown optimization factor", nil)
		return
	}

	factors := h.strategy.SetFactor(sender, req.Factor, *req.Value)
	sendSuccess(c, http.StatusOK, factors)
}

// SelectToken records the user's explicit payment token choice. It wins over
// auto-selection until the wallet's token set changes.
func (h *CommonServices) SelectToken(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	var req SelectTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid token selection", err)
		return
	}
	if !common.IsHexAddress(req.Address) {
		sendError(c, http.StatusBadRequest, "Invalid token address", nil)
		return
	}

	h.strategy.SelectToken(sender, business.PaymentToken{
		Address:  common.HexToAddress(req.Address),
		Symbol:   req.Symbol,
		Decimals: req.Decimals,
		USDPrice: req.USDPrice,
	})
	sendSuccessMessage(c, http.StatusOK, "Token selected")
}
