package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lottolink/lottolink-api/internal/types/business"
)

// PaymentTokensResponse is the ranked catalog plus the current selection.
type PaymentTokensResponse struct {
	Tokens         []business.ScoredToken `json:"tokens"`
	Selected       *business.PaymentToken `json:"selected,omitempty"`
	SelectionState string                 `json:"selection_state"`
	FreeGas        bool                   `json:"free_gas"`
}

// GetPaymentTokens returns the wallet's payment token candidates ranked by
// the current optimization weights, refreshing balances and gas costs from
// the paymaster and node.
func (h *CommonServices) GetPaymentTokens(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	tokens, freeGas, err := h.catalog.PaymentTokens(c.Request.Context(), sender)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to fetch payment tokens", err)
		return
	}

	gasCosts, err := h.catalog.GasCosts(c.Request.Context(), sender, tokens)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to estimate gas costs", err)
		return
	}

	ranked, selected, state := h.strategy.Evaluate(sender, tokens, gasCosts)
	sendSuccess(c, http.StatusOK, PaymentTokensResponse{
		Tokens:         ranked,
		Selected:       selected,
		SelectionState: state.String(),
		FreeGas:        freeGas,
	})
}
