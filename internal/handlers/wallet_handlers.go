package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

// WalletReadinessResponse reports whether the smart wallet can submit
// non-sponsored operations, plus the setup progress and skip preference.
type WalletReadinessResponse struct {
	IsDeployed      bool   `json:"is_deployed"`
	NeedsPrefunding bool   `json:"needs_prefunding"`
	Ready           bool   `json:"ready"`
	SetupState      string `json:"setup_state"`
	SetupSkipped    bool   `json:"setup_skipped"`
}

// SetupWalletRequest names the owner key the account was counterfactually
// derived from.
type SetupWalletRequest struct {
	Owner string `json:"owner" binding:"required"`
}

// GetAccountAddress resolves the owner's counterfactual smart wallet address.
func (h *CommonServices) GetAccountAddress(c *gin.Context) {
	owner, ok := walletParam(c)
	if !ok {
		return
	}

	account, err := h.wallet.AccountAddress(c.Request.Context(), owner)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to resolve account address", err)
		return
	}
	sendSuccess(c, http.StatusOK, gin.H{"account": account.Hex()})
}

// GetWalletReadiness refreshes readiness from chain state.
func (h *CommonServices) GetWalletReadiness(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	readiness, err := h.wallet.CheckReadiness(c.Request.Context(), sender)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Failed to check wallet readiness", err)
		return
	}

	sendSuccess(c, http.StatusOK, WalletReadinessResponse{
		IsDeployed:      readiness.IsDeployed,
		NeedsPrefunding: readiness.NeedsPrefunding,
		Ready:           readiness.Ready(),
		SetupState:      h.wallet.State(sender).String(),
		SetupSkipped:    h.wallet.Skipped(sender),
	})
}

// SetupWallet drives the prefund + deploy flow until the wallet is deployed.
func (h *CommonServices) SetupWallet(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}

	var req SetupWalletRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid setup request", err)
		return
	}
	if !common.IsHexAddress(req.Owner) {
		sendError(c, http.StatusBadRequest, "Invalid owner address", nil)
		return
	}

	state, err := h.wallet.EnsureReady(c.Request.Context(), common.HexToAddress(req.Owner), sender)
	if err != nil {
		sendError(c, http.StatusBadGateway, "Wallet setup failed", err)
		return
	}
	sendSuccess(c, http.StatusOK, gin.H{"setup_state": state.String()})
}

// SkipWalletSetup records the user's choice to stop being prompted for setup
// this session.
func (h *CommonServices) SkipWalletSetup(c *gin.Context) {
	sender, ok := walletParam(c)
	if !ok {
		return
	}
	h.wallet.SkipSetup(sender)
	sendSuccessMessage(c, http.StatusOK, "Wallet setup skipped")
}
