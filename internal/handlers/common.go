package handlers

import (
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lottolink/lottolink-api/internal/aaerrors"
	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/services"
)

// CommonServices holds the shared dependencies used across handlers.
type CommonServices struct {
	catalog  *services.TokenCatalogService
	strategy *services.StrategyService
	purchase *services.PurchaseService
	wallet   *services.WalletSetupService
	store    services.OperationStore
}

// ErrorResponse is the standard error body. Kind is the machine-readable
// failure category; Error is the human-readable message.
type ErrorResponse struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// SuccessResponse represents a standard success response.
type SuccessResponse struct {
	Message string `json:"message"`
}

// NewCommonServices creates a new instance of CommonServices. store may be
// nil when operation history is disabled.
func NewCommonServices(
	catalog *services.TokenCatalogService,
	strategy *services.StrategyService,
	purchase *services.PurchaseService,
	wallet *services.WalletSetupService,
	store services.OperationStore,
) *CommonServices {
	return &CommonServices{
		catalog:  catalog,
		strategy: strategy,
		purchase: purchase,
		wallet:   wallet,
		store:    store,
	}
}

// sendError logs the error and sends a JSON error response.
func sendError(c *gin.Context, statusCode int, message string, err error) {
	logger.Error(message,
		zap.Error(err),
		zap.String("path", c.Request.URL.Path),
		zap.String("method", c.Request.Method),
	)
	c.JSON(statusCode, ErrorResponse{Kind: aaerrors.KindOf(err).String(), Error: message})
}

// sendAAError maps a classified submission error onto an HTTP status.
func sendAAError(c *gin.Context, err error) {
	kind := aaerrors.KindOf(err)
	sendError(c, statusForKind(kind), err.Error(), err)
}

func statusForKind(kind aaerrors.Kind) int {
	switch kind {
	case aaerrors.KindWalletNotConnected:
		return http.StatusUnauthorized
	case aaerrors.KindNoSelections, aaerrors.KindMissingPaymentToken:
		return http.StatusBadRequest
	case aaerrors.KindNeedsWalletSetup:
		return http.StatusConflict
	case aaerrors.KindInsufficientAllowance, aaerrors.KindInsufficientBalance:
		return http.StatusPaymentRequired
	case aaerrors.KindSponsorshipUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// sendSuccess sends a success response with the given payload.
func sendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}

// sendSuccessMessage sends a plain success message.
func sendSuccessMessage(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, SuccessResponse{Message: message})
}

// walletParam parses the :address path parameter.
func walletParam(c *gin.Context) (common.Address, bool) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		sendError(c, http.StatusBadRequest, "Invalid wallet address", nil)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
