package paymaster

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	gocache "github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lottolink/lottolink-api/internal/client/bundler"
	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

const (
	methodSupportedTokens   = "pm_supported_tokens"
	methodEstimateTokenCost = "pm_estimate_erc20_token_cost"
	methodSponsorOperation  = "pm_sponsor_user_operation"

	// The supported-token set changes rarely; cache it briefly so ranking
	// refreshes don't hammer the service.
	tokenCacheTTL = time.Minute
)

// Client talks JSON-RPC to the paymaster service.
type Client struct {
	rpc        *rpc.Client
	apiKey     string
	entryPoint common.Address
	cache      *gocache.Cache
	logger     *zap.Logger
}

// New dials the paymaster endpoint.
func New(ctx context.Context, endpoint, apiKey string, entryPoint common.Address) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to paymaster")
	}

	return &Client{
		rpc:        rpcClient,
		apiKey:     apiKey,
		entryPoint: entryPoint,
		cache:      gocache.New(tokenCacheTTL, 2*tokenCacheTTL),
		logger:     logger.Log,
	}, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

// SupportedTokens returns the tokens the paymaster accepts for the given
// operation, cached per sender for a minute.
func (c *Client) SupportedTokens(ctx context.Context, op *bundler.UserOperation) (*SupportedTokensResult, error) {
	cacheKey := op.Sender.Hex()
	if cached, found := c.cache.Get(cacheKey); found {
		return cached.(*SupportedTokensResult), nil
	}

	var result SupportedTokensResult
	if err := c.rpc.CallContext(ctx, &result, methodSupportedTokens, op, c.apiKey, c.entryPoint); err != nil {
		return nil, errors.Wrap(err, "failed to fetch supported payment tokens")
	}

	c.cache.Set(cacheKey, &result, gocache.DefaultExpiration)
	c.logger.Debug("Fetched supported payment tokens",
		zap.String("sender", op.Sender.Hex()),
		zap.Int("token_count", len(result.Tokens)),
		zap.Bool("free_gas", result.FreeGas),
	)
	return &result, nil
}

// EstimateTokenCost returns the gas cost of the operation denominated in the
// given token's smallest unit.
func (c *Client) EstimateTokenCost(ctx context.Context, op *bundler.UserOperation, token common.Address) (*big.Int, error) {
	var result TokenCostResult
	if err := c.rpc.CallContext(ctx, &result, methodEstimateTokenCost, op, token, c.apiKey, c.entryPoint); err != nil {
		return nil, errors.Wrapf(err, "failed to estimate gas cost in token %s", token.Hex())
	}
	if result.Cost == nil {
		return big.NewInt(0), nil
	}
	return (*big.Int)(result.Cost), nil
}

// PaymasterData asks the paymaster to produce paymasterAndData for the
// operation under the given payment type. Token is required for the ERC-20
// modes and ignored for sponsored operations.
func (c *Client) PaymasterData(ctx context.Context, op *bundler.UserOperation, paymentType business.PaymentType, token *common.Address) (hexutil.Bytes, error) {
	params := map[string]interface{}{
		"type": int(paymentType),
	}
	if token != nil {
		params["token"] = token.Hex()
	}

	var result SponsorResult
	if err := c.rpc.CallContext(ctx, &result, methodSponsorOperation, op, params, c.apiKey, c.entryPoint); err != nil {
		return nil, errors.Wrapf(err, "paymaster refused %s payment", paymentType)
	}
	return result.PaymasterAndData, nil
}
