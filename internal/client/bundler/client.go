package bundler

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/lottolink/lottolink-api/internal/logger"
)

const (
	methodSendUserOperation        = "eth_sendUserOperation"
	methodEstimateUserOperationGas = "eth_estimateUserOperationGas"
	methodGetUserOperationReceipt  = "eth_getUserOperationReceipt"
	methodSupportedEntryPoints     = "eth_supportedEntryPoints"

	defaultPollInterval = 2 * time.Second
	defaultWaitTimeout  = 2 * time.Minute

	// Bundler endpoints are rate limited per API key; keep a local budget so
	// polling cannot starve submissions.
	requestsPerSecond = 20
)

// Client talks JSON-RPC to an ERC-4337 bundler.
type Client struct {
	rpc        *rpc.Client
	entryPoint common.Address
	limiter    *rate.Limiter
	logger     *zap.Logger

	// PollInterval and WaitTimeout control receipt polling.
	PollInterval time.Duration
	WaitTimeout  time.Duration
}

// New dials the bundler endpoint.
func New(ctx context.Context, endpoint string, entryPoint common.Address) (*Client, error) {
	rpcClient, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to bundler")
	}

	return &Client{
		rpc:          rpcClient,
		entryPoint:   entryPoint,
		limiter:      rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
		logger:       logger.Log,
		PollInterval: defaultPollInterval,
		WaitTimeout:  defaultWaitTimeout,
	}, nil
}

// Close closes the underlying RPC connection.
func (c *Client) Close() {
	c.rpc.Close()
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	return c.rpc.CallContext(ctx, result, method, args...)
}

// SendUserOperation submits the operation and returns its userOpHash.
func (c *Client) SendUserOperation(ctx context.Context, op *UserOperation) (common.Hash, error) {
	var hash common.Hash
	if err := c.call(ctx, &hash, methodSendUserOperation, op, c.entryPoint); err != nil {
		return common.Hash{}, errors.Wrap(err, "bundler rejected user operation")
	}

	c.logger.Info("Submitted user operation",
		zap.String("sender", op.Sender.Hex()),
		zap.String("user_op_hash", hash.Hex()),
	)
	return hash, nil
}

// EstimateUserOperationGas asks the bundler for gas limits for the operation.
func (c *Client) EstimateUserOperationGas(ctx context.Context, op *UserOperation) (*GasEstimates, error) {
	var est GasEstimates
	if err := c.call(ctx, &est, methodEstimateUserOperationGas, op, c.entryPoint); err != nil {
		return nil, errors.Wrap(err, "failed to estimate user operation gas")
	}
	return &est, nil
}

// GetUserOperationReceipt returns the receipt, or nil while the operation is
// still pending.
func (c *Client) GetUserOperationReceipt(ctx context.Context, userOpHash common.Hash) (*UserOpReceipt, error) {
	var receipt *UserOpReceipt
	if err := c.call(ctx, &receipt, methodGetUserOperationReceipt, userOpHash); err != nil {
		return nil, errors.Wrap(err, "failed to get user operation receipt")
	}
	return receipt, nil
}

// SupportedEntryPoints lists the EntryPoint contracts the bundler serves.
func (c *Client) SupportedEntryPoints(ctx context.Context) ([]common.Address, error) {
	var entryPoints []common.Address
	if err := c.call(ctx, &entryPoints, methodSupportedEntryPoints); err != nil {
		return nil, errors.Wrap(err, "failed to get supported entry points")
	}
	return entryPoints, nil
}

// WaitForReceipt polls until the operation is included or the wait times out.
func (c *Client) WaitForReceipt(ctx context.Context, userOpHash common.Hash) (*UserOpReceipt, error) {
	ctx, cancel := context.WithTimeout(ctx, c.WaitTimeout)
	defer cancel()

	ticker := time.NewTicker(c.PollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.GetUserOperationReceipt(ctx, userOpHash)
		if err != nil {
			return nil, err
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "timed out waiting for user operation %s", userOpHash.Hex())
		case <-ticker.C:
		}
	}
}
