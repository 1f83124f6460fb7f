package chain

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/lottolink/lottolink-api/internal/logger"
)

const receiptPollInterval = 2 * time.Second

// Client wraps read-only EntryPoint/factory/token queries and the two setup
// transactions (prefund, deploy) the readiness flow sends from the operator
// account.
type Client struct {
	eth        *ethclient.Client
	chainID    *big.Int
	entryPoint common.Address
	factory    common.Address
	lottery    common.Address

	// operatorKey signs prefund and deploy transactions. Nil disables the
	// setup flow; read-only queries still work.
	operatorKey *ecdsa.PrivateKey

	logger *zap.Logger
}

// New dials the node and resolves the chain ID.
func New(ctx context.Context, rpcURL string, entryPoint, factory, lottery common.Address, operatorKey *ecdsa.PrivateKey) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to node")
	}

	chainID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, errors.Wrap(err, "failed to resolve chain id")
	}

	return &Client{
		eth:         eth,
		chainID:     chainID,
		entryPoint:  entryPoint,
		factory:     factory,
		lottery:     lottery,
		operatorKey: operatorKey,
		logger:      logger.Log,
	}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}

// ChainID returns the connected chain's ID.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// EntryPoint returns the configured EntryPoint address.
func (c *Client) EntryPoint() common.Address {
	return c.entryPoint
}

// Lottery returns the lottery contract address.
func (c *Client) Lottery() common.Address {
	return c.lottery
}

func (c *Client) callContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// Nonce reads the sender's EntryPoint nonce (key 0).
func (c *Client) Nonce(ctx context.Context, sender common.Address) (*big.Int, error) {
	data, err := entryPointABI.Pack("getNonce", sender, big.NewInt(0))
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack getNonce call")
	}

	out, err := c.callContract(ctx, c.entryPoint, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read nonce from entry point")
	}
	return new(big.Int).SetBytes(out), nil
}

// IsDeployed reports whether the address has contract code.
func (c *Client) IsDeployed(ctx context.Context, addr common.Address) (bool, error) {
	code, err := c.eth.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, errors.Wrap(err, "failed to read account code")
	}
	return len(code) > 0, nil
}

// DepositBalance reads the account's native deposit held by the EntryPoint.
func (c *Client) DepositBalance(ctx context.Context, addr common.Address) (*big.Int, error) {
	data, err := entryPointABI.Pack("balanceOf", addr)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf call")
	}

	out, err := c.callContract(ctx, c.entryPoint, data)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read entry point deposit")
	}
	return new(big.Int).SetBytes(out), nil
}

// CounterfactualAddress asks the factory where the owner's account will live.
func (c *Client) CounterfactualAddress(ctx context.Context, owner common.Address, salt *big.Int) (common.Address, error) {
	data, err := accountFactoryABI.Pack("getAddress", owner, salt)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to pack getAddress call")
	}

	out, err := c.callContract(ctx, c.factory, data)
	if err != nil {
		return common.Address{}, errors.Wrap(err, "failed to read counterfactual address")
	}
	return common.BytesToAddress(out), nil
}

// InitCode builds the initCode field for a not-yet-deployed account: the
// factory address followed by the packed createAccount call.
func (c *Client) InitCode(owner common.Address, salt *big.Int) ([]byte, error) {
	call, err := accountFactoryABI.Pack("createAccount", owner, salt)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack createAccount call")
	}
	return append(c.factory.Bytes(), call...), nil
}

// TokenBalance reads an ERC-20 balance.
func (c *Client) TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("balanceOf", owner)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf call")
	}

	out, err := c.callContract(ctx, token, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read balance of token %s", token.Hex())
	}
	return new(big.Int).SetBytes(out), nil
}

// TokenAllowance reads an ERC-20 allowance.
func (c *Client) TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	data, err := erc20ABI.Pack("allowance", owner, spender)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack allowance call")
	}

	out, err := c.callContract(ctx, token, data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read allowance of token %s", token.Hex())
	}
	return new(big.Int).SetBytes(out), nil
}

// SuggestGasFees returns maxFeePerGas and maxPriorityFeePerGas for the next
// operation: tip from the node, max fee at twice the current base fee plus tip.
func (c *Client) SuggestGasFees(ctx context.Context) (*big.Int, *big.Int, error) {
	tip, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to fetch gas tip cap")
	}

	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to fetch chain head")
	}

	maxFee := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		maxFee.Add(maxFee, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}
	return maxFee, tip, nil
}

// SendPrefund deposits native currency into the EntryPoint on behalf of the
// smart wallet and waits for inclusion.
func (c *Client) SendPrefund(ctx context.Context, sender common.Address, amount *big.Int) (common.Hash, error) {
	data, err := entryPointABI.Pack("depositTo", sender)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack depositTo call")
	}
	return c.sendTransaction(ctx, c.entryPoint, amount, data)
}

// SendDeploy calls the factory to deploy the owner's account and waits for
// inclusion.
func (c *Client) SendDeploy(ctx context.Context, owner common.Address, salt *big.Int) (common.Hash, error) {
	data, err := accountFactoryABI.Pack("createAccount", owner, salt)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to pack createAccount call")
	}
	return c.sendTransaction(ctx, c.factory, big.NewInt(0), data)
}

func (c *Client) sendTransaction(ctx context.Context, to common.Address, value *big.Int, data []byte) (common.Hash, error) {
	if c.operatorKey == nil {
		return common.Hash{}, errors.New("no operator key configured")
	}

	from := crypto.PubkeyToAddress(c.operatorKey.PublicKey)
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to fetch operator nonce")
	}

	maxFee, tip, err := c.SuggestGasFees(ctx)
	if err != nil {
		return common.Hash{}, err
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to estimate transaction gas")
	}

	tx := types.NewTx(&types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: maxFee,
		Gas:       gasLimit,
		To:        &to,
		Value:     value,
		Data:      data,
	})

	signedTx, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.operatorKey)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to sign transaction")
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to send transaction")
	}

	c.logger.Info("Sent setup transaction",
		zap.String("tx_hash", signedTx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.String("value", value.String()),
	)

	if err := c.waitMined(ctx, signedTx.Hash()); err != nil {
		return common.Hash{}, err
	}
	return signedTx.Hash(), nil
}

func (c *Client) waitMined(ctx context.Context, txHash common.Hash) error {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return errors.Errorf("transaction %s reverted", txHash.Hex())
			}
			return nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return errors.Wrap(err, "failed to fetch transaction receipt")
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "timed out waiting for transaction %s", txHash.Hex())
		case <-ticker.C:
		}
	}
}
