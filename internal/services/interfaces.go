package services

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/lottolink/lottolink-api/internal/client/bundler"
	"github.com/lottolink/lottolink-api/internal/client/paymaster"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

// BundlerAPI is the bundler surface the services depend on.
type BundlerAPI interface {
	EstimateUserOperationGas(ctx context.Context, op *bundler.UserOperation) (*bundler.GasEstimates, error)
	SendUserOperation(ctx context.Context, op *bundler.UserOperation) (common.Hash, error)
	GetUserOperationReceipt(ctx context.Context, userOpHash common.Hash) (*bundler.UserOpReceipt, error)
	WaitForReceipt(ctx context.Context, userOpHash common.Hash) (*bundler.UserOpReceipt, error)
}

// PaymasterAPI is the paymaster surface the services depend on.
type PaymasterAPI interface {
	SupportedTokens(ctx context.Context, op *bundler.UserOperation) (*paymaster.SupportedTokensResult, error)
	EstimateTokenCost(ctx context.Context, op *bundler.UserOperation, token common.Address) (*big.Int, error)
	PaymasterData(ctx context.Context, op *bundler.UserOperation, paymentType business.PaymentType, token *common.Address) (hexutil.Bytes, error)
}

// ChainAPI is the node/contract surface the services depend on.
type ChainAPI interface {
	ChainID() *big.Int
	EntryPoint() common.Address
	Lottery() common.Address
	Nonce(ctx context.Context, sender common.Address) (*big.Int, error)
	IsDeployed(ctx context.Context, addr common.Address) (bool, error)
	DepositBalance(ctx context.Context, addr common.Address) (*big.Int, error)
	CounterfactualAddress(ctx context.Context, owner common.Address, salt *big.Int) (common.Address, error)
	InitCode(owner common.Address, salt *big.Int) ([]byte, error)
	TokenBalance(ctx context.Context, token, owner common.Address) (*big.Int, error)
	TokenAllowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error)
	SuggestGasFees(ctx context.Context) (*big.Int, *big.Int, error)
	SendPrefund(ctx context.Context, sender common.Address, amount *big.Int) (common.Hash, error)
	SendDeploy(ctx context.Context, owner common.Address, salt *big.Int) (common.Hash, error)
}

// UserOpSigner signs user operations on behalf of the account owner.
type UserOpSigner interface {
	Address() common.Address
	SignUserOp(op *bundler.UserOperation, entryPoint common.Address, chainID *big.Int) ([]byte, error)
}

// OperationStore persists operation history. Implementations may be nil-safe
// disabled (history is optional).
type OperationStore interface {
	InsertOperation(ctx context.Context, rec *business.OperationRecord) error
	UpdateOperationStatus(ctx context.Context, id uuid.UUID, status string, txHash common.Hash, errorKind string) error
	ListOperationsBySender(ctx context.Context, sender common.Address, limit int32) ([]business.OperationRecord, error)
}
