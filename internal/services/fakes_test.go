package services

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"

	"github.com/lottolink/lottolink-api/internal/client/bundler"
	"github.com/lottolink/lottolink-api/internal/client/paymaster"
	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

func init() {
	logger.InitLogger("test")
}

// fakeBundler implements BundlerAPI with overridable behavior and call counts.
type fakeBundler struct {
	mu    sync.Mutex
	calls int

	estimateFn func(op *bundler.UserOperation) (*bundler.GasEstimates, error)
	sendFn     func(op *bundler.UserOperation) (common.Hash, error)
	receiptFn  func(userOpHash common.Hash) (*bundler.UserOpReceipt, error)

	sentOps []*bundler.UserOperation
}

func (f *fakeBundler) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeBundler) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeBundler) EstimateUserOperationGas(_ context.Context, op *bundler.UserOperation) (*bundler.GasEstimates, error) {
	f.count()
	if f.estimateFn != nil {
		return f.estimateFn(op)
	}
	return &bundler.GasEstimates{
		PreVerificationGas:   (*hexutil.Big)(big.NewInt(50000)),
		VerificationGasLimit: (*hexutil.Big)(big.NewInt(100000)),
		CallGasLimit:         (*hexutil.Big)(big.NewInt(200000)),
	}, nil
}

func (f *fakeBundler) SendUserOperation(_ context.Context, op *bundler.UserOperation) (common.Hash, error) {
	f.count()
	f.mu.Lock()
	f.sentOps = append(f.sentOps, op)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(op)
	}
	return common.HexToHash("0x01"), nil
}

func (f *fakeBundler) GetUserOperationReceipt(_ context.Context, userOpHash common.Hash) (*bundler.UserOpReceipt, error) {
	f.count()
	if f.receiptFn != nil {
		return f.receiptFn(userOpHash)
	}
	return successReceipt(), nil
}

func (f *fakeBundler) WaitForReceipt(_ context.Context, userOpHash common.Hash) (*bundler.UserOpReceipt, error) {
	f.count()
	if f.receiptFn != nil {
		return f.receiptFn(userOpHash)
	}
	return successReceipt(), nil
}

func successReceipt() *bundler.UserOpReceipt {
	return &bundler.UserOpReceipt{
		Success: true,
		Receipt: &bundler.TxReceipt{
			TransactionHash: common.HexToHash("0xbeef"),
		},
	}
}

// fakePaymaster implements PaymasterAPI.
type fakePaymaster struct {
	mu    sync.Mutex
	calls int

	supportedFn func(op *bundler.UserOperation) (*paymaster.SupportedTokensResult, error)
	costFn      func(token common.Address) (*big.Int, error)
	dataFn      func(paymentType business.PaymentType, token *common.Address) (hexutil.Bytes, error)
}

func (f *fakePaymaster) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakePaymaster) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakePaymaster) SupportedTokens(_ context.Context, op *bundler.UserOperation) (*paymaster.SupportedTokensResult, error) {
	f.count()
	if f.supportedFn != nil {
		return f.supportedFn(op)
	}
	return &paymaster.SupportedTokensResult{}, nil
}

func (f *fakePaymaster) EstimateTokenCost(_ context.Context, _ *bundler.UserOperation, token common.Address) (*big.Int, error) {
	f.count()
	if f.costFn != nil {
		return f.costFn(token)
	}
	return big.NewInt(0), nil
}

func (f *fakePaymaster) PaymasterData(_ context.Context, _ *bundler.UserOperation, paymentType business.PaymentType, token *common.Address) (hexutil.Bytes, error) {
	f.count()
	if f.dataFn != nil {
		return f.dataFn(paymentType, token)
	}
	return hexutil.Bytes{0x01}, nil
}

// fakeChain implements ChainAPI against in-memory state.
type fakeChain struct {
	mu    sync.Mutex
	calls int

	chainID    *big.Int
	entryPoint common.Address
	lottery    common.Address

	deployed map[common.Address]bool
	deposits map[common.Address]*big.Int
	balances map[common.Address]*big.Int

	prefundErr error
	deployErr  error

	prefunds int
	deploys  int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		chainID:    big.NewInt(84532),
		entryPoint: common.HexToAddress("0x5FF137D4b0FDCD49DcA30c7CF57E578a026d2789"),
		lottery:    common.HexToAddress("0x00000000000000000000000000000000000a0a0a"),
		deployed:   make(map[common.Address]bool),
		deposits:   make(map[common.Address]*big.Int),
		balances:   make(map[common.Address]*big.Int),
	}
}

func (f *fakeChain) count() {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
}

func (f *fakeChain) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeChain) ChainID() *big.Int          { return new(big.Int).Set(f.chainID) }
func (f *fakeChain) EntryPoint() common.Address { return f.entryPoint }
func (f *fakeChain) Lottery() common.Address    { return f.lottery }

func (f *fakeChain) Nonce(_ context.Context, _ common.Address) (*big.Int, error) {
	f.count()
	return big.NewInt(0), nil
}

func (f *fakeChain) IsDeployed(_ context.Context, addr common.Address) (bool, error) {
	f.count()
	return f.deployed[addr], nil
}

func (f *fakeChain) DepositBalance(_ context.Context, addr common.Address) (*big.Int, error) {
	f.count()
	if d, ok := f.deposits[addr]; ok {
		return new(big.Int).Set(d), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) CounterfactualAddress(_ context.Context, owner common.Address, _ *big.Int) (common.Address, error) {
	f.count()
	return owner, nil
}

func (f *fakeChain) InitCode(_ common.Address, _ *big.Int) ([]byte, error) {
	return []byte{0xaa}, nil
}

func (f *fakeChain) TokenBalance(_ context.Context, token, _ common.Address) (*big.Int, error) {
	f.count()
	if b, ok := f.balances[token]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) TokenAllowance(_ context.Context, _, _, _ common.Address) (*big.Int, error) {
	f.count()
	return big.NewInt(0), nil
}

func (f *fakeChain) SuggestGasFees(_ context.Context) (*big.Int, *big.Int, error) {
	f.count()
	return big.NewInt(2_000_000_000), big.NewInt(1_000_000_000), nil
}

func (f *fakeChain) SendPrefund(_ context.Context, sender common.Address, amount *big.Int) (common.Hash, error) {
	f.count()
	if f.prefundErr != nil {
		return common.Hash{}, f.prefundErr
	}
	f.mu.Lock()
	f.prefunds++
	f.mu.Unlock()
	f.deposits[sender] = new(big.Int).Set(amount)
	return common.HexToHash("0x02"), nil
}

func (f *fakeChain) SendDeploy(_ context.Context, owner common.Address, _ *big.Int) (common.Hash, error) {
	f.count()
	if f.deployErr != nil {
		return common.Hash{}, f.deployErr
	}
	f.mu.Lock()
	f.deploys++
	f.mu.Unlock()
	f.deployed[owner] = true
	return common.HexToHash("0x03"), nil
}

// fakeSigner implements UserOpSigner.
type fakeSigner struct {
	addr common.Address
}

func (f *fakeSigner) Address() common.Address {
	return f.addr
}

func (f *fakeSigner) SignUserOp(_ *bundler.UserOperation, _ common.Address, _ *big.Int) ([]byte, error) {
	return make([]byte, 65), nil
}

// fakeStore implements OperationStore in memory.
type fakeStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]*business.OperationRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[uuid.UUID]*business.OperationRecord)}
}

func (f *fakeStore) InsertOperation(_ context.Context, rec *business.OperationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateOperationStatus(_ context.Context, id uuid.UUID, status string, txHash common.Hash, errorKind string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[id]; ok {
		rec.Status = status
		rec.TxHash = txHash
		rec.ErrorKind = errorKind
	}
	return nil
}

func (f *fakeStore) ListOperationsBySender(_ context.Context, sender common.Address, _ int32) ([]business.OperationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []business.OperationRecord
	for _, rec := range f.records {
		if rec.Sender == sender {
			out = append(out, *rec)
		}
	}
	return out, nil
}
