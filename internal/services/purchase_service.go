package services

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lottolink/lottolink-api/internal/aaerrors"
	"github.com/lottolink/lottolink-api/internal/client/bundler"
	"github.com/lottolink/lottolink-api/internal/client/chain"
	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/metrics"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

// SubmitParams describes one submission attempt.
type SubmitParams struct {
	Sender      common.Address
	PaymentType business.PaymentType
	Token       *business.PaymentToken
}

// SubmitResult is the outcome of a successful submission.
type SubmitResult struct {
	UserOpHash   common.Hash          `json:"user_op_hash"`
	TxHash       common.Hash          `json:"tx_hash"`
	PaymentType  business.PaymentType `json:"payment_type"`
	UsedFallback bool                 `json:"used_fallback"`
}

// PurchaseService builds, submits, and tracks lottery user operations. It
// owns the pending selection set per wallet, validates payment inputs before
// touching the network, and retries a failed sponsored submission once with
// an ERC-20 prepay when a fallback token is available.
type PurchaseService struct {
	bundlerClient   BundlerAPI
	paymasterClient PaymasterAPI
	chainClient     ChainAPI
	wallet          *WalletSetupService
	strategy        *StrategyService
	signer          UserOpSigner
	store           OperationStore
	accountSalt     *big.Int
	logger          *zap.Logger

	mu      sync.Mutex
	pending map[common.Address][]business.PurchaseSelection
}

// NewPurchaseService wires the submitter. store may be nil (history disabled).
func NewPurchaseService(
	bundlerClient BundlerAPI,
	paymasterClient PaymasterAPI,
	chainClient ChainAPI,
	wallet *WalletSetupService,
	strategy *StrategyService,
	signer UserOpSigner,
	store OperationStore,
	accountSalt *big.Int,
) *PurchaseService {
	return &PurchaseService{
		bundlerClient:   bundlerClient,
		paymasterClient: paymasterClient,
		chainClient:     chainClient,
		wallet:          wallet,
		strategy:        strategy,
		signer:          signer,
		store:           store,
		accountSalt:     accountSalt,
		logger:          logger.Log,
		pending:         make(map[common.Address][]business.PurchaseSelection),
	}
}

// AddSelections appends ticket selections to the wallet's pending set.
func (s *PurchaseService) AddSelections(sender common.Address, selections []business.PurchaseSelection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[sender] = append(s.pending[sender], selections...)
}

// PendingSelections returns a copy of the wallet's pending set.
func (s *PurchaseService) PendingSelections(sender common.Address) []business.PurchaseSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]business.PurchaseSelection, len(s.pending[sender]))
	copy(out, s.pending[sender])
	return out
}

// ClearSelections drops the wallet's pending set.
func (s *PurchaseService) ClearSelections(sender common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, sender)
}

// SubmitBatch submits every pending selection as one atomic executeBatch
// operation. Validation failures return before any network call.
func (s *PurchaseService) SubmitBatch(ctx context.Context, params SubmitParams) (*SubmitResult, error) {
	if err := s.validate(params); err != nil {
		return nil, err
	}

	selections := s.PendingSelections(params.Sender)
	if len(selections) == 0 {
		return nil, aaerrors.New(aaerrors.KindNoSelections, "no ticket selections to submit")
	}
	if err := s.requireToken(params); err != nil {
		return nil, err
	}

	dests := make([]common.Address, 0, len(selections))
	calls := make([][]byte, 0, len(selections))
	for _, sel := range selections {
		data, err := chain.PackPurchase(sel.RoundID, sel.Numbers)
		if err != nil {
			return nil, err
		}
		dests = append(dests, s.chainClient.Lottery())
		calls = append(calls, data)
	}

	result, err := s.submitWithFallback(ctx, params, dests, calls, business.OperationKindPurchase)
	if err != nil {
		return nil, err
	}

	s.ClearSelections(params.Sender)
	return result, nil
}

// SubmitClaim submits a prize claim for a round.
func (s *PurchaseService) SubmitClaim(ctx context.Context, params SubmitParams, roundID uint64) (*SubmitResult, error) {
	if err := s.validate(params); err != nil {
		return nil, err
	}
	if err := s.requireToken(params); err != nil {
		return nil, err
	}

	data, err := chain.PackClaim(roundID)
	if err != nil {
		return nil, err
	}
	return s.submitWithFallback(ctx, params, []common.Address{s.chainClient.Lottery()}, [][]byte{data}, business.OperationKindClaim)
}

// SubmitCheckIn submits the daily check-in.
func (s *PurchaseService) SubmitCheckIn(ctx context.Context, params SubmitParams) (*SubmitResult, error) {
	if err := s.validate(params); err != nil {
		return nil, err
	}
	if err := s.requireToken(params); err != nil {
		return nil, err
	}

	data, err := chain.PackCheckIn()
	if err != nil {
		return nil, err
	}
	return s.submitWithFallback(ctx, params, []common.Address{s.chainClient.Lottery()}, [][]byte{data}, business.OperationKindCheckIn)
}

// validate runs every check that must fail fast, before any network call.
func (s *PurchaseService) validate(params SubmitParams) error {
	if s.signer == nil || params.Sender == (common.Address{}) {
		return aaerrors.New(aaerrors.KindWalletNotConnected, "no wallet connected")
	}
	if !params.PaymentType.Valid() {
		return aaerrors.New(aaerrors.KindUnknown, "unsupported payment type")
	}
	return nil
}

func (s *PurchaseService) requireToken(params SubmitParams) error {
	if params.PaymentType.RequiresToken() && params.Token == nil {
		return aaerrors.New(aaerrors.KindMissingPaymentToken, "payment type requires a token but none is selected")
	}
	return nil
}

// submitWithFallback runs the readiness gate, submits once, and on a
// sponsorship-unavailable failure retries exactly once as PrepayERC20 with
// the available fallback token. A second failure is surfaced as-is.
func (s *PurchaseService) submitWithFallback(ctx context.Context, params SubmitParams, dests []common.Address, calls [][]byte, kind string) (*SubmitResult, error) {
	// Non-sponsored operations need a live, funded wallet before the
	// bundler will accept them.
	if params.PaymentType != business.PaymentTypeSponsored {
		readiness, err := s.wallet.CheckReadiness(ctx, params.Sender)
		if err != nil {
			return nil, aaerrors.Classify(err)
		}
		if !readiness.Ready() {
			return nil, aaerrors.New(aaerrors.KindNeedsWalletSetup, "smart wallet needs deployment or prefunding")
		}
	}

	callData, err := chain.PackExecuteBatch(dests, calls)
	if err != nil {
		return nil, err
	}

	result, err := s.submitOp(ctx, params, callData, kind)
	if err == nil {
		return result, nil
	}

	classified := aaerrors.Classify(err)
	if classified.Kind != aaerrors.KindSponsorshipUnavailable || params.PaymentType != business.PaymentTypeSponsored {
		return nil, classified
	}

	fallbackToken := params.Token
	if fallbackToken == nil {
		fallbackToken, _ = s.strategy.Selection(params.Sender)
	}
	if fallbackToken == nil {
		return nil, classified
	}

	s.logger.Warn("Sponsorship unavailable, retrying with ERC-20 prepay",
		zap.String("sender", params.Sender.Hex()),
		zap.String("fallback_token", fallbackToken.Symbol),
	)
	metrics.FallbackRetriesTotal.Inc()

	retryParams := SubmitParams{
		Sender:      params.Sender,
		PaymentType: business.PaymentTypePrepayERC20,
		Token:       fallbackToken,
	}
	result, err = s.submitOp(ctx, retryParams, callData, kind)
	if err != nil {
		// One fallback only; surface the retry failure untouched.
		return nil, aaerrors.Classify(err)
	}
	result.UsedFallback = true
	return result, nil
}

// submitOp builds, sponsors, signs, submits, and awaits one user operation.
func (s *PurchaseService) submitOp(ctx context.Context, params SubmitParams, callData []byte, kind string) (*SubmitResult, error) {
	started := time.Now()

	nonce, err := s.chainClient.Nonce(ctx, params.Sender)
	if err != nil {
		return nil, err
	}

	deployed, err := s.chainClient.IsDeployed(ctx, params.Sender)
	if err != nil {
		return nil, err
	}

	var initCode []byte
	if !deployed {
		initCode, err = s.chainClient.InitCode(s.signer.Address(), s.accountSalt)
		if err != nil {
			return nil, err
		}
	}

	op := bundler.NewUserOperation(params.Sender, nonce, initCode, callData)

	maxFee, tip, err := s.chainClient.SuggestGasFees(ctx)
	if err != nil {
		return nil, err
	}
	op.MaxFeePerGas = (*hexutil.Big)(maxFee)
	op.MaxPriorityFeePerGas = (*hexutil.Big)(tip)

	estimates, err := s.bundlerClient.EstimateUserOperationGas(ctx, op)
	if err != nil {
		return nil, err
	}
	op.ApplyGasEstimates(estimates)

	var tokenAddr *common.Address
	if params.Token != nil {
		addr := params.Token.Address
		tokenAddr = &addr
	}
	pmData, err := s.paymasterClient.PaymasterData(ctx, op, params.PaymentType, tokenAddr)
	if err != nil {
		return nil, err
	}
	op.PaymasterAndData = pmData

	sig, err := s.signer.SignUserOp(op, s.chainClient.EntryPoint(), s.chainClient.ChainID())
	if err != nil {
		return nil, err
	}
	op.Signature = sig

	userOpHash, err := s.bundlerClient.SendUserOperation(ctx, op)
	if err != nil {
		s.countSubmission(params.PaymentType, "rejected", err)
		return nil, err
	}

	recordID := s.recordPending(ctx, params, userOpHash, kind)

	receipt, err := s.bundlerClient.WaitForReceipt(ctx, userOpHash)
	if err != nil {
		s.finishRecord(ctx, recordID, business.OperationStatusFailed, common.Hash{}, err)
		s.countSubmission(params.PaymentType, "error", err)
		return nil, err
	}
	if !receipt.Success {
		revertErr := aaerrors.Classify(errorFromReason(receipt.Reason))
		s.finishRecord(ctx, recordID, business.OperationStatusFailed, txHashOf(receipt), revertErr)
		s.countSubmission(params.PaymentType, "reverted", revertErr)
		return nil, revertErr
	}

	txHash := txHashOf(receipt)
	s.finishRecord(ctx, recordID, business.OperationStatusIncluded, txHash, nil)
	s.countSubmission(params.PaymentType, "included", nil)
	metrics.SubmissionDuration.Observe(time.Since(started).Seconds())

	s.logger.Info("User operation included",
		zap.String("sender", params.Sender.Hex()),
		zap.String("user_op_hash", userOpHash.Hex()),
		zap.String("tx_hash", txHash.Hex()),
		zap.String("payment_type", params.PaymentType.String()),
		zap.String("kind", kind),
	)

	return &SubmitResult{
		UserOpHash:  userOpHash,
		TxHash:      txHash,
		PaymentType: params.PaymentType,
	}, nil
}

func (s *PurchaseService) recordPending(ctx context.Context, params SubmitParams, userOpHash common.Hash, kind string) uuid.UUID {
	if s.store == nil {
		return uuid.Nil
	}

	rec := &business.OperationRecord{
		ID:          uuid.New(),
		Sender:      params.Sender,
		UserOpHash:  userOpHash,
		Kind:        kind,
		PaymentType: params.PaymentType,
		Status:      business.OperationStatusPending,
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	if params.Token != nil {
		addr := params.Token.Address
		rec.TokenAddress = &addr
	}

	if err := s.store.InsertOperation(ctx, rec); err != nil {
		s.logger.Error("Failed to record operation", zap.Error(err))
		return uuid.Nil
	}
	return rec.ID
}

func (s *PurchaseService) finishRecord(ctx context.Context, id uuid.UUID, status string, txHash common.Hash, cause error) {
	if s.store == nil || id == uuid.Nil {
		return
	}

	errorKind := ""
	if cause != nil {
		errorKind = aaerrors.KindOf(cause).String()
	}
	if err := s.store.UpdateOperationStatus(ctx, id, status, txHash, errorKind); err != nil {
		s.logger.Error("Failed to update operation record", zap.Error(err))
	}
}

func (s *PurchaseService) countSubmission(paymentType business.PaymentType, outcome string, cause error) {
	metrics.SubmissionsTotal.WithLabelValues(paymentType.String(), outcome).Inc()
	if cause != nil {
		metrics.SubmissionErrorsTotal.WithLabelValues(aaerrors.KindOf(aaerrors.Classify(cause)).String()).Inc()
	}
}

func txHashOf(receipt *bundler.UserOpReceipt) common.Hash {
	if receipt == nil || receipt.Receipt == nil {
		return common.Hash{}
	}
	return receipt.Receipt.TransactionHash
}

func errorFromReason(reason string) error {
	if reason == "" {
		reason = "user operation reverted"
	}
	return &revertError{reason: reason}
}

type revertError struct {
	reason string
}

func (e *revertError) Error() string {
	return e.reason
}
