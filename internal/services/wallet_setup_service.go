package services

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/metrics"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

// WalletSetupService gates submissions on wallet readiness and drives the
// one-time prefund + deploy flow. Setup state only moves forward; a failed
// step reports the error and leaves the state where it was.
type WalletSetupService struct {
	chain         ChainAPI
	prefundAmount *big.Int
	accountSalt   *big.Int
	logger        *zap.Logger

	mu      sync.Mutex
	states  map[common.Address]business.SetupState
	skipped map[common.Address]bool
}

// NewWalletSetupService creates the readiness gate. prefundAmount is the
// native deposit (in wei) a wallet needs at the EntryPoint before it can pay
// for its own deployment.
func NewWalletSetupService(chain ChainAPI, prefundAmount, accountSalt *big.Int) *WalletSetupService {
	return &WalletSetupService{
		chain:         chain,
		prefundAmount: prefundAmount,
		accountSalt:   accountSalt,
		logger:        logger.Log,
		states:        make(map[common.Address]business.SetupState),
		skipped:       make(map[common.Address]bool),
	}
}

// AccountAddress returns the counterfactual smart wallet address for an owner
// key, valid before and after deployment.
func (s *WalletSetupService) AccountAddress(ctx context.Context, owner common.Address) (common.Address, error) {
	return s.chain.CounterfactualAddress(ctx, owner, s.accountSalt)
}

// CheckReadiness refreshes readiness from chain state. It never caches the
// answer: readiness is derived truth, owned by nobody.
func (s *WalletSetupService) CheckReadiness(ctx context.Context, sender common.Address) (business.WalletReadiness, error) {
	deployed, err := s.chain.IsDeployed(ctx, sender)
	if err != nil {
		return business.WalletReadiness{}, err
	}

	readiness := business.WalletReadiness{IsDeployed: deployed}
	if !deployed {
		deposit, err := s.chain.DepositBalance(ctx, sender)
		if err != nil {
			return business.WalletReadiness{}, err
		}
		readiness.NeedsPrefunding = deposit.Cmp(s.prefundAmount) < 0
	}

	s.syncState(sender, readiness)
	return readiness, nil
}

// EnsureReady walks the wallet forward through prefund and deploy until it is
// Deployed, returning the state reached. Already-deployed wallets are a no-op.
func (s *WalletSetupService) EnsureReady(ctx context.Context, owner, sender common.Address) (business.SetupState, error) {
	readiness, err := s.CheckReadiness(ctx, sender)
	if err != nil {
		return s.State(sender), err
	}
	if readiness.IsDeployed {
		return business.SetupDeployed, nil
	}

	state := s.State(sender)

	if state == business.SetupNotDeployed {
		if readiness.NeedsPrefunding {
			if _, err := s.chain.SendPrefund(ctx, sender, s.prefundAmount); err != nil {
				metrics.WalletSetupsTotal.WithLabelValues("prefund", "error").Inc()
				s.logger.Error("Prefund failed",
					zap.String("sender", sender.Hex()),
					zap.Error(err),
				)
				return state, err
			}
			metrics.WalletSetupsTotal.WithLabelValues("prefund", "ok").Inc()
		}
		state = s.advance(sender, business.SetupPrefunded)
	}

	if state == business.SetupPrefunded {
		if _, err := s.chain.SendDeploy(ctx, owner, s.accountSalt); err != nil {
			metrics.WalletSetupsTotal.WithLabelValues("deploy", "error").Inc()
			s.logger.Error("Deploy failed",
				zap.String("sender", sender.Hex()),
				zap.Error(err),
			)
			return state, err
		}
		metrics.WalletSetupsTotal.WithLabelValues("deploy", "ok").Inc()
		state = s.advance(sender, business.SetupDeployed)
	}

	s.logger.Info("Wallet setup complete",
		zap.String("sender", sender.Hex()),
		zap.String("state", state.String()),
	)
	return state, nil
}

// State returns the recorded setup state for the wallet.
func (s *WalletSetupService) State(sender common.Address) business.SetupState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[sender]
}

// SkipSetup records the user's choice to stop being prompted this session.
// It does not change readiness truth.
func (s *WalletSetupService) SkipSetup(sender common.Address) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped[sender] = true
}

// Skipped reports whether setup prompts are suppressed for the wallet.
func (s *WalletSetupService) Skipped(sender common.Address) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped[sender]
}

// advance moves the state forward, never backward.
func (s *WalletSetupService) advance(sender common.Address, next business.SetupState) business.SetupState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next > s.states[sender] {
		s.states[sender] = next
	}
	return s.states[sender]
}

func (s *WalletSetupService) syncState(sender common.Address, readiness business.WalletReadiness) {
	if readiness.IsDeployed {
		s.advance(sender, business.SetupDeployed)
	} else if !readiness.NeedsPrefunding {
		s.advance(sender, business.SetupPrefunded)
	}
}
