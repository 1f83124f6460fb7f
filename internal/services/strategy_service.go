package services

import (
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

// VolatilityPolicy supplies the volatility heuristic used for scoring. The
// default is a fixed table, not an oracle; swap the policy to change that.
type VolatilityPolicy interface {
	Volatility(symbol string) float64
}

// StaticVolatilityPolicy maps symbols to volatility constants with a default
// for anything unlisted.
type StaticVolatilityPolicy struct {
	table   map[string]float64
	unknown float64
}

// DefaultVolatilityPolicy returns the built-in table: stablecoins 0, wrapped
// ether 0.05, wrapped bitcoin 0.08, everything else 0.15.
func DefaultVolatilityPolicy() *StaticVolatilityPolicy {
	return &StaticVolatilityPolicy{
		table: map[string]float64{
			"USDC": 0,
			"USDT": 0,
			"DAI":  0,
			"BUSD": 0,
			"ETH":  0.05,
			"WETH": 0.05,
			"BTC":  0.08,
			"WBTC": 0.08,
		},
		unknown: 0.15,
	}
}

// Volatility returns the configured constant for the symbol.
func (p *StaticVolatilityPolicy) Volatility(symbol string) float64 {
	if v, ok := p.table[strings.ToUpper(symbol)]; ok {
		return v
	}
	return p.unknown
}

// strategySession holds per-wallet scoring state: the adjustable weights and
// the token selection with its provenance. The selection resets whenever the
// token set changes.
type strategySession struct {
	factors        business.OptimizationFactors
	selectionState business.SelectionState
	selected       *business.PaymentToken
	fingerprint    string
}

// StrategyService ranks payment tokens and tracks the per-wallet selection.
type StrategyService struct {
	policy VolatilityPolicy
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[common.Address]*strategySession
}

// NewStrategyService creates a strategy service. A nil policy falls back to
// the default volatility table.
func NewStrategyService(policy VolatilityPolicy) *StrategyService {
	if policy == nil {
		policy = DefaultVolatilityPolicy()
	}
	return &StrategyService{
		policy:   policy,
		logger:   logger.Log,
		sessions: make(map[common.Address]*strategySession),
	}
}

// RankTokens scores every token and returns them sorted by descending total
// score. gasCosts maps token address to the operation's gas cost in that
// token; missing or all-zero entries score 0 on the gas term.
func (s *StrategyService) RankTokens(tokens []business.PaymentToken, gasCosts map[common.Address]*big.Int, factors business.OptimizationFactors) []business.ScoredToken {
	if len(tokens) == 0 {
		return nil
	}

	maxBalance := 0.0
	maxGas := 0.0
	for _, t := range tokens {
		if b := displayBalance(t); b > maxBalance {
			maxBalance = b
		}
		if g := gasCostFloat(gasCosts, t.Address); g > maxGas {
			maxGas = g
		}
	}

	scored := make([]business.ScoredToken, 0, len(tokens))
	for _, t := range tokens {
		st := business.ScoredToken{PaymentToken: t}

		if maxBalance > 0 {
			st.BalanceScore = displayBalance(t) / maxBalance
		}
		st.VolatilityScore = 1 - s.policy.Volatility(t.Symbol)
		if maxGas > 0 {
			st.SlippageScore = 1 - gasCostFloat(gasCosts, t.Address)/maxGas
		}

		st.TotalScore = (float64(factors.BalanceWeight)*st.BalanceScore +
			float64(factors.VolatilityWeight)*st.VolatilityScore +
			float64(factors.GasCostWeight)*st.SlippageScore) / 100

		scored = append(scored, st)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].TotalScore > scored[j].TotalScore
	})
	return scored
}

// Evaluate ranks the tokens for a wallet and reconciles the session's
// selection: a changed token set resets it, and an unset selection is
// auto-filled with the top-ranked token exactly once. A user selection is
// never overridden.
func (s *StrategyService) Evaluate(sender common.Address, tokens []business.PaymentToken, gasCosts map[common.Address]*big.Int) ([]business.ScoredToken, *business.PaymentToken, business.SelectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session(sender)
	if fp := tokenFingerprint(tokens); fp != session.fingerprint {
		session.fingerprint = fp
		session.selectionState = business.SelectionUnset
		session.selected = nil
	}

	ranked := s.RankTokens(tokens, gasCosts, session.factors)
	if len(ranked) == 0 {
		return nil, nil, session.selectionState
	}

	if session.selectionState == business.SelectionUnset {
		top := ranked[0].PaymentToken
		session.selected = &top
		session.selectionState = business.SelectionAuto
		s.logger.Info("Auto-selected payment token",
			zap.String("sender", sender.Hex()),
			zap.String("token", top.Symbol),
		)
	}
	return ranked, session.selected, session.selectionState
}

// SelectToken records an explicit user choice for the wallet.
func (s *StrategyService) SelectToken(sender common.Address, token business.PaymentToken) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session(sender)
	session.selected = &token
	session.selectionState = business.SelectionUser
}

// Selection returns the wallet's current token selection and its provenance.
func (s *StrategyService) Selection(sender common.Address) (*business.PaymentToken, business.SelectionState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session(sender)
	return session.selected, session.selectionState
}

// Factors returns the wallet's current optimization weights.
func (s *StrategyService) Factors(sender common.Address) business.OptimizationFactors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session(sender).factors
}

// SetFactor adjusts one weight and rebalances the others so they sum to 100.
func (s *StrategyService) SetFactor(sender common.Address, factor business.Factor, value int) business.OptimizationFactors {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := s.session(sender)
	session.factors = session.factors.SetWeight(factor, value)
	return session.factors
}

func (s *StrategyService) session(sender common.Address) *strategySession {
	session, ok := s.sessions[sender]
	if !ok {
		session = &strategySession{factors: business.DefaultOptimizationFactors()}
		s.sessions[sender] = session
	}
	return session
}

// displayBalance converts a raw balance to display units so tokens with
// different decimals compare fairly.
func displayBalance(t business.PaymentToken) float64 {
	if t.Balance == nil || t.Balance.Sign() <= 0 {
		return 0
	}
	bal := new(big.Float).SetInt(t.Balance)
	div := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(t.Decimals)), nil))
	out, _ := new(big.Float).Quo(bal, div).Float64()
	return out
}

func gasCostFloat(gasCosts map[common.Address]*big.Int, token common.Address) float64 {
	cost, ok := gasCosts[token]
	if !ok || cost == nil || cost.Sign() <= 0 {
		return 0
	}
	out, _ := new(big.Float).SetInt(cost).Float64()
	return out
}

func tokenFingerprint(tokens []business.PaymentToken) string {
	addrs := make([]string, 0, len(tokens))
	for _, t := range tokens {
		addrs = append(addrs, strings.ToLower(t.Address.Hex()))
	}
	sort.Strings(addrs)
	return strings.Join(addrs, ",")
}
