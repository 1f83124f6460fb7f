package services

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottolink/lottolink-api/internal/types/business"
)

var (
	usdcAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	daiAddr  = common.HexToAddress("0x0000000000000000000000000000000000000002")
	memeAddr = common.HexToAddress("0x0000000000000000000000000000000000000003")

	testSender = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

func usdcToken(displayAmount int64) business.PaymentToken {
	return business.PaymentToken{
		Address:  usdcAddr,
		Symbol:   "USDC",
		Decimals: 6,
		Balance:  new(big.Int).Mul(big.NewInt(displayAmount), big.NewInt(1_000_000)),
	}
}

func daiToken(displayAmount int64) business.PaymentToken {
	return business.PaymentToken{
		Address:  daiAddr,
		Symbol:   "DAI",
		Decimals: 18,
		Balance:  new(big.Int).Mul(big.NewInt(displayAmount), big.NewInt(1_000_000_000_000_000_000)),
	}
}

func TestRankTokensOrdersByWeightedScore(t *testing.T) {
	svc := NewStrategyService(nil)

	// Equal weights on every factor; identical volatility and gas terms, so
	// the larger balance must win.
	tokens := []business.PaymentToken{daiToken(50), usdcToken(100)}
	factors := business.OptimizationFactors{BalanceWeight: 34, VolatilityWeight: 33, GasCostWeight: 33}

	ranked := svc.RankTokens(tokens, nil, factors)
	require.Len(t, ranked, 2)
	assert.Equal(t, "USDC", ranked[0].Symbol)
	assert.Equal(t, "DAI", ranked[1].Symbol)
	assert.Greater(t, ranked[0].TotalScore, ranked[1].TotalScore)

	// Decimals must not leak into the comparison: 100 USDC (6 decimals)
	// scores a full balance term, 50 DAI (18 decimals) scores half.
	assert.InDelta(t, 1.0, ranked[0].BalanceScore, 1e-9)
	assert.InDelta(t, 0.5, ranked[1].BalanceScore, 1e-9)
}

func TestRankTokensVolatilityPreference(t *testing.T) {
	svc := NewStrategyService(nil)

	tokens := []business.PaymentToken{
		{Address: memeAddr, Symbol: "MEME", Decimals: 18, Balance: big.NewInt(1e18)},
		{Address: usdcAddr, Symbol: "USDC", Decimals: 6, Balance: big.NewInt(1_000_000)},
	}
	// All weight on volatility: the stablecoin must rank first.
	factors := business.OptimizationFactors{VolatilityWeight: 100}

	ranked := svc.RankTokens(tokens, nil, factors)
	require.Len(t, ranked, 2)
	assert.Equal(t, "USDC", ranked[0].Symbol)
	assert.InDelta(t, 1.0, ranked[0].VolatilityScore, 1e-9)
	assert.InDelta(t, 0.85, ranked[1].VolatilityScore, 1e-9)
}

func TestRankTokensAllZeroGasCosts(t *testing.T) {
	svc := NewStrategyService(nil)

	tokens := []business.PaymentToken{usdcToken(10), daiToken(10)}
	gasCosts := map[common.Address]*big.Int{
		usdcAddr: big.NewInt(0),
		daiAddr:  big.NewInt(0),
	}

	ranked := svc.RankTokens(tokens, gasCosts, business.DefaultOptimizationFactors())
	require.Len(t, ranked, 2)
	for _, st := range ranked {
		assert.Zero(t, st.SlippageScore)
	}
}

func TestRankTokensEmpty(t *testing.T) {
	svc := NewStrategyService(nil)
	assert.Nil(t, svc.RankTokens(nil, nil, business.DefaultOptimizationFactors()))
}

func TestEvaluateAutoSelectsOnce(t *testing.T) {
	svc := NewStrategyService(nil)
	tokens := []business.PaymentToken{usdcToken(100), daiToken(50)}

	_, selected, state := svc.Evaluate(testSender, tokens, nil)
	require.NotNil(t, selected)
	assert.Equal(t, "USDC", selected.Symbol)
	assert.Equal(t, business.SelectionAuto, state)

	// A later evaluation with the same token set keeps the auto selection
	// even if the ranking flips.
	tokens[1] = daiToken(500)
	_, selected, state = svc.Evaluate(testSender, tokens, nil)
	require.NotNil(t, selected)
	assert.Equal(t, "USDC", selected.Symbol)
	assert.Equal(t, business.SelectionAuto, state)
}

func TestEvaluateDoesNotOverrideUserSelection(t *testing.T) {
	svc := NewStrategyService(nil)
	tokens := []business.PaymentToken{usdcToken(100), daiToken(50)}

	svc.Evaluate(testSender, tokens, nil)
	svc.SelectToken(testSender, tokens[1])

	_, selected, state := svc.Evaluate(testSender, tokens, nil)
	require.NotNil(t, selected)
	assert.Equal(t, "DAI", selected.Symbol)
	assert.Equal(t, business.SelectionUser, state)
}

func TestEvaluateResetsOnTokenSetChange(t *testing.T) {
	svc := NewStrategyService(nil)
	tokens := []business.PaymentToken{usdcToken(100), daiToken(50)}

	svc.Evaluate(testSender, tokens, nil)
	svc.SelectToken(testSender, tokens[1])

	// Removing a token changes the set fingerprint; the user choice is
	// dropped and the top-ranked token is auto-selected again.
	_, selected, state := svc.Evaluate(testSender, tokens[:1], nil)
	require.NotNil(t, selected)
	assert.Equal(t, "USDC", selected.Symbol)
	assert.Equal(t, business.SelectionAuto, state)
}

func TestEvaluateEmptyTokenSet(t *testing.T) {
	svc := NewStrategyService(nil)

	ranked, selected, state := svc.Evaluate(testSender, nil, nil)
	assert.Nil(t, ranked)
	assert.Nil(t, selected)
	assert.Equal(t, business.SelectionUnset, state)
}

func TestSetFactorKeepsSum(t *testing.T) {
	svc := NewStrategyService(nil)

	tests := []struct {
		name   string
		factor business.Factor
		value  int
	}{
		{"raise balance", business.FactorBalance, 80},
		{"zero balance", business.FactorBalance, 0},
		{"max volatility", business.FactorVolatility, 100},
		{"clamped above", business.FactorGasCost, 150},
		{"clamped below", business.FactorGasCost, -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factors := svc.SetFactor(testSender, tt.factor, tt.value)
			assert.Equal(t, 100, factors.Sum())
		})
	}
}

func TestSetFactorRedistributesProportionally(t *testing.T) {
	factors := business.OptimizationFactors{BalanceWeight: 40, VolatilityWeight: 30, GasCostWeight: 30}

	updated := factors.SetWeight(business.FactorBalance, 60)
	assert.Equal(t, 60, updated.BalanceWeight)
	assert.Equal(t, 20, updated.VolatilityWeight)
	assert.Equal(t, 20, updated.GasCostWeight)

	// When both other weights start at zero the remainder splits evenly.
	zeroed := business.OptimizationFactors{BalanceWeight: 100}
	updated = zeroed.SetWeight(business.FactorBalance, 50)
	assert.Equal(t, 50, updated.BalanceWeight)
	assert.Equal(t, 100, updated.Sum())
	assert.Equal(t, 25, updated.VolatilityWeight)
	assert.Equal(t, 25, updated.GasCostWeight)
}
