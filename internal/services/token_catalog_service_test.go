package services

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lottolink/lottolink-api/internal/client/bundler"
	"github.com/lottolink/lottolink-api/internal/client/paymaster"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

func TestPaymentTokensJoinsBalances(t *testing.T) {
	paymasterFake := &fakePaymaster{
		supportedFn: func(op *bundler.UserOperation) (*paymaster.SupportedTokensResult, error) {
			return &paymaster.SupportedTokensResult{
				Tokens: []paymaster.SupportedToken{
					{Address: usdcAddr, Symbol: "USDC", Decimals: 6, USDPrice: 1.0},
					{Address: daiAddr, Symbol: "DAI", Decimals: 18, USDPrice: 1.0},
				},
				FreeGas: true,
			}, nil
		},
	}
	chainFake := newFakeChain()
	chainFake.balances[usdcAddr] = big.NewInt(5_000_000)
	chainFake.balances[daiAddr] = big.NewInt(0)

	svc := NewTokenCatalogService(paymasterFake, chainFake)

	tokens, freeGas, err := svc.PaymentTokens(context.Background(), testSender)
	require.NoError(t, err)
	assert.True(t, freeGas)
	require.Len(t, tokens, 2)

	// Order follows the paymaster's list; balances come from the node.
	assert.Equal(t, "USDC", tokens[0].Symbol)
	assert.Equal(t, big.NewInt(5_000_000), tokens[0].Balance)
	assert.Equal(t, "DAI", tokens[1].Symbol)
	assert.Zero(t, tokens[1].Balance.Sign())
}

func TestPaymentTokensPaymasterError(t *testing.T) {
	paymasterFake := &fakePaymaster{
		supportedFn: func(op *bundler.UserOperation) (*paymaster.SupportedTokensResult, error) {
			return nil, errors.New("paymaster unreachable")
		},
	}
	svc := NewTokenCatalogService(paymasterFake, newFakeChain())

	_, _, err := svc.PaymentTokens(context.Background(), testSender)
	assert.Error(t, err)
}

func TestGasCostsToleratesEstimateFailures(t *testing.T) {
	paymasterFake := &fakePaymaster{
		costFn: func(token common.Address) (*big.Int, error) {
			if token == daiAddr {
				return nil, errors.New("token not quoted")
			}
			return big.NewInt(1234), nil
		},
	}
	svc := NewTokenCatalogService(paymasterFake, newFakeChain())

	costs, err := svc.GasCosts(context.Background(), testSender, []business.PaymentToken{usdcToken(1), daiToken(1)})
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1234), costs[usdcAddr])
	// A failed estimate is recorded as zero instead of failing the refresh.
	assert.Zero(t, costs[daiAddr].Sign())
}
