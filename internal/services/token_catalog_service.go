package services

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/lottolink/lottolink-api/internal/client/bundler"
	"github.com/lottolink/lottolink-api/internal/logger"
	"github.com/lottolink/lottolink-api/internal/types/business"
)

// balanceQueryConcurrency caps parallel node calls per catalog refresh.
const balanceQueryConcurrency = 8

// TokenCatalogService joins the paymaster's supported token list with the
// wallet's balances to produce the PaymentToken set the strategy ranks.
type TokenCatalogService struct {
	paymaster PaymasterAPI
	chain     ChainAPI
	logger    *zap.Logger
}

// NewTokenCatalogService creates a token catalog service.
func NewTokenCatalogService(pm PaymasterAPI, chain ChainAPI) *TokenCatalogService {
	return &TokenCatalogService{
		paymaster: pm,
		chain:     chain,
		logger:    logger.Log,
	}
}

// PaymentTokens returns the wallet's payment token candidates and whether the
// paymaster currently offers free (sponsored) gas for the sender.
func (s *TokenCatalogService) PaymentTokens(ctx context.Context, sender common.Address) ([]business.PaymentToken, bool, error) {
	probe := bundler.NewUserOperation(sender, big.NewInt(0), nil, nil)
	supported, err := s.paymaster.SupportedTokens(ctx, probe)
	if err != nil {
		return nil, false, err
	}

	tokens := make([]business.PaymentToken, len(supported.Tokens))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceQueryConcurrency)

	for i, st := range supported.Tokens {
		i, st := i, st
		g.Go(func() error {
			balance, err := s.chain.TokenBalance(gctx, st.Address, sender)
			if err != nil {
				return err
			}
			tokens[i] = business.PaymentToken{
				Address:  st.Address,
				Symbol:   st.Symbol,
				Decimals: st.Decimals,
				Balance:  balance,
				USDPrice: st.USDPrice,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	s.logger.Debug("Built payment token catalog",
		zap.String("sender", sender.Hex()),
		zap.Int("token_count", len(tokens)),
	)
	return tokens, supported.FreeGas, nil
}

// GasCosts estimates the operation's gas cost in each candidate token,
// querying the paymaster concurrently. A token whose estimate fails is
// recorded as zero cost rather than failing the whole refresh.
func (s *TokenCatalogService) GasCosts(ctx context.Context, sender common.Address, tokens []business.PaymentToken) (map[common.Address]*big.Int, error) {
	probe := bundler.NewUserOperation(sender, big.NewInt(0), nil, nil)

	var mu sync.Mutex
	costs := make(map[common.Address]*big.Int, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(balanceQueryConcurrency)

	for _, t := range tokens {
		t := t
		g.Go(func() error {
			cost, err := s.paymaster.EstimateTokenCost(gctx, probe, t.Address)
			if err != nil {
				s.logger.Warn("Gas cost estimate failed for token",
					zap.String("token", t.Symbol),
					zap.Error(err),
				)
				cost = big.NewInt(0)
			}
			mu.Lock()
			costs[t.Address] = cost
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return costs, nil
}
