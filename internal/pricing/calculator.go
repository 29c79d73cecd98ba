package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"vaultScope/internal/cache"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
)

// ReserveSource reads a consistent reserve snapshot for an LP pair.
type ReserveSource interface {
	Reserves(ctx context.Context, chain model.Chain, lpAddress string) (model.LpReserveSnapshot, error)
}

// PriceSource supplies USD quotes for tokens.
type PriceSource interface {
	TokenPrice(ctx context.Context, chain model.Chain, token string) (model.TokenPrice, error)
}

// Calculator prices LP tokens from on-chain reserves and constituent quotes.
type Calculator struct {
	reserves ReserveSource
	prices   PriceSource
	cache    cache.Cache[model.LpPriceResult]
	ttl      time.Duration
	logger   *zap.Logger
}

// NewCalculator wires a Calculator. A nil cache disables memoization.
func NewCalculator(reserves ReserveSource, prices PriceSource, lpCache cache.Cache[model.LpPriceResult], ttl time.Duration, logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &Calculator{
		reserves: reserves,
		prices:   prices,
		cache:    lpCache,
		ttl:      ttl,
		logger:   logger,
	}
}

// Price returns the fair USD price of one LP token. Invalid input fails
// before any collaborator is called; collaborator failures are returned as
// UpstreamUnavailableError and never cached.
func (c *Calculator) Price(ctx context.Context, lpAddress, chain string) (model.LpPriceResult, error) {
	parsedChain, err := ValidateInput(lpAddress, chain)
	if err != nil {
		return model.LpPriceResult{}, err
	}
	if c.reserves == nil || c.prices == nil {
		return model.LpPriceResult{}, fmt.Errorf("calculator collaborators not configured")
	}

	key := cache.LpPriceKey(parsedChain, lpAddress)
	if cached, ok := c.lookup(ctx, key); ok {
		return cached, nil
	}

	entity := "lp " + strings.ToLower(lpAddress)
	snapshot, err := c.reserves.Reserves(ctx, parsedChain, lpAddress)
	if err != nil {
		return model.LpPriceResult{}, model.Upstream(entity, "reserves", err)
	}

	price0, err := c.prices.TokenPrice(ctx, parsedChain, snapshot.Token0)
	if err != nil {
		return model.LpPriceResult{}, model.Upstream(entity, "token0 price", err)
	}
	price1, err := c.prices.TokenPrice(ctx, parsedChain, snapshot.Token1)
	if err != nil {
		return model.LpPriceResult{}, model.Upstream(entity, "token1 price", err)
	}
	if price0.IsStale || price1.IsStale {
		c.logger.Warn("pricing lp with stale token quote",
			zap.String("lp", lpAddress),
			zap.Bool("token0_stale", price0.IsStale),
			zap.Bool("token1_stale", price1.IsStale),
		)
	}

	if snapshot.LpAddress == "" {
		snapshot.LpAddress = lpAddress
	}
	if snapshot.Chain == "" {
		snapshot.Chain = parsedChain
	}
	result := FairPrice(snapshot, price0.USDPrice, price1.USDPrice, c.logger)
	metrics.LpPriceComputed(string(result.Method))

	c.store(ctx, key, result)
	return result, nil
}

func (c *Calculator) lookup(ctx context.Context, key cache.Key) (model.LpPriceResult, bool) {
	if c.cache == nil {
		return model.LpPriceResult{}, false
	}
	cached, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("lp price cache read failed", zap.String("key", key.String()), zap.Error(err))
		return model.LpPriceResult{}, false
	}
	return cached, ok
}

func (c *Calculator) store(ctx context.Context, key cache.Key, result model.LpPriceResult) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, result, c.ttl); err != nil {
		c.logger.Warn("lp price cache write failed", zap.String("key", key.String()), zap.Error(err))
	}
}
