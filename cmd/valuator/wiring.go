package main

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"vaultScope/internal/cache"
	"vaultScope/internal/chain"
	"vaultScope/internal/config"
	"vaultScope/internal/dex"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/pricefeed"
	"vaultScope/internal/pricing"
	"vaultScope/internal/retry"
)

const redisPrefix = "valuator:"

// upstreams holds the live collaborators shared by the pricing commands.
type upstreams struct {
	tokens  *pricing.CachedPriceSource
	lps     *pricing.Calculator
	clients []*chain.Client
	redis   *redis.Client
}

func (u *upstreams) Close() {
	for _, c := range u.clients {
		c.Close()
	}
	if u.redis != nil {
		_ = u.redis.Close()
	}
}

func dialUpstreams(ctx context.Context, cfg config.Common, logger *zap.Logger) (*upstreams, error) {
	u := &upstreams{}
	backends := make(map[model.Chain]dex.Backend, len(cfg.RPC))
	for c, url := range cfg.RPC {
		client, err := chain.NewClient(ctx, c, url)
		if err != nil {
			u.Close()
			return nil, fmt.Errorf("connect rpc for %s: %w", c, err)
		}
		u.clients = append(u.clients, client)
		if err := client.VerifyChainID(ctx); err != nil {
			logger.Warn("rpc chain id check failed", zap.String("chain", c.String()), zap.Error(err))
		}
		backends[c] = client
	}

	policy := retry.Policy{MaxRetries: cfg.MaxRetries, BaseDelay: cfg.RetryBackoff}

	var (
		tokenCache cache.Cache[model.TokenPrice]
		lpCache    cache.Cache[model.LpPriceResult]
	)
	if cfg.RedisAddr != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			u.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		u.redis = client
		tokenCache = cache.NewRedisCache[model.TokenPrice](client, redisPrefix)
		lpCache = cache.NewRedisCache[model.LpPriceResult](client, redisPrefix)
	} else {
		tokenCache = cache.NewMemoryCache[model.TokenPrice]()
		lpCache = cache.NewMemoryCache[model.LpPriceResult]()
	}

	feed := pricefeed.New(pricefeed.Config{
		BaseURL:    cfg.PriceURL,
		RPS:        cfg.PriceRPS,
		Timeout:    cfg.PriceTimeout,
		StaleAfter: cfg.PriceStaleAfter,
		Retry:      policy,
	}, logger)

	u.tokens = pricing.NewCachedPriceSource(feed, tokenCache, cfg.PriceTTL, logger)
	reader := dex.NewPairReader(backends, dex.NewTokenMetaCache(), policy, logger)
	u.lps = pricing.NewCalculator(reader, u.tokens, lpCache, cfg.PriceTTL, logger)
	return u, nil
}

func writeMetrics(path string, logger *zap.Logger) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		logger.Warn("write metrics textfile failed", zap.String("path", path), zap.Error(err))
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
