package pricing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"vaultScope/internal/cache"
	"vaultScope/internal/model"
)

// CachedPriceSource memoizes token quotes from an upstream PriceSource.
type CachedPriceSource struct {
	source PriceSource
	cache  cache.Cache[model.TokenPrice]
	ttl    time.Duration
	logger *zap.Logger
}

func NewCachedPriceSource(source PriceSource, priceCache cache.Cache[model.TokenPrice], ttl time.Duration, logger *zap.Logger) *CachedPriceSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	return &CachedPriceSource{source: source, cache: priceCache, ttl: ttl, logger: logger}
}

func (s *CachedPriceSource) TokenPrice(ctx context.Context, chain model.Chain, token string) (model.TokenPrice, error) {
	if err := ValidateAddress("token address", token); err != nil {
		return model.TokenPrice{}, err
	}

	key := cache.TokenPriceKey(chain, token)
	if s.cache != nil {
		price, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("token price cache read failed", zap.String("key", key.String()), zap.Error(err))
		} else if ok {
			return price, nil
		}
	}

	price, err := s.source.TokenPrice(ctx, chain, token)
	if err != nil {
		return model.TokenPrice{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, price, s.ttl); err != nil {
			s.logger.Warn("token price cache write failed", zap.String("key", key.String()), zap.Error(err))
		}
	}
	return price, nil
}
