package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vaultScope/internal/model"
)

// DefaultTTL applies to both token prices and computed LP prices.
const DefaultTTL = 300 * time.Second

const (
	NamespaceTokenPrice = "token-price"
	NamespaceLpPrice    = "lp-price"
)

// Key identifies a cached entity on a chain.
type Key struct {
	Namespace string
	Chain     model.Chain
	Address   string
}

// TokenPriceKey builds the key for a token price.
func TokenPriceKey(chain model.Chain, token string) Key {
	return Key{Namespace: NamespaceTokenPrice, Chain: chain, Address: token}
}

// LpPriceKey builds the key for a computed LP price.
func LpPriceKey(chain model.Chain, lp string) Key {
	return Key{Namespace: NamespaceLpPrice, Chain: chain, Address: lp}
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%s", k.Namespace, k.Chain, strings.ToLower(k.Address))
}

// Cache memoizes values with a per-entry TTL. A miss returns ok=false and a nil error.
type Cache[V any] interface {
	Get(ctx context.Context, key Key) (V, bool, error)
	Set(ctx context.Context, key Key, value V, ttl time.Duration) error
	Delete(ctx context.Context, key Key) error
	Clear(ctx context.Context) error
}
