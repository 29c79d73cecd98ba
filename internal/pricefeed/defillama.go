package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"vaultScope/internal/model"
	"vaultScope/internal/retry"
)

const (
	DefaultBaseURL    = "https://coins.llama.fi"
	DefaultStaleAfter = time.Hour
	sourceName        = "defillama"
	maxBodyBytes      = 1 << 20
)

// Config configures the DeFiLlama client.
type Config struct {
	BaseURL    string
	RPS        float64
	Timeout    time.Duration
	StaleAfter time.Duration
	Retry      retry.Policy
}

// Client fetches current USD quotes from the DeFiLlama coins API.
type Client struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	staleAfter time.Duration
	policy     retry.Policy
	logger     *zap.Logger
	now        func() time.Time
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("price api status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

func New(cfg Config, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 5
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}

	settings := gobreaker.Settings{
		Name:     "price-feed",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var status *statusError
			if errors.As(err, &status) {
				return !status.retryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		http:       &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), 1),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		staleAfter: cfg.StaleAfter,
		policy:     cfg.Retry,
		logger:     logger,
		now:        time.Now,
	}
}

// TokenPrice returns the current USD quote for token on chain.
func (c *Client) TokenPrice(ctx context.Context, chain model.Chain, token string) (model.TokenPrice, error) {
	coin := chain.LlamaKey() + ":" + strings.ToLower(token)

	body, err := retry.Do(ctx, c.policy, "token_price", c.logger, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, retry.Permanent(err)
		}
		out, err := c.breaker.Execute(func() (interface{}, error) {
			return c.fetch(ctx, coin)
		})
		if err != nil {
			var status *statusError
			if errors.As(err, &status) && !status.retryable() {
				return nil, retry.Permanent(err)
			}
			return nil, err
		}
		return out.([]byte), nil
	})
	if err != nil {
		return model.TokenPrice{}, fmt.Errorf("fetch price %s: %w", coin, err)
	}

	return c.parse(body, chain, token, coin)
}

func (c *Client) fetch(ctx context.Context, coin string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/prices/current/"+coin, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read price response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

func (c *Client) parse(body []byte, chain model.Chain, token, coin string) (model.TokenPrice, error) {
	if !gjson.ValidBytes(body) {
		return model.TokenPrice{}, fmt.Errorf("decode price response for %s: invalid json", coin)
	}
	coins := gjson.GetBytes(body, "coins")
	entry := coins.Get(coin)
	if !entry.Exists() {
		// The API may echo the address checksummed.
		coins.ForEach(func(key, value gjson.Result) bool {
			if strings.EqualFold(key.String(), coin) {
				entry = value
				return false
			}
			return true
		})
	}
	if !entry.Exists() {
		return model.TokenPrice{}, fmt.Errorf("no price for %s", coin)
	}

	priceField := entry.Get("price")
	if priceField.Type != gjson.Number {
		return model.TokenPrice{}, fmt.Errorf("price for %s is not a number", coin)
	}
	price := priceField.Float()
	if price < 0 {
		return model.TokenPrice{}, fmt.Errorf("negative price for %s: %v", coin, price)
	}

	now := c.now().UTC()
	observed := now
	if ts := entry.Get("timestamp"); ts.Exists() && ts.Int() > 0 {
		observed = time.Unix(ts.Int(), 0).UTC()
	}

	stale := now.Sub(observed) > c.staleAfter
	if stale {
		c.logger.Warn("stale token price",
			zap.String("coin", coin),
			zap.Time("observed_at", observed),
			zap.Duration("stale_after", c.staleAfter),
		)
	}

	return model.TokenPrice{
		TokenAddress: token,
		Chain:        chain,
		USDPrice:     price,
		Source:       sourceName,
		ObservedAt:   observed,
		IsStale:      stale,
	}, nil
}
