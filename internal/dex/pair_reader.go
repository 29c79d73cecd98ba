package dex

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"vaultScope/internal/model"
	"vaultScope/internal/retry"
)

// Backend is a chain connection able to serve pinned pair reads.
type Backend interface {
	ContractCaller
	LatestBlockNumber(ctx context.Context) (uint64, error)
	BlockTimestamp(ctx context.Context, number uint64) (uint64, error)
}

// PairReader reads constant-product pair state with every call pinned to
// the same block.
type PairReader struct {
	backends map[model.Chain]Backend
	tokens   *TokenMetaCache
	policy   retry.Policy
	logger   *zap.Logger
}

func NewPairReader(backends map[model.Chain]Backend, tokens *TokenMetaCache, policy retry.Policy, logger *zap.Logger) *PairReader {
	if tokens == nil {
		tokens = NewTokenMetaCache()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PairReader{backends: backends, tokens: tokens, policy: policy, logger: logger}
}

// Reserves returns token addresses, reserves, and LP supply observed at the
// latest block.
func (r *PairReader) Reserves(ctx context.Context, chain model.Chain, lpAddress string) (model.LpReserveSnapshot, error) {
	backend, ok := r.backends[chain]
	if !ok || backend == nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("no rpc backend for chain %s", chain)
	}
	pairABI, err := V2PairABI()
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("parse pair abi: %w", err)
	}
	pair := common.HexToAddress(lpAddress)

	block, err := retry.Do(ctx, r.policy, "latest_block", r.logger, func(ctx context.Context) (uint64, error) {
		return backend.LatestBlockNumber(ctx)
	})
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("latest block: %w", err)
	}
	blockPtr := new(big.Int).SetUint64(block)

	call := func(method string) ([]interface{}, error) {
		return retry.Do(ctx, r.policy, "pair_"+method, r.logger, func(ctx context.Context) ([]interface{}, error) {
			return callMethod(ctx, backend, pair, pairABI, method, blockPtr)
		})
	}

	values, err := call("token0")
	if err != nil {
		return model.LpReserveSnapshot{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("token0: %w", err)
	}

	values, err = call("token1")
	if err != nil {
		return model.LpReserveSnapshot{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("token1: %w", err)
	}

	values, err = call("getReserves")
	if err != nil {
		return model.LpReserveSnapshot{}, err
	}
	if len(values) < 2 {
		return model.LpReserveSnapshot{}, fmt.Errorf("getReserves: expected 3 values, got %d", len(values))
	}
	reserve0, err := asBigInt(values[0])
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("reserve0: %w", err)
	}
	reserve1, err := asBigInt(values[1])
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("reserve1: %w", err)
	}

	values, err = call("totalSupply")
	if err != nil {
		return model.LpReserveSnapshot{}, err
	}
	supply, err := asBigInt(values[0])
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("total supply: %w", err)
	}

	values, err = call("decimals")
	if err != nil {
		return model.LpReserveSnapshot{}, err
	}
	lpDecimals, err := asUint8(values[0])
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("lp decimals: %w", err)
	}

	meta0, err := r.tokenMeta(ctx, backend, chain, token0)
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("token0 meta: %w", err)
	}
	meta1, err := r.tokenMeta(ctx, backend, chain, token1)
	if err != nil {
		return model.LpReserveSnapshot{}, fmt.Errorf("token1 meta: %w", err)
	}

	return model.LpReserveSnapshot{
		LpAddress:   pair.Hex(),
		Chain:       chain,
		Token0:      token0.Hex(),
		Token1:      token1.Hex(),
		Reserve0:    model.NewTokenAmount(reserve0.String(), meta0.Decimals),
		Reserve1:    model.NewTokenAmount(reserve1.String(), meta1.Decimals),
		TotalSupply: model.NewTokenAmount(supply.String(), lpDecimals),
		BlockNumber: block,
		ObservedAt:  r.blockTime(ctx, backend, block),
	}, nil
}

// TokenMeta returns cached or freshly fetched ERC20 metadata.
func (r *PairReader) TokenMeta(ctx context.Context, chain model.Chain, token string) (model.TokenMeta, error) {
	backend, ok := r.backends[chain]
	if !ok || backend == nil {
		return model.TokenMeta{}, fmt.Errorf("no rpc backend for chain %s", chain)
	}
	return r.tokenMeta(ctx, backend, chain, common.HexToAddress(token))
}

func (r *PairReader) tokenMeta(ctx context.Context, backend Backend, chain model.Chain, token common.Address) (model.TokenMeta, error) {
	if meta, ok := r.tokens.Get(chain, token); ok {
		return meta, nil
	}
	meta, err := retry.Do(ctx, r.policy, "token_meta", r.logger, func(ctx context.Context) (model.TokenMeta, error) {
		return FetchTokenMeta(ctx, backend, chain, token, r.logger)
	})
	if err != nil {
		return model.TokenMeta{}, err
	}
	r.tokens.Set(chain, token, meta)
	return meta, nil
}

func (r *PairReader) blockTime(ctx context.Context, backend Backend, block uint64) time.Time {
	ts, err := backend.BlockTimestamp(ctx, block)
	if err != nil {
		r.logger.Warn("block timestamp unavailable", zap.Uint64("block", block), zap.Error(err))
		return time.Now().UTC()
	}
	return time.Unix(int64(ts), 0).UTC()
}
