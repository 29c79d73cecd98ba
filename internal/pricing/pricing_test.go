package pricing

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultScope/internal/cache"
	"vaultScope/internal/model"
)

const (
	testLp     = "0x1111111111111111111111111111111111111111"
	testToken0 = "0x2222222222222222222222222222222222222222"
	testToken1 = "0x3333333333333333333333333333333333333333"
)

type fakeReserves struct {
	snapshot model.LpReserveSnapshot
	err      error
	calls    int
}

func (f *fakeReserves) Reserves(ctx context.Context, chain model.Chain, lpAddress string) (model.LpReserveSnapshot, error) {
	f.calls++
	if f.err != nil {
		return model.LpReserveSnapshot{}, f.err
	}
	return f.snapshot, nil
}

type fakePrices struct {
	prices map[string]float64
	err    error
	calls  int
}

func (f *fakePrices) TokenPrice(ctx context.Context, chain model.Chain, token string) (model.TokenPrice, error) {
	f.calls++
	if f.err != nil {
		return model.TokenPrice{}, f.err
	}
	p, ok := f.prices[strings.ToLower(token)]
	if !ok {
		return model.TokenPrice{}, errors.New("no quote")
	}
	return model.TokenPrice{TokenAddress: token, Chain: chain, USDPrice: p, Source: "fake"}, nil
}

func scenarioSnapshot() model.LpReserveSnapshot {
	return model.LpReserveSnapshot{
		LpAddress:   testLp,
		Chain:       model.ChainEthereum,
		Token0:      testToken0,
		Token1:      testToken1,
		Reserve0:    model.NewTokenAmount("1000000000000000000000", 18),
		Reserve1:    model.NewTokenAmount("500000000000000000000", 18),
		TotalSupply: model.NewTokenAmount("1000000000000000000000", 18),
		BlockNumber: 19_000_000,
	}
}

func TestFairPriceGeometric(t *testing.T) {
	res := FairPrice(scenarioSnapshot(), 10, 3000, nil)

	assert.Equal(t, model.PriceMethodGeometric, res.Method)
	assert.InDelta(t, 244.949, res.USDPrice, 1e-3)
	assert.Less(t, res.USDPrice, 1510.0)
	assert.InDelta(t, 10_000, res.Reserve0USD, 1e-9)
	assert.InDelta(t, 1_500_000, res.Reserve1USD, 1e-9)
	assert.InDelta(t, 1_510_000, res.TotalLiquidityUSD, 1e-9)
	assert.InDelta(t, 1.0, res.Token0Weight+res.Token1Weight, 1e-12)
	assert.Equal(t, uint64(19_000_000), res.BlockNumber)
}

func TestFairPriceMixedDecimals(t *testing.T) {
	snap := scenarioSnapshot()
	// 2000 USDC at 6 decimals against 1 WETH at 18.
	snap.Reserve0 = model.NewTokenAmount("2000000000", 6)
	snap.Reserve1 = model.NewTokenAmount("1000000000000000000", 18)
	snap.TotalSupply = model.NewTokenAmount("1000000000000000000", 18)

	res := FairPrice(snap, 1, 2000, nil)
	assert.Equal(t, model.PriceMethodGeometric, res.Method)
	assert.InDelta(t, 4000, res.USDPrice, 1e-6)
	assert.InDelta(t, 0.5, res.Token0Weight, 1e-12)
}

func TestFairPriceZeroSupply(t *testing.T) {
	snap := scenarioSnapshot()
	snap.TotalSupply = model.NewTokenAmount("0", 18)

	res := FairPrice(snap, 10, 3000, nil)
	assert.Equal(t, model.PriceMethodZero, res.Method)
	assert.Zero(t, res.USDPrice)
}

func TestFairPriceEmptyReserve(t *testing.T) {
	snap := scenarioSnapshot()
	snap.Reserve1 = model.NewTokenAmount("0", 18)

	res := FairPrice(snap, 10, 3000, nil)
	assert.Equal(t, model.PriceMethodZero, res.Method)
	assert.Zero(t, res.USDPrice)
	assert.InDelta(t, 1.0, res.Token0Weight, 1e-12)
}

func TestFairPriceMalformedReserveIsZero(t *testing.T) {
	snap := scenarioSnapshot()
	snap.Reserve0 = model.NewTokenAmount("12x4", 18)

	res := FairPrice(snap, 10, 3000, nil)
	assert.Equal(t, model.PriceMethodZero, res.Method)
}

func TestFairPriceFallsBackOnOverflow(t *testing.T) {
	huge := "1" + strings.Repeat("0", 200)
	snap := scenarioSnapshot()
	snap.Reserve0 = model.NewTokenAmount(huge, 0)
	snap.Reserve1 = model.NewTokenAmount(huge, 0)
	snap.TotalSupply = model.NewTokenAmount(huge, 0)

	// r0*r1 overflows float64, the arithmetic mean stays finite.
	res := FairPrice(snap, 1, 1, nil)
	assert.Equal(t, model.PriceMethodArithmetic, res.Method)
	assert.InDelta(t, 2.0, res.USDPrice, 1e-9)
}

func TestFairPriceBothFormulasFail(t *testing.T) {
	snap := scenarioSnapshot()
	snap.Reserve0 = model.NewTokenAmount("1"+strings.Repeat("0", 400), 0)

	res := FairPrice(snap, 10, 3000, nil)
	assert.Equal(t, model.PriceMethodZero, res.Method)
	assert.Zero(t, res.USDPrice)
}

func TestGeometricNeverExceedsArithmetic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 2000; i++ {
		r0 := rng.Float64()*1e6 + 1e-6
		r1 := rng.Float64()*1e6 + 1e-6
		s := rng.Float64()*1e6 + 1e-6
		p0 := rng.Float64() * 1e4
		p1 := rng.Float64() * 1e4

		geo := GeometricPrice(r0, r1, s, p0, p1)
		arith := ArithmeticPrice(r0, r1, s, p0, p1)
		require.LessOrEqual(t, geo, arith*(1+1e-12)+1e-12, "r0=%v r1=%v p0=%v p1=%v", r0, r1, p0, p1)
	}

	// Balanced legs meet with equality.
	geo := GeometricPrice(100, 50, 10, 2, 4)
	arith := ArithmeticPrice(100, 50, 10, 2, 4)
	assert.InDelta(t, arith, geo, 1e-9)
	assert.False(t, math.IsNaN(geo))

	// Unequal legs are strictly below the arithmetic value.
	unequal := []struct{ r0, r1, s, p0, p1 float64 }{
		{1000, 500, 1000, 10, 3000},
		{100, 50, 10, 2, 5},
		{1, 1, 1, 1, 4},
		{2_000, 1, 1, 1, 2_000.5},
	}
	for _, tc := range unequal {
		require.NotEqual(t, tc.r0*tc.p0, tc.r1*tc.p1)
		geo := GeometricPrice(tc.r0, tc.r1, tc.s, tc.p0, tc.p1)
		arith := ArithmeticPrice(tc.r0, tc.r1, tc.s, tc.p0, tc.p1)
		assert.Less(t, geo, arith, "%+v", tc)
	}
}

func TestValidateInput(t *testing.T) {
	chain, err := ValidateInput(testLp, "Base")
	require.NoError(t, err)
	assert.Equal(t, model.ChainBase, chain)

	for _, bad := range []string{"", "0x123", "1111111111111111111111111111111111111111", "0xZZ11111111111111111111111111111111111111"} {
		_, err := ValidateInput(bad, "ethereum")
		require.Error(t, err, bad)
		assert.ErrorIs(t, err, model.ErrInvalidAddress)
		var invalid *model.InputValidationError
		assert.ErrorAs(t, err, &invalid)
	}

	_, err = ValidateInput(testLp, "solana")
	assert.ErrorIs(t, err, model.ErrUnsupportedChain)
}

func newTestCalculator(reserves *fakeReserves, prices *fakePrices) (*Calculator, *cache.MemoryCache[model.LpPriceResult]) {
	lpCache := cache.NewMemoryCache[model.LpPriceResult]()
	return NewCalculator(reserves, prices, lpCache, cache.DefaultTTL, nil), lpCache
}

func TestCalculatorPriceCaches(t *testing.T) {
	ctx := context.Background()
	reserves := &fakeReserves{snapshot: scenarioSnapshot()}
	prices := &fakePrices{prices: map[string]float64{testToken0: 10, testToken1: 3000}}
	calc, _ := newTestCalculator(reserves, prices)

	first, err := calc.Price(ctx, testLp, "ethereum")
	require.NoError(t, err)
	assert.InDelta(t, 244.949, first.USDPrice, 1e-3)

	second, err := calc.Price(ctx, testLp, "Ethereum")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, reserves.calls)
	assert.Equal(t, 2, prices.calls)
}

func TestCalculatorRejectsBeforeCollaborators(t *testing.T) {
	reserves := &fakeReserves{snapshot: scenarioSnapshot()}
	prices := &fakePrices{}
	calc, _ := newTestCalculator(reserves, prices)

	_, err := calc.Price(context.Background(), "not-an-address", "ethereum")
	var invalid *model.InputValidationError
	require.ErrorAs(t, err, &invalid)
	assert.Zero(t, reserves.calls)
	assert.Zero(t, prices.calls)
}

func TestCalculatorUpstreamFailureNotCached(t *testing.T) {
	ctx := context.Background()
	reserves := &fakeReserves{snapshot: scenarioSnapshot()}
	prices := &fakePrices{err: errors.New("feed down")}
	calc, lpCache := newTestCalculator(reserves, prices)

	_, err := calc.Price(ctx, testLp, "ethereum")
	var upstream *model.UpstreamUnavailableError
	require.ErrorAs(t, err, &upstream)
	assert.Contains(t, upstream.Entity, strings.ToLower(testLp))
	assert.Equal(t, 0, lpCache.Len())

	prices.err = nil
	prices.prices = map[string]float64{testToken0: 10, testToken1: 3000}
	res, err := calc.Price(ctx, testLp, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, model.PriceMethodGeometric, res.Method)
	assert.Equal(t, 2, reserves.calls)
}

func TestCalculatorReservesFailure(t *testing.T) {
	reserves := &fakeReserves{err: errors.New("rpc timeout")}
	calc, _ := newTestCalculator(reserves, &fakePrices{})

	_, err := calc.Price(context.Background(), testLp, "arbitrum")
	var upstream *model.UpstreamUnavailableError
	require.ErrorAs(t, err, &upstream)
	assert.Equal(t, "reserves", upstream.Op)
}

func TestCachedPriceSource(t *testing.T) {
	ctx := context.Background()
	upstream := &fakePrices{prices: map[string]float64{testToken0: 1.0}}
	src := NewCachedPriceSource(upstream, cache.NewMemoryCache[model.TokenPrice](), 0, nil)

	for i := 0; i < 3; i++ {
		p, err := src.TokenPrice(ctx, model.ChainPolygon, testToken0)
		require.NoError(t, err)
		assert.Equal(t, 1.0, p.USDPrice)
	}
	assert.Equal(t, 1, upstream.calls)

	_, err := src.TokenPrice(ctx, model.ChainPolygon, testToken1)
	require.Error(t, err)
	_, err = src.TokenPrice(ctx, model.ChainPolygon, "0xbad")
	assert.ErrorIs(t, err, model.ErrInvalidAddress)
	assert.Equal(t, 2, upstream.calls)
}
