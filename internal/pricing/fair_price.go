package pricing

import (
	"math"
	"strconv"

	"go.uber.org/zap"

	"vaultScope/internal/amount"
	"vaultScope/internal/model"
)

// FairPrice values one LP token from a reserve snapshot and the USD prices of
// both constituents. The constant-product geometric price is preferred; when it
// is not a finite nonnegative number the arithmetic reserve value is used and
// the fallback is logged. Empty reserves or supply give a zero price.
func FairPrice(snapshot model.LpReserveSnapshot, price0, price1 float64, logger *zap.Logger) model.LpPriceResult {
	if logger == nil {
		logger = zap.NewNop()
	}

	reserve0 := displayFloat(snapshot.Reserve0)
	reserve1 := displayFloat(snapshot.Reserve1)
	supply := displayFloat(snapshot.TotalSupply)

	result := model.LpPriceResult{
		LpAddress:   snapshot.LpAddress,
		Chain:       snapshot.Chain,
		Reserve0USD: reserve0 * price0,
		Reserve1USD: reserve1 * price1,
		BlockNumber: snapshot.BlockNumber,
		ObservedAt:  snapshot.ObservedAt,
	}
	result.TotalLiquidityUSD = result.Reserve0USD + result.Reserve1USD
	switch {
	case !usable(result.TotalLiquidityUSD):
		result.Reserve0USD, result.Reserve1USD, result.TotalLiquidityUSD = 0, 0, 0
	case result.TotalLiquidityUSD > 0:
		result.Token0Weight = result.Reserve0USD / result.TotalLiquidityUSD
		result.Token1Weight = result.Reserve1USD / result.TotalLiquidityUSD
	}

	if reserve0 == 0 || reserve1 == 0 || supply == 0 {
		result.Method = model.PriceMethodZero
		return result
	}

	geometric := GeometricPrice(reserve0, reserve1, supply, price0, price1)
	if usable(geometric) {
		result.USDPrice = geometric
		result.Method = model.PriceMethodGeometric
		return result
	}

	arithmetic := ArithmeticPrice(reserve0, reserve1, supply, price0, price1)
	if usable(arithmetic) {
		logger.Warn("lp price fallback to arithmetic mean",
			zap.String("lp", snapshot.LpAddress),
			zap.String("chain", snapshot.Chain.String()),
			zap.Float64("geometric", geometric),
			zap.Float64("arithmetic", arithmetic),
			zap.Uint64("block", snapshot.BlockNumber),
		)
		result.USDPrice = arithmetic
		result.Method = model.PriceMethodArithmetic
		return result
	}

	logger.Error("lp price not computable",
		zap.String("lp", snapshot.LpAddress),
		zap.String("chain", snapshot.Chain.String()),
		zap.Float64("geometric", geometric),
		zap.Float64("arithmetic", arithmetic),
	)
	result.Method = model.PriceMethodZero
	return result
}

// GeometricPrice is 2*sqrt(r0*r1)*sqrt(p0*p1)/supply.
func GeometricPrice(reserve0, reserve1, supply, price0, price1 float64) float64 {
	return 2 * math.Sqrt(reserve0*reserve1) * math.Sqrt(price0*price1) / supply
}

// ArithmeticPrice is (r0*p0 + r1*p1)/supply.
func ArithmeticPrice(reserve0, reserve1, supply, price0, price1 float64) float64 {
	return (reserve0*price0 + reserve1*price1) / supply
}

func usable(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// displayFloat goes through the display string so malformed raw values read as
// zero. Values beyond the float64 range parse to +Inf.
func displayFloat(a model.TokenAmount) float64 {
	f, _ := strconv.ParseFloat(amount.Display(a), 64)
	return f
}
