package reward

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
)

const (
	secondsPerDay = 86400
	fullLockDays  = 365
)

var (
	minMultiplier = decimal.NewFromInt(1)
	maxMultiplier = decimal.NewFromInt(2)
)

// accrualDivisor scales usd * rate * (365 + min(d, 365)) back to units.
var accrualDivisor = decimal.NewFromInt(fullLockDays * 1000)

// BaseRateSource supplies the shard base rate for a vault kind.
type BaseRateSource interface {
	BaseRate(kind model.VaultKind) (decimal.Decimal, bool)
}

// RateTable is a static BaseRateSource.
type RateTable map[model.VaultKind]decimal.Decimal

func (t RateTable) BaseRate(kind model.VaultKind) (decimal.Decimal, bool) {
	rate, ok := t[kind]
	return rate, ok
}

// ParseRateTable builds a RateTable from kind=rate config pairs.
func ParseRateTable(input map[string]string) (RateTable, error) {
	table := make(RateTable, len(input))
	for k, v := range input {
		kind := model.VaultKind(strings.ToLower(strings.TrimSpace(k)))
		if kind != model.VaultKindSingle && kind != model.VaultKindLP {
			return nil, fmt.Errorf("unknown vault kind in base rates: %s", k)
		}
		rate, err := decimal.NewFromString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("base rate for %s: %w", k, err)
		}
		if rate.IsNegative() {
			return nil, fmt.Errorf("base rate for %s must be nonnegative", k)
		}
		table[kind] = rate
	}
	return table, nil
}

// MultiplierDecimal returns clamp(1 + lockDays/365, 1, 2).
func MultiplierDecimal(lockDays uint32) decimal.Decimal {
	if lockDays >= fullLockDays {
		return maxMultiplier
	}
	m := minMultiplier.Add(decimal.NewFromInt(int64(lockDays)).Div(decimal.NewFromInt(fullLockDays)))
	if m.GreaterThan(maxMultiplier) {
		return maxMultiplier
	}
	return m
}

// Multiplier is MultiplierDecimal as a float.
func Multiplier(lockDays uint32) float64 {
	return MultiplierDecimal(lockDays).InexactFloat64()
}

// Accrue computes floor(stakedUSD/1000 * baseRate(kind) * multiplier(lockDays)).
func Accrue(stakedUSD decimal.Decimal, kind model.VaultKind, lockDays uint32, rates BaseRateSource) (model.RewardAccrualResult, error) {
	if rates == nil {
		return model.RewardAccrualResult{}, fmt.Errorf("base rate source is nil")
	}
	rate, ok := rates.BaseRate(kind)
	if !ok {
		return model.RewardAccrualResult{}, fmt.Errorf("no base rate for vault kind %q", kind)
	}

	multiplier := MultiplierDecimal(lockDays)
	return model.RewardAccrualResult{
		EarnedUnits:       earned(stakedUSD, rate, lockDays),
		MultiplierApplied: multiplier.InexactFloat64(),
		BaseRateApplied:   rate,
	}, nil
}

// MaxEarned is the accrual bound at the 2x multiplier cap.
func MaxEarned(stakedUSD, rate decimal.Decimal) uint64 {
	return earned(stakedUSD, rate, fullLockDays)
}

// earned floors the exact accrual with one truncating division.
func earned(stakedUSD, rate decimal.Decimal, lockDays uint32) uint64 {
	if !stakedUSD.IsPositive() || !rate.IsPositive() {
		return 0
	}
	if lockDays > fullLockDays {
		lockDays = fullLockDays
	}
	weight := decimal.NewFromInt(fullLockDays + int64(lockDays))
	units, _ := stakedUSD.Mul(rate).Mul(weight).QuoRem(accrualDivisor, 0)
	n := units.BigInt()
	if !n.IsUint64() {
		return math.MaxUint64
	}
	return n.Uint64()
}

// RemainingLockDays returns max(0, ceil((depositedAt + lockDays*86400 - now) / 86400)).
func RemainingLockDays(depositedAt time.Time, lockDays uint32, now time.Time) uint32 {
	if lockDays == 0 {
		return 0
	}
	unlockAt := depositedAt.Unix() + int64(lockDays)*secondsPerDay
	remaining := unlockAt - now.Unix()
	if remaining <= 0 {
		return 0
	}
	return uint32((remaining + secondsPerDay - 1) / secondsPerDay)
}

// IsUnlocked reports whether a tranche's lock has elapsed.
func IsUnlocked(depositedAt time.Time, lockDays uint32, now time.Time) bool {
	return RemainingLockDays(depositedAt, lockDays, now) == 0
}
