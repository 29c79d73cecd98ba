package reward

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
)

var testRates = RateTable{
	model.VaultKindSingle: decimal.NewFromInt(80),
	model.VaultKindLP:     decimal.NewFromInt(120),
}

func TestMultiplierBounds(t *testing.T) {
	if got := Multiplier(0); got != 1.0 {
		t.Fatalf("multiplier(0) = %v", got)
	}
	if got := Multiplier(365); got != 2.0 {
		t.Fatalf("multiplier(365) = %v", got)
	}
	for _, d := range []uint32{366, 400, 1000, math.MaxUint32} {
		if got := Multiplier(d); got != 2.0 {
			t.Fatalf("multiplier(%d) = %v", d, got)
		}
	}
}

func TestMultiplierScenarios(t *testing.T) {
	cases := []struct {
		days uint32
		want float64
	}{
		{30, 1.0822},
		{180, 1.4932},
	}
	for _, tc := range cases {
		if got := Multiplier(tc.days); math.Abs(got-tc.want) > 1e-4 {
			t.Fatalf("multiplier(%d) = %v, want ~%v", tc.days, got, tc.want)
		}
	}
}

func TestMultiplierMonotonic(t *testing.T) {
	prev := Multiplier(0)
	for d := uint32(1); d <= 800; d++ {
		cur := Multiplier(d)
		if cur < prev {
			t.Fatalf("multiplier decreased at %d: %v < %v", d, cur, prev)
		}
		if cur < 1.0 || cur > 2.0 {
			t.Fatalf("multiplier(%d) out of range: %v", d, cur)
		}
		prev = cur
	}
}

func TestAccrueScenarioD(t *testing.T) {
	res, err := Accrue(decimal.NewFromInt(500), model.VaultKindSingle, 0, testRates)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if res.EarnedUnits != 40 {
		t.Fatalf("earned = %d, want 40", res.EarnedUnits)
	}
	if res.MultiplierApplied != 1.0 {
		t.Fatalf("multiplier = %v", res.MultiplierApplied)
	}
	if !res.BaseRateApplied.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("base rate = %s", res.BaseRateApplied)
	}
}

func TestAccrueFloors(t *testing.T) {
	// 999 / 1000 * 80 * 1.0 = 79.92
	res, err := Accrue(decimal.NewFromInt(999), model.VaultKindSingle, 0, testRates)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if res.EarnedUnits != 79 {
		t.Fatalf("earned = %d, want 79", res.EarnedUnits)
	}
}

func TestAccrueNeverExceedsCap(t *testing.T) {
	stakes := []string{"0", "0.5", "12.34", "500", "999.999", "123456.789"}
	for _, s := range stakes {
		usd := decimal.RequireFromString(s)
		for _, days := range []uint32{0, 1, 30, 180, 364, 365, 400} {
			for kind, rate := range testRates {
				res, err := Accrue(usd, kind, days, testRates)
				if err != nil {
					t.Fatalf("accrue: %v", err)
				}
				if limit := MaxEarned(usd, rate); res.EarnedUnits > limit {
					t.Fatalf("earned %d exceeds cap %d (usd=%s days=%d)", res.EarnedUnits, limit, s, days)
				}
			}
		}
	}
}

func TestAccrueNegativeAndUnknownKind(t *testing.T) {
	res, err := Accrue(decimal.NewFromInt(-10), model.VaultKindLP, 30, testRates)
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if res.EarnedUnits != 0 {
		t.Fatalf("negative stake earned %d", res.EarnedUnits)
	}

	if _, err := Accrue(decimal.NewFromInt(10), model.VaultKind("vesting"), 0, testRates); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}

func TestRemainingLockDays(t *testing.T) {
	deposit := time.Unix(1_700_000_000, 0)

	if got := RemainingLockDays(deposit, 0, deposit); got != 0 {
		t.Fatalf("zero lock remaining = %d", got)
	}
	if !IsUnlocked(deposit, 0, deposit.Add(-time.Hour)) {
		t.Fatalf("zero lock should always be unlocked")
	}

	if got := RemainingLockDays(deposit, 30, deposit); got != 30 {
		t.Fatalf("remaining at deposit = %d, want 30", got)
	}
	if got := RemainingLockDays(deposit, 30, deposit.Add(time.Hour)); got != 30 {
		t.Fatalf("remaining after 1h = %d, want 30 (ceil)", got)
	}
	if got := RemainingLockDays(deposit, 30, deposit.Add(24*time.Hour)); got != 29 {
		t.Fatalf("remaining after 1d = %d, want 29", got)
	}
	if got := RemainingLockDays(deposit, 30, deposit.Add(30*24*time.Hour)); got != 0 {
		t.Fatalf("remaining at unlock = %d", got)
	}
	if got := RemainingLockDays(deposit, 30, deposit.Add(90*24*time.Hour)); got != 0 {
		t.Fatalf("remaining after unlock = %d", got)
	}
}

func TestParseRateTable(t *testing.T) {
	table, err := ParseRateTable(map[string]string{"single": "80", "LP": "120.5"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if rate, ok := table.BaseRate(model.VaultKindLP); !ok || rate.String() != "120.5" {
		t.Fatalf("lp rate = %s %v", rate, ok)
	}

	if _, err := ParseRateTable(map[string]string{"vesting": "1"}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
	if _, err := ParseRateTable(map[string]string{"single": "abc"}); err == nil {
		t.Fatalf("expected error for bad rate")
	}
	if _, err := ParseRateTable(map[string]string{"single": "-1"}); err == nil {
		t.Fatalf("expected error for negative rate")
	}
}

func TestAccrueFloorsExactValue(t *testing.T) {
	// 365000/1000 * 1 * (1 + d/365) = 365 + d exactly.
	rates := RateTable{model.VaultKindSingle: decimal.NewFromInt(1)}
	stake := decimal.NewFromInt(365000)
	for d := uint32(0); d <= 400; d++ {
		res, err := Accrue(stake, model.VaultKindSingle, d, rates)
		if err != nil {
			t.Fatalf("accrue: %v", err)
		}
		want := uint64(365 + d)
		if d > 365 {
			want = 730
		}
		if res.EarnedUnits != want {
			t.Fatalf("lockDays=%d earned=%d want=%d", d, res.EarnedUnits, want)
		}
	}

	// 1000/1000 * 3000 * (1 + 1/365) = 3008.21..., floor 3008.
	res, err := Accrue(decimal.NewFromInt(1000), model.VaultKindSingle, 1, RateTable{model.VaultKindSingle: decimal.NewFromInt(3000)})
	if err != nil {
		t.Fatalf("accrue: %v", err)
	}
	if res.EarnedUnits != 3008 {
		t.Fatalf("earned = %d, want 3008", res.EarnedUnits)
	}
}
