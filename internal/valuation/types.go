package valuation

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
)

const (
	EarningsSourceHistory = "history"
	EarningsSourceDerived = "derived"

	// PriceMethodFeed marks a single-asset vault priced straight from the feed.
	PriceMethodFeed = "feed"
)

// TrancheValuation is one active deposit tranche valued at the vault's unit price.
type TrancheValuation struct {
	TrancheID         string                    `json:"tranche_id"`
	Shares            model.TokenAmount         `json:"shares"`
	DisplayAmount     string                    `json:"display_amount"`
	StakedUSD         decimal.Decimal           `json:"staked_usd"`
	Reward            model.RewardAccrualResult `json:"reward"`
	DepositedAt       time.Time                 `json:"deposited_at"`
	LockDays          uint32                    `json:"lock_days"`
	RemainingLockDays uint32                    `json:"remaining_lock_days"`
	Unlocked          bool                      `json:"unlocked"`
}

// VaultSummary aggregates one wallet's tranches in one vault.
type VaultSummary struct {
	VaultAddress     string               `json:"vault_address"`
	Chain            model.Chain          `json:"chain"`
	Kind             model.VaultKind      `json:"kind"`
	UnitPriceUSD     float64              `json:"unit_price_usd"`
	PriceMethod      string               `json:"price_method"`
	PriceError       string               `json:"price_error,omitempty"`
	LpPrice          *model.LpPriceResult `json:"lp_price,omitempty"`
	TotalStakedUSD   decimal.Decimal      `json:"total_staked_usd"`
	PositionCount    int                  `json:"position_count"`
	TotalEarnedUnits uint64               `json:"total_earned_units"`
	Tranches         []TrancheValuation   `json:"tranches"`
}

// Priced reports whether the vault resolved a unit price.
func (v VaultSummary) Priced() bool {
	return v.PriceError == ""
}

// WalletSummary folds every VaultSummary of a wallet.
type WalletSummary struct {
	Wallet             string          `json:"wallet"`
	PortfolioUSD       decimal.Decimal `json:"portfolio_usd"`
	TotalPositions     int             `json:"total_positions"`
	TotalEarnedUnits   uint64          `json:"total_earned_units"`
	DerivedEarnedUnits uint64          `json:"derived_earned_units"`
	EarningsSource     string          `json:"earnings_source"`
	UnpricedVaults     int             `json:"unpriced_vaults"`
}

// Report is the output of one pipeline run.
type Report struct {
	RunID       uuid.UUID      `json:"run_id"`
	Wallet      string         `json:"wallet"`
	GeneratedAt time.Time      `json:"generated_at"`
	Vaults      []VaultSummary `json:"vaults"`
	Summary     WalletSummary  `json:"summary"`
}

// LpPrices returns the LP prices resolved during the run.
func (r Report) LpPrices() []model.LpPriceResult {
	out := make([]model.LpPriceResult, 0, len(r.Vaults))
	for _, v := range r.Vaults {
		if v.LpPrice != nil {
			out = append(out, *v.LpPrice)
		}
	}
	return out
}

// Vault returns the summary for address, if present.
func (r Report) Vault(address string) (VaultSummary, bool) {
	for _, v := range r.Vaults {
		if strings.EqualFold(v.VaultAddress, address) {
			return v, true
		}
	}
	return VaultSummary{}, false
}
