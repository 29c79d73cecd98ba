package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// VaultKind distinguishes single-asset vaults from LP vaults.
type VaultKind string

const (
	VaultKindSingle VaultKind = "single"
	VaultKindLP     VaultKind = "lp"
)

// VaultDescriptor describes what a vault holds. It is either SingleToken or LpToken.
type VaultDescriptor interface {
	Kind() VaultKind
	// ShareDecimals is the scale of the vault's share token.
	ShareDecimals() uint8
	isVaultDescriptor()
}

// SingleToken is a vault staking one ERC20 asset.
type SingleToken struct {
	AssetAddress string `json:"asset_address" yaml:"asset_address"`
	Decimals     uint8  `json:"decimals" yaml:"decimals"`
}

func (SingleToken) Kind() VaultKind {
	return VaultKindSingle
}

func (s SingleToken) ShareDecimals() uint8 {
	return s.Decimals
}

func (SingleToken) isVaultDescriptor() {}

// LpToken is a vault staking a two-token liquidity pool share.
type LpToken struct {
	LpAddress string `json:"lp_address" yaml:"lp_address"`
	Token0    string `json:"token0" yaml:"token0"`
	Token1    string `json:"token1" yaml:"token1"`
	Decimals  uint8  `json:"decimals" yaml:"decimals"`
}

func (LpToken) Kind() VaultKind {
	return VaultKindLP
}

func (l LpToken) ShareDecimals() uint8 {
	return l.Decimals
}

func (LpToken) isVaultDescriptor() {}

// Vault is a staking contract on one chain.
type Vault struct {
	Address    string          `json:"address"`
	Chain      Chain           `json:"chain"`
	Descriptor VaultDescriptor `json:"descriptor"`
	Active     bool            `json:"active"`
}

// Kind returns the vault kind derived from its descriptor.
func (v Vault) Kind() VaultKind {
	if v.Descriptor == nil {
		return ""
	}
	return v.Descriptor.Kind()
}

// DepositTranche is one independently locked deposit inside a vault position.
type DepositTranche struct {
	ID           string      `json:"id"`
	VaultAddress string      `json:"vault_address"`
	Wallet       string      `json:"wallet"`
	Shares       TokenAmount `json:"shares"`
	DepositedAt  time.Time   `json:"deposited_at"`
	LockDays     uint32      `json:"lock_days"`
}

// Active reports whether the tranche still holds shares.
func (t DepositTranche) Active() bool {
	return !t.Shares.IsZero()
}

// RewardAccrualResult is the shard accrual of one staked value.
type RewardAccrualResult struct {
	EarnedUnits       uint64          `json:"earned_units"`
	MultiplierApplied float64         `json:"multiplier_applied"`
	BaseRateApplied   decimal.Decimal `json:"base_rate_applied"`
}
