package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"vaultScope/internal/model"
)

// ErrNoEarnings is returned when the positions file has no earnings for a wallet.
var ErrNoEarnings = errors.New("no earnings history")

type positionsDoc struct {
	Vaults   []vaultRecord     `yaml:"vaults"`
	Tranches []trancheRecord   `yaml:"tranches"`
	Earnings map[string]uint64 `yaml:"earnings"`
}

type vaultRecord struct {
	Address      string `yaml:"address"`
	Chain        string `yaml:"chain"`
	Kind         string `yaml:"kind"`
	Active       *bool  `yaml:"active"`
	AssetAddress string `yaml:"asset_address"`
	LpAddress    string `yaml:"lp_address"`
	Token0       string `yaml:"token0"`
	Token1       string `yaml:"token1"`
	Decimals     uint8  `yaml:"decimals"`
}

type trancheRecord struct {
	ID          string    `yaml:"id"`
	Vault       string    `yaml:"vault"`
	Wallet      string    `yaml:"wallet"`
	Shares      string    `yaml:"shares"`
	DepositedAt time.Time `yaml:"deposited_at"`
	LockDays    uint32    `yaml:"lock_days"`
}

// PositionsFile serves vaults, tranches, and earnings history from a YAML
// (or JSON) document.
type PositionsFile struct {
	vaults   []model.Vault
	tranches []model.DepositTranche
	earnings map[string]uint64
}

// LoadPositionsFile reads and validates a positions document.
func LoadPositionsFile(path string) (*PositionsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read positions file: %w", err)
	}
	return ParsePositions(data)
}

// ParsePositions decodes a positions document.
func ParsePositions(data []byte) (*PositionsFile, error) {
	var doc positionsDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}

	pf := &PositionsFile{earnings: make(map[string]uint64, len(doc.Earnings))}
	decimals := make(map[string]uint8, len(doc.Vaults))
	for i, rec := range doc.Vaults {
		vault, err := rec.toVault()
		if err != nil {
			return nil, fmt.Errorf("vault %d: %w", i, err)
		}
		pf.vaults = append(pf.vaults, vault)
		decimals[strings.ToLower(vault.Address)] = vault.Descriptor.ShareDecimals()
	}

	for i, rec := range doc.Tranches {
		dec, ok := decimals[strings.ToLower(rec.Vault)]
		if !ok {
			return nil, fmt.Errorf("tranche %d: unknown vault %s", i, rec.Vault)
		}
		id := rec.ID
		if id == "" {
			id = fmt.Sprintf("%s-%d", strings.ToLower(rec.Vault), i)
		}
		pf.tranches = append(pf.tranches, model.DepositTranche{
			ID:           id,
			VaultAddress: rec.Vault,
			Wallet:       rec.Wallet,
			Shares:       model.NewTokenAmount(strings.TrimSpace(rec.Shares), dec),
			DepositedAt:  rec.DepositedAt.UTC(),
			LockDays:     rec.LockDays,
		})
	}

	for wallet, units := range doc.Earnings {
		pf.earnings[strings.ToLower(wallet)] = units
	}
	return pf, nil
}

func (r vaultRecord) toVault() (model.Vault, error) {
	chain, err := model.ParseChain(r.Chain)
	if err != nil {
		return model.Vault{}, err
	}
	if r.Address == "" {
		return model.Vault{}, fmt.Errorf("address is required")
	}
	active := true
	if r.Active != nil {
		active = *r.Active
	}

	vault := model.Vault{Address: r.Address, Chain: chain, Active: active}
	switch model.VaultKind(strings.ToLower(r.Kind)) {
	case model.VaultKindSingle:
		if r.AssetAddress == "" {
			return model.Vault{}, fmt.Errorf("single vault %s needs asset_address", r.Address)
		}
		vault.Descriptor = model.SingleToken{AssetAddress: r.AssetAddress, Decimals: r.Decimals}
	case model.VaultKindLP:
		if r.LpAddress == "" {
			return model.Vault{}, fmt.Errorf("lp vault %s needs lp_address", r.Address)
		}
		vault.Descriptor = model.LpToken{LpAddress: r.LpAddress, Token0: r.Token0, Token1: r.Token1, Decimals: r.Decimals}
	default:
		return model.Vault{}, fmt.Errorf("unknown vault kind %q", r.Kind)
	}
	return vault, nil
}

// ActiveVaults returns the vaults marked active.
func (p *PositionsFile) ActiveVaults(_ context.Context) ([]model.Vault, error) {
	out := make([]model.Vault, 0, len(p.vaults))
	for _, v := range p.vaults {
		if v.Active {
			out = append(out, v)
		}
	}
	return out, nil
}

// Tranches returns every tranche owned by wallet.
func (p *PositionsFile) Tranches(_ context.Context, wallet string) ([]model.DepositTranche, error) {
	var out []model.DepositTranche
	for _, t := range p.tranches {
		if strings.EqualFold(t.Wallet, wallet) {
			out = append(out, t)
		}
	}
	return out, nil
}

// HistoricalEarnings returns recorded earned units, or ErrNoEarnings.
func (p *PositionsFile) HistoricalEarnings(_ context.Context, wallet string) (uint64, error) {
	units, ok := p.earnings[strings.ToLower(wallet)]
	if !ok {
		return 0, fmt.Errorf("wallet %s: %w", wallet, ErrNoEarnings)
	}
	return units, nil
}
