package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"vaultScope/internal/model"
	"vaultScope/internal/valuation"
)

const positionsYAML = `
vaults:
  - address: "0xA000000000000000000000000000000000000001"
    chain: ethereum
    kind: single
    asset_address: "0x1000000000000000000000000000000000000001"
    decimals: 6
  - address: "0xb000000000000000000000000000000000000002"
    chain: Base
    kind: lp
    lp_address: "0x2000000000000000000000000000000000000002"
    token0: "0x3000000000000000000000000000000000000003"
    token1: "0x4000000000000000000000000000000000000004"
    decimals: 18
  - address: "0xc000000000000000000000000000000000000003"
    chain: polygon
    kind: single
    active: false
    asset_address: "0x1000000000000000000000000000000000000001"
    decimals: 18
tranches:
  - id: t1
    vault: "0xa000000000000000000000000000000000000001"
    wallet: "0x9999999999999999999999999999999999999999"
    shares: "500000000"
    deposited_at: 2024-01-01T00:00:00Z
    lock_days: 30
  - vault: "0xb000000000000000000000000000000000000002"
    wallet: "0x9999999999999999999999999999999999999999"
    shares: "2000000000000000000"
    deposited_at: 2024-02-01T12:00:00Z
  - id: other
    vault: "0xb000000000000000000000000000000000000002"
    wallet: "0x8888888888888888888888888888888888888888"
    shares: "1"
    deposited_at: 2024-02-01T12:00:00Z
earnings:
  "0x9999999999999999999999999999999999999999": 1234
`

func TestParsePositions(t *testing.T) {
	ctx := context.Background()
	pf, err := ParsePositions([]byte(positionsYAML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	vaults, _ := pf.ActiveVaults(ctx)
	if len(vaults) != 2 {
		t.Fatalf("active vaults = %d, want 2", len(vaults))
	}
	if vaults[1].Chain != model.ChainBase || vaults[1].Kind() != model.VaultKindLP {
		t.Fatalf("lp vault = %+v", vaults[1])
	}
	lp, ok := vaults[1].Descriptor.(model.LpToken)
	if !ok || lp.Token1 != "0x4000000000000000000000000000000000000004" {
		t.Fatalf("lp descriptor = %#v", vaults[1].Descriptor)
	}

	tranches, _ := pf.Tranches(ctx, "0x9999999999999999999999999999999999999999")
	if len(tranches) != 2 {
		t.Fatalf("tranches = %d, want 2", len(tranches))
	}
	if tranches[0].Shares != model.NewTokenAmount("500000000", 6) {
		t.Fatalf("shares take the vault decimals: %+v", tranches[0].Shares)
	}
	if !tranches[0].DepositedAt.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("deposited at = %s", tranches[0].DepositedAt)
	}
	if tranches[1].ID == "" || tranches[1].LockDays != 0 {
		t.Fatalf("second tranche = %+v", tranches[1])
	}

	units, err := pf.HistoricalEarnings(ctx, "0x9999999999999999999999999999999999999999")
	if err != nil || units != 1234 {
		t.Fatalf("earnings = %d, %v", units, err)
	}
	if _, err := pf.HistoricalEarnings(ctx, "0x8888888888888888888888888888888888888888"); !errors.Is(err, ErrNoEarnings) {
		t.Fatalf("expected ErrNoEarnings, got %v", err)
	}
}

func TestParsePositionsRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"unknown chain": "vaults:\n  - address: \"0x1\"\n    chain: solana\n    kind: single\n    asset_address: \"0x2\"\n",
		"unknown kind":  "vaults:\n  - address: \"0x1\"\n    chain: base\n    kind: vesting\n",
		"missing lp":    "vaults:\n  - address: \"0x1\"\n    chain: base\n    kind: lp\n",
		"orphan":        "tranches:\n  - vault: \"0x1\"\n    wallet: \"0x2\"\n    shares: \"1\"\n",
	}
	for name, doc := range cases {
		if _, err := ParsePositions([]byte(doc)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestJsonlStorage(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "out", "reports.jsonl")
	sink := NewJsonlStorage(path)

	report := valuation.Report{
		RunID:  uuid.New(),
		Wallet: "0x9999999999999999999999999999999999999999",
		Summary: valuation.WalletSummary{
			PortfolioUSD:   decimal.RequireFromString("700.5"),
			TotalPositions: 3,
			EarningsSource: valuation.EarningsSourceDerived,
		},
	}
	if err := sink.PutReport(ctx, report); err != nil {
		t.Fatalf("put report: %v", err)
	}
	prices := []model.LpPriceResult{
		{LpAddress: "0x1", USDPrice: 244.95, Method: model.PriceMethodGeometric},
		{LpAddress: "0x2", Method: model.PriceMethodZero},
	}
	if err := sink.PutLpPrices(ctx, prices); err != nil {
		t.Fatalf("put lp prices: %v", err)
	}
	if err := sink.PutLpPrices(ctx, nil); err != nil {
		t.Fatalf("empty batch: %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()

	var lines [][]byte
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, append([]byte(nil), scanner.Bytes()...))
	}
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(lines))
	}

	var decoded valuation.Report
	if err := json.Unmarshal(lines[0], &decoded); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if decoded.RunID != report.RunID || !decoded.Summary.PortfolioUSD.Equal(report.Summary.PortfolioUSD) {
		t.Fatalf("report round trip = %+v", decoded)
	}

	var price model.LpPriceResult
	if err := json.Unmarshal(lines[2], &price); err != nil {
		t.Fatalf("decode price: %v", err)
	}
	if price.Method != model.PriceMethodZero {
		t.Fatalf("price = %+v", price)
	}
}
