package postgres

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vaultScope/internal/model"
	"vaultScope/internal/valuation"
)

//go:embed schema.sql
var schemaSQL string

// ErrNoEarnings is returned when a wallet has no earnings row.
var ErrNoEarnings = errors.New("no earnings history")

// Store provides Postgres-backed positions and snapshot persistence.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// vaultRow mirrors one row of the vaults table.
type vaultRow struct {
	Chain         string
	Address       string
	Kind          string
	AssetAddress  string
	LpAddress     string
	Token0        string
	Token1        string
	ShareDecimals int16
	Active        bool
}

func (r vaultRow) toVault() (model.Vault, error) {
	chain, err := model.ParseChain(r.Chain)
	if err != nil {
		return model.Vault{}, err
	}
	if r.ShareDecimals < 0 || r.ShareDecimals > 255 {
		return model.Vault{}, fmt.Errorf("vault %s: share decimals out of range: %d", r.Address, r.ShareDecimals)
	}
	decimals := uint8(r.ShareDecimals)

	vault := model.Vault{Address: r.Address, Chain: chain, Active: r.Active}
	switch model.VaultKind(r.Kind) {
	case model.VaultKindSingle:
		vault.Descriptor = model.SingleToken{AssetAddress: r.AssetAddress, Decimals: decimals}
	case model.VaultKindLP:
		vault.Descriptor = model.LpToken{LpAddress: r.LpAddress, Token0: r.Token0, Token1: r.Token1, Decimals: decimals}
	default:
		return model.Vault{}, fmt.Errorf("vault %s: unknown kind %q", r.Address, r.Kind)
	}
	return vault, nil
}

// ActiveVaults loads every active vault.
func (s *Store) ActiveVaults(ctx context.Context) ([]model.Vault, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT chain, vault_address, kind,
			COALESCE(asset_address, ''), COALESCE(lp_address, ''),
			COALESCE(token0, ''), COALESCE(token1, ''),
			share_decimals, active
		FROM vaults
		WHERE active
		ORDER BY chain, vault_address
	`)
	if err != nil {
		return nil, fmt.Errorf("query vaults: %w", err)
	}
	defer rows.Close()

	var vaults []model.Vault
	for rows.Next() {
		var r vaultRow
		if err := rows.Scan(&r.Chain, &r.Address, &r.Kind, &r.AssetAddress, &r.LpAddress, &r.Token0, &r.Token1, &r.ShareDecimals, &r.Active); err != nil {
			return nil, fmt.Errorf("scan vault: %w", err)
		}
		vault, err := r.toVault()
		if err != nil {
			return nil, err
		}
		vaults = append(vaults, vault)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vaults: %w", err)
	}
	return vaults, nil
}

// Tranches loads a wallet's deposit tranches with share decimals from the vault.
func (s *Store) Tranches(ctx context.Context, wallet string) ([]model.DepositTranche, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT t.tranche_id, t.vault_address, t.wallet, t.shares_raw::text,
			COALESCE(v.share_decimals, 18), t.deposited_at, t.lock_days
		FROM deposit_tranches t
		LEFT JOIN vaults v ON v.chain = t.chain AND lower(v.vault_address) = lower(t.vault_address)
		WHERE lower(t.wallet) = lower($1)
		ORDER BY t.deposited_at, t.tranche_id
	`, wallet)
	if err != nil {
		return nil, fmt.Errorf("query tranches: %w", err)
	}
	defer rows.Close()

	var tranches []model.DepositTranche
	for rows.Next() {
		var (
			t         model.DepositTranche
			raw       string
			decimals  int16
			deposited time.Time
			lockDays  int32
		)
		if err := rows.Scan(&t.ID, &t.VaultAddress, &t.Wallet, &raw, &decimals, &deposited, &lockDays); err != nil {
			return nil, fmt.Errorf("scan tranche: %w", err)
		}
		if decimals < 0 || decimals > 255 || lockDays < 0 {
			return nil, fmt.Errorf("tranche %s: invalid decimals %d or lock days %d", t.ID, decimals, lockDays)
		}
		t.Shares = model.NewTokenAmount(raw, uint8(decimals))
		t.DepositedAt = deposited.UTC()
		t.LockDays = uint32(lockDays)
		tranches = append(tranches, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tranches: %w", err)
	}
	return tranches, nil
}

// HistoricalEarnings returns the recorded earned units for wallet.
func (s *Store) HistoricalEarnings(ctx context.Context, wallet string) (uint64, error) {
	var raw string
	row := s.pool.QueryRow(ctx, `SELECT earned_units::text FROM wallet_earnings WHERE lower(wallet) = lower($1)`, wallet)
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("wallet %s: %w", wallet, ErrNoEarnings)
		}
		return 0, fmt.Errorf("query earnings: %w", err)
	}
	units, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse earned units %q: %w", raw, err)
	}
	return units, nil
}

// PutLpPrices upserts LP price snapshots keyed by chain, pair, and block.
func (s *Store) PutLpPrices(ctx context.Context, prices []model.LpPriceResult) error {
	if len(prices) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range prices {
		batch.Queue(`
			INSERT INTO lp_price_snapshots (
				chain, lp_address, block_number, usd_price, method,
				reserve0_usd, reserve1_usd, total_liquidity_usd, token0_weight, token1_weight,
				observed_at, created_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
			ON CONFLICT (chain, lp_address, block_number)
			DO UPDATE SET
				usd_price = EXCLUDED.usd_price,
				method = EXCLUDED.method,
				reserve0_usd = EXCLUDED.reserve0_usd,
				reserve1_usd = EXCLUDED.reserve1_usd,
				total_liquidity_usd = EXCLUDED.total_liquidity_usd,
				token0_weight = EXCLUDED.token0_weight,
				token1_weight = EXCLUDED.token1_weight,
				observed_at = EXCLUDED.observed_at
		`,
			p.Chain.String(),
			strings.ToLower(p.LpAddress),
			int64(p.BlockNumber),
			p.USDPrice,
			string(p.Method),
			p.Reserve0USD,
			p.Reserve1USD,
			p.TotalLiquidityUSD,
			p.Token0Weight,
			p.Token1Weight,
			p.ObservedAt,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range prices {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("upsert lp price: %w", err)
		}
	}
	return nil
}

// PutReport stores a valuation report with its wallet summary columns.
func (s *Store) PutReport(ctx context.Context, report valuation.Report) error {
	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	sum := report.Summary
	_, err = s.pool.Exec(ctx, `
		INSERT INTO valuation_reports (
			run_id, wallet, generated_at, portfolio_usd, total_positions,
			total_earned_units, earnings_source, unpriced_vaults, report, created_at
		) VALUES ($1, $2, $3, $4::text::numeric, $5, $6::text::numeric, $7, $8, $9, now())
		ON CONFLICT (run_id) DO NOTHING
	`,
		report.RunID.String(),
		strings.ToLower(report.Wallet),
		report.GeneratedAt,
		sum.PortfolioUSD.String(),
		sum.TotalPositions,
		strconv.FormatUint(sum.TotalEarnedUnits, 10),
		sum.EarningsSource,
		sum.UnpricedVaults,
		body,
	)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}
