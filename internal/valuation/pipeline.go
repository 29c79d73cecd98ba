package valuation

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"vaultScope/internal/amount"
	"vaultScope/internal/metrics"
	"vaultScope/internal/model"
	"vaultScope/internal/pricing"
	"vaultScope/internal/reward"
)

const defaultConcurrency = 8

// VaultSource lists the vaults that can hold positions.
type VaultSource interface {
	ActiveVaults(ctx context.Context) ([]model.Vault, error)
}

// TrancheSource loads a wallet's deposit tranches across all vaults.
type TrancheSource interface {
	Tranches(ctx context.Context, wallet string) ([]model.DepositTranche, error)
}

// EarningsSource reports the wallet's recorded lifetime earned units.
type EarningsSource interface {
	HistoricalEarnings(ctx context.Context, wallet string) (uint64, error)
}

// TokenPricer quotes single-asset vault assets.
type TokenPricer interface {
	TokenPrice(ctx context.Context, chain model.Chain, token string) (model.TokenPrice, error)
}

// LpPricer prices LP vault shares.
type LpPricer interface {
	Price(ctx context.Context, lpAddress, chain string) (model.LpPriceResult, error)
}

// Config controls pipeline behavior.
type Config struct {
	// Concurrency bounds the per-vault fan-out. Zero means 8.
	Concurrency int
}

// Pipeline values a wallet's vault positions.
type Pipeline struct {
	cfg      Config
	vaults   VaultSource
	tranches TrancheSource
	earnings EarningsSource
	tokens   TokenPricer
	lps      LpPricer
	rates    reward.BaseRateSource
	logger   *zap.Logger
	newID    func() uuid.UUID
}

// Deps groups the pipeline collaborators. Earnings may be nil.
type Deps struct {
	Vaults   VaultSource
	Tranches TrancheSource
	Earnings EarningsSource
	Tokens   TokenPricer
	Lps      LpPricer
	Rates    reward.BaseRateSource
}

func NewPipeline(cfg Config, deps Deps, logger *zap.Logger) (*Pipeline, error) {
	if deps.Vaults == nil || deps.Tranches == nil {
		return nil, fmt.Errorf("vault and tranche sources are required")
	}
	if deps.Tokens == nil || deps.Lps == nil {
		return nil, fmt.Errorf("token and lp pricers are required")
	}
	if deps.Rates == nil {
		return nil, fmt.Errorf("base rate source is required")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		cfg:      cfg,
		vaults:   deps.Vaults,
		tranches: deps.Tranches,
		earnings: deps.Earnings,
		tokens:   deps.Tokens,
		lps:      deps.Lps,
		rates:    deps.Rates,
		logger:   logger,
		newID:    uuid.New,
	}, nil
}

type vaultWork struct {
	vault    model.Vault
	tranches []model.DepositTranche
}

// Run values every active position of wallet as of now. Vault and tranche
// loading failures abort the run; a pricing failure only zeroes that vault.
func (p *Pipeline) Run(ctx context.Context, wallet string, now time.Time) (Report, error) {
	if err := pricing.ValidateAddress("wallet", wallet); err != nil {
		return Report{}, err
	}
	start := time.Now()
	defer func() {
		metrics.ObservePipelineRun(time.Since(start).Seconds())
	}()

	vaults, err := p.vaults.ActiveVaults(ctx)
	if err != nil {
		return Report{}, model.Upstream("wallet "+strings.ToLower(wallet), "active vaults", err)
	}
	tranches, err := p.tranches.Tranches(ctx, wallet)
	if err != nil {
		return Report{}, model.Upstream("wallet "+strings.ToLower(wallet), "tranches", err)
	}

	work := p.plan(vaults, tranches)
	results := make([]VaultSummary, len(work))

	var history uint64
	historyOK := false

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency + 1)
	if p.earnings != nil {
		g.Go(func() error {
			units, err := p.earnings.HistoricalEarnings(ctx, wallet)
			if err != nil {
				p.logger.Warn("earnings history unavailable, deriving from active tranches",
					zap.String("wallet", wallet), zap.Error(err))
				return nil
			}
			history, historyOK = units, true
			return nil
		})
	}
	for i, w := range work {
		i, w := i, w
		g.Go(func() error {
			results[i] = p.valueVault(ctx, w, now)
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(results, func(i, j int) bool {
		return strings.ToLower(results[i].VaultAddress) < strings.ToLower(results[j].VaultAddress)
	})

	summary := Fold(wallet, results)
	if historyOK {
		summary.TotalEarnedUnits = history
		summary.EarningsSource = EarningsSourceHistory
	}

	p.logger.Info("wallet valued",
		zap.String("wallet", wallet),
		zap.Int("vaults", len(results)),
		zap.Int("positions", summary.TotalPositions),
		zap.Int("unpriced_vaults", summary.UnpricedVaults),
		zap.String("portfolio_usd", summary.PortfolioUSD.StringFixed(2)),
		zap.String("earnings_source", summary.EarningsSource),
	)

	return Report{
		RunID:       p.newID(),
		Wallet:      wallet,
		GeneratedAt: now.UTC(),
		Vaults:      results,
		Summary:     summary,
	}, nil
}

// plan groups the wallet's active tranches under the active vault they
// belong to. Vaults without an active tranche are not valued.
func (p *Pipeline) plan(vaults []model.Vault, tranches []model.DepositTranche) []vaultWork {
	byVault := make(map[string][]model.DepositTranche, len(vaults))
	for _, t := range tranches {
		if !t.Active() {
			continue
		}
		key := strings.ToLower(t.VaultAddress)
		byVault[key] = append(byVault[key], t)
	}

	work := make([]vaultWork, 0, len(byVault))
	seen := make(map[string]struct{}, len(vaults))
	for _, v := range vaults {
		key := strings.ToLower(v.Address)
		if !v.Active || v.Descriptor == nil {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if ts := byVault[key]; len(ts) > 0 {
			work = append(work, vaultWork{vault: v, tranches: ts})
		}
	}

	for key, ts := range byVault {
		if _, ok := seen[key]; !ok {
			p.logger.Warn("tranches reference unknown or inactive vault",
				zap.String("vault", key), zap.Int("tranches", len(ts)))
		}
	}
	return work
}

func (p *Pipeline) valueVault(ctx context.Context, w vaultWork, now time.Time) VaultSummary {
	vault := w.vault
	summary := VaultSummary{
		VaultAddress:   vault.Address,
		Chain:          vault.Chain,
		Kind:           vault.Kind(),
		TotalStakedUSD: decimal.Zero,
	}

	price, err := p.unitPrice(ctx, vault, &summary)
	if err == nil && (math.IsNaN(price) || math.IsInf(price, 0) || price < 0) {
		err = fmt.Errorf("unusable unit price %v", price)
	}
	if err != nil {
		err = model.Upstream("vault "+strings.ToLower(vault.Address), "unit price", err)
		summary.PriceError = err.Error()
		metrics.VaultPricingFailed(string(summary.Kind))
		p.logger.Warn("vault priced at zero",
			zap.String("vault", vault.Address),
			zap.String("chain", vault.Chain.String()),
			zap.String("kind", string(summary.Kind)),
			zap.Error(err),
		)
		price = 0
	}
	summary.UnitPriceUSD = price
	unitPrice := decimal.NewFromFloat(price)

	summary.Tranches = make([]TrancheValuation, 0, len(w.tranches))
	for _, t := range w.tranches {
		tv := p.valueTranche(t, summary.Kind, unitPrice, now)
		summary.Tranches = append(summary.Tranches, tv)
		summary.TotalStakedUSD = summary.TotalStakedUSD.Add(tv.StakedUSD)
		summary.TotalEarnedUnits = addUnits(summary.TotalEarnedUnits, tv.Reward.EarnedUnits)
	}
	summary.PositionCount = len(summary.Tranches)
	return summary
}

func (p *Pipeline) unitPrice(ctx context.Context, vault model.Vault, summary *VaultSummary) (float64, error) {
	switch d := vault.Descriptor.(type) {
	case model.SingleToken:
		quote, err := p.tokens.TokenPrice(ctx, vault.Chain, d.AssetAddress)
		if err != nil {
			return 0, err
		}
		summary.PriceMethod = PriceMethodFeed
		return quote.USDPrice, nil
	case model.LpToken:
		result, err := p.lps.Price(ctx, d.LpAddress, vault.Chain.String())
		if err != nil {
			return 0, err
		}
		summary.PriceMethod = string(result.Method)
		summary.LpPrice = &result
		return result.USDPrice, nil
	default:
		return 0, fmt.Errorf("unknown vault descriptor %T", vault.Descriptor)
	}
}

func (p *Pipeline) valueTranche(t model.DepositTranche, kind model.VaultKind, unitPrice decimal.Decimal, now time.Time) TrancheValuation {
	tv := TrancheValuation{
		TrancheID:         t.ID,
		Shares:            t.Shares,
		DisplayAmount:     amount.Display(t.Shares),
		StakedUSD:         decimal.Zero,
		DepositedAt:       t.DepositedAt,
		LockDays:          t.LockDays,
		RemainingLockDays: reward.RemainingLockDays(t.DepositedAt, t.LockDays, now),
	}
	tv.Unlocked = tv.RemainingLockDays == 0

	shares, err := amount.Decimal(t.Shares)
	if err != nil {
		p.logger.Warn("malformed tranche shares", zap.String("tranche", t.ID), zap.String("raw", t.Shares.Raw), zap.Error(err))
		shares = decimal.Zero
	}
	tv.StakedUSD = shares.Mul(unitPrice)

	accrual, err := reward.Accrue(tv.StakedUSD, kind, t.LockDays, p.rates)
	if err != nil {
		p.logger.Warn("reward accrual failed", zap.String("tranche", t.ID), zap.Error(err))
		accrual = model.RewardAccrualResult{MultiplierApplied: reward.Multiplier(t.LockDays)}
	}
	tv.Reward = accrual
	return tv
}

// Fold reduces vault summaries into a wallet summary with derived earnings.
func Fold(wallet string, vaults []VaultSummary) WalletSummary {
	summary := WalletSummary{
		Wallet:         wallet,
		PortfolioUSD:   decimal.Zero,
		EarningsSource: EarningsSourceDerived,
	}
	for _, v := range vaults {
		summary.PortfolioUSD = summary.PortfolioUSD.Add(v.TotalStakedUSD)
		summary.TotalPositions += v.PositionCount
		summary.DerivedEarnedUnits = addUnits(summary.DerivedEarnedUnits, v.TotalEarnedUnits)
		if !v.Priced() {
			summary.UnpricedVaults++
		}
	}
	summary.TotalEarnedUnits = summary.DerivedEarnedUnits
	return summary
}

func addUnits(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
