package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vaultScope/internal/config"
	"vaultScope/internal/model"
	"vaultScope/internal/reward"
)

type multiplierOutput struct {
	LockDays          uint32                     `json:"lock_days"`
	Multiplier        decimal.Decimal            `json:"multiplier"`
	Accrual           *model.RewardAccrualResult `json:"accrual,omitempty"`
	RemainingLockDays *uint32                    `json:"remaining_lock_days,omitempty"`
	Unlocked          *bool                      `json:"unlocked,omitempty"`
}

func runMultiplier(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadMultiplier(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	out, err := buildMultiplierOutput(cfg)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func buildMultiplierOutput(cfg config.MultiplierConfig) (multiplierOutput, error) {
	out := multiplierOutput{
		LockDays:   cfg.LockDays,
		Multiplier: reward.MultiplierDecimal(cfg.LockDays),
	}

	if cfg.StakedUSD != "" {
		staked, err := decimal.NewFromString(cfg.StakedUSD)
		if err != nil {
			return multiplierOutput{}, fmt.Errorf("parse staked-usd: %w", err)
		}
		rates, err := reward.ParseRateTable(cfg.BaseRates)
		if err != nil {
			return multiplierOutput{}, err
		}
		accrual, err := reward.Accrue(staked, model.VaultKind(strings.ToLower(cfg.Kind)), cfg.LockDays, rates)
		if err != nil {
			return multiplierOutput{}, err
		}
		out.Accrual = &accrual
	}

	if !cfg.DepositedAt.IsZero() {
		at := cfg.At
		if at.IsZero() {
			at = time.Now().UTC()
		}
		remaining := reward.RemainingLockDays(cfg.DepositedAt, cfg.LockDays, at)
		unlocked := reward.IsUnlocked(cfg.DepositedAt, cfg.LockDays, at)
		out.RemainingLockDays = &remaining
		out.Unlocked = &unlocked
	}
	return out, nil
}
