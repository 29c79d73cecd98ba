package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"vaultScope/internal/config"
	"vaultScope/internal/reward"
	"vaultScope/internal/storage"
	"vaultScope/internal/storage/postgres"
	"vaultScope/internal/valuation"
)

func runValuate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadValuate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer writeMetrics(cfg.MetricsFile, logger)

	rates, err := reward.ParseRateTable(cfg.BaseRates)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		store *postgres.Store
		sinks []storage.Sink
		deps  = valuation.Deps{Rates: rates}
	)
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if cfg.EnsureSchema {
			if err := store.EnsureSchema(ctx); err != nil {
				return err
			}
		}
		sinks = append(sinks, store)
	}

	if cfg.Positions != "" {
		positions, err := storage.LoadPositionsFile(cfg.Positions)
		if err != nil {
			return err
		}
		deps.Vaults, deps.Tranches, deps.Earnings = positions, positions, positions
	} else {
		deps.Vaults, deps.Tranches, deps.Earnings = store, store, store
	}
	if cfg.Out != "" {
		sinks = append(sinks, storage.NewJsonlStorage(cfg.Out))
	}

	up, err := dialUpstreams(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer up.Close()
	deps.Tokens, deps.Lps = up.tokens, up.lps

	pipeline, err := valuation.NewPipeline(valuation.Config{Concurrency: cfg.Concurrency}, deps, logger)
	if err != nil {
		return err
	}

	logger.Info("valuate start",
		zap.String("wallet", cfg.Wallet),
		zap.String("positions", cfg.Positions),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.String("out", cfg.Out),
		zap.Time("at", cfg.At),
		zap.Int("concurrency", cfg.Concurrency),
	)

	report, err := pipeline.Run(ctx, cfg.Wallet, cfg.At)
	if err != nil {
		return err
	}

	for _, sink := range sinks {
		if err := sink.PutReport(ctx, report); err != nil {
			return err
		}
		if lps := report.LpPrices(); len(lps) > 0 {
			if err := sink.PutLpPrices(ctx, lps); err != nil {
				return err
			}
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
