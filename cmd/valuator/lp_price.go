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
	"vaultScope/internal/model"
	"vaultScope/internal/pricing"
	"vaultScope/internal/storage"
)

func runLpPrice(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadLpPrice(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer writeMetrics(cfg.MetricsFile, logger)

	parsedChain, err := pricing.ValidateInput(cfg.LP, cfg.Chain)
	if err != nil {
		return err
	}
	if _, ok := cfg.RPC[parsedChain]; !ok {
		return fmt.Errorf("rpc url for %s is required", parsedChain)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	up, err := dialUpstreams(ctx, cfg.Common, logger)
	if err != nil {
		return err
	}
	defer up.Close()

	logger.Info("lp price start",
		zap.String("lp", cfg.LP),
		zap.String("chain", parsedChain.String()),
		zap.String("price_url", cfg.PriceURL),
		zap.Bool("redis", cfg.RedisAddr != ""),
	)

	result, err := up.lps.Price(ctx, cfg.LP, cfg.Chain)
	if err != nil {
		return err
	}

	if cfg.Out != "" {
		sink := storage.NewJsonlStorage(cfg.Out)
		if err := sink.PutLpPrices(ctx, []model.LpPriceResult{result}); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
