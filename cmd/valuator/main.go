package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "valuator",
		Short:        "Vault position valuation and LP fair pricing",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	lpPriceCmd := &cobra.Command{
		Use:   "lp-price",
		Short: "Compute the fair USD price of one LP token",
		RunE:  runLpPrice,
	}

	lpPriceCmd.Flags().String("lp", "", "LP pair address")
	lpPriceCmd.Flags().String("chain", "ethereum", "chain (ethereum, base, arbitrum, polygon)")
	lpPriceCmd.Flags().String("out", "", "optional JSONL file to append the result to")
	addUpstreamFlags(lpPriceCmd)

	root.AddCommand(lpPriceCmd)

	valuateCmd := &cobra.Command{
		Use:   "valuate",
		Short: "Value a wallet's vault positions and accrued rewards",
		RunE:  runValuate,
	}

	valuateCmd.Flags().String("wallet", "", "wallet address")
	valuateCmd.Flags().String("positions", "", "YAML/JSON positions file")
	valuateCmd.Flags().String("pg-dsn", "", "Postgres DSN for vaults, tranches, and earnings")
	valuateCmd.Flags().Bool("ensure-schema", false, "create Postgres tables before running")
	valuateCmd.Flags().String("out", "", "optional JSONL file to append the report to")
	valuateCmd.Flags().String("at", "", "valuation time (unix seconds or RFC3339), default now")
	valuateCmd.Flags().String("base-rate", "single=80,lp=120", "shard base rate per vault kind (comma-separated kind=rate)")
	valuateCmd.Flags().Int("concurrency", 8, "vaults valued in parallel")
	addUpstreamFlags(valuateCmd)

	root.AddCommand(valuateCmd)

	multiplierCmd := &cobra.Command{
		Use:   "multiplier",
		Short: "Print the lock multiplier and optional accrual for a deposit",
		RunE:  runMultiplier,
	}

	multiplierCmd.Flags().Uint32("lock-days", 0, "lock duration in days")
	multiplierCmd.Flags().String("kind", "single", "vault kind (single, lp)")
	multiplierCmd.Flags().String("staked-usd", "", "staked USD value to accrue rewards for")
	multiplierCmd.Flags().String("deposited-at", "", "deposit time (unix seconds or RFC3339)")
	multiplierCmd.Flags().String("at", "", "evaluation time (unix seconds or RFC3339), default now")
	multiplierCmd.Flags().String("base-rate", "single=80,lp=120", "shard base rate per vault kind (comma-separated kind=rate)")

	root.AddCommand(multiplierCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addUpstreamFlags(cmd *cobra.Command) {
	cmd.Flags().String("rpc", "", "RPC URLs per chain (comma-separated chain=url)")
	cmd.Flags().String("price-url", "https://coins.llama.fi", "DeFiLlama coins API base URL")
	cmd.Flags().Float64("price-rps", 5, "price API requests per second")
	cmd.Flags().Duration("price-timeout", 10*time.Second, "price API request timeout")
	cmd.Flags().Duration("price-stale-after", time.Hour, "age after which a quote is flagged stale")
	cmd.Flags().Duration("price-ttl", 300*time.Second, "price cache TTL")
	cmd.Flags().String("redis-addr", "", "Redis address for a shared price cache (in-memory when empty)")
	cmd.Flags().String("redis-password", "", "Redis password")
	cmd.Flags().Int("redis-db", 0, "Redis database")
	cmd.Flags().Int("max-retries", 3, "maximum retry attempts per upstream call")
	cmd.Flags().Duration("retry-backoff", 250*time.Millisecond, "initial retry backoff")
	cmd.Flags().String("metrics-file", "", "write Prometheus metrics to this textfile on exit")
	cmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
