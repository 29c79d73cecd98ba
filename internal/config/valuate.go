package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

// ValuateConfig holds configuration for the valuate command.
type ValuateConfig struct {
	Common
	Wallet       string
	Positions    string
	PGDSN        string
	EnsureSchema bool
	Out          string
	At           time.Time
	BaseRates    map[string]string
	Concurrency  int
}

// LoadValuate merges config file, environment variables, and flags into ValuateConfig.
func LoadValuate(cfgFile string, flags *pflag.FlagSet) (ValuateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"base-rate":   "single=80,lp=120",
		"concurrency": 8,
	})
	if err != nil {
		return ValuateConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return ValuateConfig{}, err
	}

	cfg := ValuateConfig{
		Common:       common,
		Wallet:       v.GetString("wallet"),
		Positions:    v.GetString("positions"),
		PGDSN:        v.GetString("pg-dsn"),
		EnsureSchema: v.GetBool("ensure-schema"),
		Out:          v.GetString("out"),
		BaseRates:    getStringMap(v, "base-rate"),
		Concurrency:  v.GetInt("concurrency"),
		At:           time.Now().UTC(),
	}

	if raw := v.GetString("at"); raw != "" {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return ValuateConfig{}, fmt.Errorf("parse at: %w", err)
		}
		cfg.At = time.Unix(int64(ts), 0).UTC()
	}

	if cfg.Wallet == "" {
		return ValuateConfig{}, fmt.Errorf("wallet is required")
	}
	if cfg.Positions == "" && cfg.PGDSN == "" {
		return ValuateConfig{}, fmt.Errorf("one of positions or pg-dsn is required")
	}
	return cfg, nil
}
