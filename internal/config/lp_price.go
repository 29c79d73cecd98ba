package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// LpPriceConfig holds configuration for the lp-price command.
type LpPriceConfig struct {
	Common
	LP    string
	Chain string
	Out   string
}

// LoadLpPrice merges config file, environment variables, and flags into LpPriceConfig.
func LoadLpPrice(cfgFile string, flags *pflag.FlagSet) (LpPriceConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"chain": "ethereum",
	})
	if err != nil {
		return LpPriceConfig{}, err
	}
	common, err := loadCommon(v)
	if err != nil {
		return LpPriceConfig{}, err
	}

	cfg := LpPriceConfig{
		Common: common,
		LP:     v.GetString("lp"),
		Chain:  v.GetString("chain"),
		Out:    v.GetString("out"),
	}
	if cfg.LP == "" {
		return LpPriceConfig{}, fmt.Errorf("lp address is required")
	}
	return cfg, nil
}
