package config

import (
	"fmt"
	"math"
	"time"

	"github.com/spf13/pflag"
)

// MultiplierConfig holds configuration for the multiplier command.
type MultiplierConfig struct {
	LockDays    uint32
	Kind        string
	StakedUSD   string
	DepositedAt time.Time
	At          time.Time
	BaseRates   map[string]string
}

// LoadMultiplier merges config file, environment variables, and flags into MultiplierConfig.
func LoadMultiplier(cfgFile string, flags *pflag.FlagSet) (MultiplierConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"base-rate": "single=80,lp=120",
		"kind":      "single",
	})
	if err != nil {
		return MultiplierConfig{}, err
	}

	lockDays := v.GetInt64("lock-days")
	if lockDays < 0 || lockDays > math.MaxUint32 {
		return MultiplierConfig{}, fmt.Errorf("lock days out of range: %d", lockDays)
	}

	cfg := MultiplierConfig{
		LockDays:  uint32(lockDays),
		Kind:      v.GetString("kind"),
		StakedUSD: v.GetString("staked-usd"),
		BaseRates: getStringMap(v, "base-rate"),
		At:        time.Now().UTC(),
	}

	if raw := v.GetString("deposited-at"); raw != "" {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return MultiplierConfig{}, fmt.Errorf("parse deposited-at: %w", err)
		}
		cfg.DepositedAt = time.Unix(int64(ts), 0).UTC()
	}
	if raw := v.GetString("at"); raw != "" {
		ts, err := ParseTimestamp(raw)
		if err != nil {
			return MultiplierConfig{}, fmt.Errorf("parse at: %w", err)
		}
		cfg.At = time.Unix(int64(ts), 0).UTC()
	}
	return cfg, nil
}
