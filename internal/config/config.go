package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vaultScope/internal/model"
)

// Common holds settings shared by every command.
type Common struct {
	RPC             map[model.Chain]string
	PriceURL        string
	PriceRPS        float64
	PriceTimeout    time.Duration
	PriceStaleAfter time.Duration
	PriceTTL        time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	MaxRetries      int
	RetryBackoff    time.Duration
	MetricsFile     string
	LogLevel        string
}

// newViper merges config file, environment variables, and flags.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("VALUATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("price-url", "https://coins.llama.fi")
	v.SetDefault("price-rps", 5.0)
	v.SetDefault("price-timeout", 10*time.Second)
	v.SetDefault("price-stale-after", time.Hour)
	v.SetDefault("price-ttl", 300*time.Second)
	v.SetDefault("redis-db", 0)
	v.SetDefault("max-retries", 3)
	v.SetDefault("retry-backoff", 250*time.Millisecond)
	v.SetDefault("log-level", "info")
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func loadCommon(v *viper.Viper) (Common, error) {
	rpc, err := parseRPCMap(getStringMap(v, "rpc"))
	if err != nil {
		return Common{}, err
	}
	return Common{
		RPC:             rpc,
		PriceURL:        v.GetString("price-url"),
		PriceRPS:        v.GetFloat64("price-rps"),
		PriceTimeout:    v.GetDuration("price-timeout"),
		PriceStaleAfter: v.GetDuration("price-stale-after"),
		PriceTTL:        v.GetDuration("price-ttl"),
		RedisAddr:       v.GetString("redis-addr"),
		RedisPassword:   v.GetString("redis-password"),
		RedisDB:         v.GetInt("redis-db"),
		MaxRetries:      v.GetInt("max-retries"),
		RetryBackoff:    v.GetDuration("retry-backoff"),
		MetricsFile:     v.GetString("metrics-file"),
		LogLevel:        v.GetString("log-level"),
	}, nil
}

func parseRPCMap(raw map[string]string) (map[model.Chain]string, error) {
	out := make(map[model.Chain]string, len(raw))
	for key, url := range raw {
		chain, err := model.ParseChain(key)
		if err != nil {
			return nil, fmt.Errorf("rpc: %w", err)
		}
		out[chain] = url
	}
	return out, nil
}

func getStringMap(v *viper.Viper, key string) map[string]string {
	if !v.IsSet(key) {
		return map[string]string{}
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case map[string]string:
		return typed
	case map[string]interface{}:
		out := make(map[string]string, len(typed))
		for k, v := range typed {
			out[k] = fmt.Sprintf("%v", v)
		}
		return out
	case string:
		return parseStringMap(typed)
	default:
		return map[string]string{}
	}
}

func parseStringMap(input string) map[string]string {
	out := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return out
	}
	pairs := strings.Split(input, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (uint64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		val, err := strconv.ParseUint(input, 10, 64)
		if err != nil {
			return 0, err
		}
		return val, nil
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return uint64(tm.Unix()), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
