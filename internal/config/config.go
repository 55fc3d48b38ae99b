package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL       string
	Address      string
	ABIPath      string
	PollInterval time.Duration
	Out          string
	PGDSN        string
	MetricsAddr  string
	LogLevel     string
}

// HistoryConfig extends Config with the replay range.
type HistoryConfig struct {
	Config

	FromBlock  uint64
	ToBlock    uint64
	BatchSize  uint64
	Checkpoint string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return Config{}, err
	}
	return fromViper(v), nil
}

// LoadHistory merges config file, environment variables, and flags into HistoryConfig.
func LoadHistory(cfgFile string, flags *pflag.FlagSet) (HistoryConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("batch-size", uint64(2000))
	})
	if err != nil {
		return HistoryConfig{}, err
	}

	cfg := HistoryConfig{
		Config:     fromViper(v),
		FromBlock:  v.GetUint64("from"),
		ToBlock:    v.GetUint64("to"),
		BatchSize:  v.GetUint64("batch-size"),
		Checkpoint: v.GetString("checkpoint"),
	}
	if cfg.ToBlock != 0 && cfg.ToBlock < cfg.FromBlock {
		return HistoryConfig{}, fmt.Errorf("to block %d is before from block %d", cfg.ToBlock, cfg.FromBlock)
	}
	return cfg, nil
}

// Validate checks the settings every command needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.Address == "" {
		return fmt.Errorf("contract address is required")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative")
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("COIN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("poll-interval", 4*time.Second)
	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
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
		v.SetConfigName("coinwatch")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func fromViper(v *viper.Viper) Config {
	return Config{
		RPCURL:       strings.TrimSpace(v.GetString("rpc")),
		Address:      strings.TrimSpace(v.GetString("address")),
		ABIPath:      v.GetString("abi"),
		PollInterval: v.GetDuration("poll-interval"),
		Out:          v.GetString("out"),
		PGDSN:        v.GetString("pg-dsn"),
		MetricsAddr:  v.GetString("metrics-addr"),
		LogLevel:     v.GetString("log-level"),
	}
}
