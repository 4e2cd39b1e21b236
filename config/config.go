// Package config loads host-side settings for the bridge and the
// allocation runtime from a config file and environment variables.
package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/Luvion1/fax-native/gc"
)

// Config is the host-side configuration for the bridge and the
// allocation runtime. Values come from an optional config file plus
// FAX_NATIVE_-prefixed environment variables.
type Config struct {
	LogLevel string   `mapstructure:"log_level"`
	Codec    Codec    `mapstructure:"codec"`
	GC       GCConfig `mapstructure:"gc"`
}

// Codec toggles the serialization codecs. Disabling one makes its
// bridge operations report "not yet implemented", matching a build
// where that codec has not shipped.
type Codec struct {
	Tokens bool `mapstructure:"tokens"`
	Module bool `mapstructure:"module"`
}

// GCConfig tunes the allocation runtime.
type GCConfig struct {
	// Total heap budget in bytes.
	HeapLimit uint64 `mapstructure:"heap_limit"`
	// Young bytes allowed before an automatic minor collection.
	YoungBudget uint64 `mapstructure:"young_budget"`
	// Minor collections a rooted object survives before promotion.
	TenureThreshold uint8 `mapstructure:"tenure_threshold"`
}

// Runtime converts the gc section to the runtime's own config type.
func (g GCConfig) Runtime() gc.Config {
	return gc.Config{
		HeapLimit:       g.HeapLimit,
		YoungBudget:     g.YoungBudget,
		TenureThreshold: g.TenureThreshold,
	}
}

// Load reads configuration from configPath, or defaults when the path
// is empty. Environment variables override file values:
// FAX_NATIVE_GC_HEAP_LIMIT, FAX_NATIVE_LOG_LEVEL, and so on.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	d := gc.DefaultConfig()
	v.SetDefault("log_level", "info")
	v.SetDefault("codec.tokens", true)
	v.SetDefault("codec.module", true)
	v.SetDefault("gc.heap_limit", d.HeapLimit)
	v.SetDefault("gc.young_budget", d.YoungBudget)
	v.SetDefault("gc.tenure_threshold", d.TenureThreshold)

	v.SetEnvPrefix("FAX_NATIVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
