// Package config loads layered configuration (env > file > defaults) for
// the reconciler, the way the teacher's daemon loads its own.
package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the top-level configuration struct combining every section.
type Config struct {
	Database    DatabaseConfig    `mapstructure:"database"`
	Batch       BatchConfig       `mapstructure:"batch"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Lazada      LazadaConfig      `mapstructure:"lazada"`
	Shopee      ShopeeConfig      `mapstructure:"shopee"`
	TikTok      TikTokConfig      `mapstructure:"tiktok"`
	Opencart    OpencartConfig    `mapstructure:"opencart"`
	WooCommerce WooCommerceConfig `mapstructure:"woocommerce"`
}

// RateLimitConfig bounds outbound calls to one marketplace.
type RateLimitConfig struct {
	Requests float64 `mapstructure:"requests" validate:"min=0"`
	Burst    int     `mapstructure:"burst" validate:"min=1"`
}

// LoadConfig loads configuration from multiple sources with priority:
//  1. Environment variables (highest priority)
//  2. Config file (invsync.ini)
//  3. Defaults (lowest priority)
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("ini")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("invsync")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/invsync")
	}

	v.SetEnvPrefix("INVSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	SetDefaults(&cfg)

	if err := ValidateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// MustLoadConfig loads configuration and panics on error, for use in main.go.
func MustLoadConfig(configPath string) *Config {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
