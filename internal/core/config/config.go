package config

import (
	"time"

	redisclient "github.com/vietddude/walletlink/internal/infra/redis"
	"github.com/vietddude/walletlink/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Wallet   WalletConfig       `yaml:"wallet"`
	Redis    redisclient.Config `yaml:"redis"`
	Logging  LoggingConfig      `yaml:"logging"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// WalletConfig holds connection settings supplied by the host.
type WalletConfig struct {
	Network        string           `yaml:"network"`      // mainnet, testnet
	DefaultOpen    bool             `yaml:"default_open"` // selector open at startup
	Layout         string           `yaml:"layout"`       // dropdown, inline
	ConnectPath    string           `yaml:"connect_path"`
	ThrottleWindow time.Duration    `yaml:"throttle_window"`
	SettleDelay    time.Duration    `yaml:"settle_delay"`
	Retry          RetryConfig      `yaml:"retry"`
	Providers      []ProviderConfig `yaml:"providers"`
}

// RetryConfig tunes the reward address retry policy.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	Backoff        time.Duration `yaml:"backoff"`
	ReEnableSettle time.Duration `yaml:"reenable_settle"`
}

// ProviderConfig describes a wallet offered in the selector.
type ProviderConfig struct {
	Name       string        `yaml:"name"`
	URL        string        `yaml:"url"` // bridge endpoint; empty = not installed
	Icon       string        `yaml:"icon"`
	APIVersion string        `yaml:"api_version"`
	Timeout    time.Duration `yaml:"timeout"`
}

// ProviderNames returns the configured provider names in order.
func (w WalletConfig) ProviderNames() []string {
	names := make([]string, 0, len(w.Providers))
	for _, p := range w.Providers {
		names = append(names, p.Name)
	}
	return names
}
