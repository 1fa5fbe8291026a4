package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/walletlink/internal/core/domain"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	w := &cfg.Wallet
	if w.Network == "" {
		w.Network = string(domain.NetworkTestnet)
	}
	if w.Layout == "" {
		w.Layout = "dropdown"
	}
	if w.ThrottleWindow == 0 {
		w.ThrottleWindow = time.Second
	}
	if w.SettleDelay == 0 {
		w.SettleDelay = 100 * time.Millisecond
	}
	if w.Retry.MaxAttempts == 0 {
		w.Retry.MaxAttempts = 3
	}
	if w.Retry.Backoff == 0 {
		w.Retry.Backoff = 500 * time.Millisecond
	}
	if w.Retry.ReEnableSettle == 0 {
		w.Retry.ReEnableSettle = 200 * time.Millisecond
	}

	for i := range w.Providers {
		if w.Providers[i].Timeout == 0 {
			w.Providers[i].Timeout = 2 * time.Minute
		}
	}
}

func validate(cfg *AppConfig) error {
	if _, err := domain.ParseNetwork(cfg.Wallet.Network); err != nil {
		return fmt.Errorf("invalid wallet.network: %w", err)
	}

	switch cfg.Wallet.Layout {
	case "dropdown", "inline":
	default:
		return fmt.Errorf("invalid wallet.layout %q", cfg.Wallet.Layout)
	}

	seen := make(map[string]bool)
	for _, p := range cfg.Wallet.Providers {
		if p.Name == "" {
			return fmt.Errorf("wallet.providers: provider without name")
		}
		if seen[p.Name] {
			return fmt.Errorf("wallet.providers: duplicate provider %q", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}
