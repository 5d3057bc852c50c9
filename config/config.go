package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	ListenAddress string `toml:"ListenAddress"`
	DataDir       string `toml:"DataDir"`
	NetworkName   string `toml:"NetworkName"`

	// CollateralAssets and PriceFeeds are positional pairs: the asset at
	// index i is priced by the feed at index i.
	CollateralAssets []string `toml:"CollateralAssets"`
	PriceFeeds       []string `toml:"PriceFeeds"`

	// Genesis seeds collateral balances for the in-process asset ledgers.
	Genesis []GenesisAllocation `toml:"Genesis"`

	Risk      Risk      `toml:"Risk"`
	Oracle    Oracle    `toml:"Oracle"`
	RateLimit RateLimit `toml:"RateLimit"`
	Pauses    Pauses    `toml:"Pauses"`
	Log       Log       `toml:"Log"`
}

// Load reads the configuration from the given path, writing and returning a
// default file when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8080"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./synthd-data"
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "synthd-local"
	}
	if cfg.CollateralAssets == nil {
		cfg.CollateralAssets = []string{}
	}
	if cfg.PriceFeeds == nil {
		cfg.PriceFeeds = []string{}
	}
	if cfg.Risk.LiquidationThresholdPct == 0 {
		cfg.Risk.LiquidationThresholdPct = 50
	}
	if cfg.Risk.LiquidationBonusPct == 0 {
		cfg.Risk.LiquidationBonusPct = 10
	}
	if strings.TrimSpace(cfg.Risk.MinHealthFactor) == "" {
		cfg.Risk.MinHealthFactor = "1000000000000000000"
	}
	if cfg.Oracle.MaxQuoteAgeSecs == 0 {
		cfg.Oracle.MaxQuoteAgeSecs = 300
	}
	if len(cfg.Oracle.Sources) == 0 {
		cfg.Oracle.Sources = []string{"manual"}
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateLimit.RequestsPerSecond = 50
	}
	if cfg.RateLimit.Burst <= 0 {
		cfg.RateLimit.Burst = 100
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "info"
	}
}

// MinHealthFactorInt parses the configured minimum health factor into its
// 18-decimal fixed-point integer form.
func (c *Config) MinHealthFactorInt() (*big.Int, error) {
	raw := strings.TrimSpace(c.Risk.MinHealthFactor)
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok || value.Sign() <= 0 {
		return nil, fmt.Errorf("invalid Risk.MinHealthFactor %q", c.Risk.MinHealthFactor)
	}
	return value, nil
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := &Config{
		ListenAddress:    ":8080",
		DataDir:          "./synthd-data",
		NetworkName:      "synthd-local",
		CollateralAssets: []string{"WETH", "WBTC"},
		PriceFeeds:       []string{"ETH-USD", "BTC-USD"},
	}
	applyDefaults(cfg)

	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
