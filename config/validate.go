package config

import (
	"fmt"
	"math/big"
	"strings"
)

func parsePositiveAmount(raw string) (*big.Int, bool) {
	value, ok := new(big.Int).SetString(strings.TrimSpace(raw), 10)
	if !ok || value.Sign() <= 0 {
		return nil, false
	}
	return value, true
}

func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if len(cfg.CollateralAssets) != len(cfg.PriceFeeds) {
		return fmt.Errorf("CollateralAssets and PriceFeeds must pair up: %d assets, %d feeds",
			len(cfg.CollateralAssets), len(cfg.PriceFeeds))
	}
	seen := make(map[string]bool, len(cfg.CollateralAssets))
	for i, asset := range cfg.CollateralAssets {
		if strings.TrimSpace(asset) == "" {
			return fmt.Errorf("CollateralAssets[%d] is empty", i)
		}
		if seen[asset] {
			return fmt.Errorf("CollateralAssets lists %q twice", asset)
		}
		seen[asset] = true
		if strings.TrimSpace(cfg.PriceFeeds[i]) == "" {
			return fmt.Errorf("PriceFeeds[%d] is empty", i)
		}
	}
	for i, alloc := range cfg.Genesis {
		if strings.TrimSpace(alloc.Address) == "" {
			return fmt.Errorf("Genesis[%d].Address is empty", i)
		}
		if !seen[alloc.Asset] {
			return fmt.Errorf("Genesis[%d] references unknown asset %q", i, alloc.Asset)
		}
		if _, ok := parsePositiveAmount(alloc.Amount); !ok {
			return fmt.Errorf("Genesis[%d].Amount must be a positive integer, got %q", i, alloc.Amount)
		}
	}
	if cfg.Risk.LiquidationThresholdPct == 0 || cfg.Risk.LiquidationThresholdPct > 100 {
		return fmt.Errorf("Risk.LiquidationThresholdPct must be in (0, 100], got %d", cfg.Risk.LiquidationThresholdPct)
	}
	if cfg.Risk.LiquidationBonusPct > 100 {
		return fmt.Errorf("Risk.LiquidationBonusPct must be at most 100, got %d", cfg.Risk.LiquidationBonusPct)
	}
	if _, err := cfg.MinHealthFactorInt(); err != nil {
		return err
	}
	if cfg.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("RateLimit.RequestsPerSecond must be positive")
	}
	if cfg.RateLimit.Burst <= 0 {
		return fmt.Errorf("RateLimit.Burst must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Log.Level)) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("Log.Level must be one of debug, info, warn, error; got %q", cfg.Log.Level)
	}
	return nil
}
