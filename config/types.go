package config

// Risk captures the solvency policy knobs applied by the vault engine.
// Percentages are whole numbers; MinHealthFactor is an 18-decimal fixed-point
// value carried as a decimal string so it survives TOML round trips exactly.
type Risk struct {
	LiquidationThresholdPct uint64 `toml:"LiquidationThresholdPct"`
	LiquidationBonusPct     uint64 `toml:"LiquidationBonusPct"`
	MinHealthFactor         string `toml:"MinHealthFactor"`
}

// Oracle controls price-feed admission.
type Oracle struct {
	// MaxQuoteAgeSecs rejects quotes older than this; zero disables the
	// freshness window.
	MaxQuoteAgeSecs uint64 `toml:"MaxQuoteAgeSecs"`
	// Sources lists registered oracle source names in priority order.
	Sources []string `toml:"Sources"`
}

// GenesisAllocation seeds a collateral balance for an account at boot. The
// amount is a base-unit decimal string; the vault module is pre-approved as
// spender so deposits work immediately.
type GenesisAllocation struct {
	Address string `toml:"Address"`
	Asset   string `toml:"Asset"`
	Amount  string `toml:"Amount"`
}

// RateLimit bounds gateway request admission per client.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// Pauses holds the boot-time pause switches per module.
type Pauses struct {
	Vault  bool `toml:"Vault"`
	Oracle bool `toml:"Oracle"`
}

// Log controls the structured logging sink.
type Log struct {
	Level string `toml:"Level"`
	// File enables a size-rotated log file in addition to stderr when set.
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays"`
}
