// Package config loads the on-disk parameters that govern a deployed
// engine instance: the funding-rate constant, the liquidation divergence
// gate, bonding-curve defaults, and the leverage cap.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/holiman/uint256"

	"github.com/facemelt/engine/native/pool"
	"github.com/facemelt/engine/native/position"
)

// Config holds the tunable parameters for one deployed pool family. Amounts
// are decimal strings on disk and parsed into *uint256.Int at load time so
// the TOML file never has to carry 256-bit literals in a lossy numeric type.
type Config struct {
	DataDir string `toml:"data_dir"`

	FundingConstantC                  string `toml:"funding_constant_c"`
	LiquidationDivergenceThresholdPct uint64 `toml:"liquidation_divergence_threshold_pct"`
	MaxLeverageTenths                 uint64 `toml:"max_leverage_tenths"`

	DefaultTargetBase   string `toml:"default_target_base"`
	DefaultTargetTokens string `toml:"default_target_tokens"`
}

// Parsed is the Config with its decimal strings resolved to *uint256.Int.
// Callers should call Config.Parse once at startup and hold onto Parsed.
type Parsed struct {
	DataDir string

	FundingConstantC                  *uint256.Int
	LiquidationDivergenceThresholdPct uint64
	MaxLeverageTenths                 uint64

	DefaultTargetBase   *uint256.Int
	DefaultTargetTokens *uint256.Int
}

const defaultFileName = "engine.toml"

// Load reads path, or writes and returns a default config if path does not
// exist yet. It mirrors the teacher's create-default-on-first-run shape
// without the validator keystore step, since this domain has no node
// identity to provision.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultFileName
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := cfg.persist(path); err != nil {
			return nil, fmt.Errorf("config: write default: %w", err)
		}
		return cfg, nil
	}

	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the baked-in configuration matching spec.md §6's worked
// scenarios: a funding constant of 1/10000, a 10% divergence gate, and a
// 100x leverage cap.
func Default() *Config {
	return &Config{
		DataDir:                           "./data",
		FundingConstantC:                  pool.DefaultFundingConstantC().String(),
		LiquidationDivergenceThresholdPct: pool.DefaultLiquidationDivergenceThresholdPct,
		MaxLeverageTenths:                 position.MaxLeverageTenths,
		DefaultTargetBase:                 "200000000000",
		DefaultTargetTokens:               "280000000000000",
	}
}

func (c *Config) persist(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(c)
}

// Parse validates and resolves the decimal-string fields into *uint256.Int,
// returning the errors a malformed config file would otherwise only surface
// as a panic deep inside the engine packages.
func (c *Config) Parse() (*Parsed, error) {
	fundingC, err := parseUint256(c.FundingConstantC, "funding_constant_c")
	if err != nil {
		return nil, err
	}
	targetBase, err := parseUint256(c.DefaultTargetBase, "default_target_base")
	if err != nil {
		return nil, err
	}
	targetTokens, err := parseUint256(c.DefaultTargetTokens, "default_target_tokens")
	if err != nil {
		return nil, err
	}

	p := &Parsed{
		DataDir:                           c.DataDir,
		FundingConstantC:                  fundingC,
		LiquidationDivergenceThresholdPct: c.LiquidationDivergenceThresholdPct,
		MaxLeverageTenths:                 c.MaxLeverageTenths,
		DefaultTargetBase:                 targetBase,
		DefaultTargetTokens:               targetTokens,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate rejects parameter combinations the engine packages cannot run
// with: a zero funding constant, a divergence threshold outside [1,100], a
// leverage cap below the position engine's floor, or zero curve targets.
func (p *Parsed) Validate() error {
	if p.FundingConstantC == nil || p.FundingConstantC.IsZero() {
		return fmt.Errorf("config: funding_constant_c must be positive")
	}
	if p.LiquidationDivergenceThresholdPct == 0 || p.LiquidationDivergenceThresholdPct > 100 {
		return fmt.Errorf("config: liquidation_divergence_threshold_pct must be in [1,100], got %d", p.LiquidationDivergenceThresholdPct)
	}
	if p.MaxLeverageTenths < position.MinLeverageTenths {
		return fmt.Errorf("config: max_leverage_tenths must be at least %d, got %d", position.MinLeverageTenths, p.MaxLeverageTenths)
	}
	if p.DefaultTargetBase == nil || p.DefaultTargetBase.IsZero() {
		return fmt.Errorf("config: default_target_base must be positive")
	}
	if p.DefaultTargetTokens == nil || p.DefaultTargetTokens.IsZero() {
		return fmt.Errorf("config: default_target_tokens must be positive")
	}
	return nil
}

func parseUint256(s, field string) (*uint256.Int, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", field, err)
	}
	return v, nil
}
