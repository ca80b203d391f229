package config

import (
	"path/filepath"
	"testing"
)

func TestLoadWritesDefaultOnFirstRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.toml")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	parsed, err := cfg.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if parsed.LiquidationDivergenceThresholdPct != 10 {
		t.Fatalf("expected default divergence threshold 10, got %d", parsed.LiquidationDivergenceThresholdPct)
	}

	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.DefaultTargetBase != cfg.DefaultTargetBase {
		t.Fatalf("reloaded config diverged from the one just persisted")
	}
}

func TestParseRejectsMalformedAmount(t *testing.T) {
	cfg := Default()
	cfg.FundingConstantC = "not-a-number"
	if _, err := cfg.Parse(); err == nil {
		t.Fatalf("expected parse error for malformed funding_constant_c")
	}
}

func TestValidateRejectsThresholdOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.LiquidationDivergenceThresholdPct = 0
	if _, err := cfg.Parse(); err == nil {
		t.Fatalf("expected validation error for zero divergence threshold")
	}

	cfg2 := Default()
	cfg2.LiquidationDivergenceThresholdPct = 101
	if _, err := cfg2.Parse(); err == nil {
		t.Fatalf("expected validation error for divergence threshold above 100")
	}
}

func TestValidateRejectsLeverageCapBelowFloor(t *testing.T) {
	cfg := Default()
	cfg.MaxLeverageTenths = 1
	if _, err := cfg.Parse(); err == nil {
		t.Fatalf("expected validation error for leverage cap below the position engine floor")
	}
}

func TestValidateRejectsZeroCurveTargets(t *testing.T) {
	cfg := Default()
	cfg.DefaultTargetTokens = "0"
	if _, err := cfg.Parse(); err == nil {
		t.Fatalf("expected validation error for zero default_target_tokens")
	}
}
