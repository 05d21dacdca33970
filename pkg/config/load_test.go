package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaultsAndValidates(t *testing.T) {
	path := writeTempConfig(t, `
pool:
  size: 3
validator:
  max_complexity: 75
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Pool.Size != 3 {
		t.Errorf("Pool.Size = %d, want 3", cfg.Pool.Size)
	}
	if cfg.Validator.MaxComplexity != 75 {
		t.Errorf("MaxComplexity = %d, want 75", cfg.Validator.MaxComplexity)
	}
	if cfg.Server.ListenAddress != DefaultListenAddress {
		t.Errorf("ListenAddress = %q, want default %q", cfg.Server.ListenAddress, DefaultListenAddress)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig("/nonexistent/path/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := writeTempConfig(t, `
pool:
  size: -1
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected validation error for negative pool size")
	}
}

func TestLoadConfigWithEnvOverridesTakesPrecedence(t *testing.T) {
	path := writeTempConfig(t, `
pool:
  size: 3
`)

	t.Setenv("ORACLEGUARD_POOL_SIZE", "9")
	t.Setenv("ORACLEGUARD_VALIDATOR_MAX_COMPLEXITY", "99")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}
	if cfg.Pool.Size != 9 {
		t.Errorf("Pool.Size = %d, want 9 from env override", cfg.Pool.Size)
	}
	if cfg.Validator.MaxComplexity != 99 {
		t.Errorf("MaxComplexity = %d, want 99 from env override", cfg.Validator.MaxComplexity)
	}
}

func TestLoadConfigWithEnvOverridesInvalidEnvIsIgnored(t *testing.T) {
	path := writeTempConfig(t, `
pool:
  size: 3
`)

	t.Setenv("ORACLEGUARD_POOL_SIZE", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides: %v", err)
	}
	if cfg.Pool.Size != 3 {
		t.Errorf("Pool.Size = %d, want 3 (unparseable override should be ignored)", cfg.Pool.Size)
	}
}
