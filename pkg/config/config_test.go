package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesYAMLThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "pipeline.yaml")
	os.WriteFile(yamlPath, []byte("database_url: postgres://yaml-default\ncache_l1_size: 42\n"), 0o644)

	os.Setenv("DATABASE_URL", "postgres://env-override")
	defer os.Unsetenv("DATABASE_URL")

	cfg, err := Load("", yamlPath)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DatabaseURL != "postgres://env-override" {
		t.Errorf("expected env var to override YAML, got %s", cfg.DatabaseURL)
	}
	if cfg.CacheL1Size != 42 {
		t.Errorf("expected YAML value to survive when no env override, got %d", cfg.CacheL1Size)
	}
}

func TestLoadToleratesMissingFiles(t *testing.T) {
	cfg, err := Load("/nonexistent/.env", "/nonexistent/pipeline.yaml")
	if err != nil {
		t.Fatalf("expected missing files to be tolerated, got %v", err)
	}
	if cfg.CacheL1Size != 1000 {
		t.Errorf("expected defaults to apply, got %d", cfg.CacheL1Size)
	}
}
