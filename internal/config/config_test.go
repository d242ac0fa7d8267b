package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.SortMode != SortByScore {
		t.Errorf("expected default sort mode %q, got %q", SortByScore, cfg.SortMode)
	}
	if cfg.Output != OutputTable {
		t.Errorf("expected default output %q, got %q", OutputTable, cfg.Output)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "sort_mode: year\noutput: json\nshard_count: 4\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("expected valid config to load, got error: %v", err)
	}
	if cfg.SortMode != SortByYear {
		t.Errorf("expected sort_mode 'year', got %q", cfg.SortMode)
	}
	if cfg.Output != OutputJSON {
		t.Errorf("expected output 'json', got %q", cfg.Output)
	}
	if cfg.ShardCount != 4 {
		t.Errorf("expected shard_count 4, got %d", cfg.ShardCount)
	}
}

func TestLoadCacheDirEnvOverride(t *testing.T) {
	t.Setenv("TVRANK_CACHE_DIR", "/tmp/tvrank-test-cache")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.CacheDir != "/tmp/tvrank-test-cache" {
		t.Errorf("expected env override to win, got %q", cfg.CacheDir)
	}
}

func TestValidateConfigRejectsBadSortMode(t *testing.T) {
	cfg := Default()
	cfg.SortMode = "alphabetical"
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for invalid sort_mode, got nil")
	}
}

func TestValidateConfigRejectsNegativeShardCount(t *testing.T) {
	cfg := Default()
	cfg.ShardCount = -1
	if err := validateConfig(cfg); err == nil {
		t.Error("expected error for negative shard_count, got nil")
	}
}
