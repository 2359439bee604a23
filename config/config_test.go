package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() error: %v", err)
	}

	if cfg.Batch.MaxSize != 1000 {
		t.Errorf("batch.max_size = %d, want 1000", cfg.Batch.MaxSize)
	}
	if cfg.Batch.WarnThreshold != 100 {
		t.Errorf("batch.warn_threshold = %d, want 100", cfg.Batch.WarnThreshold)
	}
	if cfg.DefaultPartition() != "main" {
		t.Errorf("default partition = %q, want main", cfg.DefaultPartition())
	}
	if cfg.DatabasePath("main") != "facet.db" {
		t.Errorf("database path = %q, want facet.db", cfg.DatabasePath("main"))
	}
}

func TestResolverLimits(t *testing.T) {
	cfg := &Config{Batch: BatchConfig{MaxSize: 50, WarnThreshold: 10}}

	limits := cfg.ResolverLimits()
	if limits.MaxBatchSize != 50 || limits.WarnBatchSize != 10 {
		t.Errorf("ResolverLimits() = %+v", limits)
	}

	// Zero values fall back to stock limits
	limits = (&Config{}).ResolverLimits()
	if limits.MaxBatchSize != 1000 || limits.WarnBatchSize != 100 {
		t.Errorf("ResolverLimits() fallback = %+v", limits)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facet.toml")
	content := `
[catalog]
path = "model.toml"

[batch]
max_size = 250

[partition]
default = "people"

[partitions]
people = "people.db"
inventory = "inventory.db"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error: %v", err)
	}

	if cfg.Catalog.Path != "model.toml" {
		t.Errorf("catalog.path = %q", cfg.Catalog.Path)
	}
	if cfg.Batch.MaxSize != 250 {
		t.Errorf("batch.max_size = %d, want 250", cfg.Batch.MaxSize)
	}
	// Unset keys keep their defaults
	if cfg.Batch.WarnThreshold != 100 {
		t.Errorf("batch.warn_threshold = %d, want default 100", cfg.Batch.WarnThreshold)
	}
	if cfg.DefaultPartition() != "people" {
		t.Errorf("default partition = %q, want people", cfg.DefaultPartition())
	}
	if cfg.DatabasePath("inventory") != "inventory.db" {
		t.Errorf("database path = %q, want inventory.db", cfg.DatabasePath("inventory"))
	}
	// Unrouted partitions get a derived path
	if cfg.DatabasePath("audit") != "facet-audit.db" {
		t.Errorf("database path = %q, want facet-audit.db", cfg.DatabasePath("audit"))
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("LoadFromFile() of missing file did not fail")
	}
}
