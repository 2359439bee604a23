package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/teranos/facet/errors"
)

func writeConfigFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcherReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facet.toml")
	writeConfigFile(t, path, "[batch]\nmax_size = 100\n")

	cw, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher() error: %v", err)
	}
	defer cw.Stop()

	// Short debounce keeps the test fast without changing the code path.
	cw.debouncePeriod = 10 * time.Millisecond

	reloaded := make(chan *Config, 1)
	cw.OnReload(func(cfg *Config) error {
		select {
		case reloaded <- cfg:
		default:
		}
		return nil
	})
	cw.Start()

	writeConfigFile(t, path, "[batch]\nmax_size = 250\n")

	select {
	case cfg := <-reloaded:
		if cfg.Batch.MaxSize != 250 {
			t.Errorf("reloaded batch.max_size = %d, want 250", cfg.Batch.MaxSize)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback never fired after config write")
	}
}

func TestWatcherCallbackFailureContinues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facet.toml")
	writeConfigFile(t, path, "[batch]\nmax_size = 100\n")

	cw, err := NewConfigWatcher(path)
	if err != nil {
		t.Fatalf("NewConfigWatcher() error: %v", err)
	}
	defer cw.Stop()

	var secondRan bool
	cw.OnReload(func(*Config) error {
		return errors.New("callback failure")
	})
	cw.OnReload(func(*Config) error {
		secondRan = true
		return nil
	})

	if err := cw.reload(); err != nil {
		t.Fatalf("reload() error: %v", err)
	}
	if !secondRan {
		t.Error("second callback skipped after first callback failed")
	}
}

func TestWatcherMissingFile(t *testing.T) {
	_, err := NewConfigWatcher(filepath.Join(t.TempDir(), "absent.toml"))
	if err == nil {
		t.Fatal("NewConfigWatcher() of missing file did not fail")
	}
}
