package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirRespectsXDGConfigHome(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	dir, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if dir != filepath.Join(tmp, "murmur") {
		t.Errorf("unexpected dir: %s", dir)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MURMUR_SETUP_CONFIG", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Paths.StateFile == "" || filepath.Base(cfg.Paths.StateFile) != "install-state.json" {
		t.Errorf("unexpected state file default: %s", cfg.Paths.StateFile)
	}
	if cfg.Runtime.MinVersion != "3.10" {
		t.Errorf("unexpected min version: %s", cfg.Runtime.MinVersion)
	}
	if len(cfg.Runtime.Candidates) == 0 {
		t.Error("expected default runtime candidates")
	}
	if len(cfg.Assets) != 2 {
		t.Errorf("expected 2 default assets, got %d", len(cfg.Assets))
	}
	if len(cfg.Packages) != 5 {
		t.Errorf("expected 5 default packages, got %d", len(cfg.Packages))
	}
	if cfg.Exec.CommandTimeout <= 0 {
		t.Error("expected a positive command timeout default")
	}
}

func TestLoadFromFile(t *testing.T) {
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "setup.toml")
	content := `
[paths]
state_file = "/tmp/custom-state.json"

[runtime]
min_version = "3.12"
candidates = ["python3.12"]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MURMUR_SETUP_CONFIG", cfgPath)
	t.Setenv("XDG_CONFIG_HOME", tmp)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Paths.StateFile != "/tmp/custom-state.json" {
		t.Errorf("file override not applied: %s", cfg.Paths.StateFile)
	}
	if cfg.Runtime.MinVersion != "3.12" {
		t.Errorf("file override not applied: %s", cfg.Runtime.MinVersion)
	}
	// untouched sections keep defaults
	if filepath.Base(cfg.Paths.HistoryDB) != "history.db" {
		t.Errorf("default lost: %s", cfg.Paths.HistoryDB)
	}
}
