package app

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/murmurvoice/murmur-setup/internal/state"
)

func TestRenderStatusFullInstallation(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	rec := state.Record{
		SchemaVersion: state.SchemaVersion,
		InstalledAt:   now,
		Components: state.Components{
			SystemPackageManager: state.ComponentStatus{Installed: true, Version: "4.2.0"},
			LanguageRuntime:      state.ComponentStatus{Installed: true, Path: "python3.12", Version: "3.12.4", InstalledBySetup: true},
			IsolatedEnvironment:  state.ComponentStatus{Installed: true, Path: "/home/u/.config/murmur/venv"},
			ShellConfig:          state.ComponentStatus{Installed: true, Path: "/home/u/.zprofile"},
			Packages: []state.PackageEntry{
				{Name: "openai-whisper", Version: "20240930", InstalledAt: now},
			},
			Assets: []state.AssetEntry{
				{Name: "whisper-base-model", Path: "/cache/ggml-base.en.bin", InstalledAt: now},
			},
		},
	}

	var out bytes.Buffer
	renderStatus(&out, rec)
	got := out.String()

	for _, want := range []string{
		"Python runtime: 3.12.4 (installed by murmur-setup)",
		"Virtual environment: /home/u/.config/murmur/venv",
		"1 dependencies installed:",
		"openai-whisper",
		"1 assets cached:",
		"/cache/ggml-base.en.bin",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in status output; got:\n%s", want, got)
		}
	}
}

func TestRenderStatusNothingInstalled(t *testing.T) {
	var out bytes.Buffer
	renderStatus(&out, *state.NewRecord())
	got := out.String()

	if !strings.Contains(got, "Python runtime: not installed") {
		t.Errorf("expected not-installed runtime line; got:\n%s", got)
	}
	if !strings.Contains(got, "No dependencies installed") {
		t.Errorf("expected empty dependency note; got:\n%s", got)
	}
	if !strings.Contains(got, "No assets cached") {
		t.Errorf("expected empty asset note; got:\n%s", got)
	}
}
