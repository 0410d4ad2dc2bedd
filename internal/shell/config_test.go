package shell

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func fixedClock(t *testing.T) {
	t.Helper()
	orig := timeNow
	timeNow = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }
	t.Cleanup(func() { timeNow = orig })
}

// TestEnsureProfileBlock_MarkerPresentIsNoop verifies that a profile
// already carrying the marker is left byte-identical and no backup is taken.
func TestEnsureProfileBlock_MarkerPresentIsNoop(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("SHELL", "/bin/sh")
	fixedClock(t)

	profilePath := filepath.Join(tmpDir, ".profile")
	content := "# mine\n" + profileMarker + "\nexport PATH=\"/old/bin\":$PATH\n"
	if err := os.WriteFile(profilePath, []byte(content), 0644); err != nil {
		t.Fatalf("pre-create profile: %v", err)
	}

	res, err := EnsureProfileBlock("/home/u/.config/murmur/venv/bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Changed {
		t.Errorf("expected Changed=false, got true")
	}
	if res.BackupPath != "" {
		t.Errorf("expected no backup, got %q", res.BackupPath)
	}

	data, err := os.ReadFile(profilePath)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if string(data) != content {
		t.Errorf("profile was modified despite marker:\n%s", data)
	}
}

// TestEnsureProfileBlock_BacksUpThenAppends verifies the existing profile
// is copied to a timestamped backup before the block is appended.
func TestEnsureProfileBlock_BacksUpThenAppends(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("SHELL", "/bin/sh")
	fixedClock(t)

	profilePath := filepath.Join(tmpDir, ".profile")
	existing := "# existing content\n"
	if err := os.WriteFile(profilePath, []byte(existing), 0644); err != nil {
		t.Fatalf("pre-create profile: %v", err)
	}

	binDir := filepath.Join(tmpDir, "venv", "bin")
	res, err := EnsureProfileBlock(binDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Changed {
		t.Errorf("expected Changed=true, got false")
	}

	wantBackup := profilePath + ".murmur-backup-20260314-092653"
	if res.BackupPath != wantBackup {
		t.Errorf("expected backup %q, got %q", wantBackup, res.BackupPath)
	}
	backup, err := os.ReadFile(wantBackup)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(backup) != existing {
		t.Errorf("backup does not hold pre-mutation content:\n%s", backup)
	}

	data, err := os.ReadFile(profilePath)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	content := string(data)
	if !strings.HasPrefix(content, existing) {
		t.Errorf("existing content was overwritten; got:\n%s", content)
	}
	if !strings.Contains(content, profileMarker) {
		t.Errorf("expected marker in profile; got:\n%s", content)
	}
	if !strings.Contains(content, "export PATH=\""+binDir+"\":$PATH") {
		t.Errorf("expected PATH export for %q; got:\n%s", binDir, content)
	}
	if !strings.Contains(content, filepath.Join(binDir, "murmur")) {
		t.Errorf("expected murmur alias path in profile; got:\n%s", content)
	}
}

// TestEnsureProfileBlock_CreatesMissingProfile verifies a missing profile
// is created and no backup is taken.
func TestEnsureProfileBlock_CreatesMissingProfile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("SHELL", "/bin/sh")
	fixedClock(t)

	res, err := EnsureProfileBlock("/v/bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Changed {
		t.Errorf("expected Changed=true, got false")
	}
	if res.BackupPath != "" {
		t.Errorf("expected no backup for missing profile, got %q", res.BackupPath)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ".profile")); err != nil {
		t.Errorf("expected .profile to be created: %v", err)
	}
}

// TestEnsureProfileBlock_ShellSelection verifies the profile file chosen
// per $SHELL.
func TestEnsureProfileBlock_ShellSelection(t *testing.T) {
	tests := []struct {
		shell   string
		profile string
	}{
		{"/bin/zsh", ".zprofile"},
		{"/bin/bash", ".bash_profile"},
		{"/bin/sh", ".profile"},
		{"", ".profile"},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.shell)+"_"+tt.profile, func(t *testing.T) {
			tmpDir := t.TempDir()
			t.Setenv("HOME", tmpDir)
			t.Setenv("SHELL", tt.shell)
			fixedClock(t)

			res, err := EnsureProfileBlock("/v/bin")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := filepath.Join(tmpDir, tt.profile)
			if res.ProfilePath != want {
				t.Errorf("expected profile %q, got %q", want, res.ProfilePath)
			}
		})
	}
}

// TestEnsureProfileBlock_FishSyntax verifies fish gets fish_add_path in
// conf.d rather than an export line.
func TestEnsureProfileBlock_FishSyntax(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("SHELL", "/usr/local/bin/fish")
	fixedClock(t)

	res, err := EnsureProfileBlock("/v/bin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantPath := filepath.Join(tmpDir, ".config", "fish", "conf.d", "murmur.fish")
	if res.ProfilePath != wantPath {
		t.Errorf("expected fish config %q, got %q", wantPath, res.ProfilePath)
	}

	data, err := os.ReadFile(wantPath)
	if err != nil {
		t.Fatalf("read fish config: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "export PATH") {
		t.Errorf("fish config should not use export PATH; got:\n%s", content)
	}
	if !strings.Contains(content, "fish_add_path /v/bin") {
		t.Errorf("expected fish_add_path in fish config; got:\n%s", content)
	}
}
