// Package shell mutates the user's shell profile so the murmur
// environment is on PATH and the aliases resolve. The mutation contract
// is append-only: if the marker block is already present nothing is
// touched, and an existing profile is always backed up first.
package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// profileMarker gates the append. Its presence anywhere in the profile
// means a previous run already configured this shell.
const profileMarker = "# >>> murmur environment >>>"

// Result reports what EnsureProfileBlock did.
type Result struct {
	// Changed is false when the marker was already present.
	Changed bool
	// ProfilePath is the shell config file that was inspected or written.
	ProfilePath string
	// BackupPath is the timestamped copy taken before appending. Empty
	// when nothing changed or the profile did not exist yet.
	BackupPath string
}

// timeNow is swapped in tests for deterministic backup names.
var timeNow = time.Now

// EnsureProfileBlock appends the murmur configuration block to the
// user's shell profile, choosing the file from $SHELL. binDir is the
// environment's executable directory (venv bin/ or Scripts/).
//
// The profile is copied to <profile>.murmur-backup-<timestamp> before
// any write so the mutation is reversible by hand.
func EnsureProfileBlock(binDir string) (Result, error) {
	shellName := filepath.Base(os.Getenv("SHELL"))

	home, err := os.UserHomeDir()
	if err != nil {
		return Result{}, fmt.Errorf("cannot determine home directory: %w", err)
	}

	var profilePath string
	var isFish bool

	switch shellName {
	case "zsh":
		profilePath = filepath.Join(home, ".zprofile")
	case "bash":
		profilePath = filepath.Join(home, ".bash_profile")
	case "fish":
		profilePath = filepath.Join(home, ".config", "fish", "conf.d", "murmur.fish")
		isFish = true
	default:
		profilePath = filepath.Join(home, ".profile")
	}

	res := Result{ProfilePath: profilePath}

	// Parent directory may not exist yet (fish conf.d).
	if err := os.MkdirAll(filepath.Dir(profilePath), 0755); err != nil {
		return res, fmt.Errorf("cannot create config directory %s: %w", filepath.Dir(profilePath), err)
	}

	existing, readErr := os.ReadFile(profilePath)
	if readErr == nil && strings.Contains(string(existing), profileMarker) {
		return res, nil
	}

	if readErr == nil {
		backup := fmt.Sprintf("%s.murmur-backup-%s", profilePath, timeNow().Format("20060102-150405"))
		if err := os.WriteFile(backup, existing, 0644); err != nil {
			return res, fmt.Errorf("cannot back up %s: %w", profilePath, err)
		}
		res.BackupPath = backup
	}

	f, err := os.OpenFile(profilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return res, fmt.Errorf("cannot open profile %s: %w", profilePath, err)
	}
	defer f.Close()

	if _, err := fmt.Fprint(f, profileBlock(binDir, isFish)); err != nil {
		return res, fmt.Errorf("cannot write profile %s: %w", profilePath, err)
	}

	res.Changed = true
	return res, nil
}

// profileBlock renders the append payload: PATH entry plus the murmur
// alias, pointing at the environment's executables.
func profileBlock(binDir string, fish bool) string {
	var b strings.Builder
	b.WriteString("\n" + profileMarker + "\n")
	if fish {
		fmt.Fprintf(&b, "fish_add_path %s\n", binDir)
		fmt.Fprintf(&b, "alias murmur %q\n", filepath.Join(binDir, "murmur"))
	} else {
		fmt.Fprintf(&b, "export PATH=%q:$PATH\n", binDir)
		fmt.Fprintf(&b, "alias murmur=%q\n", filepath.Join(binDir, "murmur"))
	}
	b.WriteString("# <<< murmur environment <<<\n")
	return b.String()
}
