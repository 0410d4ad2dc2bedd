// Package register exposes the murmur launcher globally by symlinking
// it into a well-known bin directory. Verification goes by
// path-existence probing across the candidate list, not by command
// success.
package register

import (
	"fmt"
	"os"
	"path/filepath"
)

const launcherName = "murmur"

// Registrar places the launcher symlink into the first candidate
// directory that accepts it.
type Registrar struct {
	// Candidates are probed in preference order.
	Candidates []string
}

// DefaultCandidates returns the fixed install locations, most preferred
// first. The last one lives under the user's home and is created on
// demand, so registration still works without root.
func DefaultCandidates() []string {
	candidates := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".local", "bin"))
	}
	return candidates
}

func New() *Registrar {
	return &Registrar{Candidates: DefaultCandidates()}
}

// Register symlinks launcher as "murmur" into the first writable
// candidate and returns the symlink path. A symlink that already points
// at launcher is left alone; a stale one is replaced.
func (r *Registrar) Register(launcher string) (string, error) {
	for _, dir := range r.Candidates {
		link := filepath.Join(dir, launcherName)

		if existing, err := os.Readlink(link); err == nil && existing == launcher {
			return link, nil
		}

		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				continue
			}
		}

		// Remove a stale symlink or leftover file before linking.
		os.Remove(link)

		if err := os.Symlink(launcher, link); err != nil {
			continue
		}
		return link, nil
	}

	return "", fmt.Errorf("no writable location among %v", r.Candidates)
}

// Registered probes the candidate directories for an existing launcher
// and returns the first hit.
func (r *Registrar) Registered() (string, bool) {
	for _, dir := range r.Candidates {
		link := filepath.Join(dir, launcherName)
		if _, err := os.Stat(link); err == nil {
			return link, true
		}
	}
	return "", false
}

// ManualInstruction returns the command a user can run by hand when
// automatic registration failed.
func (r *Registrar) ManualInstruction(launcher string) string {
	dir := "/usr/local/bin"
	if len(r.Candidates) > 0 {
		dir = r.Candidates[0]
	}
	return fmt.Sprintf("sudo ln -sf %s %s", launcher, filepath.Join(dir, launcherName))
}
