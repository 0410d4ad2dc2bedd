package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned by Open when another murmur-setup process holds
// the state lock.
var ErrLocked = errors.New("installation state is locked by another process")

// Log is the durable installation record plus its persistence machinery.
// All mutation methods are write-through: each one saves the full record
// before returning, so the on-disk state always reflects the latest
// completed step even if the process dies mid-run.
type Log struct {
	path string
	lock *flock.Flock
	rec  *Record

	// Warnings (corrupt state file, etc.) are written here. Defaults to
	// os.Stderr; tests substitute a buffer.
	WarnWriter io.Writer

	now func() time.Time
}

// Open acquires an exclusive advisory lock next to the state file, loads
// the persisted record (or defaults), reconciles duplicates, and persists
// the reconciled result. The lock is held until Close so that concurrent
// setup runs serialize instead of racing read-modify-write cycles.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("cannot create state directory: %w", err)
	}

	lk := flock.New(path + ".lock")
	locked, err := lk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("cannot acquire state lock: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}

	l := &Log{
		path:       path,
		lock:       lk,
		WarnWriter: os.Stderr,
		now:        func() time.Time { return time.Now().UTC() },
	}

	l.load()
	if err := l.Reconcile(); err != nil {
		lk.Unlock()
		return nil, err
	}
	return l, nil
}

// Close releases the state lock.
func (l *Log) Close() error {
	if l.lock != nil {
		return l.lock.Unlock()
	}
	return nil
}

// Record returns a copy of the current in-memory record.
func (l *Log) Record() Record {
	rec := *l.rec
	rec.Components.Packages = append([]PackageEntry(nil), l.rec.Components.Packages...)
	rec.Components.Assets = append([]AssetEntry(nil), l.rec.Components.Assets...)
	return rec
}

// Path returns the state file location.
func (l *Log) Path() string {
	return l.path
}

// load reads the persisted record. A missing file yields defaults; a
// corrupt file yields defaults with a warning, discarding the old
// contents on the next save.
func (l *Log) load() {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(l.WarnWriter, "Warning: cannot read state file %s: %v (starting fresh)\n", l.path, err)
		}
		l.rec = NewRecord()
		return
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		fmt.Fprintf(l.WarnWriter, "Warning: state file %s is corrupt: %v (starting fresh)\n", l.path, err)
		l.rec = NewRecord()
		return
	}

	if rec.Components.Packages == nil {
		rec.Components.Packages = []PackageEntry{}
	}
	if rec.Components.Assets == nil {
		rec.Components.Assets = []AssetEntry{}
	}
	l.rec = &rec
}

// Reconcile collapses duplicate package/asset entries accumulated by prior
// buggy runs, keeping the most recent InstalledAt per name, then persists
// the result and refreshes the root timestamp.
func (l *Log) Reconcile() error {
	l.rec.reconcile()
	return l.save()
}

// UpsertPackage records a dependency install: replace the entry with the
// same name in place, or append a new one, then save.
func (l *Log) UpsertPackage(name, version string) error {
	now := l.now()
	for i, p := range l.rec.Components.Packages {
		if p.Name == name {
			l.rec.Components.Packages[i].Version = version
			l.rec.Components.Packages[i].InstalledAt = now
			return l.save()
		}
	}
	l.rec.Components.Packages = append(l.rec.Components.Packages, PackageEntry{
		Name:        name,
		Version:     version,
		InstalledAt: now,
	})
	return l.save()
}

// UpsertAsset records a cached asset: replace in place or append, then save.
func (l *Log) UpsertAsset(name, path string) error {
	now := l.now()
	for i, a := range l.rec.Components.Assets {
		if a.Name == name {
			l.rec.Components.Assets[i].Path = path
			l.rec.Components.Assets[i].InstalledAt = now
			return l.save()
		}
	}
	l.rec.Components.Assets = append(l.rec.Components.Assets, AssetEntry{
		Name:        name,
		Path:        path,
		InstalledAt: now,
	})
	return l.save()
}

// SetComponent applies mutate to the named scalar component and saves.
// The component's InstalledAt is refreshed.
func (l *Log) SetComponent(key ComponentKey, mutate func(*ComponentStatus)) error {
	c := l.rec.component(key)
	if c == nil {
		return fmt.Errorf("unknown component key %q", key)
	}
	mutate(c)
	c.InstalledAt = l.now()
	return l.save()
}

// save atomically replaces the state file: marshal to a temp file in the
// same directory, then rename over the destination. A failed write never
// leaves a truncated record behind.
func (l *Log) save() error {
	l.rec.InstalledAt = l.now()

	data, err := json.MarshalIndent(l.rec, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal state: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(l.path), ".install-state-*.json")
	if err != nil {
		return fmt.Errorf("cannot create temp state file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("cannot write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cannot close temp state file: %w", err)
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("cannot replace state file: %w", err)
	}
	return nil
}
