// Package state persists the durable record of what murmur-setup has
// provisioned. The record is the single source of truth consulted and
// mutated by every pipeline stage.
package state

import (
	"sort"
	"time"
)

// SchemaVersion identifies the on-disk record layout.
const SchemaVersion = "1"

// ComponentKey names one scalar component slot in the record.
type ComponentKey string

const (
	ComponentSystemPackageManager ComponentKey = "systemPackageManager"
	ComponentLanguageRuntime      ComponentKey = "languageRuntime"
	ComponentIsolatedEnvironment  ComponentKey = "isolatedEnvironment"
	ComponentShellConfig          ComponentKey = "shellConfig"
)

// ComponentStatus describes one scalar provisioned component.
type ComponentStatus struct {
	Installed       bool      `json:"installed"`
	Path            string    `json:"path,omitempty"`
	Version         string    `json:"version,omitempty"`
	InstalledBySetup bool     `json:"installedByOrchestrator"`
	InstalledAt     time.Time `json:"installedAt,omitempty"`

	// BackupPath holds the pre-mutation profile copy for the shellConfig
	// component; empty for all others.
	BackupPath string `json:"backupPath,omitempty"`
}

// PackageEntry records one installed Python dependency. Name is unique
// within the collection.
type PackageEntry struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	InstalledAt time.Time `json:"installedAt"`
}

// AssetEntry records one cached binary asset. Name is unique within the
// collection.
type AssetEntry struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	InstalledAt time.Time `json:"installedAt"`
}

// Components holds the fixed component slots plus the two name-keyed
// collections.
type Components struct {
	SystemPackageManager ComponentStatus `json:"systemPackageManager"`
	LanguageRuntime      ComponentStatus `json:"languageRuntime"`
	IsolatedEnvironment  ComponentStatus `json:"isolatedEnvironment"`
	ShellConfig          ComponentStatus `json:"shellConfig"`
	Packages             []PackageEntry  `json:"packages"`
	Assets               []AssetEntry    `json:"assets"`
}

// Record is the persisted installation state. InstalledAt reflects the
// most recent reconciliation or mutation, never the original creation time.
type Record struct {
	SchemaVersion string     `json:"schemaVersion"`
	InstalledAt   time.Time  `json:"installedAt"`
	Components    Components `json:"components"`
}

// NewRecord returns a fresh record with defaults for a machine where
// nothing has been provisioned yet.
func NewRecord() *Record {
	return &Record{
		SchemaVersion: SchemaVersion,
		InstalledAt:   time.Now().UTC(),
		Components: Components{
			Packages: []PackageEntry{},
			Assets:   []AssetEntry{},
		},
	}
}

// component returns a pointer to the named scalar slot, or nil for an
// unknown key.
func (r *Record) component(key ComponentKey) *ComponentStatus {
	switch key {
	case ComponentSystemPackageManager:
		return &r.Components.SystemPackageManager
	case ComponentLanguageRuntime:
		return &r.Components.LanguageRuntime
	case ComponentIsolatedEnvironment:
		return &r.Components.IsolatedEnvironment
	case ComponentShellConfig:
		return &r.Components.ShellConfig
	}
	return nil
}

// reconcile collapses duplicate package and asset entries by name, keeping
// the entry with the latest InstalledAt, and sorts both collections by
// name. Returns true when anything changed.
func (r *Record) reconcile() bool {
	changed := false

	dedupPkgs := map[string]PackageEntry{}
	for _, p := range r.Components.Packages {
		if prev, ok := dedupPkgs[p.Name]; ok {
			changed = true
			if !p.InstalledAt.After(prev.InstalledAt) {
				continue
			}
		}
		dedupPkgs[p.Name] = p
	}

	dedupAssets := map[string]AssetEntry{}
	for _, a := range r.Components.Assets {
		if prev, ok := dedupAssets[a.Name]; ok {
			changed = true
			if !a.InstalledAt.After(prev.InstalledAt) {
				continue
			}
		}
		dedupAssets[a.Name] = a
	}

	pkgs := make([]PackageEntry, 0, len(dedupPkgs))
	for _, p := range dedupPkgs {
		pkgs = append(pkgs, p)
	}
	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].Name < pkgs[j].Name })

	assets := make([]AssetEntry, 0, len(dedupAssets))
	for _, a := range dedupAssets {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Name < assets[j].Name })

	if !changed {
		// Sorting alone counts as a change if the order differs.
		for i := range pkgs {
			if r.Components.Packages[i] != pkgs[i] {
				changed = true
				break
			}
		}
	}
	if !changed {
		for i := range assets {
			if r.Components.Assets[i] != assets[i] {
				changed = true
				break
			}
		}
	}

	r.Components.Packages = pkgs
	r.Components.Assets = assets
	return changed
}
