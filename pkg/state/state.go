// Package state persists the record of every deployed file, backed by two
// content-addressed blob stores ("deployed" and "originals"). It serves the
// read side of status/diff/adopt and implements restore and undeploy.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/hashutil"
	"github.com/arthur-debert/dotm/pkg/metadata"
	"github.com/arthur-debert/dotm/pkg/scanner"
)

const (
	// StateFileName is the persisted state document inside the state dir
	StateFileName = "dotm-state.json"

	// DeployedDirName holds blobs of content as last written by dotm
	DeployedDirName = "deployed"

	// OriginalsDirName holds blobs of pre-existing content displaced on
	// first deploy
	OriginalsDirName = "originals"

	// legacyOriginalsDirName is the v1 on-disk name for the originals store
	legacyOriginalsDirName = "backup"

	// CurrentVersion of the persisted format. Loading a newer version is a
	// hard error; older versions are upgraded in memory.
	CurrentVersion = 2
)

// DeployEntry is the persisted record of one deployed file
type DeployEntry struct {
	// Target is the final location the user sees
	Target string `json:"target"`

	// Staged is the real file backing a symlink; equals Target for the
	// copy strategy
	Staged string `json:"staged"`

	// Source is the absolute path of the originating file in the repo
	Source string `json:"source"`

	// ContentHash is the hash of the deployed content at last successful
	// deploy
	ContentHash string `json:"content_hash"`

	// OriginalHash is set only if a pre-existing unmanaged file was
	// displaced by the first deploy
	OriginalHash string `json:"original_hash,omitempty"`

	Kind    scanner.EntryKind `json:"kind"`
	Package string            `json:"package"`

	// Metadata dotm resolved and applied; empty fields were left alone
	Owner string `json:"owner,omitempty"`
	Group string `json:"group,omitempty"`
	Mode  string `json:"mode,omitempty"`

	// Metadata of the displaced pre-existing file, for restore
	OriginalOwner string `json:"original_owner,omitempty"`
	OriginalGroup string `json:"original_group,omitempty"`
	OriginalMode  string `json:"original_mode,omitempty"`
}

// EntryStatus is the result of checking one entry against the filesystem
type EntryStatus struct {
	Exists          bool
	ContentModified bool
	OwnerChanged    bool
	GroupChanged    bool
	ModeChanged     bool
}

// Healthy reports whether the entry is present and unchanged
func (s EntryStatus) Healthy() bool {
	return s.Exists && !s.ContentModified && !s.OwnerChanged && !s.GroupChanged && !s.ModeChanged
}

type persistedState struct {
	Version int           `json:"version"`
	Entries []DeployEntry `json:"entries"`
}

// DeployState is the in-memory handle on a state directory
type DeployState struct {
	stateDir string
	version  int
	entries  []DeployEntry
	lock     *dirLock
}

// New returns an empty state bound to stateDir
func New(stateDir string) *DeployState {
	return &DeployState{stateDir: stateDir, version: CurrentVersion}
}

// Load reads the state file from stateDir. A missing file yields an empty
// state. Loading also migrates the v1 "backup" blob directory to its
// current "originals" name.
func Load(stateDir string) (*DeployState, error) {
	migrateLegacyLayout(stateDir)

	path := filepath.Join(stateDir, StateFileName)
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return New(stateDir), nil
		}
		return nil, errors.Wrapf(err, errors.ErrStateLoad, "failed to read state file: %s", path)
	}

	var persisted persistedState
	if err := json.Unmarshal(content, &persisted); err != nil {
		return nil, errors.Wrapf(err, errors.ErrStateLoad, "failed to parse state file: %s", path)
	}

	if persisted.Version > CurrentVersion {
		return nil, errors.Newf(errors.ErrStateVersion,
			"state file %s has version %d, but this dotm only supports up to %d",
			path, persisted.Version, CurrentVersion)
	}

	return &DeployState{
		stateDir: stateDir,
		version:  CurrentVersion,
		entries:  persisted.Entries,
	}, nil
}

// LoadLocked loads the state while holding an exclusive advisory lock on the
// state directory. Every state-mutating command goes through this; the lock
// is released by Close.
func LoadLocked(stateDir string) (*DeployState, error) {
	lock, err := acquireDirLock(stateDir)
	if err != nil {
		return nil, err
	}

	state, err := Load(stateDir)
	if err != nil {
		_ = lock.release()
		return nil, err
	}
	state.lock = lock
	return state, nil
}

// Close releases the advisory lock, if one is held
func (s *DeployState) Close() error {
	if s.lock == nil {
		return nil
	}
	err := s.lock.release()
	s.lock = nil
	return err
}

// migrateLegacyLayout renames the v1 "backup" blob directory to "originals"
func migrateLegacyLayout(stateDir string) {
	legacy := filepath.Join(stateDir, legacyOriginalsDirName)
	current := filepath.Join(stateDir, OriginalsDirName)
	if _, err := os.Stat(legacy); err != nil {
		return
	}
	if _, err := os.Stat(current); err == nil {
		return
	}
	_ = os.Rename(legacy, current)
}

// StateDir returns the directory this state persists into
func (s *DeployState) StateDir() string {
	return s.stateDir
}

// Version returns the in-memory format version
func (s *DeployState) Version() int {
	return s.version
}

// Entries returns all tracked entries
func (s *DeployState) Entries() []DeployEntry {
	return s.entries
}

// EntriesForPackage returns tracked entries, optionally filtered by owning
// package. An empty filter matches everything.
func (s *DeployState) EntriesForPackage(packageFilter string) []DeployEntry {
	if packageFilter == "" {
		return s.entries
	}
	var matched []DeployEntry
	for _, entry := range s.entries {
		if entry.Package == packageFilter {
			matched = append(matched, entry)
		}
	}
	return matched
}

// FindByTarget returns the entry deployed at target, if tracked
func (s *DeployState) FindByTarget(target string) (DeployEntry, bool) {
	for _, entry := range s.entries {
		if entry.Target == target {
			return entry, true
		}
	}
	return DeployEntry{}, false
}

// Record upserts an entry, keyed by target path
func (s *DeployState) Record(entry DeployEntry) {
	for i := range s.entries {
		if s.entries[i].Target == entry.Target {
			// Keep the original snapshot from the very first deploy
			if entry.OriginalHash == "" && s.entries[i].OriginalHash != "" {
				entry.OriginalHash = s.entries[i].OriginalHash
				entry.OriginalOwner = s.entries[i].OriginalOwner
				entry.OriginalGroup = s.entries[i].OriginalGroup
				entry.OriginalMode = s.entries[i].OriginalMode
			}
			s.entries[i] = entry
			return
		}
	}
	s.entries = append(s.entries, entry)
}

// Remove drops the entry for target, reporting whether one was present
func (s *DeployState) Remove(target string) bool {
	for i := range s.entries {
		if s.entries[i].Target == target {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// Save writes the whole state document in one call
func (s *DeployState) Save() error {
	if err := os.MkdirAll(s.stateDir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to create state directory: %s", s.stateDir)
	}

	persisted := persistedState{Version: s.version, Entries: s.entries}
	content, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.ErrInternal, "failed to encode state")
	}

	path := filepath.Join(s.stateDir, StateFileName)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write state file: %s", path)
	}
	return nil
}

// StoreDeployed writes content into the deployed blob store, keyed by hash.
// Existing blobs are never overwritten: identical hash implies identical
// content.
func (s *DeployState) StoreDeployed(hash string, content []byte) error {
	return s.storeBlob(DeployedDirName, hash, content)
}

// LoadDeployed reads a blob from the deployed store
func (s *DeployState) LoadDeployed(hash string) ([]byte, error) {
	return s.loadBlob(DeployedDirName, hash)
}

// StoreOriginal writes content into the originals blob store, keyed by hash
func (s *DeployState) StoreOriginal(hash string, content []byte) error {
	return s.storeBlob(OriginalsDirName, hash, content)
}

// LoadOriginal reads a blob from the originals store
func (s *DeployState) LoadOriginal(hash string) ([]byte, error) {
	return s.loadBlob(OriginalsDirName, hash)
}

func (s *DeployState) storeBlob(store, hash string, content []byte) error {
	dir := filepath.Join(s.stateDir, store)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to create blob store: %s", dir)
	}

	path := filepath.Join(dir, hash)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write blob: %s", path)
	}
	return nil
}

func (s *DeployState) loadBlob(store, hash string) ([]byte, error) {
	path := filepath.Join(s.stateDir, store, hash)
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrBlobMissing, "missing blob %s in %s", hash, store)
	}
	return content, nil
}

// CheckEntryStatus compares a tracked entry against the filesystem. Only
// metadata fields dotm actually set are checked for drift.
func (s *DeployState) CheckEntryStatus(entry DeployEntry) (EntryStatus, error) {
	var status EntryStatus

	info, err := os.Lstat(entry.Target)
	if err != nil {
		if os.IsNotExist(err) {
			return status, nil
		}
		return status, errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", entry.Target)
	}
	if !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0 {
		return status, nil
	}
	status.Exists = true

	currentHash, err := hashutil.HashFile(entry.Staged)
	if err != nil {
		// Backing file gone counts as missing even if the target remains
		status.Exists = false
		return status, nil
	}
	status.ContentModified = currentHash != entry.ContentHash

	if entry.Owner != "" || entry.Group != "" || entry.Mode != "" {
		owner, group, mode, err := metadata.ReadFileMetadata(entry.Staged)
		if err != nil {
			return status, err
		}
		status.OwnerChanged = entry.Owner != "" && owner != entry.Owner
		status.GroupChanged = entry.Group != "" && group != entry.Group
		status.ModeChanged = entry.Mode != "" && mode != entry.Mode
	}

	return status, nil
}
