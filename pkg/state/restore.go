package state

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/metadata"
)

// Restore puts targets back the way they were before dotm touched them.
// Entries with a recorded original get their pre-existing content and
// metadata back; entries dotm created from nothing are deleted. A full
// restore (empty filter) also tears down the blob stores and the state file.
func (s *DeployState) Restore(packageFilter string) (int, error) {
	logger := logging.GetLogger("state.restore")
	restored := 0

	var remaining []DeployEntry
	for _, entry := range s.entries {
		if packageFilter != "" && entry.Package != packageFilter {
			remaining = append(remaining, entry)
			continue
		}

		if err := s.restoreEntry(entry); err != nil {
			return restored, err
		}
		logger.Info().Str("target", entry.Target).Msg("restored")
		restored++
	}
	s.entries = remaining

	if packageFilter == "" {
		if err := s.teardown(); err != nil {
			return restored, err
		}
		return restored, nil
	}

	if err := s.Save(); err != nil {
		return restored, err
	}
	return restored, nil
}

func (s *DeployState) restoreEntry(entry DeployEntry) error {
	logger := logging.GetLogger("state.restore")

	if entry.OriginalHash != "" {
		content, err := s.LoadOriginal(entry.OriginalHash)
		if err != nil {
			return err
		}

		// The target may currently be a dotm symlink; clear it first so
		// the write lands on a real file.
		if info, err := os.Lstat(entry.Target); err == nil && info.Mode()&os.ModeSymlink != 0 {
			if err := os.Remove(entry.Target); err != nil {
				return errors.Wrapf(err, errors.ErrFileAccess,
					"failed to remove symlink: %s", entry.Target)
			}
		}
		if err := os.MkdirAll(filepath.Dir(entry.Target), 0755); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite,
				"failed to create directory for %s", entry.Target)
		}
		if err := os.WriteFile(entry.Target, content, 0644); err != nil {
			return errors.Wrapf(err, errors.ErrFileWrite,
				"failed to restore %s", entry.Target)
		}

		if entry.OriginalMode != "" {
			if err := metadata.ApplyMode(entry.Target, entry.OriginalMode); err != nil {
				logger.Warn().Err(err).Str("target", entry.Target).Msg("failed to restore mode")
			}
		}
		if entry.OriginalOwner != "" || entry.OriginalGroup != "" {
			if err := metadata.ApplyOwnership(entry.Target, entry.OriginalOwner, entry.OriginalGroup); err != nil {
				logger.Warn().Err(err).Str("target", entry.Target).Msg("failed to restore ownership")
			}
		}
	} else {
		if err := removeIfPresent(entry.Target); err != nil {
			return err
		}
		removeEmptyParents(entry.Target)
	}

	if entry.Staged != entry.Target {
		if err := removeIfPresent(entry.Staged); err != nil {
			return err
		}
		removeEmptyParents(entry.Staged)
	}

	return nil
}

// Undeploy removes every managed target and staged file. Unlike Restore it
// does not put pre-existing content back. An unfiltered undeploy deletes the
// blob stores and the state file.
func (s *DeployState) Undeploy(packageFilter string) (int, error) {
	logger := logging.GetLogger("state.undeploy")
	removed := 0

	var remaining []DeployEntry
	for _, entry := range s.entries {
		if packageFilter != "" && entry.Package != packageFilter {
			remaining = append(remaining, entry)
			continue
		}

		if err := removeIfPresent(entry.Target); err != nil {
			return removed, err
		}
		removeEmptyParents(entry.Target)

		if entry.Staged != entry.Target {
			if err := removeIfPresent(entry.Staged); err != nil {
				return removed, err
			}
			removeEmptyParents(entry.Staged)
		}

		logger.Info().Str("target", entry.Target).Msg("removed")
		removed++
	}
	s.entries = remaining

	if packageFilter == "" {
		if err := s.teardown(); err != nil {
			return removed, err
		}
		return removed, nil
	}

	if err := s.Save(); err != nil {
		return removed, err
	}
	return removed, nil
}

// Forget removes a tracked target and its staged file from disk and drops
// the entry. The caller is responsible for saving. Used by prune, which
// never puts originals back.
func (s *DeployState) Forget(target string) (bool, error) {
	entry, ok := s.FindByTarget(target)
	if !ok {
		return false, nil
	}

	if err := removeIfPresent(entry.Target); err != nil {
		return false, err
	}
	removeEmptyParents(entry.Target)

	if entry.Staged != entry.Target {
		if err := removeIfPresent(entry.Staged); err != nil {
			return false, err
		}
		removeEmptyParents(entry.Staged)
	}

	s.Remove(target)
	return true, nil
}

// teardown deletes the blob stores and the state file itself
func (s *DeployState) teardown() error {
	for _, dir := range []string{DeployedDirName, OriginalsDirName} {
		path := filepath.Join(s.stateDir, dir)
		if err := os.RemoveAll(path); err != nil {
			return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove blob store: %s", path)
		}
	}

	statePath := filepath.Join(s.stateDir, StateFileName)
	if err := os.Remove(statePath); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove state file: %s", statePath)
	}
	return nil
}

func removeIfPresent(path string) error {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to stat %s", path)
	}
	if err := os.Remove(path); err != nil {
		return errors.Wrapf(err, errors.ErrFileAccess, "failed to remove %s", path)
	}
	return nil
}

// removeEmptyParents removes now-empty parent directories, walking up until
// a non-empty directory or the filesystem root.
func removeEmptyParents(path string) {
	dir := filepath.Dir(path)
	for dir != "/" && dir != "." {
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
