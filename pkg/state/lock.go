package state

import (
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/arthur-debert/dotm/pkg/errors"
)

const lockFileName = ".lock"

// dirLock is an exclusive advisory lock on a state directory. It exists so
// two state-mutating dotm invocations cannot interleave their full-state
// recomputations.
type dirLock struct {
	fl *flock.Flock
}

func acquireDirLock(stateDir string) (*dirLock, error) {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrFileWrite,
			"failed to create state directory: %s", stateDir)
	}

	fl := flock.New(filepath.Join(stateDir, lockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrStateLocked,
			"failed to lock state directory %s", stateDir)
	}
	if !locked {
		return nil, errors.Newf(errors.ErrStateLocked,
			"state directory %s is locked by another dotm instance", stateDir)
	}
	return &dirLock{fl: fl}, nil
}

func (l *dirLock) release() error {
	return l.fl.Unlock()
}
