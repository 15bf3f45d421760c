// Package git is a thin wrapper over the git binary for syncing the
// dotfiles repository. Any git failure is reported as is, never retried.
package git

import (
	"os/exec"
	"strings"

	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/logging"
)

// DefaultCommitMessage is used when sync commits without an explicit message
const DefaultCommitMessage = "dotm sync"

// SyncResult summarizes what one sync invocation did
type SyncResult struct {
	// Clean means there was nothing to commit
	Clean bool

	Committed bool
	Pulled    bool
	Pushed    bool
}

// IsRepo reports whether dir is inside a git work tree
func IsRepo(dir string) bool {
	out, err := run(dir, "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(out) == "true"
}

// Sync commits local changes, pulls with rebase and pushes. Pull and push
// are skipped when the repository has no remote.
func Sync(dir, message string) (*SyncResult, error) {
	logger := logging.GetLogger("git")

	if !IsRepo(dir) {
		return nil, errors.Newf(errors.ErrInvalidInput, "not a git repository: %s", dir)
	}

	result := &SyncResult{}

	status, err := run(dir, "status", "--porcelain")
	if err != nil {
		return nil, err
	}
	result.Clean = strings.TrimSpace(status) == ""

	if !result.Clean {
		if message == "" {
			message = DefaultCommitMessage
		}
		if _, err := run(dir, "add", "-A"); err != nil {
			return nil, err
		}
		if _, err := run(dir, "commit", "-m", message); err != nil {
			return nil, err
		}
		result.Committed = true
		logger.Info().Str("message", message).Msg("committed local changes")
	}

	if !hasRemote(dir) {
		return result, nil
	}

	if _, err := run(dir, "pull", "--rebase"); err != nil {
		return nil, err
	}
	result.Pulled = true

	if _, err := run(dir, "push"); err != nil {
		return nil, err
	}
	result.Pushed = true

	return result, nil
}

func hasRemote(dir string) bool {
	out, err := run(dir, "remote")
	return err == nil && strings.TrimSpace(out) != ""
}

func run(dir string, args ...string) (string, error) {
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", errors.Wrapf(err, errors.ErrInternal,
			"git %s failed: %s", strings.Join(args, " "),
			strings.TrimSpace(string(output)))
	}
	return string(output), nil
}
