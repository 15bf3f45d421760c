// Package hooks runs the shell commands a package declares around its
// deployment. Commands run via sh -c with the package context exported in
// the environment.
package hooks

import (
	"os"
	"os/exec"
	"strings"

	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/logging"
)

// Environment variables exported to hook commands
const (
	EnvPackage = "DOTM_PACKAGE"
	EnvTarget  = "DOTM_TARGET"
	EnvAction  = "DOTM_ACTION"
)

// Run executes a hook command in dir. A non-zero exit status is an error
// carrying the command's combined output.
func Run(command, dir, pkgName, targetDir, action string) error {
	if command == "" {
		return nil
	}

	logger := logging.GetLogger("hooks")
	logger.Debug().
		Str("package", pkgName).
		Str("action", action).
		Str("command", command).
		Msg("running hook")

	cmd := exec.Command("sh", "-c", command)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		EnvPackage+"="+pkgName,
		EnvTarget+"="+targetDir,
		EnvAction+"="+action,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.Wrapf(err, errors.ErrHookFailed,
			"%s hook for package '%s' failed: %s", action, pkgName,
			strings.TrimSpace(string(output)))
	}
	return nil
}
