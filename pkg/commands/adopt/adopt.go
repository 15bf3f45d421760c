// Package adopt provides the adopt command implementation for dotm. Adopt
// walks every drifted file, shows its hunks one by one and merges the
// accepted ones back into the source file in the repo, updating the
// recorded hash so status comes back clean.
package adopt

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arthur-debert/dotm/pkg/diff"
	"github.com/arthur-debert/dotm/pkg/errors"
	"github.com/arthur-debert/dotm/pkg/hashutil"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
	"github.com/arthur-debert/dotm/pkg/scanner"
	"github.com/arthur-debert/dotm/pkg/state"
)

// Options contains options for the adopt command
type Options struct {
	// Paths provides resolved locations (required)
	Paths *paths.Paths

	// Package restricts adoption to one package
	Package string

	// Input is where hunk answers are read from; defaults to stdin
	Input io.Reader

	// Output is where hunks and prompts are written; defaults to stdout
	Output io.Writer
}

// Result summarizes what adopt changed
type Result struct {
	// Adopted targets whose source files were updated
	Adopted []string

	// Skipped targets that could not be adopted, with a reason
	Skipped []string
}

// Execute runs the interactive adoption loop
func Execute(opts Options) (*Result, error) {
	logger := logging.GetLogger("commands.adopt")

	input := opts.Input
	if input == nil {
		input = os.Stdin
	}
	output := opts.Output
	if output == nil {
		output = os.Stdout
	}
	reader := bufio.NewReader(input)

	st, err := state.LoadLocked(opts.Paths.StateDir())
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	result := &Result{}
	changed := false

	for _, entry := range st.EntriesForPackage(opts.Package) {
		entryStatus, err := st.CheckEntryStatus(entry)
		if err != nil {
			return nil, err
		}
		if !entryStatus.Exists || !entryStatus.ContentModified {
			continue
		}

		// Rendered templates cannot be reverse-rendered into their source
		if entry.Kind == scanner.KindTemplate {
			fmt.Fprintf(output, "skipping %s: rendered from a template, edit the source instead\n",
				paths.DisplayPath(entry.Target))
			result.Skipped = append(result.Skipped, entry.Target)
			continue
		}

		recorded, err := st.LoadDeployed(entry.ContentHash)
		if err != nil {
			return nil, err
		}
		current, err := os.ReadFile(entry.Staged)
		if err != nil {
			return nil, errors.Wrapf(err, errors.ErrFileAccess,
				"failed to read %s", entry.Staged)
		}

		merged, accepted, err := reviewHunks(reader, output, entry, string(recorded), string(current))
		if err != nil {
			return nil, err
		}
		if !accepted {
			continue
		}

		if err := writeAdopted(st, &entry, merged); err != nil {
			return nil, err
		}
		st.Record(entry)
		result.Adopted = append(result.Adopted, entry.Target)
		changed = true
		logger.Info().Str("target", entry.Target).Msg("adopted edits into source")
	}

	if changed {
		if err := st.Save(); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// reviewHunks walks the hunks of one file, prompting per hunk. It returns
// the merged content and whether any hunk was accepted.
func reviewHunks(reader *bufio.Reader, output io.Writer, entry state.DeployEntry,
	recorded, current string) (string, bool, error) {

	hunks := diff.ExtractHunks(recorded, current)
	if len(hunks) == 0 {
		return "", false, nil
	}

	fmt.Fprintf(output, "%s has %d changed hunk(s)\n", paths.DisplayPath(entry.Target), len(hunks))

	accepted := make([]bool, len(hunks))
	any := false
	for i, hunk := range hunks {
		fmt.Fprint(output, hunk.Display)
		fmt.Fprintf(output, "accept this hunk? [y/N] ")

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", false, errors.Wrap(err, errors.ErrInternal, "failed to read answer")
		}
		answer := strings.ToLower(strings.TrimSpace(line))
		if answer == "y" || answer == "yes" {
			accepted[i] = true
			any = true
		}
		if err == io.EOF {
			break
		}
	}

	if !any {
		return "", false, nil
	}
	return diff.ApplyHunks(recorded, hunks, accepted), true, nil
}

// writeAdopted writes the merged content to the source file and the staged
// file, and updates the entry's recorded hash and blob
func writeAdopted(st *state.DeployState, entry *state.DeployEntry, merged string) error {
	content := []byte(merged)

	if err := os.WriteFile(entry.Source, content, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", entry.Source)
	}
	if err := os.WriteFile(entry.Staged, content, 0644); err != nil {
		return errors.Wrapf(err, errors.ErrFileWrite, "failed to write %s", entry.Staged)
	}

	hash := hashutil.HashContent(content)
	if err := st.StoreDeployed(hash, content); err != nil {
		return err
	}
	entry.ContentHash = hash
	return nil
}
