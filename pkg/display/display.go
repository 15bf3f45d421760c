// Package display renders command results for the terminal. Styling runs
// through lipgloss; color is dropped when stdout is not a terminal or
// NO_COLOR is set.
package display

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// FileState classifies one deployed file for status output
type FileState string

const (
	FileOK       FileState = "ok"
	FileModified FileState = "modified"
	FileMissing  FileState = "missing"
)

// FileLine is one file row of a status report
type FileLine struct {
	Path   string
	State  FileState
	Detail string
}

// PackageGroup is the status of one package's deployed files
type PackageGroup struct {
	Name  string
	Files []FileLine
}

// NeedsAttention reports whether any file in the group is unhealthy
func (g PackageGroup) NeedsAttention() bool {
	for _, f := range g.Files {
		if f.State != FileOK {
			return true
		}
	}
	return false
}

// Styles holds the lipgloss styles used across command output
type Styles struct {
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Bold    lipgloss.Style
	Dim     lipgloss.Style
}

// NewStyles returns the output styles, plain when colored is false
func NewStyles(colored bool) Styles {
	if !colored {
		plain := lipgloss.NewStyle()
		return Styles{Success: plain, Warning: plain, Error: plain, Bold: plain, Dim: plain}
	}
	return Styles{
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Bold:    lipgloss.NewStyle().Bold(true),
		Dim:     lipgloss.NewStyle().Faint(true),
	}
}

// ColorEnabled reports whether stdout wants color
func ColorEnabled() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// Renderer formats status groups and report summaries
type Renderer struct {
	styles Styles
}

// NewRenderer returns a renderer, colored or plain
func NewRenderer(colored bool) *Renderer {
	return &Renderer{styles: NewStyles(colored)}
}

func (r *Renderer) marker(state FileState) string {
	switch state {
	case FileModified:
		return r.styles.Warning.Render("M")
	case FileMissing:
		return r.styles.Error.Render("!")
	default:
		return r.styles.Success.Render("~")
	}
}

// FilesLabel pluralizes a file count
func FilesLabel(n int) string {
	if n == 1 {
		return "1 file"
	}
	return fmt.Sprintf("%d files", n)
}

// Status renders per-package groups. Without verbose only unhealthy files
// are listed under their package summary line.
func (r *Renderer) Status(groups []PackageGroup, verbose bool) string {
	var sb strings.Builder
	for _, group := range groups {
		sb.WriteString(r.styles.Bold.Render(group.Name))
		sb.WriteString(r.styles.Dim.Render(fmt.Sprintf(" (%s)", FilesLabel(len(group.Files)))))
		sb.WriteString("\n")

		for _, file := range group.Files {
			if !verbose && file.State == FileOK {
				continue
			}
			sb.WriteString(fmt.Sprintf("  %s %s", r.marker(file.State), file.Path))
			if file.Detail != "" {
				sb.WriteString(r.styles.Dim.Render("  " + file.Detail))
			}
			sb.WriteString("\n")
		}
	}
	sb.WriteString(r.Footer(groups))
	return sb.String()
}

// StatusShort renders one line per package
func (r *Renderer) StatusShort(groups []PackageGroup) string {
	var sb strings.Builder
	for _, group := range groups {
		marker := r.styles.Success.Render("~")
		if group.NeedsAttention() {
			marker = r.styles.Warning.Render("M")
		}
		sb.WriteString(fmt.Sprintf("%s %s (%s)\n", marker, group.Name, FilesLabel(len(group.Files))))
	}
	return sb.String()
}

// Footer summarizes package, file and attention counts
func (r *Renderer) Footer(groups []PackageGroup) string {
	files, attention := 0, 0
	for _, group := range groups {
		files += len(group.Files)
		for _, f := range group.Files {
			if f.State != FileOK {
				attention++
			}
		}
	}

	summary := fmt.Sprintf("%d packages, %s", len(groups), FilesLabel(files))
	if attention > 0 {
		return summary + ", " + r.styles.Warning.Render(fmt.Sprintf("%d need attention", attention))
	}
	return summary + ", " + r.styles.Success.Render("all healthy")
}
