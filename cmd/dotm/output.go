package main

import (
	"fmt"
	"strings"

	listcmd "github.com/arthur-debert/dotm/pkg/commands/list"
	statuscmd "github.com/arthur-debert/dotm/pkg/commands/status"
	"github.com/arthur-debert/dotm/pkg/deploy"
	"github.com/arthur-debert/dotm/pkg/display"
	"github.com/arthur-debert/dotm/pkg/paths"
)

// printDeployReport writes the deploy summary and returns a
// needs-attention error when files were skipped over conflicts
func printDeployReport(report *deploy.Report, dryRun bool) error {
	styles := display.NewStyles(display.ColorEnabled())

	if dryRun {
		for _, action := range report.Planned {
			fmt.Printf("%s %s  %s%s\n",
				styles.Dim.Render(string(action.Strategy)),
				paths.DisplayPath(action.Target),
				styles.Dim.Render("from "),
				styles.Dim.Render(action.Package))
		}
		fmt.Printf("would deploy %s\n", display.FilesLabel(len(report.Planned)))
	} else {
		for _, target := range report.Created {
			fmt.Printf("%s %s\n", styles.Success.Render("+"), paths.DisplayPath(target))
		}
		for _, target := range report.Updated {
			fmt.Printf("%s %s\n", styles.Warning.Render("U"), paths.DisplayPath(target))
		}
		for _, target := range report.Pruned {
			fmt.Printf("%s %s\n", styles.Dim.Render("-"), paths.DisplayPath(target))
		}
		fmt.Printf("%d created, %d updated, %d unchanged\n",
			len(report.Created), len(report.Updated), len(report.Unchanged))
	}

	for _, warning := range report.Warnings {
		fmt.Println(styles.Warning.Render("warning: ") + warning)
	}
	for _, conflict := range report.Conflicts {
		fmt.Printf("%s%s: %s\n",
			styles.Error.Render("conflict: "),
			paths.DisplayPath(conflict.Target), conflict.Reason)
	}

	if report.HasConflicts() {
		return &needsAttentionError{
			msg: fmt.Sprintf("%d files skipped over conflicts", len(report.Conflicts)),
		}
	}
	return nil
}

// statusGroups converts the status result into display groups
func statusGroups(result *statuscmd.Result) []display.PackageGroup {
	groups := make([]display.PackageGroup, 0, len(result.Groups))
	for _, group := range result.Groups {
		lines := make([]display.FileLine, 0, len(group.Files))
		for _, file := range group.Files {
			lines = append(lines, display.FileLine{
				Path:   paths.DisplayPath(file.Entry.Target),
				State:  fileState(file),
				Detail: fileDetail(file),
			})
		}
		groups = append(groups, display.PackageGroup{Name: group.Package, Files: lines})
	}
	return groups
}

func fileState(file statuscmd.FileStatus) display.FileState {
	switch {
	case !file.Status.Exists:
		return display.FileMissing
	case file.Status.Healthy():
		return display.FileOK
	default:
		return display.FileModified
	}
}

func fileDetail(file statuscmd.FileStatus) string {
	var parts []string
	if file.Status.ContentModified {
		parts = append(parts, "content changed")
	}
	if file.Status.ModeChanged {
		parts = append(parts, "mode changed")
	}
	if file.Status.OwnerChanged {
		parts = append(parts, "owner changed")
	}
	if file.Status.GroupChanged {
		parts = append(parts, "group changed")
	}
	return strings.Join(parts, ", ")
}

func printListResult(result *listcmd.Result, verbose bool) {
	styles := display.NewStyles(display.ColorEnabled())

	for _, host := range result.Hosts {
		fmt.Printf("%s %s\n", styles.Bold.Render(host.Name),
			styles.Dim.Render("roles: "+strings.Join(host.Roles, ", ")))
	}
	for _, role := range result.Roles {
		fmt.Printf("%s %s\n", styles.Bold.Render(role.Name),
			styles.Dim.Render("packages: "+strings.Join(role.Packages, ", ")))
	}
	for _, pkg := range result.Packages {
		line := styles.Bold.Render(pkg.Name)
		if pkg.System {
			line += styles.Dim.Render(" [system]")
		}
		if pkg.Description != "" {
			line += "  " + pkg.Description
		}
		fmt.Println(line)
		if !verbose {
			continue
		}
		if len(pkg.Depends) > 0 {
			fmt.Printf("  depends:  %s\n", strings.Join(pkg.Depends, ", "))
		}
		if len(pkg.Suggests) > 0 {
			fmt.Printf("  suggests: %s\n", strings.Join(pkg.Suggests, ", "))
		}
		fmt.Printf("  strategy: %s, deployed: %s\n",
			pkg.Strategy, display.FilesLabel(pkg.DeployedFiles))
	}
}
