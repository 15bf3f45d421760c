package main

import (
	"fmt"

	"github.com/spf13/cobra"

	addcmd "github.com/arthur-debert/dotm/pkg/commands/add"
	adoptcmd "github.com/arthur-debert/dotm/pkg/commands/adopt"
	checkcmd "github.com/arthur-debert/dotm/pkg/commands/check"
	deploycmd "github.com/arthur-debert/dotm/pkg/commands/deploy"
	"github.com/arthur-debert/dotm/pkg/commands/diffcmd"
	initcmd "github.com/arthur-debert/dotm/pkg/commands/initialize"
	listcmd "github.com/arthur-debert/dotm/pkg/commands/list"
	prunecmd "github.com/arthur-debert/dotm/pkg/commands/prune"
	restorecmd "github.com/arthur-debert/dotm/pkg/commands/restore"
	statuscmd "github.com/arthur-debert/dotm/pkg/commands/status"
	synccmd "github.com/arthur-debert/dotm/pkg/commands/sync"
	undeploycmd "github.com/arthur-debert/dotm/pkg/commands/undeploy"
	"github.com/arthur-debert/dotm/pkg/display"
)

func newDeployCmd(flags *globalFlags) *cobra.Command {
	var (
		host    string
		dryRun  bool
		force   bool
		pkgName string
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy packages for a host",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := deploycmd.Execute(deploycmd.Options{
				Paths:   p,
				Host:    host,
				DryRun:  dryRun,
				Force:   force,
				Package: pkgName,
			})
			if err != nil {
				return err
			}
			return printDeployReport(result.Report, dryRun)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Host config to deploy (default: current hostname)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Preview without touching the filesystem")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite drifted files and adopt unmanaged ones")
	cmd.Flags().StringVar(&pkgName, "package", "", "Deploy only this package and its dependencies")
	return cmd
}

func newUndeployCmd(flags *globalFlags) *cobra.Command {
	var pkgName string

	cmd := &cobra.Command{
		Use:   "undeploy",
		Short: "Remove every managed file without restoring originals",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := undeploycmd.Execute(undeploycmd.Options{Paths: p, Package: pkgName})
			if err != nil {
				return err
			}
			fmt.Printf("removed %s\n", display.FilesLabel(result.Removed))
			return nil
		},
	}
	cmd.Flags().StringVar(&pkgName, "package", "", "Undeploy only this package")
	return cmd
}

func newStatusCmd(flags *globalFlags) *cobra.Command {
	var (
		pkgName      string
		verboseFiles bool
		short        bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the health of every deployed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := statuscmd.Execute(statuscmd.Options{Paths: p, Package: pkgName})
			if err != nil {
				return err
			}

			renderer := display.NewRenderer(display.ColorEnabled())
			groups := statusGroups(result)
			if short {
				fmt.Print(renderer.StatusShort(groups))
			} else {
				fmt.Println(renderer.Status(groups, verboseFiles))
			}

			if result.NeedsAttention() {
				return &needsAttentionError{msg: "deployed files need attention"}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&pkgName, "package", "", "Show only this package")
	cmd.Flags().BoolVar(&verboseFiles, "verbose-files", false, "List healthy files too")
	cmd.Flags().BoolVar(&short, "short", false, "One line per package")
	return cmd
}

func newDiffCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff [path]",
		Short: "Show unified diffs for drifted files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			filter := ""
			if len(args) == 1 {
				filter = args[0]
			}
			result, err := diffcmd.Execute(diffcmd.Options{Paths: p, PathFilter: filter})
			if err != nil {
				return err
			}
			if len(result.Diffs) == 0 {
				fmt.Println("no drifted files")
				return nil
			}
			for _, fileDiff := range result.Diffs {
				fmt.Println(fileDiff.Text)
			}
			return nil
		},
	}
	return cmd
}

func newAdoptCmd(flags *globalFlags) *cobra.Command {
	var pkgName string

	cmd := &cobra.Command{
		Use:   "adopt",
		Short: "Merge on-disk edits back into package sources, hunk by hunk",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := adoptcmd.Execute(adoptcmd.Options{Paths: p, Package: pkgName})
			if err != nil {
				return err
			}
			fmt.Printf("adopted %d, skipped %d\n", len(result.Adopted), len(result.Skipped))
			return nil
		},
	}
	cmd.Flags().StringVar(&pkgName, "package", "", "Adopt only this package")
	return cmd
}

func newRestoreCmd(flags *globalFlags) *cobra.Command {
	var (
		pkgName string
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Put displaced files back and remove created ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := restorecmd.Execute(restorecmd.Options{
				Paths:   p,
				Package: pkgName,
				DryRun:  dryRun,
			})
			if err != nil {
				return err
			}
			if result.DryRun {
				for _, target := range result.Targets {
					fmt.Println(target)
				}
				fmt.Printf("would restore %s\n", display.FilesLabel(result.Restored))
				return nil
			}
			fmt.Printf("restored %s\n", display.FilesLabel(result.Restored))
			return nil
		},
	}
	cmd.Flags().StringVar(&pkgName, "package", "", "Restore only this package")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List what would be restored")
	return cmd
}

func newCheckCmd(flags *globalFlags) *cobra.Command {
	var warnSuggestions bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the whole configuration, reporting every problem",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := checkcmd.Execute(checkcmd.Options{
				Paths:           p,
				WarnSuggestions: warnSuggestions,
			})
			if err != nil {
				return err
			}

			styles := display.NewStyles(display.ColorEnabled())
			for _, msg := range result.Errors {
				fmt.Println(styles.Error.Render("error: ") + msg)
			}
			for _, msg := range result.Warnings {
				fmt.Println(styles.Warning.Render("warning: ") + msg)
			}
			if !result.Clean() {
				return &needsAttentionError{msg: "configuration has validation errors"}
			}
			fmt.Println("configuration is valid")
			return nil
		},
	}
	cmd.Flags().BoolVar(&warnSuggestions, "warn-suggestions", false,
		"Also warn about suggests entries naming undeclared packages")
	return cmd
}

func newAddCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "add <package> <files...>",
		Short: "Move existing files into a package",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := addcmd.Execute(addcmd.Options{
				Paths:   p,
				Package: args[0],
				Files:   args[1:],
				Force:   force,
			})
			if err != nil {
				return err
			}
			for _, rel := range result.Added {
				fmt.Printf("added %s\n", rel)
			}
			fmt.Println("run 'dotm deploy' to link them back into place")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite files already in the package")
	return cmd
}

func newPruneCmd(flags *globalFlags) *cobra.Command {
	var (
		host   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove targets no longer produced by a fresh plan",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := prunecmd.Execute(prunecmd.Options{
				Paths:  p,
				Host:   host,
				DryRun: dryRun,
			})
			if err != nil {
				return err
			}
			for _, target := range result.Pruned {
				fmt.Println(target)
			}
			if result.DryRun {
				fmt.Printf("would prune %s\n", display.FilesLabel(len(result.Pruned)))
			} else {
				fmt.Printf("pruned %s\n", display.FilesLabel(len(result.Pruned)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Host config to plan against (default: current hostname)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "List stale targets without removing them")
	return cmd
}

func newListCmd(flags *globalFlags) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:       "list [packages|roles|hosts|tree]",
		Short:     "List declared packages, roles and hosts",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"packages", "roles", "hosts", "tree"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			kind := listcmd.KindPackages
			if len(args) == 1 {
				kind = listcmd.Kind(args[0])
			}
			result, err := listcmd.Execute(listcmd.Options{Paths: p, Kind: kind})
			if err != nil {
				return err
			}
			printListResult(result, verbose)
			return nil
		},
	}
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Show dependencies and deployment details")
	return cmd
}

func newInitCmd(flags *globalFlags) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "init <package>",
		Short: "Scaffold a package directory and its config entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := initcmd.Execute(initcmd.Options{
				Paths:       p,
				Package:     args[0],
				Description: description,
			})
			if err != nil {
				return err
			}
			fmt.Printf("created %s\n", result.PackageDir)
			return nil
		},
	}
	cmd.Flags().StringVar(&description, "description", "", "Package description")
	return cmd
}

func newSyncCmd(flags *globalFlags) *cobra.Command {
	var message string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Commit, pull and push the dotfiles repository",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := flags.resolvePaths()
			if err != nil {
				return err
			}
			result, err := synccmd.Execute(synccmd.Options{Paths: p, Message: message})
			if err != nil {
				return err
			}
			switch {
			case result.Sync.Clean && !result.Sync.Pulled:
				fmt.Println("nothing to sync")
			case result.Sync.Pushed:
				fmt.Println("synced: committed, pulled and pushed")
			case result.Sync.Committed:
				fmt.Println("committed local changes (no remote configured)")
			default:
				fmt.Println("up to date")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&message, "message", "m", "", "Commit message for local changes")
	return cmd
}
