package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/dotm/internal/version"
	"github.com/arthur-debert/dotm/pkg/logging"
	"github.com/arthur-debert/dotm/pkg/paths"
)

// globalFlags are shared by every subcommand
type globalFlags struct {
	verbosity  int
	dir        string
	systemMode bool
}

// resolvePaths turns the global flags into resolved locations
func (g *globalFlags) resolvePaths() (*paths.Paths, error) {
	return paths.New(g.dir, g.systemMode)
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "dotm",
		Short: "A host- and role-aware dotfiles manager",
		Long: `dotm deploys configuration files from a version-controlled source tree,
resolving per-host and per-role variants, rendering templates, and tracking
enough state to detect drift, restore displaced files, and remove everything
it manages.`,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(flags.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v",
		"Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)")
	rootCmd.PersistentFlags().StringVar(&flags.dir, "dir", "",
		"Dotfiles directory (default $DOTM_DIR, then ~/.dotfiles)")
	rootCmd.PersistentFlags().BoolVar(&flags.systemMode, "system", false,
		"Operate on system packages (separate state under /var/lib/dotm)")

	rootCmd.AddCommand(
		newDeployCmd(flags),
		newUndeployCmd(flags),
		newStatusCmd(flags),
		newDiffCmd(flags),
		newAdoptCmd(flags),
		newRestoreCmd(flags),
		newCheckCmd(flags),
		newAddCmd(flags),
		newPruneCmd(flags),
		newListCmd(flags),
		newInitCmd(flags),
		newSyncCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("dotm version %s\n", version.Version)
			fmt.Printf("  commit: %s\n", version.Commit)
			fmt.Printf("  built:  %s\n", version.Date)
		},
	}
}
