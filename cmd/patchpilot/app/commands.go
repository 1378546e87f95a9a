package app

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/patchpilot/cmd/patchpilot/cmd/dmg"
	"github.com/agentstation/patchpilot/cmd/patchpilot/cmd/notify"
	"github.com/agentstation/patchpilot/cmd/patchpilot/cmd/reconcile"
)

// registerCommands registers all subcommands with the root command.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Core commands
	rootCmd.AddCommand(reconcile.NewCommand(a))
	rootCmd.AddCommand(notify.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(dmg.NewCommand(a))
	rootCmd.AddCommand(a.CreateVersionCommand())
}

// CreateVersionCommand creates the version command.
func (a *App) CreateVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		GroupID: "utility",
		Short:   "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("patchpilot %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
