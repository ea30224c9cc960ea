package app

import (
	"github.com/spf13/cobra"

	"github.com/hubmapconsortium/channelmap/cmd/channelmap/cmd/annotate"
	"github.com/hubmapconsortium/channelmap/cmd/channelmap/cmd/channels"
	"github.com/hubmapconsortium/channelmap/cmd/channelmap/cmd/validate"
)

// registerCommands registers all subcommands with the root command.
// This is where we wire up the command handlers.
func (a *App) registerCommands(rootCmd *cobra.Command) {
	// Pipeline commands
	rootCmd.AddCommand(annotate.NewCommand(a))
	rootCmd.AddCommand(channels.NewCommand(a))

	// Metadata commands
	rootCmd.AddCommand(validate.NewCommand(a))

	// Utility commands
	rootCmd.AddCommand(a.newVersionCommand())
}

// newVersionCommand creates the version command.
func (a *App) newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("channelmap %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
