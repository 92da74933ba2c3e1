package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "project-service",
		Short: "Project export service: combines project files into downloadable Markdown and PDF artifacts",
	}

	rootCmd.AddCommand(
		NewServeCommand(),
		NewVersionCommand(),
	)

	return rootCmd
}
