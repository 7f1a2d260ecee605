package main

import (
	"github.com/spf13/cobra"
)

var (
	Version = "dev"

	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "panelcore",
	Version:       Version,
	Short:         "Sessions, permissions and audit trail for the operations panel",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (env PANELCORE_* overrides)")
}
