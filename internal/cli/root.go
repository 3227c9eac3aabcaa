// Package cli wires the remediation agent's commands.
package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "autodevops",
	Short: "autodevops is an autonomous repository remediation agent",
	Long: `autodevops ingests a git repository, audits it with a reasoning engine,
generates stabilization patches for the issues it finds, and verifies the
result. Finished and failed runs are persisted as sessions per owner.

Configuration is read from ./autodevops.yaml or ~/.autodevops/config.yaml.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(preflightCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}
