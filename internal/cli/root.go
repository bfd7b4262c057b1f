// Package cli implements interviewctl, the operator command line for the interview engine.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "interviewctl",
		Short: "interviewctl - AI interview engine operator tool",
		Long: `interviewctl runs interviews offline against the deterministic demo providers and
inspects how single answers are analyzed and scored.`,
		SilenceUsage: true,
	}
	rootCmd.AddCommand(newSimulateCmd())
	rootCmd.AddCommand(newScoreCmd())
	return rootCmd
}
