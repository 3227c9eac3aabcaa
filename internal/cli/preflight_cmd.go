package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight [repo-url]",
	Short: "Clone and inspect a repository without running the pipeline",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoURL := args[0]
		branch, _ := cmd.Flags().GetString("branch")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log := newLogger()
		defer log.Sync()

		backend, err := newBackend(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		reasoner, err := newReasoner(cfg, log)
		if err != nil {
			return err
		}
		pf, err := newPreflighter(cfg, backend, reasoner, log)
		if err != nil {
			return err
		}

		pre, err := pf.Run(cmd.Context(), repoURL, branch)
		if err != nil {
			return err
		}
		defer backend.Cleanup(cmd.Context(), pre.CloneSessionID)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Repository:      %s (%s)\n", pre.RepoURL, pre.Branch)
		fmt.Fprintf(out, "Predicted stack: %s\n", pre.PredictedStack)
		fmt.Fprintf(out, "Files:           %d\n", len(pre.FileTree))
		fmt.Fprintf(out, "Context size:    %d chars\n", len(pre.ContextBlob))

		verbose, _ := cmd.Flags().GetBool("files")
		if verbose {
			for _, p := range pre.FileTree {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
		return nil
	},
}

func init() {
	preflightCmd.Flags().String("branch", "main", "Branch to inspect")
	preflightCmd.Flags().Bool("files", false, "Print the full file tree")
}
