package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/autodevops/internal/orchestrator"
	"github.com/lucasnoah/autodevops/internal/run"
)

var runCmd = &cobra.Command{
	Use:   "run [repo-url]",
	Short: "Audit and stabilize a repository",
	Long: `Clone the repository, audit it with the reasoning engine, generate
patches for every detected issue in order, verify, and persist the
session. Progress is printed as the pipeline advances.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoURL := args[0]
		branch, _ := cmd.Flags().GetString("branch")
		owner, _ := cmd.Flags().GetString("owner")
		maxAttempts, _ := cmd.Flags().GetInt("max-attempts")

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
		st, closeStore, err := newStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		pf, err := newPreflighter(cfg, backend, reasoner, log)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Preflighting %s...\n", repoURL)
		pre, err := pf.Run(cmd.Context(), repoURL, branch)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %d files, predicted stack: %s\n", len(pre.FileTree), pre.PredictedStack)

		orch, err := orchestrator.New(reasoner, st, backend, nil, cfg.Agent.SettleDelayDuration(), log)
		if err != nil {
			return err
		}
		if maxAttempts <= 0 {
			maxAttempts = cfg.Agent.MaxAttempts
		}
		updates, err := orch.Launch(cmd.Context(), orchestrator.LaunchConfig{
			OwnerID:        owner,
			RepoURL:        pre.RepoURL,
			Branch:         pre.Branch,
			FileTree:       pre.FileTree,
			ContextBlob:    pre.ContextBlob,
			CloneSessionID: pre.CloneSessionID,
			MaxAttempts:    maxAttempts,
		})
		if err != nil {
			return err
		}

		final := printProgress(cmd, updates)
		if final.Run.Confidence == 0 {
			return fmt.Errorf("run %s failed", final.Run.SimulationID)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\nRun %s complete (confidence %d, risk %s)\n",
			final.Run.SimulationID, final.Run.Confidence, final.Run.RiskLevel)
		if final.Run.ReportSummary != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", final.Run.ReportSummary)
		}
		return nil
	},
}

// printProgress renders new log lines and step transitions as they
// arrive and returns the terminal state.
func printProgress(cmd *cobra.Command, updates <-chan run.Update) run.Update {
	var final run.Update
	printedLogs := 0
	stepStatus := make(map[string]run.StepStatus)

	for u := range updates {
		final = u
		for _, s := range u.Steps {
			if stepStatus[s.ID] != s.Status && s.Status != run.StepPending {
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s -> %s\n", s.Timestamp, s.Label, s.Status)
				stepStatus[s.ID] = s.Status
			}
		}
		for ; printedLogs < len(u.Logs); printedLogs++ {
			entry := u.Logs[printedLogs]
			fmt.Fprintf(cmd.OutOrStdout(), "  %-9s %s\n", entry.Type, entry.Message)
		}
	}
	return final
}

func init() {
	runCmd.Flags().String("branch", "main", "Branch to audit")
	runCmd.Flags().String("owner", "local", "Owner id the session is saved under")
	runCmd.Flags().Int("max-attempts", 0, "Override agent.max_attempts")
}
