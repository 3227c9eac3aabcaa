package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/lucasnoah/autodevops/internal/store"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Manage persisted run sessions",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions for an owner, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeStore, err := newStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		snaps, err := st.List(cmd.Context(), owner)
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No sessions found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tREPO\tCREATED\tCONFIDENCE\tRISK")
		for _, s := range snaps {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				s.SimulationID, s.RepoURL, s.CreatedAt.Format("2006-01-02 15:04"),
				s.Run.Confidence, s.Run.RiskLevel)
		}
		return w.Flush()
	},
}

var sessionsShowCmd = &cobra.Command{
	Use:   "show [simulation-id]",
	Short: "Print one session as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeStore, err := newStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		snap, err := st.Load(cmd.Context(), owner, args[0])
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("session %q not found for owner %q", args[0], owner)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete [simulation-id]",
	Short: "Delete one session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		st, closeStore, err := newStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		if err := st.Delete(cmd.Context(), owner, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted.\n", args[0])
		return nil
	},
}

func init() {
	sessionsCmd.PersistentFlags().String("owner", "local", "Owner id")
	sessionsCmd.AddCommand(sessionsListCmd)
	sessionsCmd.AddCommand(sessionsShowCmd)
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
