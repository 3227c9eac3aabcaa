package cli

import (
	"github.com/spf13/cobra"

	"github.com/lucasnoah/autodevops/internal/orchestrator"
	"github.com/lucasnoah/autodevops/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON API server",
	Long: `Start the HTTP API: launch runs, stream their live state over
Server-Sent Events, and manage persisted sessions per owner.`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		orch, err := orchestrator.New(reasoner, st, backend, nil, cfg.Agent.SettleDelayDuration(), log)
		if err != nil {
			return err
		}

		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Web.Port
		}
		return web.NewServer(orch, pf, st, cfg.Preflight.QuietPeriodDuration(), port, log).Start()
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (defaults to web.port)")
}
