package cli

import (
	"github.com/spf13/cobra"

	"live-quiz-service/internal/config"
	"live-quiz-service/internal/logger"
)

// NewSweepCmd runs a single stale-session sweep against the configured store.
func NewSweepCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Close stale sessions once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			log := logger.New("live-quiz-service", cfg.Log.Level)
			rt, err := buildRuntime(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer rt.Close()

			n, err := rt.service.Sweep(cmd.Context())
			if err != nil {
				return err
			}
			log.WithField("swept", n).Info("sweep finished")
			return nil
		},
	}
}
