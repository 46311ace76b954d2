package main

import (
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the review and generation HTTP API",
	Long: `Starts the HTTP API on server.addr. When scheduler.enabled is set, the cron
scheduler generates an article for every scheduler topic on each tick.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	application, logger, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	return application.Serve(cmd.Context())
}
