package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List topics with a stored configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		application, logger, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer func() {
			if err := application.Close(); err != nil {
				logger.Warn("close application", "error", err)
			}
		}()

		topics, err := application.Sections(cmd.Context())
		if err != nil {
			return err
		}
		for _, topic := range topics {
			fmt.Fprintln(cmd.OutOrStdout(), topic)
		}
		return nil
	},
}
