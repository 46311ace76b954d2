package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var regenerateFlags struct {
	articleID   int64
	instruction string
	bodyFile    string
}

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Rewrite an article body from its recorded sources",
	Long: `Rewrites an article from the same sources it was generated from and prints
the new body. The stored article is not modified.

Usage:
  seopilot regenerate --article 42 --instruction "make it shorter"
  seopilot regenerate --article 42 --instruction "fix the intro" --body-file draft.md`,
	Args: cobra.NoArgs,
	RunE: runRegenerate,
}

func init() {
	f := regenerateCmd.Flags()
	f.Int64Var(&regenerateFlags.articleID, "article", 0, "Article id (required)")
	f.StringVar(&regenerateFlags.instruction, "instruction", "", "Rewrite instruction (required)")
	f.StringVar(&regenerateFlags.bodyFile, "body-file", "", "File with an edited body used as context")
	_ = regenerateCmd.MarkFlagRequired("article")
	_ = regenerateCmd.MarkFlagRequired("instruction")
}

func runRegenerate(cmd *cobra.Command, _ []string) error {
	var edited string
	if regenerateFlags.bodyFile != "" {
		raw, err := os.ReadFile(regenerateFlags.bodyFile)
		if err != nil {
			return fmt.Errorf("read body file: %w", err)
		}
		edited = string(raw)
	}

	application, logger, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	body, err := application.Regenerate(cmd.Context(), regenerateFlags.articleID, edited, regenerateFlags.instruction)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), body)
	return nil
}
