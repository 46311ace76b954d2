package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"SEOPilot/internal/domain"
)

var generateFlags struct {
	topic       string
	breadth     int
	threshold   int
	selectLimit int
	synthLimit  int
	lengthWords int
	tone        string
	imageCount  int
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run one generation for a topic and print the article id",
	Long: `Runs the full pipeline once: search, score, synthesize, find images and store
the article with its provenance. Flags left unset fall back to the stored topic
configuration, then to the configured defaults.

Usage:
  seopilot generate --topic "electric vehicles"
  seopilot generate --topic "heat pumps" --tone formal --length 900 --images 0`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	f := generateCmd.Flags()
	f.StringVar(&generateFlags.topic, "topic", "", "Topic to write about (required)")
	f.IntVar(&generateFlags.breadth, "breadth", 0, "Number of search results to consider")
	f.IntVar(&generateFlags.threshold, "threshold", 0, "Minimum relevance score (1-10)")
	f.IntVar(&generateFlags.selectLimit, "select-limit", 0, "Maximum number of selected sources")
	f.IntVar(&generateFlags.synthLimit, "synth-limit", 0, "Number of top sources passed to synthesis")
	f.IntVar(&generateFlags.lengthWords, "length", 0, "Target article length in words")
	f.StringVar(&generateFlags.tone, "tone", "", "Writing tone")
	f.IntVar(&generateFlags.imageCount, "images", 0, "Number of images to attach")
	_ = generateCmd.MarkFlagRequired("topic")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	application, logger, err := bootstrap(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("close application", "error", err)
		}
	}()

	overrides := domain.GenerationParams{
		Topic:               generateFlags.topic,
		SearchBreadth:       generateFlags.breadth,
		ScoreThreshold:      generateFlags.threshold,
		SelectorResultLimit: generateFlags.selectLimit,
		SynthResultLimit:    generateFlags.synthLimit,
		LengthWords:         generateFlags.lengthWords,
		Tone:                generateFlags.tone,
	}
	id, err := application.Generate(cmd.Context(), overrides, imageCountOverride(cmd))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), id)
	return nil
}

func imageCountOverride(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("images") {
		return nil
	}
	n := generateFlags.imageCount
	return &n
}
