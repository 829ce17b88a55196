package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/llm"
	openai "slidebanai-backend/internal/llm/openai"
	"slidebanai-backend/internal/shared/config"
	"slidebanai-backend/internal/shared/telemetry"
)

type options struct {
	cfg     config.Config
	timeout time.Duration
	jsonOut bool
	verbose bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "slidectl",
		Short:         "Run SlideBanai pipeline stages locally",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			opts.cfg = config.Load()
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			telemetry.Configure(level, "text")
			telemetry.SetOutput(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 3*time.Minute, "overall timeout")
	root.PersistentFlags().BoolVar(&opts.jsonOut, "json", false, "print raw JSON instead of tables")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log pipeline events to stderr")

	root.AddCommand(
		newExtractCmd(opts),
		newOutlineCmd(opts),
		newGenerateCmd(opts),
		newPreviewCmd(opts),
	)
	return root
}

func (o *options) llmClient() (llm.Client, error) {
	return openai.NewClient(openai.Options{
		APIKey:      o.cfg.OpenAIAPIKey,
		Model:       o.cfg.LLMModel,
		MaxTokens:   o.cfg.OpenAIMaxTokens,
		Temperature: o.cfg.OpenAITemperature,
		Timeout:     o.cfg.GenerationTimeout,
	})
}

func (o *options) limits() deck.SlideLimits {
	return deck.SlideLimits{Min: o.cfg.MinSlides, Max: o.cfg.MaxSlides, Default: o.cfg.DefaultSlides}
}
