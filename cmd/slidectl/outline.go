package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/expand"
	"slidebanai-backend/internal/outline"
)

type styleFlags struct {
	slides   int
	audience string
	tone     string
	kind     string
	strict   bool
}

func (f *styleFlags) bind(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.slides, "slides", "n", 0, "requested slide count")
	cmd.Flags().StringVar(&f.audience, "audience", "", "general, academic, business or technical")
	cmd.Flags().StringVar(&f.tone, "tone", "", "professional, casual or persuasive")
	cmd.Flags().StringVar(&f.kind, "type", "", "presentation type")
	cmd.Flags().BoolVar(&f.strict, "strict", false, "use the stricter JSON-only prompt")
}

func (f *styleFlags) style() deck.StyleConfig {
	return deck.StyleConfig{
		SlideCount:       f.slides,
		Audience:         deck.Audience(f.audience),
		Tone:             deck.Tone(f.tone),
		PresentationType: f.kind,
		Strict:           f.strict,
	}
}

func newOutlineCmd(opts *options) *cobra.Command {
	var style styleFlags
	cmd := &cobra.Command{
		Use:   "outline <topic>",
		Short: "Request an outline for a topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.llmClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			o, err := outline.New(client, opts.limits()).Request(ctx, outline.Input{
				Topic:       strings.Join(args, " "),
				Preferences: style.style(),
			})
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), o)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s, %s)\n", o.Title, o.Theme, o.EstimatedDuration)
			fmt.Fprintln(cmd.OutOrStdout(), outlineTable(o))
			return nil
		},
	}
	style.bind(cmd)
	return cmd
}

func newGenerateCmd(opts *options) *cobra.Command {
	var style styleFlags
	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Request an outline and expand it into detailed slides",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.llmClient()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			o, err := outline.New(client, opts.limits()).Request(ctx, outline.Input{
				Topic:       strings.Join(args, " "),
				Preferences: style.style(),
			})
			if err != nil {
				return err
			}
			slides, err := expand.New(client).Expand(ctx, o, expand.Options{
				Title:          o.Title,
				SlideCountHint: len(o.Outline),
				Strict:         style.strict,
			})
			if err != nil {
				return err
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), slides)
			}
			fmt.Fprintln(cmd.OutOrStdout(), slidesTable(slides))
			return nil
		},
	}
	style.bind(cmd)
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
