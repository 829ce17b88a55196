package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"slidebanai-backend/internal/deck"
	"slidebanai-backend/internal/preview"
)

func newPreviewCmd(opts *options) *cobra.Command {
	var outDir, title string
	cmd := &cobra.Command{
		Use:   "preview <slides.json>",
		Short: "Render detailed slides to SVG files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			slides, err := readSlides(args[0])
			if err != nil {
				return err
			}
			pages, err := preview.Render(preview.Source(title, slides))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			rows := make([][]string, 0, len(pages))
			for i, page := range pages {
				path := filepath.Join(outDir, fmt.Sprintf("slide-%02d.svg", i+1))
				if err := os.WriteFile(path, page, 0o644); err != nil {
					return err
				}
				title := ""
				if i < len(slides) {
					title = slides[i].Title
				}
				rows = append(rows, []string{fmt.Sprint(i + 1), title, path})
			}
			if opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), rows)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"#", "Title", "File"}, rows, []columnAlignment{alignRight}))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "./out", "output directory")
	cmd.Flags().StringVar(&title, "title", "", "deck title for the cover slide")
	return cmd
}

// readSlides accepts a bare slide array or an object with a "slides" field.
func readSlides(path string) ([]deck.DetailedSlide, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var slides []deck.DetailedSlide
	if strings.HasPrefix(strings.TrimSpace(string(raw)), "[") {
		err = json.Unmarshal(raw, &slides)
	} else {
		var wrapped struct {
			Slides []deck.DetailedSlide `json:"slides"`
		}
		err = json.Unmarshal(raw, &wrapped)
		slides = wrapped.Slides
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(slides) == 0 {
		return nil, fmt.Errorf("%s contains no slides", path)
	}
	return slides, nil
}
