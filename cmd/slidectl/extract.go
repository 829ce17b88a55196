package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"slidebanai-backend/internal/extract"
)

func newExtractCmd(opts *options) *cobra.Command {
	var mimeType string
	cmd := &cobra.Command{
		Use:   "extract <file>",
		Short: "Extract plain text from a PDF, DOCX, TXT or image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			name := filepath.Base(args[0])
			ex := extract.New(extract.NewTesseractEngine(opts.cfg.OCRTesseractPath, opts.cfg.OCRLanguage))
			mt := extract.DetectMimeType(mimeType, name, data)
			text, err := ex.ExtractFile(ctx, data, mt, name)
			if err != nil {
				return err
			}
			if extract.IsAdvisory(text) {
				fmt.Fprintln(cmd.ErrOrStderr(), "note: advisory text returned, no content was extracted")
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	cmd.Flags().StringVar(&mimeType, "mime", "", "override the detected MIME type")
	return cmd
}
