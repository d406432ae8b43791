package main

import (
	"github.com/dgallion1/docoutline/internal/artifact"
	"github.com/dgallion1/docoutline/internal/batch"
	"github.com/dgallion1/docoutline/internal/chunker"
	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/outline"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/spf13/cobra"
)

func showCmd(cfg config.Config) *cobra.Command {
	var (
		blocks    bool
		sections  bool
		pdftohtml bool
	)

	cmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print the outline of a single document as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := batch.ParseFile(args[0], parser.Options{PDFFallbackPdftohtml: pdftohtml})
			if err != nil {
				return err
			}

			var v any
			switch {
			case blocks:
				v = bs
			case sections:
				v = chunker.Sections(bs, outline.Build(bs))
			default:
				v = outline.Build(bs)
			}
			data, err := artifact.MarshalIndent(v)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&blocks, "blocks", false, "print the extracted blocks instead of the outline")
	cmd.Flags().BoolVar(&sections, "sections", false, "print the sections between headings")
	cmd.Flags().BoolVar(&pdftohtml, "pdftohtml", cfg.PDFFallbackPdftohtml, "fall back to poppler pdftohtml for unreadable PDFs")
	cmd.MarkFlagsMutuallyExclusive("blocks", "sections")
	return cmd
}
