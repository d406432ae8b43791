package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docoutline/internal/batch"
	"github.com/dgallion1/docoutline/internal/config"
	"github.com/dgallion1/docoutline/internal/parser"
	"github.com/dgallion1/docoutline/internal/store"
	"github.com/spf13/cobra"
)

func runCmd(cfg config.Config, logger func() *slog.Logger) *cobra.Command {
	var (
		input     string
		output    string
		recursive bool
		workers   int
		workbook  string
		dbPath    string
		pdftohtml bool
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Outline every supported document in a directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger()
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := batch.Options{
				InputDir:  input,
				OutputDir: output,
				Recursive: recursive,
				Workers:   workers,
				Workbook:  workbook,
				Parser:    parser.Options{PDFFallbackPdftohtml: pdftohtml},
			}
			if dbPath != "" {
				st, err := store.Open(ctx, dbPath, log)
				if err != nil {
					return err
				}
				defer st.Close()
				opts.Store = st
			}

			report, err := batch.Run(ctx, opts, log)
			if batch.IsCanceled(err) {
				return fmt.Errorf("interrupted")
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			for _, r := range report.Files {
				if r.OK() {
					fmt.Fprintf(out, "ok    %s (%d headings)\n", r.Path, r.Headings)
				} else {
					fmt.Fprintf(out, "FAIL  %s: %s\n", r.Path, r.Err)
				}
			}
			fmt.Fprintf(out, "%d succeeded, %d failed in %s\n", report.Succeeded, report.Failed, report.Elapsed.Round(time.Millisecond))
			if report.Failed > 0 {
				return fmt.Errorf("%d documents failed", report.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "input", "directory to read documents from")
	cmd.Flags().StringVarP(&output, "output", "o", "output", "directory to write JSON artifacts to")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "descend into subdirectories")
	cmd.Flags().IntVarP(&workers, "workers", "w", cfg.WorkerCount, "documents processed in parallel")
	cmd.Flags().StringVar(&workbook, "xlsx", "", "also write an XLSX summary to this path")
	cmd.Flags().StringVar(&dbPath, "db", "", "also record documents in this sqlite catalogue")
	cmd.Flags().BoolVar(&pdftohtml, "pdftohtml", cfg.PDFFallbackPdftohtml, "fall back to poppler pdftohtml for unreadable PDFs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run report as JSON")
	return cmd
}
