// Command outline extracts titles and heading outlines from documents on
// disk.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/dgallion1/docoutline/internal/config"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.Load()
	var verbose bool

	root := &cobra.Command{
		Use:           "outline",
		Short:         "Extract document titles and H1-H3 outlines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")

	logger := func() *slog.Logger {
		level := cfg.SlogLevel()
		if verbose {
			level = slog.LevelDebug
		}
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	}

	root.AddCommand(runCmd(cfg, logger))
	root.AddCommand(showCmd(cfg))
	root.AddCommand(validateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
