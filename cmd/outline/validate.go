package main

import (
	"fmt"

	"github.com/dgallion1/docoutline/internal/artifact"
	"github.com/spf13/cobra"
)

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <structured.json>...",
		Short: "Check structured outline files against the output schema",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			failed := 0
			for _, path := range args {
				o, err := artifact.ReadStructured(path)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "FAIL  %s: %v\n", path, err)
					failed++
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "ok    %s (%d headings)\n", path, len(o.Entries))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files invalid", failed, len(args))
			}
			return nil
		},
	}
}
