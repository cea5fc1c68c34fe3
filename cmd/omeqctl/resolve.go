package main

import (
	"strings"

	"github.com/giygas/omeq-api/handlers"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <medication>",
		Short: "Resolve free text, a canonical label or a product code",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			view := handlers.Resolve(strings.Join(args, " "), idx)
			return printJSON(cmd.OutOrStdout(), view)
		},
	}
}
