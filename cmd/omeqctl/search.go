package main

import (
	"fmt"
	"strings"

	"github.com/giygas/omeq-api/handlers"
	"github.com/giygas/omeq-api/ranking"
	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var (
		mode  string
		limit int
		plain bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "List the best ranked catalog options for a partial query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := ranking.ParseMode(mode)
			if err != nil {
				return err
			}

			suggestions := ranking.NewRanker(parsed, limit).Rank(strings.Join(args, " "), idx)

			if !plain {
				return printJSON(cmd.OutOrStdout(), handlers.SuggestionViews(suggestions))
			}
			for _, s := range suggestions {
				fmt.Fprintf(cmd.OutOrStdout(), "%3d  %s\n", s.Score, s.Option.Label)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", string(ranking.ModeToken), "ranking mode: token or simple")
	cmd.Flags().IntVarP(&limit, "limit", "n", ranking.DefaultMaxResults, "maximum number of suggestions")
	cmd.Flags().BoolVar(&plain, "plain", false, "print score and label per line")
	return cmd
}
