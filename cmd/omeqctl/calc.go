package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/giygas/omeq-api/handlers"
	"github.com/spf13/cobra"
)

func newCalcCmd() *cobra.Command {
	var dose string

	cmd := &cobra.Command{
		Use:   "calc <medication>",
		Short: "Compute OMEQ per day for a medication and daily dose",
		Long: `Compute OMEQ per day. The daily dose is a number of units, or ml for liquids.
Patches use their strength per hour and ignore the dose.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.CalculationRequest{Medication: strings.Join(args, " ")}

			if dose != "" {
				// Decimal commas are common in Norwegian input
				value, err := strconv.ParseFloat(strings.Replace(dose, ",", ".", 1), 64)
				if err != nil || value < 0 {
					return fmt.Errorf("invalid daily dose %q", dose)
				}
				req.DailyDose = &value
			}

			return printJSON(cmd.OutOrStdout(), handlers.Calculate(idx, engine, req))
		},
	}

	cmd.Flags().StringVarP(&dose, "dose", "d", "", "daily dose in units or ml")
	return cmd
}
