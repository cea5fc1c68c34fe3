package main

import (
	"fmt"

	"github.com/giygas/omeq-api/validation"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check catalog integrity and print the quality report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			validator := validation.NewCatalogValidator()

			if err := validator.ValidateCatalogIntegrity(loadedCatalog); err != nil {
				return fmt.Errorf("catalog is unusable: %w", err)
			}

			report := validator.ReportCatalogQuality(loadedCatalog)
			if err := printJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}

			if strict && report.HasIssues() {
				return fmt.Errorf("catalog has quality issues")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when the report lists any issue")
	return cmd
}
