package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/giygas/omeq-api/catalog"
	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/config"
	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/logging"
	"github.com/giygas/omeq-api/omeq"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	catalogFile string
	opioidsFile string
	verbose     bool

	// Loaded by the root command before any subcommand runs
	loadedCatalog *entities.Catalog
	idx           *index.Index
	engine        *omeq.Engine
)

// newRootCmd builds the command tree. Tests build a fresh tree per run.
func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "omeqctl",
		Short:         "Resolve opioid medications and compute oral morphine equivalents",
		Long:          `omeqctl looks up products in the opioid catalog and computes OMEQ per day.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := "warn"
			if verbose {
				level = "debug"
			}
			logging.InitConsoleLogger(cmd.ErrOrStderr(), logging.Options{Env: config.EnvProduction, Level: level})

			return loadCatalog()
		},
	}

	// Defaults come from the same variables as the service
	_ = godotenv.Load()
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", os.Getenv("CATALOG_FILE"), "catalog `file` (JSON), embedded catalog when empty")
	rootCmd.PersistentFlags().StringVar(&opioidsFile, "opioids", os.Getenv("OPIOIDS_FILE"), "opioid reference `file` (JSON), embedded table when empty")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log catalog loading details to stderr")

	rootCmd.AddCommand(newResolveCmd(), newSearchCmd(), newCalcCmd(), newValidateCmd())
	return rootCmd
}

func loadCatalog() error {
	loader := catalog.NewLoader(catalogFile, opioidsFile)
	cat, references, err := loader.Load()
	if err != nil {
		return fmt.Errorf("couldn't load catalog from %s: %w", loader.Source(), err)
	}

	loadedCatalog = cat
	idx = index.Build(cat)
	engine = omeq.NewEngine(references)

	logging.Debug("Catalog loaded",
		"source", loader.Source(),
		"products", len(idx.Products()),
		"references", len(references),
	)
	return nil
}

// Execute runs the command line with os.Args
func Execute() error {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

// printJSON writes v as indented JSON
func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
