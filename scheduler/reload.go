package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/logging"
	"github.com/giygas/omeq-api/metrics"
	"github.com/giygas/omeq-api/omeq"
)

// ErrNoReferences is returned when the opioid reference table is empty
var ErrNoReferences = errors.New("no opioid references found")

// Reload loads, checks and publishes a new catalog snapshot.
// On failure the previous snapshot stays published.
func (s *Scheduler) Reload() error {
	// Prevent concurrent updates
	if !s.dataStore.BeginUpdate() {
		logging.Info("Catalog update already in progress, skipping...")
		return nil
	}
	defer s.dataStore.EndUpdate()

	source := s.loader.Source()
	logging.Info("Starting catalog load", "source", source)
	start := time.Now()

	err := s.publish(source)
	metrics.RecordCatalogReload(err == nil)
	if err != nil {
		return err
	}

	logging.Info("Catalog load completed", "duration", time.Since(start).String(), "source", source)
	return nil
}

func (s *Scheduler) publish(source string) error {
	cat, references, err := s.loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if err := s.validator.ValidateCatalogIntegrity(cat); err != nil {
		return fmt.Errorf("catalog integrity check failed: %w", err)
	}
	if len(references) == 0 {
		return ErrNoReferences
	}

	report := s.validator.ReportCatalogQuality(cat)
	if report.HasIssues() {
		logging.Warn("Catalog quality issues",
			"duplicate_codes", len(report.DuplicateCodes),
			"unparsable_strengths", report.UnparsableStrengths,
			"unknown_forms", report.UnknownForms,
			"without_name", report.ProductsWithoutName,
			"without_codes", report.ProductsWithoutCodes,
			"without_atc", report.ProductsWithoutATC,
		)
	}

	idx := index.Build(cat)
	engine := omeq.NewEngine(references)

	// Atomic swap of index, engine and report
	s.dataStore.UpdateData(idx, engine, report, source)
	metrics.SetCatalogSize(len(idx.Products()), idx.UniqueCodeCount(), len(idx.Conflicts()))

	logging.Info("Catalog snapshot published",
		"products", len(idx.Products()),
		"codes", idx.UniqueCodeCount(),
		"options", len(idx.Options()),
		"references", len(references),
	)
	return nil
}
