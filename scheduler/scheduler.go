// Package scheduler loads the catalog snapshot at startup, reloads it from disk
// on a fixed interval and warns when the published data goes stale.
package scheduler

import (
	"fmt"
	"time"

	"github.com/giygas/omeq-api/catalog"
	"github.com/giygas/omeq-api/interfaces"
	"github.com/giygas/omeq-api/logging"
	"github.com/go-co-op/gocron"
)

// Compile-time checks
var (
	_ interfaces.Scheduler     = (*Scheduler)(nil)
	_ interfaces.CatalogLoader = (*catalog.Loader)(nil)
)

// staleAfterIntervals is how many missed reloads trigger a freshness warning
const staleAfterIntervals = 3

// Scheduler handles catalog reloads and freshness monitoring using dependency injection
type Scheduler struct {
	dataStore      interfaces.DataStore
	loader         interfaces.CatalogLoader
	validator      interfaces.CatalogValidator
	reloadInterval time.Duration
	scheduler      *gocron.Scheduler
}

// NewScheduler creates a scheduler. A zero reload interval loads the catalog once.
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.CatalogLoader, validator interfaces.CatalogValidator, reloadInterval time.Duration) *Scheduler {
	return &Scheduler{
		dataStore:      dataStore,
		loader:         loader,
		validator:      validator,
		reloadInterval: reloadInterval,
		scheduler:      gocron.NewScheduler(time.Local),
	}
}

// Start performs the initial load, then schedules the reload and monitoring jobs
func (s *Scheduler) Start() error {
	if err := s.Reload(); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	if s.reloadInterval <= 0 {
		logging.Info("Catalog reloading disabled", "source", s.loader.Source())
		return nil
	}

	minutes := int(s.reloadInterval / time.Minute)
	if minutes < 1 {
		minutes = 1
	}

	_, err := s.scheduler.Every(minutes).Minutes().WaitForSchedule().SingletonMode().Do(func() {
		if err := s.Reload(); err != nil {
			logging.Error("Failed to reload catalog, keeping previous snapshot", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog reload", "error", err)
		return fmt.Errorf("failed to schedule catalog reload: %w", err)
	}

	_, err = s.scheduler.Every(minutes).Minutes().WaitForSchedule().Do(s.checkFreshness)
	if err != nil {
		return fmt.Errorf("failed to schedule freshness monitoring: %w", err)
	}

	s.scheduler.StartAsync()
	logging.Info("Catalog reload scheduled", "interval", s.reloadInterval.String(), "source", s.loader.Source())

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// checkFreshness warns when no reload succeeded for several intervals
func (s *Scheduler) checkFreshness() {
	age := time.Since(s.dataStore.GetLastUpdated())
	if age > staleAfterIntervals*s.reloadInterval {
		logging.Warn("Catalog has not been reloaded recently",
			"age", age.Round(time.Second).String(),
			"interval", s.reloadInterval.String(),
		)
	}
}
