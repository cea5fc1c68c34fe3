// Package health derives the service health from the published catalog snapshot.
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/omeq-api/interfaces"
)

// staleAfterIntervals is how many missed reloads make the data degraded
const staleAfterIntervals = 3

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore      interfaces.DataStore
	reloadInterval time.Duration
}

// NewHealthChecker creates a health checker. A zero reload interval means the
// catalog is loaded once and never goes stale.
func NewHealthChecker(dataStore interfaces.DataStore, reloadInterval time.Duration) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore:      dataStore,
		reloadInterval: reloadInterval,
	}
}

// HealthCheck returns the status, the data fields for /health and the HTTP status
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	idx := h.dataStore.GetIndex()
	engine := h.dataStore.GetEngine()
	report := h.dataStore.GetReport()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	products, codes, options, conflicts := 0, 0, 0, 0
	if idx != nil {
		products = len(idx.Products())
		codes = idx.UniqueCodeCount()
		options = len(idx.Options())
		conflicts = len(idx.Conflicts())
	}

	references := 0
	if engine != nil {
		references = len(engine.References())
	}

	dataAge := time.Since(lastUpdate)
	stale := h.reloadInterval > 0 && dataAge > staleAfterIntervals*h.reloadInterval

	switch {
	case products == 0 || references == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case stale:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":    lastUpdate.Format(time.RFC3339),
		"data_age_hours": math.Round(dataAge.Hours()*10) / 10,
		"source":         h.dataStore.GetSource(),
		"products":       products,
		"codes":          codes,
		"options":        options,
		"code_conflicts": conflicts,
		"references":     references,
		"is_updating":    isUpdating,
		"report_issues":  report.HasIssues(),
	}

	if h.reloadInterval > 0 {
		data["reload_interval_minutes"] = int(h.reloadInterval.Minutes())
	}

	return status, data, httpStatus
}
