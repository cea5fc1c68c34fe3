// Package data holds the catalog snapshot served by the API.
// The index, the engine and the quality report are published together through
// atomic pointers, so a reload replaces them without blocking readers.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/interfaces"
	"github.com/giygas/omeq-api/logging"
	"github.com/giygas/omeq-api/omeq"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// snapshot is swapped as a whole so readers never mix an index with another catalog's report
type snapshot struct {
	idx    *index.Index
	engine *omeq.Engine
	report *interfaces.CatalogReport
	source string
}

// DataContainer holds the current snapshot with atomic pointers for zero-downtime updates
type DataContainer struct {
	current         atomic.Value // *snapshot
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a container with an empty index and no references
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.current.Store(&snapshot{
		idx:    index.Build(nil),
		engine: omeq.NewEngine(nil),
		report: &interfaces.CatalogReport{},
	})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

func (dc *DataContainer) load() *snapshot {
	if v := dc.current.Load(); v != nil {
		if s, ok := v.(*snapshot); ok && s != nil {
			return s
		}
	}

	logging.Warn("Catalog snapshot is empty or invalid")
	return &snapshot{
		idx:    index.Build(nil),
		engine: omeq.NewEngine(nil),
		report: &interfaces.CatalogReport{},
	}
}

// GetIndex returns the current catalog index
func (dc *DataContainer) GetIndex() *index.Index {
	return dc.load().idx
}

// GetEngine returns the engine built from the current reference table
func (dc *DataContainer) GetEngine() *omeq.Engine {
	return dc.load().engine
}

// GetReport returns the quality report of the current catalog
func (dc *DataContainer) GetReport() *interfaces.CatalogReport {
	return dc.load().report
}

// GetSource returns where the current catalog was read from
func (dc *DataContainer) GetSource() string {
	return dc.load().source
}

// GetLastUpdated returns the timestamp of the last data update
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v := dc.lastUpdated.Load(); v != nil {
		if lastUpdated, ok := v.(time.Time); ok {
			return lastUpdated
		}
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a data update is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v := dc.serverStartTime.Load(); v != nil {
		if startTime, ok := v.(time.Time); ok {
			return startTime
		}
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData atomically publishes a new snapshot. Nil arguments keep an empty value.
func (dc *DataContainer) UpdateData(idx *index.Index, engine *omeq.Engine, report *interfaces.CatalogReport, source string) {
	if idx == nil {
		idx = index.Build(nil)
	}
	if engine == nil {
		engine = omeq.NewEngine(nil)
	}
	if report == nil {
		report = &interfaces.CatalogReport{}
	}

	// Atomic swap (zero downtime replacement)
	dc.current.Store(&snapshot{idx: idx, engine: engine, report: report, source: source})
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a data update operation
// Returns true if update can proceed, false if another update is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a data update operation
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
