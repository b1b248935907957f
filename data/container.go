// Package data holds the catalog index currently served by the HTTP layer. Reloads build a new
// index off to the side and swap it in atomically, so requests never see a half-built catalog.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/mfds-matcher/index"
	"github.com/giygas/mfds-matcher/interfaces"
	"github.com/giygas/mfds-matcher/logging"
)

// Compile-time check to ensure DataContainer implements DataStore
var _ interfaces.DataStore = (*DataContainer)(nil)

// DataContainer holds the published catalog with atomic values for zero-downtime reloads
type DataContainer struct {
	idx             atomic.Pointer[index.Index]
	report          atomic.Pointer[interfaces.DataQualityReport]
	lastUpdated     atomic.Value // time.Time
	updating        atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewDataContainer creates a container with an empty index
func NewDataContainer() *DataContainer {
	dc := &DataContainer{}
	dc.idx.Store(index.Build(nil))
	dc.report.Store(&interfaces.DataQualityReport{})
	dc.lastUpdated.Store(time.Time{})
	dc.serverStartTime.Store(time.Time{})
	return dc
}

// GetIndex returns the current catalog index. It is never nil.
func (dc *DataContainer) GetIndex() *index.Index {
	if idx := dc.idx.Load(); idx != nil {
		return idx
	}
	logging.Warn("Catalog index is not initialized")
	return index.Build(nil)
}

// GetReport returns the data quality report of the current catalog
func (dc *DataContainer) GetReport() *interfaces.DataQualityReport {
	if r := dc.report.Load(); r != nil {
		return r
	}
	return &interfaces.DataQualityReport{}
}

// GetLastUpdated returns the time the current catalog was published
func (dc *DataContainer) GetLastUpdated() time.Time {
	if v, ok := dc.lastUpdated.Load().(time.Time); ok {
		return v
	}

	logging.Warn("Could not get the last updated value")
	return time.Time{}
}

// IsUpdating returns true if a reload is currently in progress
func (dc *DataContainer) IsUpdating() bool {
	return dc.updating.Load()
}

// SetServerStartTime sets the server start time
func (dc *DataContainer) SetServerStartTime(startTime time.Time) {
	dc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (dc *DataContainer) GetServerStartTime() time.Time {
	if v, ok := dc.serverStartTime.Load().(time.Time); ok {
		return v
	}

	logging.Warn("Could not get the server start time value")
	return time.Time{}
}

// UpdateData publishes a new index and its report. A nil index is ignored.
func (dc *DataContainer) UpdateData(idx *index.Index, report *interfaces.DataQualityReport) {
	if idx == nil {
		logging.Warn("Refusing to publish a nil catalog index")
		return
	}
	if report == nil {
		report = &interfaces.DataQualityReport{TotalRecords: idx.Len()}
	}

	dc.idx.Store(idx)
	dc.report.Store(report)
	dc.lastUpdated.Store(time.Now())
}

// BeginUpdate marks the start of a reload.
// Returns true if the reload can proceed, false if another one is in progress
func (dc *DataContainer) BeginUpdate() bool {
	return dc.updating.CompareAndSwap(false, true)
}

// EndUpdate marks the end of a reload
func (dc *DataContainer) EndUpdate() {
	dc.updating.Store(false)
}
