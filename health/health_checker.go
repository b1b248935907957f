// Package health reports whether the service has a usable, fresh catalog loaded.
package health

import (
	"math"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/giygas/mfds-matcher/interfaces"
)

// Catalog age thresholds; reloads run several times a day
const (
	degradedAge  = 24 * time.Hour
	unhealthyAge = 48 * time.Hour
	slowReload   = 6 * time.Hour
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	dataStore   interfaces.DataStore
	reloadTimes []time.Duration // offsets from midnight, ascending
	now         func() time.Time
}

// NewHealthChecker creates a health checker. reloadTimes uses the RELOAD_TIMES format,
// "HH:MM" entries separated by ';'. Unparsable entries are skipped.
func NewHealthChecker(dataStore interfaces.DataStore, reloadTimes string) interfaces.HealthChecker {
	return &HealthCheckerImpl{
		dataStore:   dataStore,
		reloadTimes: parseReloadTimes(reloadTimes),
		now:         time.Now,
	}
}

func parseReloadTimes(s string) []time.Duration {
	var offsets []time.Duration
	for entry := range strings.SplitSeq(s, ";") {
		t, err := time.Parse("15:04", strings.TrimSpace(entry))
		if err != nil {
			continue
		}
		offsets = append(offsets, time.Duration(t.Hour())*time.Hour+time.Duration(t.Minute())*time.Minute)
	}
	slices.Sort(offsets)
	return slices.Compact(offsets)
}

// HealthCheck grades the loaded catalog by size and age
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	idx := h.dataStore.GetIndex()
	report := h.dataStore.GetReport()
	lastUpdate := h.dataStore.GetLastUpdated()
	isUpdating := h.dataStore.IsUpdating()

	if report == nil {
		report = &interfaces.DataQualityReport{}
	}
	records := 0
	if idx != nil {
		records = idx.Len()
	}
	dataAge := h.now().Sub(lastUpdate)

	switch {
	case records == 0:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > unhealthyAge:
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable

	case dataAge > degradedAge:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	case isUpdating && dataAge > slowReload:
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable

	default:
		status = "healthy"
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"last_update":      lastUpdate.Format(time.RFC3339),
		"data_age_hours":   math.Round(dataAge.Hours()*10) / 10,
		"catalog_records":  records,
		"active_records":   report.ActiveRecords,
		"ingredient_bases": report.IngredientBases,
		"is_updating":      isUpdating,
	}
	if next := h.CalculateNextUpdate(); !next.IsZero() {
		data["next_update"] = next.Format(time.RFC3339)
	}

	return status, data, httpStatus
}

// CalculateNextUpdate returns the next scheduled reload, or the zero time when no reload
// time is configured.
func (h *HealthCheckerImpl) CalculateNextUpdate() time.Time {
	return nextReload(h.now(), h.reloadTimes)
}

func nextReload(now time.Time, offsets []time.Duration) time.Time {
	if len(offsets) == 0 {
		return time.Time{}
	}

	at := func(day time.Time, off time.Duration) time.Time {
		return time.Date(day.Year(), day.Month(), day.Day(),
			int(off/time.Hour), int(off%time.Hour/time.Minute), 0, 0, now.Location())
	}
	for _, off := range offsets {
		if t := at(now, off); t.After(now) {
			return t
		}
	}
	return at(now.AddDate(0, 0, 1), offsets[0])
}
