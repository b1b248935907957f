// Package scheduler reloads the reference catalog on a fixed daily schedule and publishes each
// new index to the data store, keeping the previous one when a reload fails.
package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/giygas/mfds-matcher/index"
	"github.com/giygas/mfds-matcher/interfaces"
	"github.com/giygas/mfds-matcher/logging"
	"github.com/giygas/mfds-matcher/metrics"
)

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// staleAfter is the catalog age past which the monitor starts warning
const staleAfter = 25 * time.Hour

// Scheduler handles catalog reloads and staleness monitoring using dependency injection
type Scheduler struct {
	dataStore   interfaces.DataStore
	loader      interfaces.CatalogLoader
	validator   interfaces.DataValidator
	reloadTimes string
	scheduler   *gocron.Scheduler
	stopMonitor chan struct{}
}

// NewScheduler creates a scheduler that reloads at reloadTimes, a gocron At() list such as
// "06:00;18:00".
func NewScheduler(dataStore interfaces.DataStore, loader interfaces.CatalogLoader,
	validator interfaces.DataValidator, reloadTimes string) *Scheduler {
	return &Scheduler{
		dataStore:   dataStore,
		loader:      loader,
		validator:   validator,
		reloadTimes: reloadTimes,
		scheduler:   gocron.NewScheduler(time.Local),
		stopMonitor: make(chan struct{}),
	}
}

// Start performs the initial load, then schedules the daily reloads and the staleness monitor
func (s *Scheduler) Start() error {
	if err := s.Reload(); err != nil {
		logging.Error("Failed to perform initial catalog load", "error", err)
		return fmt.Errorf("initial catalog load failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.reloadTimes).Do(func() {
		if err := s.Reload(); err != nil {
			logging.Error("Failed to reload catalog, keeping the previous one", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule catalog reloads", "error", err)
		return fmt.Errorf("failed to schedule catalog reloads: %w", err)
	}

	s.scheduler.StartAsync()
	s.startStalenessMonitor(time.Hour)

	return nil
}

// Stop stops the scheduled reloads and the monitor
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	select {
	case <-s.stopMonitor:
	default:
		close(s.stopMonitor)
	}
}

// Reload loads, validates and indexes the catalog, then publishes it. Concurrent calls are
// skipped while a reload is in progress.
func (s *Scheduler) Reload() error {
	if !s.dataStore.BeginUpdate() {
		logging.Info("Catalog reload already in progress, skipping")
		return nil
	}
	defer s.dataStore.EndUpdate()

	logging.Info("Starting catalog reload", "at", time.Now().Format(time.RFC3339))
	start := time.Now()

	records, err := s.loader.LoadCatalog()
	if err != nil {
		return fmt.Errorf("failed to load catalog: %w", err)
	}

	if err := s.validator.ValidateCatalogIntegrity(records); err != nil {
		return fmt.Errorf("catalog rejected: %w", err)
	}

	report := s.validator.ReportDataQuality(records)
	logReport(report)

	idx := index.Build(records)
	s.dataStore.UpdateData(idx, report)
	metrics.CatalogRecords.Set(float64(idx.Len()))

	logging.Info("Catalog reload completed",
		"duration", time.Since(start).String(),
		"records", idx.Len(),
		"active_records", report.ActiveRecords,
		"ingredient_bases", report.IngredientBases)

	return nil
}

func logReport(report *interfaces.DataQualityReport) {
	if len(report.DuplicateItemCodes) > 0 {
		logging.Warn("Duplicate item codes detected",
			"total", len(report.DuplicateItemCodes),
			"item_codes", report.DuplicateItemCodes,
		)
	}

	if report.RecordsWithoutIngredient > 0 {
		logging.Warn("Catalog records without ingredient",
			"count", report.RecordsWithoutIngredient,
			"sample", report.RecordsWithoutIngredientCodes,
		)
	}

	if report.UnparsableApprovalDates > 0 {
		logging.Warn("Catalog records with unparsable approval dates",
			"count", report.UnparsableApprovalDates,
		)
	}

	if report.OriginalsWithoutGenerics > 0 {
		logging.Info("Originals without generics",
			"count", report.OriginalsWithoutGenerics,
			"sample", report.OriginalsWithoutGenericsCodes,
		)
	}
}

// startStalenessMonitor warns when the published catalog has not been refreshed for too long
func (s *Scheduler) startStalenessMonitor(every time.Duration) {
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopMonitor:
				return
			case <-ticker.C:
				if age := time.Since(s.dataStore.GetLastUpdated()); age > staleAfter {
					logging.Warn("Catalog hasn't been reloaded recently", "age", age.Round(time.Minute).String())
				}
			}
		}
	}()
}
