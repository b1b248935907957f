// Package interfaces defines core abstractions for the matcher service
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/index"
)

// DataQualityReport provides a summary of catalog quality issues
type DataQualityReport struct {
	TotalRecords              int      `json:"totalRecords"`
	ActiveRecords             int      `json:"activeRecords"`
	OriginalRecords           int      `json:"originalRecords"`
	DuplicateItemCodes        []string `json:"duplicateItemCodes"`
	RecordsWithoutItemCode    int      `json:"recordsWithoutItemCode"`
	RecordsWithoutIngredient  int      `json:"recordsWithoutIngredient"`
	RecordsWithoutEnglishName int      `json:"recordsWithoutEnglishName"`
	UnparsableApprovalDates   int      `json:"unparsableApprovalDates"`
	IngredientBases           int      `json:"ingredientBases"`
	OriginalsWithoutGenerics  int      `json:"originalsWithoutGenerics"`

	// First 10 item codes of each category
	RecordsWithoutIngredientCodes []string `json:"recordsWithoutIngredientCodes"`
	OriginalsWithoutGenericsCodes []string `json:"originalsWithoutGenericsCodes"`
}

// DataStore defines the contract for catalog storage operations.
// It provides thread-safe access to the current catalog index
// with atomic swaps for zero-downtime reloads.
type DataStore interface {
	// Data retrieval methods
	GetIndex() *index.Index
	GetReport() *DataQualityReport
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Data update methods
	UpdateData(idx *index.Index, report *DataQualityReport)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogLoader defines the contract for reading the reference catalog from its source.
type CatalogLoader interface {
	LoadCatalog() ([]catalog.ReferenceRecord, error)
}

// Scheduler defines the contract for job scheduling.
// It manages automated catalog reloads.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()
}

// HTTPHandler defines the contract for HTTP request handlers.
type HTTPHandler interface {
	ServeHTTP(w http.ResponseWriter, r *http.Request)

	MatchV1(w http.ResponseWriter, r *http.Request)
	ServeGenericsV1(w http.ResponseWriter, r *http.Request)
	ServeCatalogItemV1(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
type HealthChecker interface {
	// HealthCheck returns the catalog health status with the HTTP code to serve it with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextUpdate returns the next scheduled reload time
	CalculateNextUpdate() time.Time
}

// DataValidator defines the contract for catalog and request validation.
type DataValidator interface {
	// ValidateRecord checks a single catalog record
	ValidateRecord(r *catalog.ReferenceRecord) error

	// ValidateCatalogIntegrity checks a whole catalog before it is published
	ValidateCatalogIntegrity(records []catalog.ReferenceRecord) error

	// ReportDataQuality generates a data quality report with all issues found
	ReportDataQuality(records []catalog.ReferenceRecord) *DataQualityReport

	// ValidateInput validates free text path parameters
	ValidateInput(input string) error

	// ValidateItemCode validates MFDS item codes
	ValidateItemCode(input string) (string, error)
}
