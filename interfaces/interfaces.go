// Package interfaces defines the contracts between the OMEQ service layers
// so each layer can be tested against mocks.
package interfaces

import (
	"net/http"
	"time"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/omeq"
)

// CatalogReport summarises catalog quality issues found at load time
type CatalogReport struct {
	ProductCount         int      `json:"productCount"`
	CodeCount            int      `json:"codeCount"`
	OptionCount          int      `json:"optionCount"`
	DuplicateCodes       []string `json:"duplicateCodes"`
	UnparsableStrengths  []string `json:"unparsableStrengths"`
	ProductsWithoutName  int      `json:"productsWithoutName"`
	UnknownForms         []string `json:"unknownForms"`
	ProductsWithoutCodes int      `json:"productsWithoutCodes"`
	ProductsWithoutATC   int      `json:"productsWithoutAtc"`
}

// HasIssues reports whether anything was flagged
func (r *CatalogReport) HasIssues() bool {
	if r == nil {
		return false
	}
	return len(r.DuplicateCodes) > 0 || len(r.UnparsableStrengths) > 0 ||
		r.ProductsWithoutName > 0 || len(r.UnknownForms) > 0 ||
		r.ProductsWithoutCodes > 0 || r.ProductsWithoutATC > 0
}

// DataStore defines the contract for the published catalog snapshot.
// The index and engine are immutable; an update swaps them atomically.
type DataStore interface {
	// Snapshot access
	GetIndex() *index.Index
	GetEngine() *omeq.Engine
	GetReport() *CatalogReport
	GetSource() string
	GetLastUpdated() time.Time
	IsUpdating() bool
	GetServerStartTime() time.Time

	// Snapshot updates
	UpdateData(idx *index.Index, engine *omeq.Engine, report *CatalogReport, source string)
	BeginUpdate() bool
	EndUpdate()
}

// CatalogLoader reads the product catalog and the opioid reference table.
type CatalogLoader interface {
	Load() (*entities.Catalog, []entities.OpioidReference, error)

	// Source names the file or "embedded"
	Source() string
}

// CatalogValidator checks catalog integrity and user input.
type CatalogValidator interface {
	// ReportCatalogQuality lists every issue without failing
	ReportCatalogQuality(catalog *entities.Catalog) *CatalogReport

	// ValidateCatalogIntegrity fails only on issues that make the catalog unusable
	ValidateCatalogIntegrity(catalog *entities.Catalog) error

	// ValidateQuery validates free text medication input
	ValidateQuery(input string) error

	// ValidateProductCode returns the canonical form of a product code
	ValidateProductCode(input string) (string, error)
}

// Scheduler defines the contract for the reload and monitoring jobs.
type Scheduler interface {
	Start() error
	Stop()
}

// HTTPHandler defines the contract for the API endpoints.
type HTTPHandler interface {
	FindProductByCode(w http.ResponseWriter, r *http.Request)
	SearchProducts(w http.ResponseWriter, r *http.Request)
	ResolveMedication(w http.ResponseWriter, r *http.Request)
	CalculateOMEQ(w http.ResponseWriter, r *http.Request)
	CalculateOMEQBatch(w http.ResponseWriter, r *http.Request)
	ServeOpioids(w http.ResponseWriter, r *http.Request)
	ServeCatalogReport(w http.ResponseWriter, r *http.Request)
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker reports service health for the /health endpoint.
type HealthChecker interface {
	HealthCheck() (status string, details map[string]any, httpStatus int)
}
