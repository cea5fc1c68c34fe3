package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/interfaces"
	"github.com/giygas/omeq-api/omeq"
	"github.com/go-chi/chi/v5"
)

// ============================================================================
// TEST DATA
// ============================================================================

// testCatalog covers a resolvable capsule, a patch, an unsupported codeine
// combination and one product code claimed by two products.
func testCatalog() *entities.Catalog {
	return &entities.Catalog{Products: []entities.Product{
		{
			ATCCode: "N02AA05", Name: "Oxynorm", Manufacturer: "Mundipharma", Form: entities.FormKapsel,
			Variants: []entities.StrengthVariant{
				{Strength: "5 mg", ProductCodes: []string{"160304"}},
				{Strength: "10 mg", ProductCodes: []string{"160315"}},
			},
		},
		{
			ATCCode: "N02AA05", Name: "OxyContin", Form: entities.FormDepottablett,
			Variants: []entities.StrengthVariant{
				{Strength: "10 mg", ProductCodes: []string{"27540"}},
				{Strength: "20 mg", ProductCodes: []string{"27551"}},
			},
		},
		{
			ATCCode: "N02AE01", Name: "Norspan", Form: entities.FormDepotplaster,
			Variants: []entities.StrengthVariant{
				{Strength: "5 µg/time", ProductCodes: []string{"587473"}},
			},
		},
		{
			ATCCode: "N02AJ06", Name: "Paralgin forte", Form: entities.FormTablett,
			Variants: []entities.StrengthVariant{
				{Strength: "400 mg/30 mg", ProductCodes: []string{"12345"}},
			},
		},
		{
			ATCCode: "N02AA01", Name: "Morfin A", Form: entities.FormTablett,
			Variants: []entities.StrengthVariant{
				{Strength: "10 mg", ProductCodes: []string{"99999"}},
			},
		},
		{
			ATCCode: "N02AA01", Name: "Morfin B", Form: entities.FormTablett,
			Variants: []entities.StrengthVariant{
				{Strength: "20 mg", ProductCodes: []string{"99999"}},
			},
		},
	}}
}

func testReferences() []entities.OpioidReference {
	return []entities.OpioidReference{
		{ID: "morfin-oral", Substance: "Morfin", ClassificationCodes: []string{"N02AA01"}, Routes: []entities.Route{entities.RouteOral}, OMEQFactor: 1},
		{ID: "oksykodon-oral", Substance: "Oksykodon", ClassificationCodes: []string{"N02AA05"}, Routes: []entities.Route{entities.RouteOral}, OMEQFactor: 1.5},
		{ID: "buprenorfin-transdermal", Substance: "Buprenorfin", ClassificationCodes: []string{"N02AE01"}, Routes: []entities.Route{entities.RouteTransdermal}, OMEQFactor: 2.2, HelpText: "Plasterstyrke i µg/time."},
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

// ============================================================================
// MOCK DATA STORE
// ============================================================================

type MockDataStore struct {
	idx         *index.Index
	engine      *omeq.Engine
	report      *interfaces.CatalogReport
	source      string
	lastUpdated time.Time
	startTime   time.Time
	updating    bool
}

type MockDataStoreBuilder struct {
	store *MockDataStore
}

// NewMockDataStoreBuilder starts from the test catalog and references
func NewMockDataStoreBuilder() *MockDataStoreBuilder {
	return &MockDataStoreBuilder{store: &MockDataStore{
		idx:         index.Build(testCatalog()),
		engine:      omeq.NewEngine(testReferences()),
		report:      &interfaces.CatalogReport{ProductCount: 6, DuplicateCodes: []string{"99999"}},
		source:      "embedded",
		lastUpdated: time.Date(2026, 1, 5, 6, 0, 0, 0, time.UTC),
		startTime:   time.Now().Add(-90 * time.Minute),
	}}
}

func (b *MockDataStoreBuilder) WithCatalog(catalog *entities.Catalog) *MockDataStoreBuilder {
	b.store.idx = index.Build(catalog)
	return b
}

func (b *MockDataStoreBuilder) WithReferences(refs []entities.OpioidReference) *MockDataStoreBuilder {
	b.store.engine = omeq.NewEngine(refs)
	return b
}

func (b *MockDataStoreBuilder) WithReport(report *interfaces.CatalogReport) *MockDataStoreBuilder {
	b.store.report = report
	return b
}

func (b *MockDataStoreBuilder) WithUpdating(updating bool) *MockDataStoreBuilder {
	b.store.updating = updating
	return b
}

func (b *MockDataStoreBuilder) Build() *MockDataStore {
	return b.store
}

func (m *MockDataStore) GetIndex() *index.Index               { return m.idx }
func (m *MockDataStore) GetEngine() *omeq.Engine              { return m.engine }
func (m *MockDataStore) GetReport() *interfaces.CatalogReport { return m.report }
func (m *MockDataStore) GetSource() string                    { return m.source }
func (m *MockDataStore) GetLastUpdated() time.Time            { return m.lastUpdated }
func (m *MockDataStore) IsUpdating() bool                     { return m.updating }
func (m *MockDataStore) GetServerStartTime() time.Time        { return m.startTime }
func (m *MockDataStore) BeginUpdate() bool                    { return !m.updating }
func (m *MockDataStore) EndUpdate()                           { m.updating = false }

func (m *MockDataStore) UpdateData(idx *index.Index, engine *omeq.Engine, report *interfaces.CatalogReport, source string) {
	m.idx, m.engine, m.report, m.source = idx, engine, report, source
	m.lastUpdated = time.Now()
}

// ============================================================================
// MOCK VALIDATOR
// ============================================================================

type MockCatalogValidator struct {
	queryErr error
	codeErr  error
}

type MockCatalogValidatorBuilder struct {
	validator *MockCatalogValidator
}

func NewMockCatalogValidatorBuilder() *MockCatalogValidatorBuilder {
	return &MockCatalogValidatorBuilder{validator: &MockCatalogValidator{}}
}

func (b *MockCatalogValidatorBuilder) WithQueryError(err error) *MockCatalogValidatorBuilder {
	b.validator.queryErr = err
	return b
}

func (b *MockCatalogValidatorBuilder) WithCodeError(err error) *MockCatalogValidatorBuilder {
	b.validator.codeErr = err
	return b
}

func (b *MockCatalogValidatorBuilder) Build() *MockCatalogValidator {
	return b.validator
}

func (m *MockCatalogValidator) ReportCatalogQuality(catalog *entities.Catalog) *interfaces.CatalogReport {
	return &interfaces.CatalogReport{}
}

func (m *MockCatalogValidator) ValidateCatalogIntegrity(catalog *entities.Catalog) error {
	return nil
}

func (m *MockCatalogValidator) ValidateQuery(input string) error {
	return m.queryErr
}

func (m *MockCatalogValidator) ValidateProductCode(input string) (string, error) {
	if m.codeErr != nil {
		return "", m.codeErr
	}
	if input == "" || strings.Trim(input, "0123456789") != "" {
		return "", errors.New("input contains invalid characters. Only numeric characters are allowed")
	}
	return entities.CanonicalCode(input), nil
}

// ============================================================================
// MOCK HEALTH CHECKER
// ============================================================================

type MockHealthChecker struct {
	status     string
	httpStatus int
}

type MockHealthCheckerBuilder struct {
	checker *MockHealthChecker
}

func NewMockHealthCheckerBuilder() *MockHealthCheckerBuilder {
	return &MockHealthCheckerBuilder{checker: &MockHealthChecker{status: "healthy", httpStatus: http.StatusOK}}
}

func (b *MockHealthCheckerBuilder) WithStatus(status string, httpStatus int) *MockHealthCheckerBuilder {
	b.checker.status = status
	b.checker.httpStatus = httpStatus
	return b
}

func (b *MockHealthCheckerBuilder) Build() *MockHealthChecker {
	return b.checker
}

func (m *MockHealthChecker) HealthCheck() (string, map[string]any, int) {
	return m.status, map[string]any{"products": 6, "source": "embedded"}, m.httpStatus
}

// ============================================================================
// HTTP HELPERS
// ============================================================================

func newTestHandler() *HTTPHandlerImpl {
	return NewHTTPHandler(
		NewMockDataStoreBuilder().Build(),
		NewMockCatalogValidatorBuilder().Build(),
		NewMockHealthCheckerBuilder().Build(),
		nil,
	).(*HTTPHandlerImpl)
}

type HTTPTestHelper struct {
	t *testing.T
}

func NewHTTPTestHelper(t *testing.T) *HTTPTestHelper {
	return &HTTPTestHelper{t: t}
}

// ExecuteRequest runs a handler with chi URL params set on the request context
func (h *HTTPTestHelper) ExecuteRequest(handler http.HandlerFunc, method, path string, urlParams map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if len(urlParams) > 0 {
		req = withURLParams(req, urlParams)
	}

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func withURLParams(req *http.Request, urlParams map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range urlParams {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// ExecuteJSON posts body as JSON to the handler
func (h *HTTPTestHelper) ExecuteJSON(handler http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	switch v := body.(type) {
	case string:
		payload = []byte(v)
	default:
		var err error
		payload, err = json.Marshal(v)
		if err != nil {
			h.t.Fatalf("Failed to marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func (h *HTTPTestHelper) AssertJSONResponse(resp *httptest.ResponseRecorder, expectedStatus int, target any) {
	h.t.Helper()

	if resp.Code != expectedStatus {
		h.t.Fatalf("Expected status %d, got %d: %s", expectedStatus, resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		h.t.Errorf("Expected Content-Type application/json; charset=utf-8, got %s", ct)
	}
	if target != nil {
		if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
			h.t.Fatalf("Failed to decode response: %v", err)
		}
	}
}

func (h *HTTPTestHelper) AssertErrorResponse(resp *httptest.ResponseRecorder, expectedStatus int, messageContains string) {
	h.t.Helper()

	var errResp ErrorResponse
	h.AssertJSONResponse(resp, expectedStatus, &errResp)

	if errResp.Code != expectedStatus {
		h.t.Errorf("Expected code %d in body, got %d", expectedStatus, errResp.Code)
	}
	if errResp.Error != http.StatusText(expectedStatus) {
		h.t.Errorf("Expected error %q, got %q", http.StatusText(expectedStatus), errResp.Error)
	}
	if !strings.Contains(errResp.Message, messageContains) {
		h.t.Errorf("Expected message containing %q, got %q", messageContains, errResp.Message)
	}
}
