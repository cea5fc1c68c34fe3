package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/giygas/omeq-api/dosage"
	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/interfaces"
	"github.com/giygas/omeq-api/logging"
	"github.com/giygas/omeq-api/metrics"
	"github.com/giygas/omeq-api/ranking"
	"github.com/go-chi/chi/v5"
)

// MaxBatchRows is the largest number of rows accepted by one batch calculation
const MaxBatchRows = 50

// HTTPHandlerImpl implements the interfaces.HTTPHandler interface
type HTTPHandlerImpl struct {
	dataStore     interfaces.DataStore
	validator     interfaces.CatalogValidator
	healthChecker interfaces.HealthChecker
	ranker        *ranking.Ranker
}

// NewHTTPHandler creates a new HTTP handler with injected dependencies.
// A nil ranker uses token mode with the default result limit.
func NewHTTPHandler(dataStore interfaces.DataStore, validator interfaces.CatalogValidator, healthChecker interfaces.HealthChecker, ranker *ranking.Ranker) interfaces.HTTPHandler {
	if ranker == nil {
		ranker = ranking.NewRanker(ranking.ModeToken, ranking.DefaultMaxResults)
	}
	return &HTTPHandlerImpl{
		dataStore:     dataStore,
		validator:     validator,
		healthChecker: healthChecker,
		ranker:        ranker,
	}
}

// FindProductByCode returns the product, strength and canonical label for a product code
func (h *HTTPHandlerImpl) FindProductByCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.validator.ValidateProductCode(chi.URLParam(r, "code"))
	if err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	idx := h.dataStore.GetIndex()
	entry, found := idx.LookupCode(code)
	if !found {
		if conflicts := idx.ConflictEntries(code); len(conflicts) > 0 {
			logging.Warn("Lookup of conflicting product code", "code", code, "claims", len(conflicts))
			RespondWithError(w, http.StatusConflict,
				fmt.Sprintf("Product code %s belongs to %d catalog entries", code, len(conflicts)))
			return
		}
		RespondWithError(w, http.StatusNotFound, "Product not found")
		return
	}

	view := ResolutionView{
		Input:     code,
		Outcome:   metrics.OutcomeResolved,
		Canonical: index.Label(entry.Product, entry.Variant.Strength, entry.Code),
		Code:      entry.Code,
		Product:   productView(entry.Product),
		Strength:  entry.Variant.Strength,
	}
	if strength, ok := dosage.Parse(entry.Variant.Strength); ok {
		view.ResolvedStrength = strength
	}
	if ref, ok := h.dataStore.GetEngine().Reference(entry.Product); ok {
		RespondWithJSONAndETag(w, r, http.StatusOK, map[string]any{
			"resolution": view,
			"reference":  ref,
		})
		return
	}

	RespondWithJSONAndETag(w, r, http.StatusOK, map[string]any{"resolution": view})
}

// SearchProducts returns ranked suggestions for free text or a code prefix
func (h *HTTPHandlerImpl) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing search query")
		return
	}

	if err := h.validator.ValidateQuery(query); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := h.ranker.MaxResults
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > h.ranker.MaxResults {
			logging.Warn("Unusual user input", "limit", raw)
			RespondWithError(w, http.StatusBadRequest,
				fmt.Sprintf("limit must be between 1 and %d", h.ranker.MaxResults))
			return
		}
		limit = parsed
	}

	results := SuggestionViews(h.ranker.RankN(query, h.dataStore.GetIndex(), limit))

	// Always return 200 with results array (empty if no matches)
	RespondWithJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"mode":    h.ranker.Mode,
		"count":   len(results),
		"results": results,
	})
}

// ResolveMedication resolves free text, a code or a canonical label to a product and strength
func (h *HTTPHandlerImpl) ResolveMedication(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if strings.TrimSpace(query) == "" {
		RespondWithError(w, http.StatusBadRequest, "Missing medication")
		return
	}

	if err := h.validator.ValidateQuery(query); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, Resolve(query, h.dataStore.GetIndex()))
}

// CalculateOMEQ resolves one medication and returns its OMEQ per day
func (h *HTTPHandlerImpl) CalculateOMEQ(w http.ResponseWriter, r *http.Request) {
	var req CalculationRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validateRow(req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	RespondWithJSON(w, http.StatusOK, Calculate(h.dataStore.GetIndex(), h.dataStore.GetEngine(), req))
}

// CalculateOMEQBatch computes every row and sums the rows that produced a value.
// Invalid rows carry an error and count as zero.
func (h *HTTPHandlerImpl) CalculateOMEQBatch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := decodeJSON(r, &req); err != nil {
		RespondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Rows) == 0 {
		RespondWithError(w, http.StatusBadRequest, "At least one row is required")
		return
	}
	if len(req.Rows) > MaxBatchRows {
		RespondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Too many rows: maximum %d allowed", MaxBatchRows))
		return
	}

	idx := h.dataStore.GetIndex()
	engine := h.dataStore.GetEngine()

	response := BatchResponse{Rows: make([]Calculation, 0, len(req.Rows))}
	for _, row := range req.Rows {
		if err := h.validateRow(row); err != nil {
			response.Rows = append(response.Rows, Calculation{
				Medication: row.Medication,
				DailyDose:  row.DailyDose,
				Warnings:   []string{},
				Error:      err.Error(),
			})
			continue
		}

		calc := Calculate(idx, engine, row)
		if calc.Result.OK() {
			response.TotalOMEQ += *calc.Result.OMEQ
			response.OKCount++
		}
		response.Rows = append(response.Rows, calc)
	}

	RespondWithJSON(w, http.StatusOK, response)
}

func (h *HTTPHandlerImpl) validateRow(req CalculationRequest) error {
	if strings.TrimSpace(req.Medication) == "" {
		return errors.New("medication is required")
	}
	return h.validator.ValidateQuery(req.Medication)
}

// ServeOpioids returns the opioid reference table
func (h *HTTPHandlerImpl) ServeOpioids(w http.ResponseWriter, r *http.Request) {
	references := h.dataStore.GetEngine().References()
	RespondWithJSONAndETag(w, r, http.StatusOK, map[string]any{
		"count":      len(references),
		"references": references,
	})
}

// ServeCatalogReport returns the integrity report of the loaded catalog
func (h *HTTPHandlerImpl) ServeCatalogReport(w http.ResponseWriter, r *http.Request) {
	report := h.dataStore.GetReport()
	if report == nil {
		RespondWithError(w, http.StatusServiceUnavailable, "Catalog report not available")
		return
	}

	RespondWithJSONAndETag(w, r, http.StatusOK, map[string]any{
		"source":      h.dataStore.GetSource(),
		"lastUpdated": h.dataStore.GetLastUpdated().Format(time.RFC3339),
		"hasIssues":   report.HasIssues(),
		"report":      report,
	})
}

// HealthCheck returns server health information
func (h *HTTPHandlerImpl) HealthCheck(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	uptime := time.Since(h.dataStore.GetServerStartTime())
	status, data, httpStatus := h.healthChecker.HealthCheck()

	response := HealthResponse{
		Status:        status,
		UptimeSeconds: uptime.Seconds(),
		Uptime:        formatUptimeHuman(uptime),
		Data:          data,
		System: map[string]any{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]any{
				"alloc_mb":       int(m.Alloc / 1024 / 1024),
				"total_alloc_mb": int(m.TotalAlloc / 1024 / 1024),
				"sys_mb":         int(m.Sys / 1024 / 1024),
				"num_gc":         m.NumGC,
			},
		},
	}

	RespondWithJSON(w, httpStatus, response)
}
