// Package handlers provides the HTTP handlers of the OMEQ API: product code lookup,
// suggestions, medication resolution, OMEQ calculation, the reference table,
// the catalog report and health.
package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/logging"
	"github.com/giygas/omeq-api/metrics"
	"github.com/giygas/omeq-api/omeq"
	"github.com/giygas/omeq-api/ranking"
	"github.com/giygas/omeq-api/resolver"
)

// Warning codes attached to a calculation
const (
	WarningDoseExceedsCeiling = "dose-exceeds-ceiling"
	WarningAmbiguousProduct   = "ambiguous-product"
)

// candidateCount is the number of suggestions returned with an unresolved input
const candidateCount = 5

// RespondWithJSON writes a JSON response
func RespondWithJSON(w http.ResponseWriter, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// GenerateETag returns a strong ETag built from the first 8 bytes of the SHA-256 of data
func GenerateETag(data []byte) string {
	sum := sha256.Sum256(data)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// CheckETag reports whether the client already holds the current representation
func CheckETag(r *http.Request, etag string) bool {
	return r.Header.Get("If-None-Match") == etag
}

// RespondWithJSONAndETag writes a JSON response with an ETag, or 304 when the client copy is current
func RespondWithJSONAndETag(w http.ResponseWriter, r *http.Request, code int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error("Failed to marshal JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	etag := GenerateETag(data)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=300")

	if CheckETag(r, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Last-Modified", time.Now().UTC().Format(http.TimeFormat))
	w.WriteHeader(code)
	_, _ = w.Write(data)
}

// RespondWithError writes a JSON error response
func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
		Code:    code,
	})
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ProductView is the public shape of a catalog product
type ProductView struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	ATCCode      string `json:"atcCode"`
	Form         string `json:"form,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Route        string `json:"route,omitempty"`
	Patch        bool   `json:"patch"`
	Liquid       bool   `json:"liquid"`
}

func productView(p *entities.Product) *ProductView {
	if p == nil {
		return nil
	}
	view := &ProductView{
		ID:           p.ID,
		Name:         p.Name,
		ATCCode:      p.ATCCode,
		Form:         string(p.Form),
		Manufacturer: p.Manufacturer,
		Patch:        omeq.IsPatch(p),
		Liquid:       omeq.IsLiquid(p),
	}
	if route, ok := omeq.InferRoute(p.Form); ok {
		view.Route = string(route)
	}
	return view
}

// SuggestionView is one ranked option
type SuggestionView struct {
	Label     string `json:"label"`
	Code      string `json:"code,omitempty"`
	ProductID int    `json:"productId"`
	Name      string `json:"name"`
	Strength  string `json:"strength,omitempty"`
	Score     int    `json:"score"`
}

// SuggestionViews converts ranked options to their public shape
func SuggestionViews(suggestions []ranking.Suggestion) []SuggestionView {
	views := make([]SuggestionView, 0, len(suggestions))
	for _, s := range suggestions {
		if s.Option == nil {
			continue
		}
		views = append(views, SuggestionView{
			Label:     s.Option.Label,
			Code:      s.Option.Code,
			ProductID: s.Option.Product.ID,
			Name:      s.Option.Product.Name,
			Strength:  s.Option.Strength(),
			Score:     s.Score,
		})
	}
	return views
}

// ResolutionView is the outcome of resolving free text or a code
type ResolutionView struct {
	Input            string                     `json:"input"`
	Outcome          string                     `json:"outcome"`
	Canonical        string                     `json:"canonical,omitempty"`
	Code             string                     `json:"code,omitempty"`
	Product          *ProductView               `json:"product,omitempty"`
	Strength         string                     `json:"strength,omitempty"`
	ResolvedStrength *entities.ResolvedStrength `json:"resolvedStrength,omitempty"`
	Candidates       []SuggestionView           `json:"candidates,omitempty"`
}

// Resolve runs the resolver and, when no product is identified, attaches the best candidates
func Resolve(input string, idx *index.Index) ResolutionView {
	view, _ := resolve(input, idx)
	return view
}

func resolve(input string, idx *index.Index) (ResolutionView, resolver.Resolution) {
	res := resolver.Resolve(input, idx)

	view := ResolutionView{
		Input:            input,
		Canonical:        res.Canonical,
		Code:             res.Code,
		Product:          productView(res.Product),
		ResolvedStrength: res.Strength,
	}
	if res.Variant != nil {
		view.Strength = res.Variant.Strength
	}

	switch {
	case res.Resolved():
		view.Outcome = metrics.OutcomeResolved
	default:
		view.Candidates = SuggestionViews(ranking.Rank(input, idx, candidateCount))
		if len(view.Candidates) > 0 {
			view.Outcome = metrics.OutcomeAmbiguous
		} else {
			view.Outcome = metrics.OutcomeUnresolved
		}
	}

	metrics.RecordResolution(view.Outcome)
	return view, res
}

// CalculationRequest is one medication and its daily dose
type CalculationRequest struct {
	Medication string   `json:"medication"`
	DailyDose  *float64 `json:"dailyDose"`
}

// Calculation is the resolved medication with its OMEQ result
type Calculation struct {
	Medication      string                    `json:"medication"`
	DailyDose       *float64                  `json:"dailyDose"`
	Resolution      ResolutionView            `json:"resolution"`
	Result          omeq.Result               `json:"result"`
	Reference       *entities.OpioidReference `json:"reference,omitempty"`
	DailyMilligrams *float64                  `json:"dailyMilligrams,omitempty"`
	Warnings        []string                  `json:"warnings"`
	Error           string                    `json:"error,omitempty"`
}

// Calculate resolves the medication and computes its OMEQ per day
func Calculate(idx *index.Index, engine *omeq.Engine, req CalculationRequest) Calculation {
	view, res := resolve(req.Medication, idx)
	calc := Calculation{
		Medication: req.Medication,
		DailyDose:  req.DailyDose,
		Resolution: view,
		Warnings:   []string{},
	}

	calc.Result = engine.Compute(res.Product, req.DailyDose, res.Strength)
	metrics.RecordCalculation(string(calc.Result.Reason))

	if ref, ok := engine.Reference(res.Product); ok {
		calc.Reference = ref
	}
	if mg, ok := omeq.DailyMilligrams(req.DailyDose, res.Strength); ok && calc.Result.OK() && !omeq.IsPatch(res.Product) {
		calc.DailyMilligrams = &mg
	}
	if omeq.DoseExceedsCeiling(res.Product, req.DailyDose) {
		calc.Warnings = append(calc.Warnings, WarningDoseExceedsCeiling)
	}
	if calc.Resolution.Outcome == metrics.OutcomeAmbiguous {
		calc.Warnings = append(calc.Warnings, WarningAmbiguousProduct)
	}

	return calc
}

// BatchRequest holds the rows of one OMEQ sum
type BatchRequest struct {
	Rows []CalculationRequest `json:"rows"`
}

// BatchResponse holds every row and the sum of the rows that produced a value
type BatchResponse struct {
	Rows      []Calculation `json:"rows"`
	TotalOMEQ float64       `json:"totalOmeq"`
	OKCount   int           `json:"okCount"`
}

// HealthResponse defines the structure for consistent JSON ordering
type HealthResponse struct {
	Status        string         `json:"status"`
	UptimeSeconds float64        `json:"uptime_seconds"`
	Uptime        string         `json:"uptime"`
	Data          map[string]any `json:"data"`
	System        map[string]any `json:"system"`
}

// decodeJSON reads exactly one JSON document with no unknown fields
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			return fmt.Errorf("request body too large: maximum %d bytes", maxBytesErr.Limit)
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}

	if dec.More() {
		return errors.New("invalid JSON body: unexpected data after the first document")
	}
	return nil
}

// formatUptimeHuman formats duration into a human-readable string
func formatUptimeHuman(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	var parts []string

	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 || days > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))

	return strings.Join(parts, " ")
}
