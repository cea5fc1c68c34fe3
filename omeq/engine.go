// Package omeq converts a resolved product, a daily dose and a strength into an
// oral morphine equivalent (OMEQ) per day, or into the reason it cannot.
//
// Compute is a pure function over an immutable reference table: the same
// arguments always give the same Result, and the value is never rounded.
package omeq

import (
	"math"
	"strings"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/dosage"
)

// Reason tags a Result.
type Reason string

const (
	ReasonOK                                   Reason = "ok"
	ReasonMissingInput                         Reason = "missing-input"
	ReasonMissingStrength                      Reason = "missing-strength"
	ReasonNoRoute                              Reason = "no-route"
	ReasonNoOMEQFactor                         Reason = "no-omeq-factor"
	ReasonUnsupportedForm                      Reason = "unsupported-form"
	ReasonUnsupportedCodeine                   Reason = "unsupported-codeine"
	ReasonUnsupportedMethadone                 Reason = "unsupported-methadone"
	ReasonUnsupportedOxycodone                 Reason = "unsupported-oxycodone"
	ReasonUnsupportedHydromorphoneParenteral   Reason = "unsupported-hydromorphone-parenteral"
	ReasonUnsupportedKetobemidone              Reason = "unsupported-ketobemidone"
	ReasonUnsupportedMorphineDropsOrParenteral Reason = "unsupported-morphine-drops-or-parenteral"
)

// Reasons lists every reason in a stable order.
var Reasons = []Reason{
	ReasonOK, ReasonMissingInput, ReasonMissingStrength, ReasonNoRoute, ReasonNoOMEQFactor,
	ReasonUnsupportedForm, ReasonUnsupportedCodeine, ReasonUnsupportedMethadone,
	ReasonUnsupportedOxycodone, ReasonUnsupportedHydromorphoneParenteral,
	ReasonUnsupportedKetobemidone, ReasonUnsupportedMorphineDropsOrParenteral,
}

// ATC codes with fixed rules
const (
	atcMorphine      = "N02AA01"
	atcHydromorphone = "N02AA03"
	atcMethadone     = "N07BC02"
)

var (
	ketobemidoneCodes = []string{"N02AB01", "N02AG02"}
	codeineCodes      = []string{"R05DA04", "N02AA59", "N02AJ06", "N02AJ09"}
	oxycodoneCodes    = []string{"N02AA05", "N02AA55"}
)

// MaxUnitsPerDay is the daily dose above which input most likely is milligrams
// rather than a unit count. It is a display warning only.
const MaxUnitsPerDay = 20

// Result is either an OMEQ value with ReasonOK, or a nil value with another reason.
type Result struct {
	OMEQ   *float64 `json:"omeq"`
	Reason Reason   `json:"reason"`
}

// OK reports whether the result carries a value.
func (r Result) OK() bool {
	return r.Reason == ReasonOK && r.OMEQ != nil
}

func fail(reason Reason) Result {
	return Result{Reason: reason}
}

func succeed(value float64) Result {
	return Result{OMEQ: &value, Reason: ReasonOK}
}

// Engine holds the opioid reference table.
type Engine struct {
	references []entities.OpioidReference
}

// NewEngine creates an engine over its own copy of the references.
func NewEngine(references []entities.OpioidReference) *Engine {
	refs := make([]entities.OpioidReference, len(references))
	copy(refs, references)
	return &Engine{references: refs}
}

// References returns the reference table. Callers must not modify it.
func (e *Engine) References() []entities.OpioidReference {
	return e.references
}

// Compute returns the OMEQ per day. dailyDose is a unit count, or millilitres
// for concentrations, and is ignored for patches.
func (e *Engine) Compute(product *entities.Product, dailyDose *float64, strength *entities.ResolvedStrength) Result {
	if product == nil {
		return fail(ReasonMissingInput)
	}

	route, found := InferRoute(product.Form)
	if !found {
		return fail(ReasonNoRoute)
	}

	if reason, excluded := exclusion(product, route); excluded {
		return fail(reason)
	}

	ref, found := e.lookup(product.ATCCode, route)
	if !found {
		return fail(missingFactorReason(product.ATCCode))
	}

	if route == entities.RouteTransdermal {
		rate, ok := dosage.ToMicrogramsPerHour(strength)
		if !ok || rate < 0 {
			return fail(ReasonMissingStrength)
		}
		return succeed(rate * ref.OMEQFactor)
	}

	mg, found := dosage.ToMilligrams(strength)
	if !found || mg < 0 {
		return fail(ReasonMissingStrength)
	}
	if dailyDose == nil || math.IsNaN(*dailyDose) || math.IsInf(*dailyDose, 0) || *dailyDose <= 0 {
		return fail(ReasonMissingInput)
	}

	return succeed(*dailyDose * mg * ref.OMEQFactor)
}

// exclusion applies the clinical rules that win over any reference
func exclusion(product *entities.Product, route entities.Route) (Reason, bool) {
	atc := strings.ToUpper(strings.TrimSpace(product.ATCCode))
	form := strings.ToLower(strings.TrimSpace(string(product.Form)))

	switch {
	case atc == atcHydromorphone && route == entities.RouteParenteral:
		return ReasonUnsupportedHydromorphoneParenteral, true
	case contains(ketobemidoneCodes, atc):
		return ReasonUnsupportedKetobemidone, true
	case atc == atcMorphine && (route == entities.RouteParenteral || strings.Contains(form, "dråpe")):
		return ReasonUnsupportedMorphineDropsOrParenteral, true
	case form == string(entities.FormSublingvalfilm):
		return ReasonUnsupportedForm, true
	}
	return "", false
}

// missingFactorReason names the substance when one of the reserved ones lacks a reference
func missingFactorReason(atcCode string) Reason {
	atc := strings.ToUpper(strings.TrimSpace(atcCode))
	switch {
	case contains(codeineCodes, atc):
		return ReasonUnsupportedCodeine
	case atc == atcMethadone:
		return ReasonUnsupportedMethadone
	case contains(oxycodoneCodes, atc):
		return ReasonUnsupportedOxycodone
	}
	return ReasonNoOMEQFactor
}

func (e *Engine) lookup(atcCode string, route entities.Route) (*entities.OpioidReference, bool) {
	atc := strings.ToUpper(strings.TrimSpace(atcCode))
	for i := range e.references {
		if e.references[i].Covers(atc, route) {
			return &e.references[i], true
		}
	}
	return nil, false
}

// Reference returns the reference the product's OMEQ would be computed with.
func (e *Engine) Reference(product *entities.Product) (*entities.OpioidReference, bool) {
	if product == nil {
		return nil, false
	}
	route, found := InferRoute(product.Form)
	if !found {
		return nil, false
	}
	return e.lookup(product.ATCCode, route)
}

// DoseExceedsCeiling reports a daily dose that looks like milligrams rather
// than a unit count. Patches are never flagged.
func DoseExceedsCeiling(product *entities.Product, dailyDose *float64) bool {
	if dailyDose == nil || IsPatch(product) {
		return false
	}
	return *dailyDose > MaxUnitsPerDay
}

// DailyMilligrams returns the substance amount per day the dose implies.
func DailyMilligrams(dailyDose *float64, strength *entities.ResolvedStrength) (float64, bool) {
	if dailyDose == nil || math.IsNaN(*dailyDose) || *dailyDose <= 0 {
		return 0, false
	}
	mg, found := dosage.ToMilligrams(strength)
	if !found {
		return 0, false
	}
	return *dailyDose * mg, true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
