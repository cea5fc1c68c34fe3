// Package dosage parses strength notations such as "10 mg", "0,4 mg/dose",
// "1 mg/ml" and "10 µg/time", and converts them to the units used for
// dose-equivalence calculations.
package dosage

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/giygas/omeq-api/catalog/entities"
)

// Units produced by Parse
const (
	UnitMilligram  = "mg"
	UnitGram       = "g"
	UnitMicrogram  = "µg"
	perMillilitre  = "/ml"
	maxStrengthLen = 256
)

// strengthRegex matches the first number followed by a mass unit and an optional denominator.
// The trailing class stops "g" from matching the start of a word like "ganger".
var strengthRegex = regexp.MustCompile(
	`(\d+(?:[.,]\d+)?)\s*(mikrogram|mikrog|mcg|mg|µg|μg|ug|g)` +
		`(?:\s*(?:/|per\s)\s*(ml|timer|time|t|h|dose)|\s+(timer|time))?` +
		`(?:[^\p{L}]|$)`,
)

var microgramUnits = []string{"µg", "μg", "ug", "mcg", "mikrog"}

// Parse extracts the first strength found in the text.
func Parse(text string) (*entities.ResolvedStrength, bool) {
	if text == "" || len(text) > maxStrengthLen {
		return nil, false
	}

	m := strengthRegex.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return nil, false
	}

	value, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, false
	}

	unit := canonicalUnit(m[2])
	denominator := m[3]
	if denominator == "" {
		denominator = m[4]
	}

	strength := &entities.ResolvedStrength{Value: value, Unit: unit}
	switch denominator {
	case "ml":
		strength.Unit = unit + perMillilitre
	case "time", "timer", "t", "h":
		strength.PerHour = true
	}

	return strength, true
}

func canonicalUnit(raw string) string {
	switch raw {
	case "mg":
		return UnitMilligram
	case "g":
		return UnitGram
	default:
		return UnitMicrogram
	}
}

// IsMicrogram reports whether the unit is any spelling of micrograms.
func IsMicrogram(unit string) bool {
	unit = strings.ToLower(unit)
	for _, u := range microgramUnits {
		if strings.Contains(unit, u) {
			return true
		}
	}
	return false
}

// IsPerHour reports whether the strength is a delivery rate rather than an amount per dose.
func IsPerHour(s *entities.ResolvedStrength) bool {
	if s == nil {
		return false
	}
	if s.PerHour {
		return true
	}
	unit := strings.ToLower(s.Unit)
	return strings.Contains(unit, "time") || strings.Contains(unit, "/t") || strings.Contains(unit, "/h")
}

// IsPerMillilitre reports whether the strength is a concentration.
func IsPerMillilitre(s *entities.ResolvedStrength) bool {
	if s == nil {
		return false
	}
	unit := strings.ToLower(s.Unit)
	return strings.Contains(unit, perMillilitre) || strings.Contains(unit, "per ml")
}

// ToMilligrams converts a strength to milligrams per dose unit, or per millilitre
// for concentrations. Microgram rates are never converted.
func ToMilligrams(s *entities.ResolvedStrength) (float64, bool) {
	if s == nil || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return 0, false
	}

	unit := strings.ToLower(strings.TrimSpace(s.Unit))
	isMg := strings.Contains(unit, "mg")
	isMcg := IsMicrogram(unit)
	isG := unit == "g" || (strings.Contains(unit, "g") && !isMg && !isMcg)

	switch {
	case isMg:
		return s.Value, true
	case isG:
		return s.Value * 1000, true
	case isMcg && !IsPerHour(s):
		return s.Value / 1000, true
	}

	return 0, false
}

// ToMicrogramsPerHour returns the rate of a µg/h strength.
func ToMicrogramsPerHour(s *entities.ResolvedStrength) (float64, bool) {
	if s == nil || math.IsNaN(s.Value) || math.IsInf(s.Value, 0) {
		return 0, false
	}
	if !IsMicrogram(s.Unit) || !IsPerHour(s) {
		return 0, false
	}
	return s.Value, true
}
