// Package resolver maps one raw input string to a single catalog product and
// strength. It is a pure function of the text and the index: no state is kept
// between calls and nothing is ever returned as an error.
package resolver

import (
	"regexp"
	"strings"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/dosage"
	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/ranking"
)

// trailingCodeRegex matches the "(code)" suffix of a canonical label
var trailingCodeRegex = regexp.MustCompile(`\((\d+)\)\s*$`)

// Resolution is the outcome of Resolve. A nil Product or Strength means the
// input was not sufficient, never that something failed.
type Resolution struct {
	Product   *entities.Product
	Variant   *entities.StrengthVariant
	Strength  *entities.ResolvedStrength
	Code      string
	Canonical string
}

// Resolved reports whether a product was identified.
func (r Resolution) Resolved() bool {
	return r.Product != nil
}

// Resolve identifies the product and strength described by raw.
//
// Digits-only input is a product code. Text ending in "(digits)" is tried as a
// canonical label first. Anything else is scored with the token ranker and
// resolves only when every best-scoring option belongs to the same product, or
// to records sharing ATC code, name and form. Among such duplicate records the
// first in catalog order wins.
func Resolve(raw string, idx *index.Index) Resolution {
	text := strings.TrimSpace(raw)
	if text == "" || idx == nil {
		return Resolution{}
	}

	if code, ok := ranking.CodePrefix(text); ok {
		return resolveCode(code, idx)
	}

	if m := trailingCodeRegex.FindStringSubmatch(text); m != nil {
		if res := resolveCode(entities.CanonicalCode(m[1]), idx); res.Resolved() {
			return res
		}
	}

	return resolveText(text, idx)
}

// resolveCode looks the code up in the map, then falls back to a unique option
// whose label ends with the code. Conflicting codes never resolve.
func resolveCode(code string, idx *index.Index) Resolution {
	if entry, ok := idx.LookupCode(code); ok {
		return fromEntry(entry.Product, entry.Variant, entry.Code)
	}
	if len(idx.ConflictEntries(code)) > 0 {
		return Resolution{}
	}

	var match *index.Option
	for i := range idx.Options() {
		opt := idx.Option(i)
		m := trailingCodeRegex.FindStringSubmatch(opt.Label)
		if m == nil || entities.CanonicalCode(m[1]) != code {
			continue
		}
		if match != nil {
			return Resolution{}
		}
		match = opt
	}
	if match == nil {
		return Resolution{}
	}
	return fromEntry(match.Product, match.Variant, code)
}

func fromEntry(product *entities.Product, variant *entities.StrengthVariant, code string) Resolution {
	res := Resolution{Product: product, Variant: variant, Code: code}
	strengthText := ""
	if variant != nil {
		strengthText = variant.Strength
		if s, ok := dosage.Parse(variant.Strength); ok {
			res.Strength = s
		}
	}
	res.Canonical = index.Label(product, strengthText, code)
	return res
}

func resolveText(text string, idx *index.Index) Resolution {
	var res Resolution
	if s, ok := dosage.Parse(text); ok {
		res.Strength = s
	}

	results := ranking.Rank(text, idx, 0)
	if len(results) == 0 {
		return res
	}

	best := results[0].Score
	top := results[:1]
	for i := 1; i < len(results) && results[i].Score == best; i++ {
		top = results[:i+1]
	}

	// Ties are ordered by catalog sequence, so top[0] is the first record
	product := top[0].Option.Product
	for _, s := range top[1:] {
		if s.Option.Product != product && !sameProduct(s.Option.Product, product) {
			// Ambiguous between products
			return res
		}
	}
	res.Product = product

	if len(top) == 1 {
		opt := top[0].Option
		res.Variant = opt.Variant
		res.Code = opt.Code
		res.Canonical = opt.Label
	} else if sharedStrength(top) {
		res.Variant = top[0].Option.Variant
		res.Canonical = index.Label(product, res.Variant.Strength, "")
	} else {
		res.Canonical = index.Label(product, "", "")
	}

	if res.Strength == nil && res.Variant != nil {
		if s, ok := dosage.Parse(res.Variant.Strength); ok {
			res.Strength = s
		}
	}

	return res
}

// sameProduct reports whether two catalog records describe the same product
// line. Catalogs list some products twice under different codes.
func sameProduct(a, b *entities.Product) bool {
	return a.ATCCode == b.ATCCode && a.Name == b.Name && a.Form == b.Form
}

// sharedStrength reports whether every suggestion points at a variant with the
// same strength text.
func sharedStrength(top []ranking.Suggestion) bool {
	v := top[0].Option.Variant
	if v == nil {
		return false
	}
	for _, s := range top[1:] {
		if s.Option.Variant == nil || s.Option.Variant.Strength != v.Strength {
			return false
		}
	}
	return true
}
