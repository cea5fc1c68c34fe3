// Package validation checks catalog integrity at load time and validates user input
// before it reaches the resolver.
package validation

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/dosage"
	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/interfaces"
	"github.com/giygas/omeq-api/logging"
)

// Limits for user input
const (
	MaxQueryLength = 100
	MaxQueryWords  = 10
	MaxCodeLength  = 20
	maxNameLength  = 200

	// Lists in the report keep only the first items
	maxReportedItems = 10
)

// Pre-compiled regex patterns for performance optimization
// Compiled once at package initialization and reused for all validations
var (
	// Medication text: letters incl. Norwegian, digits, strength notation and the
	// punctuation the normalizer turns into spaces
	inputRegex = regexp.MustCompile(`^[a-zA-Z0-9\s\-\.,\+'"/\\()\[\]{}|;:_*!?%æøåÆØÅéèêëäöüÄÖÜµμ]+$`)

	// At least one letter or digit must survive normalization
	meaningfulRegex = regexp.MustCompile(`[a-zA-Z0-9æøåÆØÅéèêëäöüÄÖÜ]`)
)

// Compile-time check to ensure CatalogValidatorImpl implements CatalogValidator
var _ interfaces.CatalogValidator = (*CatalogValidatorImpl)(nil)

// CatalogValidatorImpl implements the interfaces.CatalogValidator interface
type CatalogValidatorImpl struct{}

// NewCatalogValidator creates a new catalog validator
func NewCatalogValidator() interfaces.CatalogValidator {
	return &CatalogValidatorImpl{}
}

// ValidateCatalogIntegrity fails when the catalog cannot serve any lookup
func (v *CatalogValidatorImpl) ValidateCatalogIntegrity(catalog *entities.Catalog) error {
	if catalog == nil || len(catalog.Products) == 0 {
		return fmt.Errorf("no products found")
	}

	named := 0
	for i, p := range catalog.Products {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		named++

		if len(name) > maxNameLength {
			return fmt.Errorf("name too long for product %d: %d characters", i, len(name))
		}
	}

	if named == 0 {
		return fmt.Errorf("no product has a name")
	}

	return nil
}

// ReportCatalogQuality generates a catalog quality report with all issues found
func (v *CatalogValidatorImpl) ReportCatalogQuality(catalog *entities.Catalog) *interfaces.CatalogReport {
	report := &interfaces.CatalogReport{
		DuplicateCodes:      []string{},
		UnparsableStrengths: []string{},
		UnknownForms:        []string{},
	}
	if catalog == nil {
		return report
	}

	idx := index.Build(catalog)
	report.ProductCount = len(catalog.Products)
	report.CodeCount = catalog.CodeCount()
	report.OptionCount = len(idx.Options())

	// Check 1: codes claimed by more than one product or strength
	report.DuplicateCodes = append(report.DuplicateCodes, idx.Conflicts()...)

	unknownForms := make(map[string]bool)
	for _, p := range catalog.Products {
		// Check 2: products without name (codes stay reachable, no suggestion)
		if strings.TrimSpace(p.Name) == "" {
			report.ProductsWithoutName++
		}

		// Check 3: products without ATC code (no OMEQ factor can apply)
		if strings.TrimSpace(p.ATCCode) == "" {
			report.ProductsWithoutATC++
		}

		// Check 4: forms outside the enumerated set (route inference may still apply)
		form := entities.ProductForm(strings.ToLower(strings.TrimSpace(string(p.Form))))
		if form != "" && !form.IsKnown() {
			unknownForms[string(form)] = true
		}

		// Check 5: strength text without a parsable value (store first 10)
		hasCode := false
		for _, variant := range p.Variants {
			if len(variant.ProductCodes) > 0 {
				hasCode = true
			}
			if variant.Strength == "" {
				continue
			}
			if _, ok := dosage.Parse(variant.Strength); !ok && len(report.UnparsableStrengths) < maxReportedItems {
				report.UnparsableStrengths = append(report.UnparsableStrengths, fmt.Sprintf("%s: %s", p.Name, variant.Strength))
			}
		}

		// Check 6: products reachable only by text
		if !hasCode {
			report.ProductsWithoutCodes++
		}
	}

	for form := range unknownForms {
		report.UnknownForms = append(report.UnknownForms, form)
	}
	sort.Strings(report.UnknownForms)

	if len(report.DuplicateCodes) > 0 {
		logging.Warn("Product codes claimed by several products",
			"count", len(report.DuplicateCodes),
			"codes", report.DuplicateCodes,
		)
	}

	return report
}

// ValidateQuery validates free text medication input. Pasted product text keeps its punctuation.
func (v *CatalogValidatorImpl) ValidateQuery(input string) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("input cannot be empty")
	}

	if len(input) > MaxQueryLength {
		return fmt.Errorf("input too long: maximum %d characters", MaxQueryLength)
	}

	// Word count validation to prevent DoS attacks with many short words
	words := strings.Fields(input)
	if len(words) > MaxQueryWords {
		return fmt.Errorf("search query too complex: maximum %d words allowed", MaxQueryWords)
	}

	if !inputRegex.MatchString(input) {
		return fmt.Errorf("input contains invalid characters. Only letters, numbers, spaces and strength notation are allowed")
	}

	if !meaningfulRegex.MatchString(input) {
		return fmt.Errorf("input must contain letters or digits")
	}

	if v.hasExcessiveRepetition(input) {
		return fmt.Errorf("input contains excessive character repetition")
	}

	return nil
}

// ValidateProductCode validates a numeric product code and returns it without leading zeros
func (v *CatalogValidatorImpl) ValidateProductCode(input string) (string, error) {
	trimmedInput := strings.TrimSpace(input)
	if trimmedInput == "" {
		return "", fmt.Errorf("input cannot be empty")
	}

	// Reject if original input contained whitespace (spaces, tabs, etc.)
	if len(input) != len(trimmedInput) {
		return "", fmt.Errorf("input contains invalid characters. Only numeric characters are allowed")
	}

	if len(trimmedInput) > MaxCodeLength {
		return "", fmt.Errorf("product code too long: maximum %d digits", MaxCodeLength)
	}

	for _, r := range trimmedInput {
		if r < '0' || r > '9' {
			return "", fmt.Errorf("input contains invalid characters. Only numeric characters are allowed")
		}
	}

	return entities.CanonicalCode(trimmedInput), nil
}

// hasExcessiveRepetition checks for potential DoS patterns with excessive character repetition
func (v *CatalogValidatorImpl) hasExcessiveRepetition(input string) bool {
	// Check for the same character repeated more than 10 times consecutively
	for i := 0; i < len(input)-10; i++ {
		allSame := true
		for j := 1; j <= 10; j++ {
			if input[i] != input[i+j] {
				allSame = false
				break
			}
		}
		if allSame {
			return true
		}
	}
	return false
}
