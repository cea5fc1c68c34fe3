// Package catalog decodes the product catalog and the opioid reference table
// into typed entities, and provides the embedded defaults shipped with the binary.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/giygas/omeq-api/catalog/entities"
	"golang.org/x/text/encoding/charmap"
)

// productCode accepts a code written as a JSON number or a digit string
type productCode string

func (c *productCode) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*c = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
	}
	// Float notation from some exports, such as 587473.0
	if strings.ContainsAny(raw, ".eE") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil || f < 0 || f != float64(int64(f)) {
			return fmt.Errorf("invalid product code %q", raw)
		}
		raw = strconv.FormatInt(int64(f), 10)
	}
	*c = productCode(raw)
	return nil
}

type rawVariant struct {
	Strength       string        `json:"strength"`
	ProductCodes   []productCode `json:"productCodes"`
	ProductNumbers []productCode `json:"productNumbers"`
}

type rawProduct struct {
	Name           string        `json:"name"`
	Manufacturer   string        `json:"manufacturer"`
	Form           string        `json:"form"`
	Notes          string        `json:"notes"`
	Variants       []rawVariant  `json:"variants"`
	Strengths      []string      `json:"strengths"`
	ProductNumbers []productCode `json:"productNumbers"`
	ProductNumber  productCode   `json:"productNumber"`
	ProductCodes   []productCode `json:"productCodes"`
}

// flatNumbers returns productNumbers, or the single productNumber when the list is absent
func (p rawProduct) flatNumbers() []productCode {
	if len(p.ProductNumbers) == 0 && p.ProductNumber != "" {
		return []productCode{p.ProductNumber}
	}
	return p.ProductNumbers
}

func canonicalCodes(codes ...[]productCode) []string {
	out := make([]string, 0)
	for _, list := range codes {
		for _, c := range list {
			if cc := entities.CanonicalCode(string(c)); cc != "" {
				out = append(out, cc)
			}
		}
	}
	return out
}

// variantsOf converts either record shape to strength variants, preferring variants
func variantsOf(p rawProduct) []entities.StrengthVariant {
	if len(p.Variants) > 0 {
		variants := make([]entities.StrengthVariant, 0, len(p.Variants))
		for _, v := range p.Variants {
			variants = append(variants, entities.StrengthVariant{
				Strength:     strings.TrimSpace(v.Strength),
				ProductCodes: canonicalCodes(v.ProductCodes, v.ProductNumbers),
			})
		}
		return variants
	}

	flatCodes := canonicalCodes(p.flatNumbers(), p.ProductCodes)
	strengths := make([]string, 0, len(p.Strengths))
	for _, s := range p.Strengths {
		if s = strings.TrimSpace(s); s != "" {
			strengths = append(strengths, s)
		}
	}

	// With exactly one strength the flat codes can only belong to it
	if len(strengths) == 1 {
		return []entities.StrengthVariant{{Strength: strengths[0], ProductCodes: flatCodes}}
	}

	variants := make([]entities.StrengthVariant, 0, len(strengths)+1)
	for _, s := range strengths {
		variants = append(variants, entities.StrengthVariant{Strength: s, ProductCodes: []string{}})
	}
	if len(flatCodes) > 0 {
		variants = append(variants, entities.StrengthVariant{ProductCodes: flatCodes})
	}
	return variants
}

// utf8Reader returns the content as UTF-8, decoding ISO-8859-1 when it is not valid UTF-8
func utf8Reader(content []byte) io.Reader {
	if utf8.Valid(content) {
		return bytes.NewReader(content)
	}
	return charmap.ISO8859_1.NewDecoder().Reader(bytes.NewReader(content))
}

// ParseCatalog decodes a catalog object keyed by ATC code. Products keep the order
// of the ATC keys and of the records under each key.
func ParseCatalog(r io.Reader) (*entities.Catalog, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	dec := json.NewDecoder(utf8Reader(content))

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("catalog must be a JSON object keyed by ATC code")
	}

	catalog := &entities.Catalog{Products: make([]entities.Product, 0, 128)}

	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read ATC code: %w", err)
		}
		atcCode, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected catalog key %v", keyTok)
		}

		var records []rawProduct
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("failed to decode products for %s: %w", atcCode, err)
		}

		for _, rec := range records {
			catalog.Products = append(catalog.Products, entities.Product{
				ID:           len(catalog.Products),
				ATCCode:      strings.ToUpper(strings.TrimSpace(atcCode)),
				Name:         strings.TrimSpace(rec.Name),
				Manufacturer: strings.TrimSpace(rec.Manufacturer),
				Form:         entities.ProductForm(strings.ToLower(strings.TrimSpace(rec.Form))),
				Notes:        strings.TrimSpace(rec.Notes),
				Variants:     variantsOf(rec),
			})
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("failed to read end of catalog: %w", err)
	}

	return catalog, nil
}

// ParseReferences decodes the opioid reference table.
func ParseReferences(r io.Reader) ([]entities.OpioidReference, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read opioid references: %w", err)
	}

	var refs []entities.OpioidReference
	if err := json.NewDecoder(utf8Reader(content)).Decode(&refs); err != nil {
		return nil, fmt.Errorf("failed to decode opioid references: %w", err)
	}

	for i := range refs {
		ref := &refs[i]
		if ref.Substance == "" {
			return nil, fmt.Errorf("opioid reference %d has no substance", i)
		}
		if len(ref.ClassificationCodes) == 0 || len(ref.Routes) == 0 {
			return nil, fmt.Errorf("opioid reference %q needs classification codes and routes", ref.Substance)
		}
		if ref.OMEQFactor <= 0 {
			return nil, fmt.Errorf("opioid reference %q has invalid factor %v", ref.Substance, ref.OMEQFactor)
		}
		for j, code := range ref.ClassificationCodes {
			ref.ClassificationCodes[j] = strings.ToUpper(strings.TrimSpace(code))
		}
		if ref.ID == "" {
			ref.ID = fmt.Sprintf("%s-%d", strings.ToLower(ref.Substance), i)
		}
	}

	return refs, nil
}
