// Package index builds the immutable lookup structure over the product catalog.
// An Index is built once per catalog and never mutated afterwards, so it can be
// shared by any number of goroutines without locking.
package index

import (
	"sort"
	"strings"

	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/textnorm"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// CodeEntry is the (product, variant) pair a product code belongs to.
type CodeEntry struct {
	Product *entities.Product
	Variant *entities.StrengthVariant
	Code    string
}

// Option is one selectable suggestion: a product, one of its strengths and one pack code.
type Option struct {
	Label      string
	Code       string // Empty when the variant has no codes
	Product    *entities.Product
	Variant    *entities.StrengthVariant // Nil when the product has no variants
	Normalized string
	Tokens     []string
	Seq        int // Creation order, follows catalog input order
	Position   int // Position in label order
}

// Strength returns the variant strength text, or "" when there is none.
func (o *Option) Strength() string {
	if o.Variant == nil {
		return ""
	}
	return o.Variant.Strength
}

// Index gives O(1) lookup by product code and by token.
type Index struct {
	products  []entities.Product
	byCode    map[string]CodeEntry
	conflicts map[string][]CodeEntry
	options   []Option
	byToken   map[string][]int
	codeCount int
}

// Label composes the display text "name [form] [strength] (code)".
func Label(product *entities.Product, strength, code string) string {
	if product == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(product.Name)
	if product.Form != "" {
		b.WriteString(" ")
		b.WriteString(string(product.Form))
	}
	if strength = strings.TrimSpace(strength); strength != "" {
		b.WriteString(" ")
		b.WriteString(strength)
	}
	if code != "" {
		b.WriteString(" (")
		b.WriteString(code)
		b.WriteString(")")
	}
	return strings.TrimSpace(b.String())
}

// Build indexes the catalog. It never fails; records without a name are left
// out of the options but their codes stay reachable.
func Build(catalog *entities.Catalog) *Index {
	idx := &Index{
		byCode:    make(map[string]CodeEntry),
		conflicts: make(map[string][]CodeEntry),
		byToken:   make(map[string][]int),
	}
	if catalog == nil {
		idx.options = []Option{}
		return idx
	}

	// Own copy so product IDs always match positions
	idx.products = make([]entities.Product, len(catalog.Products))
	copy(idx.products, catalog.Products)
	for i := range idx.products {
		idx.products[i].ID = i
	}
	options := make([]Option, 0, catalog.CodeCount()+len(idx.products))
	seen := make(map[string]struct{})

	addOption := func(p *entities.Product, v *entities.StrengthVariant, code string) {
		strength := ""
		if v != nil {
			strength = v.Strength
		}
		label := Label(p, strength, code)
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		options = append(options, Option{
			Label:      label,
			Code:       code,
			Product:    p,
			Variant:    v,
			Normalized: textnorm.Normalize(label),
			Tokens:     textnorm.Tokenize(label),
			Seq:        len(options),
		})
	}

	for pi := range idx.products {
		p := &idx.products[pi]

		for vi := range p.Variants {
			v := &p.Variants[vi]
			for _, code := range v.ProductCodes {
				idx.codeCount++
				idx.addCode(CodeEntry{Product: p, Variant: v, Code: code})
			}
		}

		if strings.TrimSpace(p.Name) == "" {
			continue
		}

		if len(p.Variants) == 0 {
			addOption(p, nil, "")
			continue
		}
		for vi := range p.Variants {
			v := &p.Variants[vi]
			if len(v.ProductCodes) == 0 {
				addOption(p, v, "")
				continue
			}
			for _, code := range v.ProductCodes {
				addOption(p, v, code)
			}
		}
	}

	collator := collate.New(language.Norwegian)
	sort.SliceStable(options, func(i, j int) bool {
		return collator.CompareString(options[i].Label, options[j].Label) < 0
	})

	for pos := range options {
		options[pos].Position = pos
		seenTok := make(map[string]struct{}, len(options[pos].Tokens))
		for _, tok := range options[pos].Tokens {
			if _, ok := seenTok[tok]; ok {
				continue
			}
			seenTok[tok] = struct{}{}
			idx.byToken[tok] = append(idx.byToken[tok], pos)
		}
	}

	idx.options = options
	return idx
}

// addCode records a code, withholding it from lookup once two different pairs claim it
func (idx *Index) addCode(entry CodeEntry) {
	if entries, conflicted := idx.conflicts[entry.Code]; conflicted {
		idx.conflicts[entry.Code] = append(entries, entry)
		return
	}

	existing, ok := idx.byCode[entry.Code]
	if !ok {
		idx.byCode[entry.Code] = entry
		return
	}
	if existing.Product == entry.Product && existing.Variant == entry.Variant {
		return
	}

	delete(idx.byCode, entry.Code)
	idx.conflicts[entry.Code] = []CodeEntry{existing, entry}
}

// LookupCode finds the pair for a product code. Leading zeros are ignored.
func (idx *Index) LookupCode(code string) (CodeEntry, bool) {
	entry, ok := idx.byCode[entities.CanonicalCode(code)]
	return entry, ok
}

// Conflicts returns the codes claimed by more than one pair, sorted.
func (idx *Index) Conflicts() []string {
	codes := make([]string, 0, len(idx.conflicts))
	for code := range idx.conflicts {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// ConflictEntries returns the pairs that claim a conflicting code.
func (idx *Index) ConflictEntries(code string) []CodeEntry {
	return idx.conflicts[entities.CanonicalCode(code)]
}

// Options returns every option in label order. Callers must not modify it.
func (idx *Index) Options() []Option {
	return idx.options
}

// Option returns the option at a label-order position.
func (idx *Index) Option(pos int) *Option {
	if pos < 0 || pos >= len(idx.options) {
		return nil
	}
	return &idx.options[pos]
}

// OptionsWithToken returns the positions of options whose tokens include tok.
func (idx *Index) OptionsWithToken(tok string) []int {
	return idx.byToken[tok]
}

// Products returns the catalog products in input order.
func (idx *Index) Products() []entities.Product {
	return idx.products
}

// Product returns a product by its catalog ID.
func (idx *Index) Product(id int) (*entities.Product, bool) {
	if id < 0 || id >= len(idx.products) {
		return nil, false
	}
	return &idx.products[id], true
}

// CodeCount returns the number of codes seen while building, duplicates included.
func (idx *Index) CodeCount() int {
	return idx.codeCount
}

// UniqueCodeCount returns the number of codes reachable by lookup.
func (idx *Index) UniqueCodeCount() int {
	return len(idx.byCode)
}
