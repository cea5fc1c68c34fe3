package resolver

import (
	"reflect"
	"testing"

	"github.com/giygas/omeq-api/catalog"
	"github.com/giygas/omeq-api/catalog/entities"
	"github.com/giygas/omeq-api/index"
	"github.com/giygas/omeq-api/logging"
)

func init() {
	logging.InitLogger("")
}

func testIndex() *index.Index {
	return index.Build(&entities.Catalog{Products: []entities.Product{
		{
			ATCCode: "N02AA05", Name: "Oxynorm", Form: entities.FormKapsel,
			Variants: []entities.StrengthVariant{
				{Strength: "5 mg", ProductCodes: []string{"160304"}},
				{Strength: "10 mg", ProductCodes: []string{"160315", "160326"}},
			},
		},
		{
			ATCCode: "N02AE01", Name: "Norspan", Form: entities.FormDepotplaster,
			Variants: []entities.StrengthVariant{{Strength: "10 µg/time", ProductCodes: []string{"45"}}},
		},
		{
			ATCCode: "N02AA05", Name: "Oxycodone Actavis", Form: entities.FormKapsel,
			Variants: []entities.StrengthVariant{{Strength: "10 mg", ProductCodes: []string{"4993"}}},
		},
		{Name: "Alpha", Variants: []entities.StrengthVariant{{Strength: "1 mg", ProductCodes: []string{"7"}}}},
		{Name: "Beta", Variants: []entities.StrengthVariant{{Strength: "2 mg", ProductCodes: []string{"7"}}}},
		{
			ATCCode: "N02AA01", Name: "Morfin", Form: entities.FormMikstur,
			Variants: []entities.StrengthVariant{{Strength: "1 mg/ml"}},
		},
	}})
}

func TestResolveCode(t *testing.T) {
	idx := testIndex()

	tests := []struct {
		input     string
		product   string
		code      string
		canonical string
		strength  *entities.ResolvedStrength
	}{
		{"160304", "Oxynorm", "160304", "Oxynorm kapsel 5 mg (160304)", &entities.ResolvedStrength{Value: 5, Unit: "mg"}},
		{" 000160304 ", "Oxynorm", "160304", "Oxynorm kapsel 5 mg (160304)", &entities.ResolvedStrength{Value: 5, Unit: "mg"}},
		{"160326", "Oxynorm", "160326", "Oxynorm kapsel 10 mg (160326)", &entities.ResolvedStrength{Value: 10, Unit: "mg"}},
		{"45", "Norspan", "45", "Norspan depotplaster 10 µg/time (45)", &entities.ResolvedStrength{Value: 10, Unit: "µg", PerHour: true}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := Resolve(tt.input, idx)
			if !res.Resolved() {
				t.Fatalf("Expected %q to resolve", tt.input)
			}
			if res.Product.Name != tt.product {
				t.Errorf("Expected product %s, got %s", tt.product, res.Product.Name)
			}
			if res.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, res.Code)
			}
			if res.Canonical != tt.canonical {
				t.Errorf("Expected canonical %q, got %q", tt.canonical, res.Canonical)
			}
			if !reflect.DeepEqual(res.Strength, tt.strength) {
				t.Errorf("Expected strength %+v, got %+v", tt.strength, res.Strength)
			}
		})
	}
}

func TestResolveCodeFailures(t *testing.T) {
	idx := testIndex()

	for _, input := range []string{"7", "404", "0"} {
		if res := Resolve(input, idx); res.Resolved() {
			t.Errorf("Expected %q not to resolve, got %s", input, res.Product.Name)
		}
	}
}

func TestResolveRoundTrip(t *testing.T) {
	idx := testIndex()

	for _, code := range []string{"160304", "160315", "45", "4993"} {
		first := Resolve(code, idx)
		if !first.Resolved() {
			t.Fatalf("Expected code %s to resolve", code)
		}

		second := Resolve(first.Canonical, idx)
		if second.Product != first.Product {
			t.Errorf("Expected %q to resolve to the same product", first.Canonical)
		}
		if !reflect.DeepEqual(second.Strength, first.Strength) {
			t.Errorf("Expected same strength for %q, got %+v and %+v", first.Canonical, first.Strength, second.Strength)
		}
		if second.Canonical != first.Canonical {
			t.Errorf("Expected canonical %q to be stable, got %q", first.Canonical, second.Canonical)
		}
	}
}

func TestResolveFreeText(t *testing.T) {
	idx := testIndex()

	res := Resolve("oxynorm 10 mg", idx)
	if !res.Resolved() || res.Product.Name != "Oxynorm" {
		t.Fatalf("Expected Oxynorm, got %+v", res)
	}
	if res.Variant == nil || res.Variant.Strength != "10 mg" {
		t.Errorf("Expected the shared 10 mg variant, got %+v", res.Variant)
	}
	if res.Code != "" {
		t.Errorf("Expected no code for two matching packs, got %s", res.Code)
	}
	if res.Canonical != "Oxynorm kapsel 10 mg" {
		t.Errorf("Expected canonical without code, got %q", res.Canonical)
	}
	if res.Strength == nil || res.Strength.Value != 10 || res.Strength.Unit != "mg" {
		t.Errorf("Expected 10 mg, got %+v", res.Strength)
	}
}

func TestResolveProductWithoutStrength(t *testing.T) {
	idx := testIndex()

	res := Resolve("oxynorm", idx)
	if !res.Resolved() || res.Product.Name != "Oxynorm" {
		t.Fatalf("Expected Oxynorm, got %+v", res)
	}
	if res.Variant != nil || res.Strength != nil {
		t.Errorf("Expected no strength across variants, got %+v %+v", res.Variant, res.Strength)
	}
	if res.Canonical != "Oxynorm kapsel" {
		t.Errorf("Expected canonical Oxynorm kapsel, got %q", res.Canonical)
	}
}

func TestResolveStrengthFromVariant(t *testing.T) {
	idx := testIndex()

	res := Resolve("morfin", idx)
	if !res.Resolved() {
		t.Fatal("Expected morfin to resolve")
	}
	expected := &entities.ResolvedStrength{Value: 1, Unit: "mg/ml"}
	if !reflect.DeepEqual(res.Strength, expected) {
		t.Errorf("Expected %+v, got %+v", expected, res.Strength)
	}
	if res.Canonical != "Morfin mikstur 1 mg/ml" {
		t.Errorf("Expected canonical Morfin mikstur 1 mg/ml, got %q", res.Canonical)
	}
}

func TestResolveAmbiguousText(t *testing.T) {
	idx := testIndex()

	res := Resolve("10 mg", idx)
	if res.Resolved() {
		t.Errorf("Expected tie across products to stay unresolved, got %s", res.Product.Name)
	}
	if res.Strength == nil || res.Strength.Value != 10 {
		t.Errorf("Expected strength to be parsed anyway, got %+v", res.Strength)
	}
}

func TestResolveDuplicateRecords(t *testing.T) {
	idx := index.Build(&entities.Catalog{Products: []entities.Product{
		{
			ATCCode: "N02AA01", Name: "Oramorph", Manufacturer: "care4", Form: entities.FormMikstur,
			Variants: []entities.StrengthVariant{{Strength: "2 mg/ml", ProductCodes: []string{"398411"}}},
		},
		{
			ATCCode: "N02AA01", Name: "Oramorph", Manufacturer: "Molteni", Form: entities.FormMikstur,
			Variants: []entities.StrengthVariant{{Strength: "2 mg/ml", ProductCodes: []string{"599903"}}},
		},
		{
			ATCCode: "N02AJ06", Name: "Paralgin forte", Form: entities.FormTablett,
			Variants: []entities.StrengthVariant{{Strength: "400 mg/30 mg", ProductCodes: []string{"189274"}}},
		},
		{
			ATCCode: "N02AJ06", Name: "Paralgin forte", Form: entities.FormStikkpille,
			Variants: []entities.StrengthVariant{{Strength: "400 mg/30 mg", ProductCodes: []string{"112698"}}},
		},
	}})

	res := Resolve("Oramorph mikstur 2 mg/ml", idx)
	if !res.Resolved() {
		t.Fatal("Expected identical records to resolve")
	}
	if res.Product.Manufacturer != "care4" {
		t.Errorf("Expected first record in catalog order, got %s", res.Product.Manufacturer)
	}
	if res.Variant == nil || res.Variant != &res.Product.Variants[0] {
		t.Errorf("Expected the chosen record's variant, got %+v", res.Variant)
	}
	if res.Code != "" {
		t.Errorf("Expected no code for a tie between records, got %s", res.Code)
	}
	if res.Canonical != "Oramorph mikstur 2 mg/ml" {
		t.Errorf("Expected canonical Oramorph mikstur 2 mg/ml, got %q", res.Canonical)
	}
	if res.Strength == nil || res.Strength.Value != 2 || res.Strength.Unit != "mg/ml" {
		t.Errorf("Expected strength 2 mg/ml, got %+v", res.Strength)
	}

	// Same name and strength, different form
	if res := Resolve("Paralgin forte 400 mg/30 mg", idx); res.Resolved() {
		t.Errorf("Expected tablett and stikkpille to stay ambiguous, got %s %s", res.Product.Name, res.Product.Form)
	}
}

func TestResolveDuplicateRecordsEmbeddedCatalog(t *testing.T) {
	cat, _, err := catalog.Default()
	if err != nil {
		t.Fatalf("Failed to load embedded catalog: %v", err)
	}
	idx := index.Build(cat)

	tests := []struct {
		input    string
		product  string
		strength string
	}{
		{"Oramorph mikstur 2 mg/ml", "Oramorph", "2 mg/ml"},
		{"Palexia depot depottablett 50 mg", "Palexia depot", "50 mg"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			res := Resolve(tt.input, idx)
			if !res.Resolved() {
				t.Fatalf("Expected %q to resolve", tt.input)
			}
			if res.Product.Name != tt.product {
				t.Errorf("Expected product %s, got %s", tt.product, res.Product.Name)
			}
			if res.Variant == nil || res.Variant.Strength != tt.strength {
				t.Errorf("Expected strength %s, got %+v", tt.strength, res.Variant)
			}
		})
	}

	if res := Resolve("Paralgin forte 400 mg/30 mg", idx); res.Resolved() {
		t.Errorf("Expected Paralgin forte forms to stay ambiguous, got %s", res.Product.Form)
	}
}

func TestResolveUnknownTrailingCodeFallsBackToText(t *testing.T) {
	idx := testIndex()

	res := Resolve("Oxynorm kapsel 5 mg (999999)", idx)
	if !res.Resolved() || res.Code != "160304" {
		t.Errorf("Expected text match on Oxynorm 5 mg, got %+v", res)
	}
}

func TestResolveEmptyInput(t *testing.T) {
	idx := testIndex()

	for _, input := range []string{"", "   ", "stk", "zzzz"} {
		if res := Resolve(input, idx); res.Resolved() {
			t.Errorf("Expected %q not to resolve", input)
		}
	}
	if res := Resolve("160304", nil); res.Resolved() {
		t.Error("Expected no resolution without an index")
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	idx := testIndex()

	for _, input := range []string{"160304", "oxynorm 10 mg", "10 mg", "Norspan depotplaster 10 µg/time (45)"} {
		a, b := Resolve(input, idx), Resolve(input, idx)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("Expected identical results for %q", input)
		}
	}
}

func TestResolveEmbeddedCatalogRoundTrip(t *testing.T) {
	cat, _, err := catalog.Default()
	if err != nil {
		t.Fatalf("Failed to load embedded catalog: %v", err)
	}
	idx := index.Build(cat)

	for _, p := range idx.Products() {
		for _, v := range p.Variants {
			for _, code := range v.ProductCodes {
				first := Resolve(code, idx)
				if !first.Resolved() {
					continue
				}
				second := Resolve(first.Canonical, idx)
				if second.Product != first.Product || second.Code != first.Code {
					t.Errorf("Round trip failed for code %s: %q", code, first.Canonical)
				}
			}
		}
	}
}

func BenchmarkResolve(b *testing.B) {
	idx := testIndex()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Resolve("oxynorm 10 mg", idx)
	}
}
