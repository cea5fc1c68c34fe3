package entities

import "strings"

// ProductForm is the pharmaceutical form of a product as written in the catalog.
// Values outside the known set are kept verbatim so route overrides can still read them.
type ProductForm string

const (
	FormTablett           ProductForm = "tablett"
	FormKapsel            ProductForm = "kapsel"
	FormBrusetablett      ProductForm = "brusetablett"
	FormDepottablett      ProductForm = "depottablett"
	FormStikkpille        ProductForm = "stikkpille"
	FormDepotplaster      ProductForm = "depotplaster"
	FormSublingvaltablett ProductForm = "sublingvaltablett"
	FormSublingvalfilm    ProductForm = "sublingvalfilm"
	FormLyofilisattablett ProductForm = "lyofilisattablett"
	FormNesespray         ProductForm = "nesespray"
	FormMikstur           ProductForm = "mikstur"
	FormDraper            ProductForm = "dråper"
	FormInjeksjon         ProductForm = "injeksjon"
	FormInfusjonInjeksjon ProductForm = "infusjons-/injeksjonsvæske"
	FormDepotinjeksjon    ProductForm = "depotinjeksjonsvæske"
	FormAnnet             ProductForm = "annet"
)

// KnownForms lists every enumerated form in catalog order.
var KnownForms = []ProductForm{
	FormTablett, FormKapsel, FormBrusetablett, FormDepottablett, FormStikkpille,
	FormDepotplaster, FormSublingvaltablett, FormSublingvalfilm, FormLyofilisattablett,
	FormNesespray, FormMikstur, FormDraper, FormInjeksjon, FormInfusjonInjeksjon,
	FormDepotinjeksjon, FormAnnet,
}

// IsKnown reports whether the form is one of the enumerated forms.
func (f ProductForm) IsKnown() bool {
	for _, known := range KnownForms {
		if f == known {
			return true
		}
	}
	return false
}

// StrengthVariant is one strength of a product and the pack codes sold with it.
type StrengthVariant struct {
	Strength     string   `json:"strength"`
	ProductCodes []string `json:"productCodes"`
}

// Product is a marketed drug item under one ATC code.
type Product struct {
	ID           int               `json:"id"` // Position in catalog input order
	ATCCode      string            `json:"atcCode"`
	Name         string            `json:"name"`
	Manufacturer string            `json:"manufacturer,omitempty"`
	Form         ProductForm       `json:"form,omitempty"`
	Notes        string            `json:"notes,omitempty"`
	Variants     []StrengthVariant `json:"variants"`
}

// Catalog holds every product in input order. It is read-only once loaded.
type Catalog struct {
	Products []Product `json:"products"`
}

// CodeCount returns the number of product codes in the catalog, duplicates included.
func (c *Catalog) CodeCount() int {
	if c == nil {
		return 0
	}
	count := 0
	for _, p := range c.Products {
		for _, v := range p.Variants {
			count += len(v.ProductCodes)
		}
	}
	return count
}

// CanonicalCode strips surrounding space and leading zeros from a code.
// A code made only of zeros becomes "0".
func CanonicalCode(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return ""
	}
	trimmed := strings.TrimLeft(code, "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}
