package omeq

import (
	"strings"

	"github.com/giygas/omeq-api/catalog/entities"
)

// formRoutes is the fixed form to route table. "annet" has no route.
var formRoutes = map[entities.ProductForm]entities.Route{
	entities.FormDepotplaster:      entities.RouteTransdermal,
	entities.FormInjeksjon:         entities.RouteParenteral,
	entities.FormInfusjonInjeksjon: entities.RouteParenteral,
	entities.FormDepotinjeksjon:    entities.RouteParenteral,
	entities.FormNesespray:         entities.RouteIntranasal,
	entities.FormSublingvaltablett: entities.RouteSublingual,
	entities.FormSublingvalfilm:    entities.RouteSublingual,
	entities.FormLyofilisattablett: entities.RouteSublingual,
	entities.FormStikkpille:        entities.RouteRectal,
	entities.FormDraper:            entities.RouteOral,
	entities.FormTablett:           entities.RouteOral,
	entities.FormBrusetablett:      entities.RouteOral,
	entities.FormDepottablett:      entities.RouteOral,
	entities.FormKapsel:            entities.RouteOral,
	entities.FormMikstur:           entities.RouteOral,
}

var (
	oralFormHints       = []string{"mikstur", "dråpe", "oral", "oppløsning", "løsning", "suspensjon"}
	parenteralFormHints = []string{"injeks", "infus"}
)

// FormToRoute looks the form up in the fixed table only.
func FormToRoute(form entities.ProductForm) (entities.Route, bool) {
	route, ok := formRoutes[entities.ProductForm(strings.ToLower(strings.TrimSpace(string(form))))]
	return route, ok
}

// InferRoute applies the form text overrides on top of the table: liquid and
// oral wording forces oral, injection and infusion wording forces parenteral.
func InferRoute(form entities.ProductForm) (entities.Route, bool) {
	text := strings.ToLower(strings.TrimSpace(string(form)))

	if containsAny(text, oralFormHints) {
		return entities.RouteOral, true
	}
	if containsAny(text, parenteralFormHints) {
		return entities.RouteParenteral, true
	}
	return FormToRoute(form)
}

// IsPatch reports whether the product is a transdermal patch.
func IsPatch(product *entities.Product) bool {
	if product == nil {
		return false
	}
	route, ok := InferRoute(product.Form)
	return ok && route == entities.RouteTransdermal
}

// IsLiquid reports whether the daily dose of the product is given in millilitres.
func IsLiquid(product *entities.Product) bool {
	if product == nil {
		return false
	}
	text := strings.ToLower(string(product.Form))
	return strings.Contains(text, "mikstur") || strings.Contains(text, "oral") || strings.Contains(text, "dråpe")
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
