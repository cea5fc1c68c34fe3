package entities

// Route is an administration route.
type Route string

const (
	RouteOral        Route = "oral"
	RouteParenteral  Route = "parenteral"
	RouteTransdermal Route = "transdermal"
	RouteIntranasal  Route = "intranasal"
	RouteSublingual  Route = "sublingual"
	RouteRectal      Route = "rectal"
)

// OpioidReference maps a substance on a set of ATC codes and routes to its OMEQ factor.
type OpioidReference struct {
	ID                  string   `json:"id"`
	Substance           string   `json:"substance"`
	ClassificationCodes []string `json:"classificationCodes"`
	Routes              []Route  `json:"routes"`
	OMEQFactor          float64  `json:"omeqFactor"`
	HelpText            string   `json:"helpText,omitempty"`
}

// Covers reports whether the reference applies to the ATC code on the route.
func (r OpioidReference) Covers(atcCode string, route Route) bool {
	codeMatch := false
	for _, c := range r.ClassificationCodes {
		if c == atcCode {
			codeMatch = true
			break
		}
	}
	if !codeMatch {
		return false
	}
	for _, rt := range r.Routes {
		if rt == route {
			return true
		}
	}
	return false
}

// ResolvedStrength is a parsed strength. PerHour marks a delivery rate such as a patch's µg/h.
type ResolvedStrength struct {
	Value   float64 `json:"value"`
	Unit    string  `json:"unit"`
	PerHour bool    `json:"perHour"`
}
