package classify

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/ckfr/ops-allocation/internal/model"
)

// Result is a taxonomy position.  The zero value means "unclassified".
type Result struct {
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
}

// IsZero reports whether no classification was found.
func (r Result) IsZero() bool { return r.Category == "" && r.Subcategory == "" }

// Rule selects a taxonomy position when Match accepts the folded role text.
type Rule struct {
	Match  func(text string) bool
	Result Result
}

// rules is evaluated top to bottom, one rule per subcategory, in Taxonomy
// declaration order.
var rules = buildRules(Taxonomy)

func buildRules(tax []Category) []Rule {
	var out []Rule
	for _, c := range tax {
		for _, s := range c.Subcategories {
			out = append(out, Rule{
				Match:  containsAny(s.Keywords),
				Result: Result{Category: c.Slug, Subcategory: s.Slug},
			})
		}
	}
	return out
}

func containsAny(keywords []string) func(string) bool {
	kws := append([]string(nil), keywords...)
	return func(text string) bool {
		for _, kw := range kws {
			if strings.Contains(text, kw) {
				return true
			}
		}
		return false
	}
}

// fallback places ships whose role text matches no keyword, keyed by the
// legacy category code.
var fallback = map[string]Result{
	model.CategoryLightFighter:  {Category: "military", Subcategory: "chasseur"},
	model.CategoryMediumFighter: {Category: "military", Subcategory: "chasseur"},
	model.CategoryHeavyFighter:  {Category: "military", Subcategory: "chasseur"},
	model.CategoryCapital:       {Category: "military", Subcategory: "capitaux"},
	model.CategoryMultirole:     {Category: "support", Subcategory: "exploration"},
}

// fold lower-cases text with Unicode case folding.  A cases.Caser keeps
// state, so a fresh one is made per call.
func fold(text string) string {
	return cases.Fold().String(text)
}

// Classify returns the taxonomy position of a ship from its role text,
// falling back on its legacy category.  The zero Result is returned when
// neither applies.
func Classify(role, legacyCategory string) Result {
	text := fold(role)
	if strings.TrimSpace(text) != "" {
		for _, r := range rules {
			if r.Match(text) {
				return r.Result
			}
		}
	}
	return fallback[legacyCategory]
}

// Ship classifies a catalog ship.
func Ship(s *model.Ship) Result {
	return Classify(s.Role, s.Category)
}
