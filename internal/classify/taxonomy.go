// Package classify maps a ship's free-text role description onto the
// filter taxonomy and derives catalog fields (legacy category, crew range)
// from imported text.
package classify

// Subcategory is a leaf of the taxonomy with the keywords that select it.
type Subcategory struct {
	Slug     string   `json:"slug"`
	Label    string   `json:"label"`
	Keywords []string `json:"-"`
}

// Category groups subcategories.
type Category struct {
	Slug          string        `json:"slug"`
	Label         string        `json:"label"`
	Subcategories []Subcategory `json:"subcategories"`
}

// Taxonomy is declared in match order: when a role text contains keywords
// of several subcategories, the first one declared here wins.
var Taxonomy = []Category{
	{
		Slug:  "military",
		Label: "Militaire",
		Subcategories: []Subcategory{
			{Slug: "chasseur", Label: "Chasseur", Keywords: []string{"fighter", "snub", "racing", "interceptor"}},
			{Slug: "capitaux", Label: "Capitaux", Keywords: []string{"destroyer", "frigate", "corvette", "carrier", "dreadnought", "capital", "battlecruiser"}},
			{Slug: "gunship", Label: "Gunship", Keywords: []string{"gunship"}},
			{Slug: "bomber", Label: "Bombardier", Keywords: []string{"bomber"}},
			{Slug: "torpilleur", Label: "Torpilleur", Keywords: []string{"torpedo"}},
			{Slug: "interdicteur", Label: "Interdicteur", Keywords: []string{"interdiction", "interdictor"}},
			{Slug: "dropship", Label: "Dropship", Keywords: []string{"dropship", "boarding", "troop"}},
		},
	},
	{
		Slug:  "industrial",
		Label: "Industriel",
		Subcategories: []Subcategory{
			{Slug: "salvage", Label: "Récupération", Keywords: []string{"salvage"}},
			{Slug: "minage", Label: "Minage", Keywords: []string{"mining", "refining", "prospect"}},
			{Slug: "hauling", Label: "Transport", Keywords: []string{"freight", "cargo", "hauler", "transport", "haul"}},
		},
	},
	{
		Slug:  "support",
		Label: "Support",
		Subcategories: []Subcategory{
			{Slug: "medical", Label: "Médical", Keywords: []string{"medical", "rescue", "ambulance"}},
			{Slug: "refuel", Label: "Ravitaillement", Keywords: []string{"refuel", "fuel", "tanker"}},
			{Slug: "repair", Label: "Réparation", Keywords: []string{"repair", "construction", "engineering"}},
			{Slug: "exploration", Label: "Exploration", Keywords: []string{"exploration", "expedition", "pathfinder", "science", "data"}},
		},
	},
}

// Lookup returns the labels of a (category, subcategory) slug pair.  An
// empty subcategory matches the category alone.
func Lookup(category, subcategory string) (catLabel, subLabel string, ok bool) {
	for _, c := range Taxonomy {
		if c.Slug != category {
			continue
		}
		if subcategory == "" {
			return c.Label, "", true
		}
		for _, s := range c.Subcategories {
			if s.Slug == subcategory {
				return c.Label, s.Label, true
			}
		}
	}
	return "", "", false
}
