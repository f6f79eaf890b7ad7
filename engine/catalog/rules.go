package catalog

import "strings"

// All is the category that matches every file.
const All = "All"

// Rule assigns Name to files whose lower-cased name contains any keyword.
type Rule struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// DefaultRules returns the built-in categories in match order.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "Characters", Keywords: []string{"character", "char", "npc", "monster", "mob"}},
		{Name: "Items", Keywords: []string{"item", "weapon", "armor"}},
		{Name: "Effects", Keywords: []string{"effect", "spell", "magic"}},
		{Name: "Maps", Keywords: []string{"map", "tile", "terrain"}},
		{Name: "Interface", Keywords: []string{"interface", "ui", "hud"}},
	}
}

// Categorize returns the first rule matching filename, or All.
func Categorize(filename string, rules []Rule) string {
	lower := strings.ToLower(filename)
	for _, r := range rules {
		for _, k := range r.Keywords {
			if k != "" && strings.Contains(lower, strings.ToLower(k)) {
				return r.Name
			}
		}
	}
	return All
}
