package knowledge

// Level places an atom (or a classified question) in the decision hierarchy.
type Level string

const (
	LevelStrategy  Level = "strategy"
	LevelProduct   Level = "product"
	LevelFeature   Level = "feature"
	LevelOperating Level = "operating"
)

// dimensionsByLevel is the fixed dimension vocabulary. A dimension only has
// meaning within its level; the empty dimension means "global at this level".
var dimensionsByLevel = map[Level][]string{
	LevelStrategy:  {"positioning", "pricing", "market_entry", "partnerships", "portfolio"},
	LevelProduct:   {"value_proposition", "target_segment", "differentiation", "monetization", "platform", "lifecycle"},
	LevelFeature:   {"scope", "usability", "adoption", "build_vs_buy", "prioritization", "integration"},
	LevelOperating: {"process", "team", "tooling", "quality", "capacity", "vendor"},
}

// Levels returns the four decision levels in hierarchy order.
func Levels() []Level {
	return []Level{LevelStrategy, LevelProduct, LevelFeature, LevelOperating}
}

// ValidLevel reports whether l is a member of the fixed level set.
func ValidLevel(l Level) bool {
	_, ok := dimensionsByLevel[l]
	return ok
}

// DimensionsFor returns the dimension vocabulary of a level. The returned
// slice is a copy; callers may not mutate the vocabulary.
func DimensionsFor(l Level) []string {
	dims, ok := dimensionsByLevel[l]
	if !ok {
		return nil
	}
	out := make([]string, len(dims))
	copy(out, dims)
	return out
}

// ValidDimension reports whether dim belongs to the vocabulary of l.
// The empty dimension is not a vocabulary member; callers that allow
// global atoms must treat "" separately.
func ValidDimension(l Level, dim string) bool {
	for _, d := range dimensionsByLevel[l] {
		if d == dim {
			return true
		}
	}
	return false
}
