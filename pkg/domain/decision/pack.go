package decision

import (
	"sort"

	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
)

// Pack size bounds. A pack may legitimately end below the floor when the
// corpus lacks enough eligible atoms; nothing is ever invented as padding.
const (
	packCap   = 12
	packFloor = 8

	maxChallengers = 2
)

// typeQuota bounds how many atoms of one type a pack takes.
type typeQuota struct {
	Type knowledge.AtomType
	Min  int
	Max  int
}

// quotas are filled in this fixed order, minimums first, then topped up to
// the maximums in the same order.
var quotas = []typeQuota{
	{Type: knowledge.TypeSignal, Min: 2, Max: 3},
	{Type: knowledge.TypeHeuristic, Min: 5, Max: 8},
	{Type: knowledge.TypeFailureMode, Min: 3, Max: 5},
	{Type: knowledge.TypeExample, Min: 1, Max: 2},
}

// LensPack is the curated evidence subset handed to one perspective's
// evaluation call. Atoms are ordered by score descending, id ascending.
type LensPack struct {
	Lens  knowledge.Lens `json:"lens"`
	Atoms []ScoredAtom   `json:"atoms"`
}

// IDs returns the atom ids in pack order.
func (p *LensPack) IDs() []string {
	ids := make([]string, len(p.Atoms))
	for i := range p.Atoms {
		ids[i] = p.Atoms[i].Atom.ID
	}
	return ids
}

// Contains reports whether the pack holds the given atom id.
func (p *LensPack) Contains(id string) bool {
	for i := range p.Atoms {
		if p.Atoms[i].Atom.ID == id {
			return true
		}
	}
	return false
}

// CompilePacks builds the three lens packs for one classification. Packs are
// always returned in the fixed order customer, business, feasibility. Each
// pack's composition depends only on the candidate pool, never on the other
// two packs' outcomes.
func CompilePacks(c *Classification, corpus *knowledge.Corpus) []LensPack {
	// Step A: the hard level filter. Absolute; no later step restores a
	// wrong-level atom.
	leveled := corpus.AtLevel(c.Level)

	// Step B: score the survivors once, shared by all three packs.
	pool := make([]ScoredAtom, len(leveled))
	for i := range leveled {
		pool[i] = ScoredAtom{Atom: leveled[i], Score: Score(&leveled[i], c)}
	}

	packs := make([]LensPack, 0, 3)
	for _, lens := range knowledge.Lenses() {
		packs = append(packs, compileLensPack(lens, pool))
	}
	return packs
}

func compileLensPack(lens knowledge.Lens, pool []ScoredAtom) LensPack {
	var eligible, outside []ScoredAtom
	for i := range pool {
		if pool[i].Atom.EligibleFor(lens) {
			eligible = append(eligible, pool[i])
		} else {
			outside = append(outside, pool[i])
		}
	}
	sortByRelevance(eligible)

	selected := make([]ScoredAtom, 0, packCap)
	used := make(map[string]bool)

	take := func(sa ScoredAtom) {
		selected = append(selected, sa)
		used[sa.Atom.ID] = true
	}

	// Step C: minimum quotas in fixed type order.
	for _, q := range quotas {
		taken := 0
		for i := range eligible {
			if taken == q.Min || len(selected) == packCap {
				break
			}
			if eligible[i].Atom.Type != q.Type || used[eligible[i].Atom.ID] {
				continue
			}
			take(eligible[i])
			taken++
		}
	}

	// Top up to the maximum quotas, same order, respecting the global cap.
	for _, q := range quotas {
		for i := range eligible {
			if countType(selected, q.Type) == q.Max || len(selected) == packCap {
				break
			}
			if eligible[i].Atom.Type != q.Type || used[eligible[i].Atom.ID] {
				continue
			}
			take(eligible[i])
		}
	}

	// Floor fill from pattern/quote atoms when the pack is still short.
	if len(selected) < packFloor {
		for i := range eligible {
			if len(selected) == packFloor {
				break
			}
			t := eligible[i].Atom.Type
			if (t != knowledge.TypePattern && t != knowledge.TypeQuote) || used[eligible[i].Atom.ID] {
				continue
			}
			take(eligible[i])
		}
	}

	// Step D: challenger substitution, only on packs at or above the floor.
	if len(selected) >= packFloor {
		selected = substituteChallengers(selected, outside, used)
	}

	// Step E: canonical order.
	sortByRelevance(selected)
	return LensPack{Lens: lens, Atoms: selected}
}

// substituteChallengers swaps up to two high-scoring atoms from outside the
// lens's eligible set in place of the pack's weakest members, one-for-one.
// The pack never changes size and never gains a duplicate id. When the pack
// holds exactly one example atom, that atom is protected from replacement.
func substituteChallengers(selected, outside []ScoredAtom, used map[string]bool) []ScoredAtom {
	challengers := make([]ScoredAtom, 0, len(outside))
	for i := range outside {
		if !used[outside[i].Atom.ID] {
			challengers = append(challengers, outside[i])
		}
	}
	sortByRelevance(challengers)
	if len(challengers) > maxChallengers {
		challengers = challengers[:maxChallengers]
	}
	if len(challengers) == 0 {
		return selected
	}

	protectExample := countType(selected, knowledge.TypeExample) == 1

	// Weakest first; exact reverse of the canonical pack order so the
	// "next weakest" choice is deterministic under score ties.
	order := make([]int, len(selected))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		x, y := selected[order[a]], selected[order[b]]
		if x.Score != y.Score {
			return x.Score < y.Score
		}
		return x.Atom.ID > y.Atom.ID
	})

	next := 0
	for _, ch := range challengers {
		for next < len(order) {
			idx := order[next]
			next++
			if protectExample && selected[idx].Atom.Type == knowledge.TypeExample {
				continue
			}
			used[selected[idx].Atom.ID] = false
			selected[idx] = ch
			used[ch.Atom.ID] = true
			break
		}
		if next >= len(order) {
			break
		}
	}
	return selected
}

func countType(atoms []ScoredAtom, t knowledge.AtomType) int {
	n := 0
	for i := range atoms {
		if atoms[i].Atom.Type == t {
			n++
		}
	}
	return n
}

// sortByRelevance applies the canonical deterministic order: score
// descending, id ascending.
func sortByRelevance(atoms []ScoredAtom) {
	sort.SliceStable(atoms, func(a, b int) bool {
		if atoms[a].Score != atoms[b].Score {
			return atoms[a].Score > atoms[b].Score
		}
		return atoms[a].Atom.ID < atoms[b].Atom.ID
	})
}
