package knowledge

import "fmt"

// ValidationMode controls how the corpus builder treats invalid records.
type ValidationMode int

const (
	// Lenient drops invalid records and keeps the rest.
	Lenient ValidationMode = iota
	// Strict aborts on the first batch containing any invalid record.
	Strict
)

// Corpus is the immutable in-memory atom collection. It is built once at
// process start and is safe for unbounded concurrent readers.
type Corpus struct {
	atoms []Atom
	byID  map[string]int
}

// BuildCorpus validates every record and assembles the corpus. Invalid
// records are never coerced: in Lenient mode they are dropped and reported
// through the returned error slice, in Strict mode any invalid record fails
// the build. Duplicate ids are invalid in both modes' reports; in Lenient
// mode the first occurrence wins.
func BuildCorpus(records []Atom, mode ValidationMode) (*Corpus, []error, error) {
	var rejected []error
	c := &Corpus{
		atoms: make([]Atom, 0, len(records)),
		byID:  make(map[string]int, len(records)),
	}

	for i := range records {
		a := records[i]
		if err := a.Validate(); err != nil {
			rejected = append(rejected, err)
			continue
		}
		if _, dup := c.byID[a.ID]; dup {
			rejected = append(rejected, &DuplicateAtomError{ID: a.ID})
			continue
		}
		c.byID[a.ID] = len(c.atoms)
		c.atoms = append(c.atoms, a)
	}

	if mode == Strict && len(rejected) > 0 {
		return nil, rejected, fmt.Errorf("corpus validation failed: %d invalid record(s): %w", len(rejected), rejected[0])
	}
	if len(c.atoms) == 0 {
		return nil, rejected, ErrEmptyCorpus
	}
	return c, rejected, nil
}

// Len returns the number of valid atoms.
func (c *Corpus) Len() int {
	return len(c.atoms)
}

// Get returns the atom with the given id.
func (c *Corpus) Get(id string) (Atom, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Atom{}, false
	}
	return c.atoms[i], true
}

// AtLevel returns every atom whose level matches l. The hard level filter is
// absolute: nothing downstream ever restores a wrong-level atom.
func (c *Corpus) AtLevel(l Level) []Atom {
	var out []Atom
	for i := range c.atoms {
		if c.atoms[i].Level == l {
			out = append(out, c.atoms[i])
		}
	}
	return out
}

// All returns a copy of every atom, preserving load order.
func (c *Corpus) All() []Atom {
	out := make([]Atom, len(c.atoms))
	copy(out, c.atoms)
	return out
}

// CountByType tallies atoms per type, for corpus diagnostics.
func (c *Corpus) CountByType() map[AtomType]int {
	counts := make(map[AtomType]int)
	for i := range c.atoms {
		counts[c.atoms[i].Type]++
	}
	return counts
}
