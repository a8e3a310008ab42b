package decision_test

import (
	"reflect"
	"testing"

	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
)

func testAtom(id string, typ knowledge.AtomType, lenses ...knowledge.Lens) knowledge.Atom {
	if len(lenses) == 0 {
		lenses = knowledge.Lenses()
	}
	return knowledge.Atom{
		ID:      id,
		Type:    typ,
		Purpose: "test fixture",
		Claim:   "claim for " + id,
		Lenses:  lenses,
		Level:   knowledge.LevelProduct,
	}
}

func mustCorpus(t *testing.T, atoms []knowledge.Atom) *knowledge.Corpus {
	t.Helper()
	corpus, rejected, err := knowledge.BuildCorpus(atoms, knowledge.Strict)
	if err != nil {
		t.Fatalf("BuildCorpus failed: %v (rejected %d)", err, len(rejected))
	}
	return corpus
}

func productClassification() *decision.Classification {
	return &decision.Classification{
		Level:        knowledge.LevelProduct,
		Dimension:    "value_proposition",
		DecisionMode: decision.ModeChoose,
	}
}

func TestCompilePacksLevelFilterIsAbsolute(t *testing.T) {
	atoms := []knowledge.Atom{
		testAtom("p1", knowledge.TypeHeuristic),
		testAtom("p2", knowledge.TypeSignal),
	}
	// A strategy atom that would outscore everything if it were eligible.
	wrong := testAtom("s1", knowledge.TypeHeuristic)
	wrong.Level = knowledge.LevelStrategy
	wrong.Dimension = "pricing"
	wrong.Strength = knowledge.StrengthHigh
	atoms = append(atoms, wrong)

	packs := decision.CompilePacks(productClassification(), mustCorpus(t, atoms))
	for _, pack := range packs {
		if pack.Contains("s1") {
			t.Errorf("pack %s contains wrong-level atom s1", pack.Lens)
		}
	}
}

func TestCompilePacksFixedLensOrder(t *testing.T) {
	packs := decision.CompilePacks(productClassification(), mustCorpus(t, []knowledge.Atom{
		testAtom("a1", knowledge.TypeHeuristic),
	}))
	want := []knowledge.Lens{knowledge.LensCustomer, knowledge.LensBusiness, knowledge.LensFeasibility}
	if len(packs) != 3 {
		t.Fatalf("expected 3 packs, got %d", len(packs))
	}
	for i, lens := range want {
		if packs[i].Lens != lens {
			t.Errorf("pack %d: expected lens %s, got %s", i, lens, packs[i].Lens)
		}
	}
}

func TestCompilePacksQuotasAndCap(t *testing.T) {
	// Abundant supply of every type. The minimums fill first (2+5+3+1),
	// then the top-up in type order hits the cap of 12 on signals.
	var atoms []knowledge.Atom
	add := func(prefix string, typ knowledge.AtomType, n int) {
		for i := 0; i < n; i++ {
			atoms = append(atoms, testAtom(prefix+string(rune('a'+i)), typ))
		}
	}
	add("sig-", knowledge.TypeSignal, 5)
	add("heu-", knowledge.TypeHeuristic, 10)
	add("fail-", knowledge.TypeFailureMode, 7)
	add("ex-", knowledge.TypeExample, 4)

	packs := decision.CompilePacks(productClassification(), mustCorpus(t, atoms))
	for _, pack := range packs {
		if len(pack.Atoms) != 12 {
			t.Errorf("pack %s: expected 12 atoms at cap, got %d", pack.Lens, len(pack.Atoms))
		}
		counts := map[knowledge.AtomType]int{}
		for _, sa := range pack.Atoms {
			counts[sa.Atom.Type]++
		}
		if counts[knowledge.TypeSignal] != 3 {
			t.Errorf("pack %s: expected 3 signals, got %d", pack.Lens, counts[knowledge.TypeSignal])
		}
		if counts[knowledge.TypeHeuristic] != 5 {
			t.Errorf("pack %s: expected 5 heuristics, got %d", pack.Lens, counts[knowledge.TypeHeuristic])
		}
		if counts[knowledge.TypeFailureMode] != 3 {
			t.Errorf("pack %s: expected 3 failure modes, got %d", pack.Lens, counts[knowledge.TypeFailureMode])
		}
		if counts[knowledge.TypeExample] != 1 {
			t.Errorf("pack %s: expected 1 example, got %d", pack.Lens, counts[knowledge.TypeExample])
		}
	}
}

func TestCompilePacksFloorFillUsesPatternsAndQuotes(t *testing.T) {
	atoms := []knowledge.Atom{
		testAtom("sig-a", knowledge.TypeSignal),
		testAtom("sig-b", knowledge.TypeSignal),
		testAtom("heu-a", knowledge.TypeHeuristic),
		testAtom("heu-b", knowledge.TypeHeuristic),
		testAtom("fail-a", knowledge.TypeFailureMode),
		testAtom("ex-a", knowledge.TypeExample),
		testAtom("pat-a", knowledge.TypePattern),
		testAtom("pat-b", knowledge.TypePattern),
		testAtom("quo-a", knowledge.TypeQuote),
	}

	packs := decision.CompilePacks(productClassification(), mustCorpus(t, atoms))
	for _, pack := range packs {
		if len(pack.Atoms) != 8 {
			t.Errorf("pack %s: expected floor of 8 atoms, got %d", pack.Lens, len(pack.Atoms))
		}
		fillers := 0
		for _, sa := range pack.Atoms {
			if sa.Atom.Type == knowledge.TypePattern || sa.Atom.Type == knowledge.TypeQuote {
				fillers++
			}
		}
		if fillers != 2 {
			t.Errorf("pack %s: expected 2 pattern/quote fillers, got %d", pack.Lens, fillers)
		}
	}
}

func TestCompilePacksShortCorpusStaysShort(t *testing.T) {
	// Nothing is invented as padding: with 4 eligible atoms and no
	// pattern/quote fillers the pack simply ends below the floor.
	atoms := []knowledge.Atom{
		testAtom("sig-a", knowledge.TypeSignal),
		testAtom("heu-a", knowledge.TypeHeuristic),
		testAtom("fail-a", knowledge.TypeFailureMode),
		testAtom("ex-a", knowledge.TypeExample),
	}
	packs := decision.CompilePacks(productClassification(), mustCorpus(t, atoms))
	for _, pack := range packs {
		if len(pack.Atoms) != 4 {
			t.Errorf("pack %s: expected 4 atoms, got %d", pack.Lens, len(pack.Atoms))
		}
	}
}

func TestCompilePacksNoDuplicateIDs(t *testing.T) {
	var atoms []knowledge.Atom
	for i := 0; i < 6; i++ {
		atoms = append(atoms, testAtom("heu-"+string(rune('a'+i)), knowledge.TypeHeuristic))
		atoms = append(atoms, testAtom("sig-"+string(rune('a'+i)), knowledge.TypeSignal))
	}
	packs := decision.CompilePacks(productClassification(), mustCorpus(t, atoms))
	for _, pack := range packs {
		seen := map[string]bool{}
		for _, id := range pack.IDs() {
			if seen[id] {
				t.Errorf("pack %s: duplicate id %s", pack.Lens, id)
			}
			seen[id] = true
		}
	}
}

// challengerFixture builds a corpus where the customer pack sits at the
// floor and two business-only atoms outscore everything customer-eligible.
func challengerFixture() []knowledge.Atom {
	customer := []knowledge.Lens{knowledge.LensCustomer}
	business := []knowledge.Lens{knowledge.LensBusiness}

	atoms := []knowledge.Atom{
		testAtom("sig-a", knowledge.TypeSignal, customer...),
		testAtom("sig-b", knowledge.TypeSignal, customer...),
		testAtom("heu-a", knowledge.TypeHeuristic, customer...),
		testAtom("heu-b", knowledge.TypeHeuristic, customer...),
		testAtom("heu-c", knowledge.TypeHeuristic, customer...),
		testAtom("heu-d", knowledge.TypeHeuristic, customer...),
		testAtom("heu-e", knowledge.TypeHeuristic, customer...),
		testAtom("fail-a", knowledge.TypeFailureMode, customer...),
		testAtom("fail-b", knowledge.TypeFailureMode, customer...),
		testAtom("fail-c", knowledge.TypeFailureMode, customer...),
		testAtom("ex-a", knowledge.TypeExample, customer...),
	}
	for _, id := range []string{"chal-a", "chal-b"} {
		ch := testAtom(id, knowledge.TypeHeuristic, business...)
		ch.Dimension = "value_proposition"
		ch.Strength = knowledge.StrengthHigh
		atoms = append(atoms, ch)
	}
	return atoms
}

func TestChallengerSubstitution(t *testing.T) {
	packs := decision.CompilePacks(productClassification(), mustCorpus(t, challengerFixture()))
	pack := packs[0]
	if pack.Lens != knowledge.LensCustomer {
		t.Fatalf("expected customer pack first, got %s", pack.Lens)
	}

	if len(pack.Atoms) != 11 {
		t.Fatalf("substitution must not change pack size: got %d, want 11", len(pack.Atoms))
	}
	if !pack.Contains("chal-a") || !pack.Contains("chal-b") {
		t.Errorf("expected both challengers in pack, got %v", pack.IDs())
	}
	// Weakest first under ties means the highest ids go: sig-b then sig-a.
	if pack.Contains("sig-b") || pack.Contains("sig-a") {
		t.Errorf("expected the two weakest members replaced, got %v", pack.IDs())
	}
	if !pack.Contains("ex-a") {
		t.Errorf("sole example must survive substitution, got %v", pack.IDs())
	}
}

func TestChallengerProtectsSoleExample(t *testing.T) {
	atoms := challengerFixture()
	// Make the example the weakest member outright.
	for i := range atoms {
		if atoms[i].ID == "ex-a" {
			atoms[i].BreaksWhen = []string{"regulated"}
		}
	}
	c := productClassification()
	c.ContextTags = []string{"regulated"}

	packs := decision.CompilePacks(c, mustCorpus(t, atoms))
	pack := packs[0]
	if !pack.Contains("ex-a") {
		t.Errorf("sole example must be protected even as the weakest member, got %v", pack.IDs())
	}
	if !pack.Contains("chal-a") || !pack.Contains("chal-b") {
		t.Errorf("challengers should replace the next weakest members, got %v", pack.IDs())
	}
}

func TestChallengerSkippedBelowFloor(t *testing.T) {
	customer := []knowledge.Lens{knowledge.LensCustomer}
	business := []knowledge.Lens{knowledge.LensBusiness}
	atoms := []knowledge.Atom{
		testAtom("sig-a", knowledge.TypeSignal, customer...),
		testAtom("heu-a", knowledge.TypeHeuristic, customer...),
		testAtom("heu-b", knowledge.TypeHeuristic, customer...),
		testAtom("fail-a", knowledge.TypeFailureMode, customer...),
		testAtom("ex-a", knowledge.TypeExample, customer...),
	}
	ch := testAtom("chal-a", knowledge.TypeHeuristic, business...)
	ch.Strength = knowledge.StrengthHigh
	atoms = append(atoms, ch)

	packs := decision.CompilePacks(productClassification(), mustCorpus(t, atoms))
	pack := packs[0]
	if pack.Contains("chal-a") {
		t.Errorf("packs below the floor must not take challengers, got %v", pack.IDs())
	}
	if len(pack.Atoms) != 5 {
		t.Errorf("expected 5 atoms, got %d", len(pack.Atoms))
	}
}

func TestCompilePacksDeterministic(t *testing.T) {
	atoms := challengerFixture()
	corpus := mustCorpus(t, atoms)
	c := productClassification()

	first := decision.CompilePacks(c, corpus)
	for i := 0; i < 5; i++ {
		again := decision.CompilePacks(c, corpus)
		for j := range first {
			if !reflect.DeepEqual(first[j].IDs(), again[j].IDs()) {
				t.Fatalf("pack %s not deterministic:\n%v\n%v", first[j].Lens, first[j].IDs(), again[j].IDs())
			}
		}
	}
}

func TestPackCanonicalOrder(t *testing.T) {
	packs := decision.CompilePacks(productClassification(), mustCorpus(t, challengerFixture()))
	for _, pack := range packs {
		for i := 1; i < len(pack.Atoms); i++ {
			prev, cur := pack.Atoms[i-1], pack.Atoms[i]
			if prev.Score < cur.Score {
				t.Errorf("pack %s: scores out of order at %d: %d < %d", pack.Lens, i, prev.Score, cur.Score)
			}
			if prev.Score == cur.Score && prev.Atom.ID > cur.Atom.ID {
				t.Errorf("pack %s: ids out of order at %d: %s > %s", pack.Lens, i, prev.Atom.ID, cur.Atom.ID)
			}
		}
	}
}
