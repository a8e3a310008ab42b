package application_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/verdictlabs/verdict/pkg/application"
	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/events"
	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
	"github.com/verdictlabs/verdict/pkg/reasoning"
	"github.com/verdictlabs/verdict/pkg/storage"
)

const classificationAnswer = `{
	"level": "product",
	"dimension": "monetization",
	"secondary_dimensions": [],
	"decision_mode": "choose",
	"context_tags": ["b2b"],
	"risk_flags": [],
	"confidence": 0.7,
	"follow_up_questions": ["What is churn today?", "Who renews already?", "What does billing cost?"]
}`

const perspectiveAnswer = `{
	"stance": "support",
	"summary": "The evidence favours annual billing.",
	"supporting_points": [{"text": "Billing friction drives churn", "atom_ids": ["heu-a", "ghost"]}],
	"assumptions": ["renewal behaviour stays flat"],
	"disconfirming_tests": ["offer monthly-only to a cohort and compare churn"],
	"examples_in_pack": ["ex-annual", "ghost"],
	"confidence": "medium"
}`

const synthesisAnswer = `{
	"recommended_choice": "Introduce an annual plan alongside monthly billing.",
	"confidence_label": "medium",
	"confidence_score": 0.65,
	"reasons": ["All three perspectives support the move"],
	"risks": ["Annual billing may slow signups"],
	"escape_hatch": {"condition": "Signups drop sharply", "action": "Revert to monthly-only"},
	"next_steps": ["Draft the annual terms", "Announce to customers"]
}`

const patternAnswer = `{
	"principle": "Reduce friction before reducing price.",
	"mechanism": "Billing friction shows up as churn that price cuts cannot fix.",
	"worked": [{"atom_id": "ex-annual", "summary": "churn halved", "timeframe": "2023"}],
	"failed": [{"atom_id": "ex-flop", "summary": "discounting alone did not help"}]
}`

func testCorpus(t *testing.T) *knowledge.Corpus {
	t.Helper()
	mk := func(id string, typ knowledge.AtomType) knowledge.Atom {
		return knowledge.Atom{
			ID:      id,
			Type:    typ,
			Purpose: "fixture",
			Claim:   "claim for " + id,
			Lenses:  knowledge.Lenses(),
			Level:   knowledge.LevelProduct,
		}
	}
	atoms := []knowledge.Atom{
		mk("sig-a", knowledge.TypeSignal), mk("sig-b", knowledge.TypeSignal),
		mk("heu-a", knowledge.TypeHeuristic), mk("heu-b", knowledge.TypeHeuristic),
		mk("heu-c", knowledge.TypeHeuristic), mk("heu-d", knowledge.TypeHeuristic),
		mk("heu-e", knowledge.TypeHeuristic),
		mk("fail-a", knowledge.TypeFailureMode), mk("fail-b", knowledge.TypeFailureMode),
		mk("fail-c", knowledge.TypeFailureMode),
	}
	worked := mk("ex-annual", knowledge.TypeExample)
	worked.Outcome = knowledge.OutcomeWorked
	worked.Timeframe = "2023"
	failed := mk("ex-flop", knowledge.TypeExample)
	failed.Outcome = knowledge.OutcomeFailed
	atoms = append(atoms, worked, failed)

	corpus, _, err := knowledge.BuildCorpus(atoms, knowledge.Strict)
	if err != nil {
		t.Fatalf("BuildCorpus failed: %v", err)
	}
	return corpus
}

func scriptedProvider() *reasoning.MockProvider {
	return reasoning.NewMockProvider().
		Script("Classify this decision question", classificationAnswer).
		Script("Evidence references for your perspective", perspectiveAnswer).
		Script("Perspective evaluations", synthesisAnswer).
		Script("Available precedents", patternAnswer)
}

type eventSink struct {
	mu     sync.Mutex
	events []*events.ProgressEvent
}

func (s *eventSink) handler(e *events.ProgressEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *eventSink) all() []*events.ProgressEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*events.ProgressEvent, len(s.events))
	copy(out, s.events)
	return out
}

func newService(t *testing.T, provider *reasoning.MockProvider) (*application.PipelineService, *storage.FilesystemRepository, *eventSink) {
	t.Helper()
	repo := storage.NewFilesystemRepository(t.TempDir())
	if err := repo.Initialize(); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	publisher := events.NewInMemoryPublisher()
	sink := &eventSink{}
	publisher.Subscribe(sink.handler)

	svc := application.NewPipelineService(
		provider, repo, storage.NewIdempotencyIndex(repo), testCorpus(t),
		publisher, storage.NewAuditLogger(repo),
		application.Options{Model: "test-model"},
	)
	return svc, repo, sink
}

func TestPipelineEndToEnd(t *testing.T) {
	svc, repo, sink := newService(t, scriptedProvider())

	run, started, err := svc.Submit(context.Background(), "Should we add an annual plan?", map[string]any{"segment": "b2b"}, "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if !started {
		t.Fatalf("expected a new run")
	}

	run, err = svc.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if run.Status != decision.StatusComplete {
		t.Fatalf("status = %s, want complete", run.Status)
	}
	if run.CompletedAt == nil {
		t.Errorf("completed run must carry a completion time")
	}

	// Classification survived validation.
	if run.Classification == nil || run.Classification.Dimension != "monetization" {
		t.Fatalf("classification = %+v", run.Classification)
	}

	// Three packs in lens order, each within bounds.
	if len(run.Packs) != 3 {
		t.Fatalf("expected 3 packs, got %d", len(run.Packs))
	}
	for _, pack := range run.Packs {
		if len(pack.Atoms) == 0 || len(pack.Atoms) > 12 {
			t.Errorf("pack %s has %d atoms", pack.Lens, len(pack.Atoms))
		}
	}

	// Three perspectives, lens assigned, unknown citations dropped.
	if len(run.Perspectives) != 3 {
		t.Fatalf("expected 3 perspectives, got %d", len(run.Perspectives))
	}
	for i, lens := range knowledge.Lenses() {
		p := run.Perspectives[i]
		if p.Lens != lens {
			t.Errorf("perspective %d lens = %s, want %s", i, p.Lens, lens)
		}
		for _, point := range p.SupportingPoints {
			for _, id := range point.AtomIDs {
				if id == "ghost" {
					t.Errorf("unknown citation survived: %v", point.AtomIDs)
				}
			}
		}
		for _, id := range p.ExamplesInPack {
			if id == "ghost" {
				t.Errorf("unknown example citation survived: %v", p.ExamplesInPack)
			}
		}
	}

	// Governor: unanimous support with no penalties.
	if run.Governor == nil {
		t.Fatalf("governor output missing")
	}
	if run.Governor.ConfidenceScore != 0.65 || run.Governor.Tier != decision.TierSupported {
		t.Errorf("governor = %+v", run.Governor)
	}
	if run.Governor.TriggerRound2 {
		t.Errorf("unexpected round 2 trigger")
	}

	// Pattern cites the offered examples, no fallback.
	if run.Pattern == nil || run.Pattern.Fallback {
		t.Fatalf("pattern = %+v", run.Pattern)
	}
	if run.Pattern.Worked[0].AtomID != "ex-annual" {
		t.Errorf("worked precedent = %+v", run.Pattern.Worked)
	}

	// Card rendered from the synthesis and the grade.
	if run.Card == nil {
		t.Fatalf("card missing")
	}
	if run.Card.Confidence != "supported" || run.Card.Posture != "proceed_cautiously" {
		t.Errorf("card = %+v", run.Card)
	}

	// The stored document matches the returned run.
	stored, err := repo.LoadRun(run.ID)
	if err != nil {
		t.Fatalf("LoadRun failed: %v", err)
	}
	if stored.Status != decision.StatusComplete || stored.Card == nil {
		t.Errorf("stored run incomplete: %+v", stored)
	}

	// Every stage announced, then a terminal event.
	got := sink.all()
	var steps []decision.Step
	for _, e := range got {
		if !e.Terminal {
			steps = append(steps, e.Step)
		}
	}
	want := decision.Steps()
	if len(steps) != len(want) {
		t.Fatalf("expected %d progress events, got %d", len(want), len(steps))
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Errorf("event %d step = %s, want %s", i, steps[i], want[i])
		}
	}
	last := got[len(got)-1]
	if !last.Terminal || last.Status != string(decision.StatusComplete) {
		t.Errorf("last event = %+v", last)
	}
}

func TestPipelineIdempotentResubmission(t *testing.T) {
	svc, _, _ := newService(t, scriptedProvider())

	first, started, err := svc.Submit(context.Background(), "Should we add an annual plan?", nil, "key-1")
	if err != nil || !started {
		t.Fatalf("first submit: started=%v err=%v", started, err)
	}
	if _, err := svc.Execute(context.Background(), first); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	again, started, err := svc.Submit(context.Background(), "Should we add an annual plan?", nil, "key-1")
	if err != nil {
		t.Fatalf("second submit failed: %v", err)
	}
	if started {
		t.Errorf("re-submission must attach to the original run")
	}
	if again.ID != first.ID {
		t.Errorf("expected run %s, got %s", first.ID, again.ID)
	}
	if again.Status != decision.StatusComplete {
		t.Errorf("expected the completed run back, got %s", again.Status)
	}
}

func TestPipelineEmptyQuestionRejected(t *testing.T) {
	svc, _, _ := newService(t, scriptedProvider())
	if _, _, err := svc.Submit(context.Background(), "   ", nil, ""); err == nil {
		t.Errorf("blank question must be rejected")
	}
}

func TestPipelineInvalidClassificationFailsRun(t *testing.T) {
	// Schema-valid answer with a dimension outside the product vocabulary:
	// rejected, never repaired.
	bad := strings.Replace(classificationAnswer, `"monetization"`, `"pricing"`, 1)
	provider := reasoning.NewMockProvider().
		Script("Classify this decision question", bad)
	svc, repo, sink := newService(t, provider)

	run, _, err := svc.Submit(context.Background(), "Should we add an annual plan?", nil, "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	run, err = svc.Execute(context.Background(), run)
	if err == nil {
		t.Fatalf("expected the run to fail")
	}
	if !errors.Is(err, decision.ErrInvalidClassification) {
		t.Errorf("expected ErrInvalidClassification, got %v", err)
	}
	if run.Status != decision.StatusFailed {
		t.Errorf("status = %s, want failed", run.Status)
	}
	if run.Error == "" {
		t.Errorf("operator detail must be stored on the run")
	}

	stored, loadErr := repo.LoadRun(run.ID)
	if loadErr != nil {
		t.Fatalf("LoadRun failed: %v", loadErr)
	}
	if stored.Status != decision.StatusFailed {
		t.Errorf("stored status = %s, want failed", stored.Status)
	}

	// The terminal event never leaks internals.
	got := sink.all()
	last := got[len(got)-1]
	if !last.Terminal || last.Status != string(decision.StatusFailed) {
		t.Fatalf("last event = %+v", last)
	}
	if last.Message != application.GenericFailureMessage {
		t.Errorf("caller-facing failure message = %q", last.Message)
	}

	// Failure drives the stage machine to its failed state; a rejected
	// transition leaves an audit entry.
	entries, auditErr := storage.NewAuditLogger(repo).Load()
	if auditErr != nil {
		t.Fatalf("audit load failed: %v", auditErr)
	}
	var loggedFailure bool
	for _, e := range entries {
		if e.Action == "run.fsm_fail_rejected" {
			t.Errorf("stage machine rejected the fail transition: %+v", e)
		}
		if e.Action == "run.failed" {
			loggedFailure = true
		}
	}
	if !loggedFailure {
		t.Error("missing run.failed audit entry")
	}
}

func TestPipelineLensFailureIsIsolated(t *testing.T) {
	provider := reasoning.NewMockProvider().
		ScriptError("You argue the customer perspective", errors.New("upstream down")).
		Script("Classify this decision question", classificationAnswer).
		Script("Evidence references for your perspective", perspectiveAnswer).
		Script("Perspective evaluations", synthesisAnswer).
		Script("Available precedents", patternAnswer)
	svc, _, _ := newService(t, provider)

	run, _, err := svc.Submit(context.Background(), "Should we add an annual plan?", nil, "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	run, err = svc.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("a failing lens must not fail the run: %v", err)
	}

	customer := run.Perspectives[0]
	if !customer.Fallback || customer.Stance != decision.StanceUnclear {
		t.Errorf("customer perspective = %+v, want fallback", customer)
	}
	for _, p := range run.Perspectives[1:] {
		if p.Fallback {
			t.Errorf("%s perspective tainted by the customer failure", p.Lens)
		}
		if p.Stance != decision.StanceSupport {
			t.Errorf("%s stance = %s, want support", p.Lens, p.Stance)
		}
	}

	// One unclear stance: 0.50 - 0.15, directional, no unanimity.
	if run.Governor.ConfidenceScore != 0.35 {
		t.Errorf("governor score = %v, want 0.35", run.Governor.ConfidenceScore)
	}
	if run.Status != decision.StatusComplete {
		t.Errorf("status = %s, want complete", run.Status)
	}
}

func TestPipelinePatternFallback(t *testing.T) {
	// The pattern call answers with no precedents twice; the deterministic
	// fallback takes over and the run still completes.
	empty := `{"principle": "A principle.", "mechanism": "A mechanism."}`
	provider := reasoning.NewMockProvider().
		Script("Classify this decision question", classificationAnswer).
		Script("Evidence references for your perspective", perspectiveAnswer).
		Script("Perspective evaluations", synthesisAnswer).
		Script("Available precedents", empty)
	svc, _, _ := newService(t, provider)

	run, _, err := svc.Submit(context.Background(), "Should we add an annual plan?", nil, "")
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	run, err = svc.Execute(context.Background(), run)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if run.Pattern == nil || !run.Pattern.Fallback {
		t.Fatalf("expected fallback pattern, got %+v", run.Pattern)
	}
	if len(run.Pattern.Worked) != 1 || run.Pattern.Worked[0].AtomID != "ex-annual" {
		t.Errorf("fallback worked precedent = %+v", run.Pattern.Worked)
	}
	if len(run.Pattern.Failed) != 1 || run.Pattern.Failed[0].AtomID != "ex-flop" {
		t.Errorf("fallback failed precedent = %+v", run.Pattern.Failed)
	}
	if run.Status != decision.StatusComplete {
		t.Errorf("status = %s, want complete", run.Status)
	}
}

func TestSanitizeFailure(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"network unreachable", "network unreachable"},
		{"the Lens call failed", application.GenericFailureMessage},
		{"governor rejected the input", application.GenericFailureMessage},
		{"pack compilation issue", application.GenericFailureMessage},
		{"classifier timeout", application.GenericFailureMessage},
	}
	for _, tt := range tests {
		if got := application.SanitizeFailure(tt.in); got != tt.want {
			t.Errorf("SanitizeFailure(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
