package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/events"
	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
	"github.com/verdictlabs/verdict/pkg/domain/reasoning"
	reasoningcall "github.com/verdictlabs/verdict/pkg/reasoning"
)

// GenericFailureMessage is the only failure text callers ever see. The
// triggering error is preserved on the stored run for operators.
const GenericFailureMessage = "The decision could not be completed. Please try again."

// forbiddenWords is the internal vocabulary that must never leak into
// caller-facing failure text.
var forbiddenWords = []string{"lens", "governor", "pack", "classifier"}

// patternExampleLimit caps how many ranked examples the pattern call sees.
const patternExampleLimit = 8

// RunRepository is the persistence adapter the orchestrator writes through
// after every stage.
type RunRepository interface {
	UpsertRun(run *decision.Run) error
	LoadRun(id string) (*decision.Run, error)
}

// IdempotencyClaims lets a re-submitted request attach to its original run.
type IdempotencyClaims interface {
	Claim(key, runID string) (existing string, claimed bool, err error)
}

// Auditor records operator-facing diagnostics.
type Auditor interface {
	Log(runID, action string, detail map[string]any) error
}

// Options tune the reasoning calls.
type Options struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// PipelineService owns the end-to-end decision sequence. One service
// instance handles any number of concurrent runs; the corpus is read-only
// and every per-run artifact is request-scoped.
type PipelineService struct {
	provider  reasoning.Provider
	repo      RunRepository
	claims    IdempotencyClaims
	corpus    *knowledge.Corpus
	publisher events.Publisher
	audit     Auditor
	options   Options
}

func NewPipelineService(provider reasoning.Provider, repo RunRepository, claims IdempotencyClaims, corpus *knowledge.Corpus, publisher events.Publisher, audit Auditor, options Options) *PipelineService {
	return &PipelineService{
		provider:  provider,
		repo:      repo,
		claims:    claims,
		corpus:    corpus,
		publisher: publisher,
		audit:     audit,
		options:   options,
	}
}

// Submit starts a run for the question, honoring the idempotency key: a key
// already attached to a run returns that run (still in progress or already
// complete) instead of starting a second one. The second return value is
// true when a new run was started.
func (s *PipelineService) Submit(ctx context.Context, question string, inputContext map[string]any, idempotencyKey string) (*decision.Run, bool, error) {
	if strings.TrimSpace(question) == "" {
		return nil, false, fmt.Errorf("question cannot be empty")
	}

	runID := uuid.NewString()
	if s.claims != nil && idempotencyKey != "" {
		existing, claimed, err := s.claims.Claim(idempotencyKey, runID)
		if err != nil {
			return nil, false, fmt.Errorf("idempotency claim failed: %w", err)
		}
		if !claimed {
			run, err := s.repo.LoadRun(existing)
			if err != nil {
				return nil, false, fmt.Errorf("load existing run %s: %w", existing, err)
			}
			return run, false, nil
		}
	}

	run := &decision.Run{
		ID:             runID,
		IdempotencyKey: idempotencyKey,
		Status:         decision.StatusRunning,
		Question:       question,
		InputContext:   inputContext,
		CreatedAt:      time.Now().UTC(),
		UpdatedAt:      time.Now().UTC(),
	}
	if err := s.repo.UpsertRun(run); err != nil {
		return nil, false, fmt.Errorf("persist new run: %w", err)
	}
	return run, true, nil
}

// Execute drives a submitted run through every stage. Uncaught stage
// failures terminate the run as failed; the error detail stays on the
// stored run while the caller-facing message is generic.
func (s *PipelineService) Execute(ctx context.Context, run *decision.Run) (*decision.Run, error) {
	fsm, err := decision.NewRunStateMachine(run.ID)
	if err != nil {
		return s.fail(run, nil, err)
	}

	// classifying
	s.announce(run, decision.StepClassifying, "Reading the question")
	classification, err := s.classify(ctx, run.Question, run.InputContext)
	if err != nil {
		return s.fail(run, fsm, err)
	}
	run.Classification = classification
	if err := s.persist(run, fsm); err != nil {
		return s.fail(run, fsm, err)
	}

	// compiling
	s.announce(run, decision.StepCompiling, "Assembling the evidence")
	run.Packs = decision.CompilePacks(classification, s.corpus)
	if err := s.persist(run, fsm); err != nil {
		return s.fail(run, fsm, err)
	}

	// evaluating: per-lens failures are absorbed inside the coordinator,
	// this stage itself cannot fail.
	s.announce(run, decision.StepEvaluating, "Arguing three perspectives")
	run.Perspectives = s.evaluatePerspectives(ctx, run.Question, run.InputContext, classification, run.Packs)
	if err := s.persist(run, fsm); err != nil {
		return s.fail(run, fsm, err)
	}

	// governing
	s.announce(run, decision.StepGoverning, "Grading the evidence")
	gov := decision.Govern(run.Perspectives, classification)
	run.Governor = &gov
	if gov.TriggerRound2 {
		// Round 2 is an extension point; today it is recorded, not executed.
		s.auditQuietly(run.ID, "round2.triggered", map[string]any{
			"score": gov.ConfidenceScore,
		})
	}
	if err := s.persist(run, fsm); err != nil {
		return s.fail(run, fsm, err)
	}

	// synthesising
	s.announce(run, decision.StepSynthesising, "Drafting the recommendation")
	synthesis, err := s.synthesize(ctx, run)
	if err != nil {
		return s.fail(run, fsm, err)
	}
	run.Synthesis = synthesis
	if err := s.persist(run, fsm); err != nil {
		return s.fail(run, fsm, err)
	}

	// matching
	s.announce(run, decision.StepMatching, "Finding precedents")
	pattern := s.matchPattern(ctx, run)
	run.Pattern = pattern
	if err := s.persist(run, fsm); err != nil {
		return s.fail(run, fsm, err)
	}

	// rendering
	s.announce(run, decision.StepRendering, "Preparing the answer")
	card := decision.RenderCard(run.Synthesis, run.Governor, run.Pattern)
	run.Card = &card
	if err := s.persist(run, fsm); err != nil {
		return s.fail(run, fsm, err)
	}

	now := time.Now().UTC()
	run.Status = decision.StatusComplete
	run.CompletedAt = &now
	run.UpdatedAt = now
	if err := s.repo.UpsertRun(run); err != nil {
		return s.fail(run, fsm, err)
	}
	s.publish(events.NewTerminalEvent(run.ID, decision.StatusComplete, "Decision ready"))
	s.auditQuietly(run.ID, "run.complete", map[string]any{
		"tier":    string(run.Governor.Tier),
		"posture": string(run.Governor.Posture),
	})
	return run, nil
}

// classify runs the classification call and enforces the vocabulary
// invariants. An out-of-vocabulary dimension is rejected, never repaired.
func (s *PipelineService) classify(ctx context.Context, question string, inputContext map[string]any) (*decision.Classification, error) {
	var c decision.Classification
	req := reasoning.Request{
		Model:       s.options.Model,
		System:      classifySystem(),
		Messages:    []reasoning.Message{{Role: reasoning.RoleUser, Content: classifyPrompt(question, inputContext)}},
		Temperature: s.options.Temperature,
		MaxTokens:   s.options.MaxTokens,
	}
	if err := reasoningcall.StructuredCall(ctx, s.provider, req, classificationSchema, &c); err != nil {
		return nil, fmt.Errorf("classification call failed: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// synthesize drafts the recommendation. Schema problems are repaired inside
// the structured call; a contract violation that survives it gets exactly
// one more repair round before the stage fails.
func (s *PipelineService) synthesize(ctx context.Context, run *decision.Run) (*decision.Synthesis, error) {
	req := reasoning.Request{
		Model:       s.options.Model,
		System:      synthesizeSystem(),
		Messages:    []reasoning.Message{{Role: reasoning.RoleUser, Content: synthesizePrompt(run.Question, run.InputContext, run.Perspectives, run.Governor)}},
		Temperature: s.options.Temperature,
		MaxTokens:   s.options.MaxTokens,
	}

	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		var syn decision.Synthesis
		if err := reasoningcall.StructuredCall(ctx, s.provider, req, synthesisSchema, &syn); err != nil {
			return nil, fmt.Errorf("synthesis call failed: %w", err)
		}
		if err := syn.Validate(); err != nil {
			lastErr = err
			req.Messages = append(req.Messages, reasoning.Message{
				Role:    reasoning.RoleUser,
				Content: fmt.Sprintf("The previous answer was rejected: %v. Respond again with only the corrected JSON document.", err),
			})
			continue
		}
		return &syn, nil
	}
	return nil, fmt.Errorf("synthesis failed validation after repair: %w", lastErr)
}

// matchPattern ranks the example atoms and asks for precedents. Two empty
// or failed answers in a row produce the deterministic fallback built from
// the supplied subset; the matching stage never fails the run.
func (s *PipelineService) matchPattern(ctx context.Context, run *decision.Run) *decision.PatternMatch {
	pool := make([]decision.ScoredAtom, 0)
	for _, atom := range s.corpus.AtLevel(run.Classification.Level) {
		pool = append(pool, decision.ScoredAtom{Atom: atom})
	}
	examples := decision.RankExamples(pool, run.Classification, run.Synthesis.RecommendedChoice)
	if len(examples) > patternExampleLimit {
		examples = examples[:patternExampleLimit]
	}

	req := reasoning.Request{
		Model:       s.options.Model,
		System:      patternSystem(),
		Messages:    []reasoning.Message{{Role: reasoning.RoleUser, Content: patternPrompt(run.Classification, run.Synthesis.RecommendedChoice, examples)}},
		Temperature: s.options.Temperature,
		MaxTokens:   s.options.MaxTokens,
	}

	for attempt := 0; attempt < 2; attempt++ {
		var pm decision.PatternMatch
		if err := reasoningcall.StructuredCall(ctx, s.provider, req, patternSchema, &pm); err != nil {
			continue
		}
		if err := pm.Validate(examples); err != nil {
			continue
		}
		if len(pm.Worked) == 0 && len(pm.Failed) == 0 {
			continue
		}
		return &pm
	}

	fallback := decision.FallbackPattern(examples)
	s.auditQuietly(run.ID, "pattern.fallback", map[string]any{
		"examples": len(examples),
	})
	return &fallback
}

// persist writes the run after a completed stage and advances the machine.
func (s *PipelineService) persist(run *decision.Run, fsm *decision.RunStateMachine) error {
	run.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpsertRun(run); err != nil {
		return fmt.Errorf("persist run after %s: %w", fsm.Current(), err)
	}
	return fsm.Advance()
}

// fail terminates the run, driving the stage machine to its failed state.
// Operator detail goes on the stored run; callers only ever see the generic
// message.
func (s *PipelineService) fail(run *decision.Run, fsm *decision.RunStateMachine, cause error) (*decision.Run, error) {
	if fsm != nil && !fsm.Terminal() {
		if err := fsm.Fail(); err != nil {
			s.auditQuietly(run.ID, "run.fsm_fail_rejected", map[string]any{"cause": err.Error()})
		}
	}
	run.Status = decision.StatusFailed
	run.Error = cause.Error()
	run.UpdatedAt = time.Now().UTC()
	if err := s.repo.UpsertRun(run); err != nil {
		s.auditQuietly(run.ID, "run.persist_failed", map[string]any{"cause": err.Error()})
	}
	s.publish(events.NewTerminalEvent(run.ID, decision.StatusFailed, SanitizeFailure(GenericFailureMessage)))
	s.auditQuietly(run.ID, "run.failed", map[string]any{"cause": cause.Error()})
	return run, cause
}

func (s *PipelineService) announce(run *decision.Run, step decision.Step, message string) {
	s.publish(events.NewProgressEvent(run.ID, step, message))
}

func (s *PipelineService) publish(event *events.ProgressEvent) {
	if s.publisher != nil {
		s.publisher.Publish(event)
	}
}

func (s *PipelineService) auditQuietly(runID, action string, detail map[string]any) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(runID, action, detail); err != nil {
		// Audit is diagnostics; it never disturbs the pipeline.
		_ = err
	}
}

// SanitizeFailure re-checks caller-facing failure text for internal
// vocabulary and replaces the whole message when any appears.
func SanitizeFailure(message string) string {
	lower := strings.ToLower(message)
	for _, word := range forbiddenWords {
		if strings.Contains(lower, word) {
			return GenericFailureMessage
		}
	}
	return message
}
