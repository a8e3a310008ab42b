// Package wiring assembles the pipeline from its parts: storage, corpus,
// reasoning provider, progress publisher, audit log. Everything is injected
// explicitly; there is no ambient global client.
package wiring

import (
	"fmt"
	"time"

	"github.com/verdictlabs/verdict/internal/infrastructure/config"
	"github.com/verdictlabs/verdict/pkg/application"
	"github.com/verdictlabs/verdict/pkg/domain/events"
	"github.com/verdictlabs/verdict/pkg/domain/knowledge"
	domainreasoning "github.com/verdictlabs/verdict/pkg/domain/reasoning"
	"github.com/verdictlabs/verdict/pkg/reasoning"
	"github.com/verdictlabs/verdict/pkg/storage"
)

// Services exposes the wired application layer for one workspace.
type Services struct {
	Root      string
	Config    *config.Config
	Repo      *storage.FilesystemRepository
	Claims    *storage.IdempotencyIndex
	Corpus    *knowledge.Corpus
	Publisher *events.InMemoryPublisher
	Audit     *storage.AuditLogger
	Provider  domainreasoning.Provider
	Pipeline  *application.PipelineService
	// CorpusWarnings lists records dropped during a lenient load.
	CorpusWarnings []error
}

// Build wires the services for a workspace root. In strict corpus mode any
// invalid record aborts startup; otherwise invalid records are dropped and
// reported through CorpusWarnings.
func Build(root string) (*Services, error) {
	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	repo := storage.NewFilesystemRepository(root)
	if !repo.IsInitialized() {
		return nil, fmt.Errorf("workspace not initialized (run 'verdict init' first)")
	}

	mode := knowledge.Lenient
	if cfg.StrictCorpus {
		mode = knowledge.Strict
	}
	corpus, warnings, err := storage.LoadCorpus(repo.CorpusPath(), mode)
	if err != nil {
		return nil, fmt.Errorf("corpus load failed: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		return nil, err
	}

	publisher := events.NewInMemoryPublisher()
	audit := storage.NewAuditLogger(repo)
	claims := storage.NewIdempotencyIndex(repo)

	pipeline := application.NewPipelineService(
		provider, repo, claims, corpus, publisher, audit,
		application.Options{
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		},
	)

	return &Services{
		Root:           root,
		Config:         cfg,
		Repo:           repo,
		Claims:         claims,
		Corpus:         corpus,
		Publisher:      publisher,
		Audit:          audit,
		Provider:       provider,
		Pipeline:       pipeline,
		CorpusWarnings: warnings,
	}, nil
}

func buildProvider(cfg *config.Config) (domainreasoning.Provider, error) {
	var inner domainreasoning.Provider
	switch cfg.Provider {
	case "anthropic":
		inner = reasoning.NewAnthropicProvider(cfg.Model, config.APIKey("anthropic"))
	case "openai":
		inner = reasoning.NewOpenAIProvider(cfg.Model, config.APIKey("openai"))
	case "mock":
		inner = offlineMock()
	default:
		return nil, fmt.Errorf("unknown reasoning provider %q", cfg.Provider)
	}

	return reasoning.NewResilientProvider(inner).
		WithCallTimeout(time.Duration(cfg.TimeoutSeconds) * time.Second).
		WithMaxAttempts(cfg.MaxAttempts), nil
}

// offlineMock answers every call with neutral, schema-valid documents so
// the pipeline can be exercised without a reasoning service.
func offlineMock() *reasoning.MockProvider {
	return reasoning.NewMockProvider().
		Script("Classify this decision question", `{
			"level": "product", "dimension": "value_proposition",
			"decision_mode": "choose", "context_tags": [], "risk_flags": [],
			"confidence": 0.5,
			"follow_up_questions": ["What must be true for this to matter?", "Who is affected first?", "What does doing nothing cost?"]
		}`).
		Script("Evidence references for your perspective", `{
			"stance": "mixed",
			"summary": "Offline evaluation: the evidence cuts both ways.",
			"assumptions": [],
			"disconfirming_tests": ["Pilot with a small group and compare against the baseline."],
			"confidence": "low"
		}`).
		Script("Perspective evaluations", `{
			"recommended_choice": "Run a limited pilot before committing either way.",
			"confidence_label": "low", "confidence_score": 0.4,
			"reasons": ["Offline mode cannot weigh the evidence; a pilot de-risks the choice."],
			"escape_hatch": {"condition": "The pilot shows no measurable effect.", "action": "Stop and revisit the framing."},
			"next_steps": ["Define the pilot's success metric."]
		}`).
		Script("Available precedents", `{
			"principle": "Small reversible commitments beat large irreversible ones when evidence is thin.",
			"mechanism": "A pilot converts an argument about the future into an observation about the present."
		}`)
}
