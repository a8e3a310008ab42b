// Package mcp exposes the decision pipeline as MCP tools so agent clients
// can submit questions and inspect runs and the evidence corpus.
package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/verdictlabs/verdict/internal/infrastructure/wiring"
	"github.com/verdictlabs/verdict/pkg/application"
	"github.com/verdictlabs/verdict/pkg/domain/decision"
)

type Server struct {
	mcpServer *mcp.Server
	services  *wiring.Services
}

var (
	Version     = "dev"
	BuildCommit = "unknown"
	BuildDate   = "unknown"
)

// mcpErr returns a user-friendly error for MCP clients. Internal details
// are omitted.
func mcpErr(friendly string) error {
	return fmt.Errorf("%s", friendly)
}

func NewServer(root string) (*Server, error) {
	services, err := wiring.Build(root)
	if err != nil {
		return nil, fmt.Errorf("build services: %w", err)
	}

	info := mcp.ServerInfo{
		Name:    "verdict",
		Version: Version,
	}

	s := &Server{
		mcpServer: mcp.NewServer(info,
			mcp.WithTitle("Verdict MCP Server"),
			mcp.WithDescription("Verdict ranks decision evidence, evaluates it from multiple perspectives, and returns a confidence-scored recommendation card."),
			mcp.WithWebsiteURL("https://github.com/verdictlabs/verdict"),
			mcp.WithBuildInfo(BuildCommit, BuildDate),
			mcp.WithInstructions("Use verdict_decide to run a decision question through the pipeline, verdict_get_run to fetch a stored run, and verdict_corpus_stats to inspect the evidence corpus."),
		),
		services: services,
	}

	s.registerTools()
	return s, nil
}

type DecideArgs struct {
	Question       string         `json:"question" jsonschema:"description=The decision question to evaluate"`
	InputContext   map[string]any `json:"input_context,omitempty" jsonschema:"description=Optional structured context for the decision"`
	IdempotencyKey string         `json:"idempotency_key,omitempty" jsonschema:"description=Optional key to deduplicate resubmissions"`
}

type GetRunArgs struct {
	RunID string `json:"run_id" jsonschema:"description=The id of the run to fetch"`
}

func (s *Server) registerTools() {
	s.mcpServer.Tool("verdict_decide").
		Description("Run a decision question through the evidence pipeline and return the recommendation card").
		Handler(s.handleDecide)

	s.mcpServer.Tool("verdict_get_run").
		Description("Retrieve a stored decision run by id").
		Handler(s.handleGetRun)

	s.mcpServer.Tool("verdict_corpus_stats").
		Description("Report the size and composition of the loaded evidence corpus").
		Handler(s.handleCorpusStats)
}

func (s *Server) handleDecide(ctx context.Context, args DecideArgs) (any, error) {
	run, started, err := s.services.Pipeline.Submit(ctx, args.Question, args.InputContext, args.IdempotencyKey)
	if err != nil {
		return nil, mcpErr("Invalid decision question. Provide a non-empty question.")
	}
	if !started {
		if run.Terminal() {
			return run, nil
		}
		return map[string]any{"run_id": run.ID, "status": string(run.Status)}, nil
	}

	run, err = s.services.Pipeline.Execute(ctx, run)
	if err != nil {
		return nil, mcpErr(application.GenericFailureMessage)
	}
	return run, nil
}

func (s *Server) handleGetRun(ctx context.Context, args GetRunArgs) (any, error) {
	run, err := s.services.Repo.LoadRun(args.RunID)
	if err != nil {
		return nil, mcpErr("Run not found.")
	}
	if run.Status == decision.StatusFailed {
		sanitized := *run
		sanitized.Error = application.GenericFailureMessage
		return &sanitized, nil
	}
	return run, nil
}

func (s *Server) handleCorpusStats(ctx context.Context, args struct{}) (any, error) {
	corpus := s.services.Corpus
	if corpus == nil {
		return nil, mcpErr("No evidence corpus loaded. Run 'verdict init' first.")
	}
	return map[string]any{
		"atoms":   corpus.Len(),
		"by_type": corpus.CountByType(),
		"dropped": len(s.services.CorpusWarnings),
	}, nil
}

func (s *Server) Start() error {
	return s.StartStdio()
}

func (s *Server) StartStdio() error {
	return mcp.ServeStdio(context.Background(), s.mcpServer)
}

func (s *Server) StartHTTP(addr string) error {
	return mcp.ServeHTTP(context.Background(), s.mcpServer, addr, mcp.WithDefaultCORS())
}

func (s *Server) StartWebSocket(addr string) error {
	return mcp.ServeWebSocket(context.Background(), s.mcpServer, addr)
}
