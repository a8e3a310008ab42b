package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"github.com/felixgeelhaar/mcp-go/client"

	"github.com/verdictlabs/verdict/pkg/domain/decision"
)

// Client is a typed Go client for the Verdict MCP server.
type Client struct {
	mcp      *client.Client
	retryCfg retry.Config
	timeout  time.Duration
}

// NewClient creates a new SDK client wrapping the given MCP transport.
func NewClient(transport client.Transport, opts ...Option) *Client {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Client{
		mcp:     client.New(transport, client.WithTimeout(o.timeout)),
		timeout: o.timeout,
		retryCfg: retry.Config{
			MaxAttempts:   o.maxAttempts,
			InitialDelay:  o.initialDelay,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
		},
	}
}

// Initialize performs the MCP initialize handshake.
func (c *Client) Initialize(ctx context.Context) (*client.ServerInfo, error) {
	return c.mcp.Initialize(ctx)
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.mcp.Close()
}

// call invokes a tool with retry.
func (c *Client) call(ctx context.Context, tool string, args map[string]any) (*client.ToolResult, error) {
	r := retry.New[*client.ToolResult](c.retryCfg)
	result, err := r.Do(ctx, func(ctx context.Context) (*client.ToolResult, error) {
		return c.mcp.CallTool(ctx, tool, args)
	})
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", tool, err)
	}
	if result.IsError {
		msg := ""
		if len(result.Content) > 0 {
			msg = result.Content[0].Text
		}
		return nil, &ToolError{Tool: tool, Message: msg}
	}
	return result, nil
}

// unmarshalText extracts Content[0].Text from a tool result and unmarshals it as JSON.
func unmarshalText[T any](result *client.ToolResult) (*T, error) {
	text, err := textResult(result)
	if err != nil {
		return nil, err
	}
	var v T
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	return &v, nil
}

// textResult extracts Content[0].Text from a tool result.
func textResult(result *client.ToolResult) (string, error) {
	if len(result.Content) == 0 {
		return "", ErrNoContent
	}
	return result.Content[0].Text, nil
}

// DecideRequest provides typed parameters for the Decide method.
type DecideRequest struct {
	Question       string
	InputContext   map[string]any
	IdempotencyKey string
}

// Decide runs a decision question through the pipeline and returns the
// completed run, including the recommendation card.
func (c *Client) Decide(ctx context.Context, req DecideRequest) (*decision.Run, error) {
	args := map[string]any{"question": req.Question}
	if len(req.InputContext) > 0 {
		args["input_context"] = req.InputContext
	}
	if req.IdempotencyKey != "" {
		args["idempotency_key"] = req.IdempotencyKey
	}
	res, err := c.call(ctx, "verdict_decide", args)
	if err != nil {
		return nil, err
	}
	return unmarshalText[decision.Run](res)
}

// GetRun retrieves a stored run by id.
func (c *Client) GetRun(ctx context.Context, runID string) (*decision.Run, error) {
	res, err := c.call(ctx, "verdict_get_run", map[string]any{"run_id": runID})
	if err != nil {
		return nil, err
	}
	return unmarshalText[decision.Run](res)
}

// CorpusStats reports the size and composition of the loaded evidence corpus.
type CorpusStats struct {
	Atoms   int            `json:"atoms"`
	ByType  map[string]int `json:"by_type"`
	Dropped int            `json:"dropped"`
}

// GetCorpusStats fetches corpus statistics from the server.
func (c *Client) GetCorpusStats(ctx context.Context) (*CorpusStats, error) {
	res, err := c.call(ctx, "verdict_corpus_stats", map[string]any{})
	if err != nil {
		return nil, err
	}
	return unmarshalText[CorpusStats](res)
}
