package reasoning

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/verdictlabs/verdict/pkg/domain/reasoning"
)

// MockProvider returns scripted answers, matched by a substring of the
// latest user message. Used in tests and for offline runs. Deterministic:
// the same conversation always gets the same answer.
type MockProvider struct {
	mu      sync.Mutex
	scripts []mockScript
	calls   []reasoning.Request
}

type mockScript struct {
	match string
	text  string
	err   error
}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

// Script registers an answer for requests whose last message contains match.
// Scripts are checked in registration order; first hit wins.
func (p *MockProvider) Script(match, text string) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, mockScript{match: match, text: text})
	return p
}

// ScriptError registers a failure for matching requests.
func (p *MockProvider) ScriptError(match string, err error) *MockProvider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, mockScript{match: match, err: err})
	return p
}

// Calls returns every request seen so far, in order.
func (p *MockProvider) Calls() []reasoning.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]reasoning.Request, len(p.calls))
	copy(out, p.calls)
	return out
}

func (p *MockProvider) ID() string {
	return "mock"
}

func (p *MockProvider) Complete(_ context.Context, req reasoning.Request) (*reasoning.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, req)

	last := ""
	if len(req.Messages) > 0 {
		last = req.Messages[len(req.Messages)-1].Content
	}
	for _, s := range p.scripts {
		if strings.Contains(last, s.match) || strings.Contains(req.System, s.match) {
			if s.err != nil {
				return nil, s.err
			}
			return &reasoning.Response{Text: s.text, Model: "mock"}, nil
		}
	}
	return nil, fmt.Errorf("mock provider has no script for request")
}
