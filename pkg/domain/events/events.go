// Package events carries run progress notifications from the pipeline to
// whoever is watching: CLI progress views, SSE and websocket streams, the
// audit log.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/verdictlabs/verdict/pkg/domain/decision"
)

// ProgressEvent reports one pipeline step of one run. Step values come from
// the fixed stage vocabulary.
type ProgressEvent struct {
	ID        string        `json:"id"`
	RunID     string        `json:"run_id"`
	Step      decision.Step `json:"step"`
	Message   string        `json:"message"`
	Terminal  bool          `json:"terminal,omitempty"`
	Status    string        `json:"status,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewProgressEvent stamps a step notification for a run.
func NewProgressEvent(runID string, step decision.Step, message string) *ProgressEvent {
	return &ProgressEvent{
		ID:        uuid.NewString(),
		RunID:     runID,
		Step:      step,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// NewTerminalEvent marks the end of a run's progress stream.
func NewTerminalEvent(runID string, status decision.RunStatus, message string) *ProgressEvent {
	return &ProgressEvent{
		ID:        uuid.NewString(),
		RunID:     runID,
		Message:   message,
		Terminal:  true,
		Status:    string(status),
		Timestamp: time.Now().UTC(),
	}
}

// Handler consumes progress events. Handler errors never interrupt the
// pipeline.
type Handler func(*ProgressEvent) error

// Publisher fans progress events out to subscribers.
type Publisher interface {
	Publish(*ProgressEvent)
	Subscribe(Handler)
}

// InMemoryPublisher is a simple in-process publisher. Handlers run on the
// publishing goroutine; a failing handler is skipped, never propagated.
type InMemoryPublisher struct {
	mu       sync.RWMutex
	handlers []Handler
}

// NewInMemoryPublisher creates an empty publisher.
func NewInMemoryPublisher() *InMemoryPublisher {
	return &InMemoryPublisher{}
}

// Publish sends an event to all subscribers.
func (p *InMemoryPublisher) Publish(event *ProgressEvent) {
	p.mu.RLock()
	handlers := make([]Handler, len(p.handlers))
	copy(handlers, p.handlers)
	p.mu.RUnlock()

	for _, h := range handlers {
		if err := h(event); err != nil {
			// Handlers must not block publishing.
			continue
		}
	}
}

// Subscribe registers a handler for all future events.
func (p *InMemoryPublisher) Subscribe(handler Handler) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}
