// Package sse streams run progress events via Server-Sent Events.
package sse

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/verdictlabs/verdict/pkg/domain/events"
)

// Handler fans progress events out to connected SSE clients, optionally
// filtered to a single run.
type Handler struct {
	mu      sync.RWMutex
	clients map[chan *events.ProgressEvent]string // value: run id filter, "" = all
}

// NewHandler creates an SSE handler subscribed to the publisher.
func NewHandler(publisher events.Publisher) *Handler {
	h := &Handler{
		clients: make(map[chan *events.ProgressEvent]string),
	}

	publisher.Subscribe(func(e *events.ProgressEvent) error {
		h.mu.RLock()
		defer h.mu.RUnlock()
		for ch, runID := range h.clients {
			if runID != "" && runID != e.RunID {
				continue
			}
			select {
			case ch <- e:
			default:
				// Drop if client is slow
			}
		}
		return nil
	})

	return h
}

// ServeHTTP handles SSE connections. The run query parameter narrows the
// stream to one run's events.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	runFilter := r.URL.Query().Get("run")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan *events.ProgressEvent, 64)

	h.mu.Lock()
	h.clients[ch] = runFilter
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, ch)
		h.mu.Unlock()
		close(ch)
	}()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}

			data, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: progress\ndata: %s\n\n", data)
			flusher.Flush()

			if event.Terminal && runFilter != "" {
				return
			}
		}
	}
}
