// Package httpapi exposes the decision pipeline over HTTP: run submission
// with idempotency keys, run retrieval, and progress streaming via SSE and
// websocket.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/verdictlabs/verdict/internal/infrastructure/sse"
	"github.com/verdictlabs/verdict/pkg/application"
	"github.com/verdictlabs/verdict/pkg/domain/decision"
	"github.com/verdictlabs/verdict/pkg/domain/events"
)

// Server is the HTTP API server.
type Server struct {
	addr      string
	pipeline  *application.PipelineService
	repo      application.RunRepository
	publisher events.Publisher
	ws        *wsHub
	logger    *slog.Logger
	server    *http.Server
}

// NewServer wires the API around a pipeline service.
func NewServer(addr string, pipeline *application.PipelineService, repo application.RunRepository, publisher events.Publisher, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:      addr,
		pipeline:  pipeline,
		repo:      repo,
		publisher: publisher,
		ws:        newWSHub(publisher),
		logger:    logger,
	}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /runs", s.handleSubmit)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.Handle("GET /runs/{id}/events", s.runScopedSSE())
	mux.HandleFunc("GET /runs/{id}/ws", s.handleWebsocket)
	return mux
}

// Start blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // streaming endpoints manage their own lifetimes
	}
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

type submitRequest struct {
	Question     string         `json:"question"`
	InputContext map[string]any `json:"input_context,omitempty"`
}

type submitResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// handleSubmit accepts a question and optional Idempotency-Key header. A
// key already attached to an in-progress run answers 202 with that run's
// id; a completed run answers 200 with the stored result.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	key := r.Header.Get("Idempotency-Key")
	run, started, err := s.pipeline.Submit(r.Context(), req.Question, req.InputContext, key)
	if err != nil {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	if !started {
		if run.Terminal() {
			writeJSON(w, http.StatusOK, run)
			return
		}
		writeJSON(w, http.StatusAccepted, submitResponse{RunID: run.ID, Status: string(run.Status)})
		return
	}

	// The pipeline owns the run from here; the caller polls or streams.
	go func() {
		if _, err := s.pipeline.Execute(context.Background(), run); err != nil {
			s.logger.Error("run failed", "run_id", run.ID, "err", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, submitResponse{RunID: run.ID, Status: string(decision.StatusRunning)})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.repo.LoadRun(r.PathValue("id"))
	if errors.Is(err, decision.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.logger.Error("load run failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	// Callers never see internal failure detail, only the generic message.
	if run.Status == decision.StatusFailed {
		sanitized := *run
		sanitized.Error = application.GenericFailureMessage
		writeJSON(w, http.StatusOK, &sanitized)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// runScopedSSE adapts the SSE handler to the /runs/{id}/events route.
func (s *Server) runScopedSSE() http.Handler {
	handler := sse.NewHandler(s.publisher)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		q.Set("run", r.PathValue("id"))
		r.URL.RawQuery = q.Encode()
		handler.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("write response failed", "err", err)
	}
}
