// Package a2asrv exposes a task-handling service over the same wire protocol
// the routermesh client speaks: the agent card published at the well-known
// path and a JSON-RPC message/send endpoint. It exists so specialist
// services (and integration tests) can be stood up in-process with a plain
// handler function.
package a2asrv

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hupe1980/routermesh/a2a"
	"github.com/hupe1980/routermesh/card"
	"github.com/hupe1980/routermesh/core"
	"github.com/hupe1980/routermesh/logging"
)

// JSON-RPC 2.0 error codes used by the endpoint.
const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

// TaskHandler produces the textual result for one received task request.
// A returned error is reported to the caller as a JSON-RPC error.
type TaskHandler func(ctx context.Context, text string) (string, error)

// Options holds configuration overrides passed to New.
type Options struct {
	// Logger receives request diagnostics. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Server serves one agent: its card and its message/send endpoint.
type Server struct {
	agentCard card.Card
	handler   TaskHandler
	logger    logging.Logger
	mux       chi.Router
}

// New constructs a Server publishing the given card and delegating task
// requests to handler.
func New(agentCard card.Card, handler TaskHandler, optFns ...func(o *Options)) *Server {
	opts := Options{Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	s := &Server{agentCard: agentCard, handler: handler, logger: opts.Logger}

	mux := chi.NewRouter()
	mux.Use(middleware.Recoverer)
	mux.Get(card.WellKnownPath, s.handleCard)
	mux.Post("/", s.handleSend)
	s.mux = mux

	return s
}

// Handler returns the HTTP handler serving the card and task endpoints.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves the agent on the given address until the listener fails.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("agent server listening", "addr", addr, "agent", s.agentCard.Name)
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) handleCard(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.agentCard); err != nil {
		s.logger.Error("card encoding failed", "error", err.Error())
	}
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	var req a2a.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "", codeParseError, "invalid JSON payload")
		return
	}

	if req.Method != a2a.MethodMessageSend {
		s.writeError(w, req.ID, codeMethodNotFound, "unsupported method: "+req.Method)
		return
	}

	text := req.Params.Message.Text()
	if text == "" {
		s.writeError(w, req.ID, codeInvalidRequest, "message carries no text part")
		return
	}

	s.logger.Debug("task received", "agent", s.agentCard.Name, "message_id", req.Params.Message.MessageID)

	result, err := s.handler(r.Context(), text)
	if err != nil {
		s.logger.Error("task handler failed", "agent", s.agentCard.Name, "error", err.Error())
		s.writeError(w, req.ID, codeInternalError, err.Error())
		return
	}

	task := a2a.Task{
		Kind:      "task",
		ID:        core.NewID(),
		ContextID: req.Params.Message.MessageID,
		Status:    a2a.TaskStatus{State: "completed"},
		Artifacts: []a2a.Artifact{
			{
				ArtifactID: core.NewID(),
				Name:       "result",
				Parts:      []a2a.Part{a2a.NewTextPart(result)},
			},
		},
	}

	raw, err := json.Marshal(task)
	if err != nil {
		s.writeError(w, req.ID, codeInternalError, "encoding task result failed")
		return
	}

	s.writeResponse(w, a2a.Response{JSONRPC: "2.0", ID: req.ID, Result: raw})
}

func (s *Server) writeError(w http.ResponseWriter, id string, code int, msg string) {
	s.writeResponse(w, a2a.Response{JSONRPC: "2.0", ID: id, Error: &a2a.Error{Code: code, Message: msg}})
}

func (s *Server) writeResponse(w http.ResponseWriter, resp a2a.Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("response encoding failed", "error", err.Error())
	}
}
