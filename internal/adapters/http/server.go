// Package http exposes the engine over a chi router: one execute
// endpoint plus health and metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/arborflow/arbor/pkg/domain"
)

const maxRequestBody = 1 << 20 // 1 MiB

// Engine is the execution surface the API needs.
type Engine interface {
	Execute(ctx context.Context, agentID, input string, sess domain.SessionContext) (*domain.Response, error)
	Inspect(agentID string) (*domain.Topology, error)
}

// ExecuteRequest is the POST /v1/execute body.
type ExecuteRequest struct {
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	Text      string `json:"text"`
}

// ErrorEnvelope is the JSON body of every non-200 response.
type ErrorEnvelope struct {
	Code    domain.Code `json:"code"`
	Message string      `json:"message"`
}

// Server serves the inbound API.
type Server struct {
	engine Engine
	logger *slog.Logger
}

// NewHandler builds the routed handler.
func NewHandler(engine Engine, logger *slog.Logger) http.Handler {
	s := &Server{engine: engine, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Route("/v1", func(r chi.Router) {
		r.Post("/execute", s.execute)
		r.Get("/agents/{agentID}/topology", s.topology)
	})
	return r
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) execute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.CodeValidation, "malformed request body"))
		return
	}
	if req.AgentID == "" {
		req.AgentID = "default"
	}

	sess := domain.SessionContext{SessionID: req.SessionID, UserID: req.UserID}
	resp, err := s.engine.Execute(r.Context(), req.AgentID, req.Text, sess)
	if err != nil {
		s.logger.Warn("execute rejected", "agent", req.AgentID, "err", err)
		writeError(w, err)
		return
	}

	s.logger.Info("request executed",
		"agent", req.AgentID, "trace", resp.TraceID, "timing_ms", resp.TimingMS)
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) topology(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	topo, err := s.engine.Inspect(agentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topo)
}

// writeError maps the error taxonomy onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := domain.CodeOf(err)
	status := http.StatusInternalServerError
	switch code {
	case domain.CodeValidation:
		status = http.StatusBadRequest
	case domain.CodeTopologyLoad:
		status = http.StatusNotFound
	case domain.CodeCapabilityNotFound, domain.CodeCapabilityDisabled:
		status = http.StatusConflict
	case domain.CodeExternalCall:
		status = http.StatusBadGateway
	}

	msg := "internal error"
	var de *domain.Error
	if errors.As(err, &de) {
		msg = de.Message
	}
	writeJSON(w, status, ErrorEnvelope{Code: code, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
