// Package web exposes the remediation pipeline over HTTP: launch
// runs, stream their live state, and manage persisted sessions.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lucasnoah/autodevops/internal/orchestrator"
	"github.com/lucasnoah/autodevops/internal/preflight"
	"github.com/lucasnoah/autodevops/internal/store"
)

// Server is the JSON API server.
type Server struct {
	orch *orchestrator.Orchestrator
	pf   *preflight.Preflighter
	mgr  *preflight.Manager
	st   store.Store
	hub  *hub
	port int
	log  *zap.Logger
}

// NewServer creates a Server. quiet is the debounce applied to the
// preflight preview endpoint.
func NewServer(orch *orchestrator.Orchestrator, pf *preflight.Preflighter, st store.Store, quiet time.Duration, port int, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		orch: orch,
		pf:   pf,
		mgr:  preflight.NewManager(pf, quiet, log),
		st:   st,
		hub:  newHub(),
		port: port,
		log:  log,
	}
}

// Handler returns the route table. Split from Start for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/runs", s.handleRuns)
	mux.HandleFunc("/api/runs/", s.routeRun)
	mux.HandleFunc("/api/preflight", s.handlePreflight)
	mux.HandleFunc("/api/sessions/", s.routeSession)
	return mux
}

// Start begins listening and blocks.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.Info("api listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, s.Handler())
}

func (s *Server) routeRun(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleRunState(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "stream":
		s.handleRunStream(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) routeSession(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/sessions/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		s.handleSessionList(w, r, parts[0])
	case len(parts) == 2 && r.Method == http.MethodGet:
		s.handleSessionGet(w, r, parts[0], parts[1])
	case len(parts) == 2 && r.Method == http.MethodDelete:
		s.handleSessionDelete(w, r, parts[0], parts[1])
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
