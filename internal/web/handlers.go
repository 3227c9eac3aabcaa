package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/orchestrator"
	"github.com/lucasnoah/autodevops/internal/preflight"
	"github.com/lucasnoah/autodevops/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type launchRequest struct {
	OwnerID     string `json:"ownerId"`
	RepoURL     string `json:"repoUrl"`
	Branch      string `json:"branch"`
	MaxAttempts int    `json:"maxAttempts"`
}

type launchResponse struct {
	SimulationID string `json:"simulationId"`
}

// handleRuns launches a run: preflight the repository, start the
// pipeline, and hand back the simulation id once it is minted. The
// run itself proceeds in the background; clients follow it on the
// stream endpoint.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req launchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OwnerID == "" {
		writeError(w, http.StatusBadRequest, "ownerId is required")
		return
	}

	pre, err := s.pf.Run(r.Context(), req.RepoURL, req.Branch)
	if err != nil {
		s.writeFault(w, err)
		return
	}

	// The run outlives this request; detach it from the request context.
	updates, err := s.orch.Launch(context.Background(), orchestrator.LaunchConfig{
		OwnerID:        req.OwnerID,
		RepoURL:        pre.RepoURL,
		Branch:         pre.Branch,
		FileTree:       pre.FileTree,
		ContextBlob:    pre.ContextBlob,
		CloneSessionID: pre.CloneSessionID,
		MaxAttempts:    req.MaxAttempts,
	})
	if err != nil {
		s.writeFault(w, err)
		return
	}

	first, ok := <-updates
	if !ok {
		writeError(w, http.StatusInternalServerError, "run produced no state")
		return
	}

	f := newFeed()
	f.publish(first)
	s.hub.put(first.Run.SimulationID, f)
	go func() {
		for u := range updates {
			f.publish(u)
		}
		f.finish()
	}()

	writeJSON(w, http.StatusAccepted, launchResponse{SimulationID: first.Run.SimulationID})
}

type preflightRequest struct {
	RepoURL string `json:"repoUrl"`
	Branch  string `json:"branch"`
}

type preflightStatus struct {
	Phase   string            `json:"phase"`
	RepoURL string            `json:"repoUrl,omitempty"`
	Branch  string            `json:"branch,omitempty"`
	Result  *preflight.Result `json:"result,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// handlePreflight previews a repository without launching a run. POST
// schedules a debounced preflight; rapid re-posts supersede the
// pending one and only the latest can become ready. GET polls the
// current phase, DELETE abandons it.
func (s *Server) handlePreflight(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req preflightRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := preflight.ValidateRepoURL(req.RepoURL); err != nil {
			s.writeFault(w, err)
			return
		}
		s.mgr.Request(req.RepoURL, req.Branch)
		writeJSON(w, http.StatusAccepted, s.preflightStatusView())
	case http.MethodGet:
		writeJSON(w, http.StatusOK, s.preflightStatusView())
	case http.MethodDelete:
		s.mgr.Cancel()
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) preflightStatusView() preflightStatus {
	st := s.mgr.Status()
	view := preflightStatus{
		Phase:   string(st.Phase),
		RepoURL: st.RepoURL,
		Branch:  st.Branch,
		Result:  st.Result,
	}
	if st.Err != nil {
		view.Error = st.Err.Error()
	}
	return view
}

func (s *Server) handleRunState(w http.ResponseWriter, r *http.Request, simulationID string) {
	f, ok := s.hub.get(simulationID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown run")
		return
	}
	writeJSON(w, http.StatusOK, f.snapshot())
}

func (s *Server) handleSessionList(w http.ResponseWriter, r *http.Request, ownerID string) {
	snaps, err := s.st.List(r.Context(), ownerID)
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleSessionGet(w http.ResponseWriter, r *http.Request, ownerID, simulationID string) {
	snap, err := s.st.Load(r.Context(), ownerID, simulationID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	if err != nil {
		s.writeFault(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleSessionDelete(w http.ResponseWriter, r *http.Request, ownerID, simulationID string) {
	if err := s.st.Delete(r.Context(), ownerID, simulationID); err != nil {
		s.writeFault(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeFault maps the fault taxonomy onto HTTP statuses.
func (s *Server) writeFault(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch fault.KindOf(err) {
	case fault.Validation:
		status = http.StatusBadRequest
	case fault.Network:
		status = http.StatusBadGateway
	case fault.Persistence:
		status = http.StatusServiceUnavailable
	}
	s.log.Warn("request failed", zap.Error(err))
	writeError(w, status, err.Error())
}
