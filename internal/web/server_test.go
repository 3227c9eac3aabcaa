package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/autodevops/internal/orchestrator"
	"github.com/lucasnoah/autodevops/internal/preflight"
	"github.com/lucasnoah/autodevops/internal/reasoning"
	"github.com/lucasnoah/autodevops/internal/run"
	"github.com/lucasnoah/autodevops/internal/store"
)

type stubBackend struct{}

func (stubBackend) Clone(ctx context.Context, repoURL, branch string) (string, error) {
	return "sess-1", nil
}

func (stubBackend) ListFiles(ctx context.Context, session string) ([]string, error) {
	return []string{"go.mod", "main.go"}, nil
}

func (stubBackend) ReadFile(ctx context.Context, session, path string) ([]byte, error) {
	return []byte("module example.com/demo\n"), nil
}

func (stubBackend) Cleanup(ctx context.Context, session string) error { return nil }

type stubReasoner struct {
	issues []run.Issue
}

func (s *stubReasoner) Reason(ctx context.Context, signature, context_ string) (string, error) {
	return "ok", nil
}

func (s *stubReasoner) PredictStack(ctx context.Context, repoURL string, treeSample []string) (reasoning.StackPrediction, error) {
	return reasoning.StackPrediction{Language: "Go", Confidence: 0.9}, nil
}

func (s *stubReasoner) Audit(ctx context.Context, signature, repoURL, branch string, fileTree []string, contextBlob string) (reasoning.AuditResult, error) {
	return reasoning.AuditResult{TechStack: "Go (go test)", Issues: s.issues}, nil
}

func (s *stubReasoner) ProposeFix(ctx context.Context, signature string, issue run.Issue, contextBlob string) (run.CodeFix, error) {
	return run.CodeFix{FilePath: "main.go", RootCause: "off by one"}, nil
}

func (s *stubReasoner) Summarize(ctx context.Context, signature string, r run.Run) (string, error) {
	return "Stabilized.", nil
}

func newTestServer(t *testing.T, st store.Store) *Server {
	t.Helper()
	pf, err := preflight.New(stubBackend{}, nil, preflight.Options{}, nil)
	require.NoError(t, err)
	orch, err := orchestrator.New(&stubReasoner{issues: []run.Issue{
		{Title: "flaky test", Severity: run.SeverityMinor, Status: run.IssuePending},
	}}, st, nil, nil, time.Millisecond, nil)
	require.NoError(t, err)
	return NewServer(orch, pf, st, 5*time.Millisecond, 0, nil)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLaunchRunReturnsSimulationID(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	body, _ := json.Marshal(launchRequest{OwnerID: "owner-1", RepoURL: "https://github.com/acme/widgets"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body)))

	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	var resp launchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.SimulationID, 6)

	// The run state becomes queryable and eventually terminal.
	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/"+resp.SimulationID, nil))
		if rec.Code != http.StatusOK {
			return false
		}
		var state run.Update
		if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
			return false
		}
		return state.Run.Confidence == 100 && state.Run.ReportSummary != ""
	}, 5*time.Second, 20*time.Millisecond)
}

func TestLaunchRequiresOwner(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	body, _ := json.Marshal(launchRequest{RepoURL: "https://github.com/acme/widgets"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLaunchInvalidRepoURLIsBadRequest(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	body, _ := json.Marshal(launchRequest{OwnerID: "owner-1", RepoURL: "ftp://nope"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/runs", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunStreamDeliversStatesUntilDone(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	body, _ := json.Marshal(launchRequest{OwnerID: "owner-1", RepoURL: "https://github.com/acme/widgets"})
	resp, err := http.Post(ts.URL+"/api/runs", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	var launched launchResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&launched))

	stream, err := http.Get(ts.URL + "/api/runs/" + launched.SimulationID + "/stream")
	require.NoError(t, err)
	defer stream.Body.Close()
	assert.Equal(t, "text/event-stream", stream.Header.Get("Content-Type"))

	var sawState, sawDone bool
	scanner := bufio.NewScanner(stream.Body)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "data: {") {
			sawState = true
		}
		if line == "event: done" {
			sawDone = true
			break
		}
	}
	assert.True(t, sawState, "never saw a state payload")
	assert.True(t, sawDone, "stream never finished")
}

func TestSessionLifecycleEndpoints(t *testing.T) {
	st := store.NewMemory()
	srv := newTestServer(t, st)

	snap := run.Snapshot{
		OwnerID:      "owner-1",
		SimulationID: "ABC123",
		RepoURL:      "https://github.com/acme/widgets",
		CreatedAt:    time.Now(),
		Run:          run.Run{SimulationID: "ABC123", Confidence: 100},
	}
	require.NoError(t, st.Save(context.Background(), snap))

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/owner-1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var snaps []run.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snaps))
	require.Len(t, snaps, 1)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/owner-1/ABC123", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/owner-1/ABC123", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions/owner-1/ABC123", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnknownRunIs404(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/ZZZZZZ", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreflightPreviewEndpoint(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())
	h := srv.Handler()

	body, _ := json.Marshal(preflightRequest{RepoURL: "https://github.com/acme/widgets"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/preflight", bytes.NewReader(body)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var status preflightStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "waiting", status.Phase)

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preflight", nil))
		var s preflightStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
			return false
		}
		return s.Phase == "ready" && s.Result != nil && len(s.Result.FileTree) == 2
	}, time.Second, 5*time.Millisecond, "preflight never became ready")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/preflight", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preflight", nil))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "idle", status.Phase)
}

func TestPreflightPreviewRejectsBadURL(t *testing.T) {
	srv := newTestServer(t, store.NewMemory())

	body, _ := json.Marshal(preflightRequest{RepoURL: "ftp://example.com/repo"})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/preflight", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
