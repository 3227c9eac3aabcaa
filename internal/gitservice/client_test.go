package gitservice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/autodevops/internal/fault"
)

func newTestService(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	// Method-prefixed ServeMux patterns ("POST /clone") need Go 1.22;
	// with a 1.21 toolchain the method is checked by hand instead.
	requireMethod := func(method string, h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Method != method {
				http.NotFound(w, r)
				return
			}
			h(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/clone", requireMethod(http.MethodPost, func(w http.ResponseWriter, r *http.Request) {
		var req cloneRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if req.RepoURL == "" {
			http.Error(w, "repo_url required", http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(cloneResponse{SessionID: "sess-123", Status: "ok"})
	}))
	mux.HandleFunc("/files/sess-123", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(filesResponse{
			SessionID: "sess-123",
			Files: []fileInfo{
				{Path: "go.mod", Size: 120},
				{Path: "internal", IsDir: true},
				{Path: ".git/config", Size: 40},
				{Path: "internal/app/main.go", Size: 900},
			},
		})
	}))
	mux.HandleFunc("/files/sess-123/go.mod", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("module example.com/demo\n"))
	}))
	mux.HandleFunc("/cleanup/sess-123", requireMethod(http.MethodDelete, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("/health", requireMethod(http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, 5*time.Second)
	require.NoError(t, err)
	return srv, client
}

func TestNewClientRequiresURL(t *testing.T) {
	_, err := NewClient("  ", 0)
	assert.Error(t, err)
}

func TestCloneReturnsSessionID(t *testing.T) {
	_, client := newTestService(t)

	session, err := client.Clone(context.Background(), "https://github.com/acme/widgets", "main")
	require.NoError(t, err)
	assert.Equal(t, "sess-123", session)
}

func TestCloneServerErrorIsNetworkFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client, err := NewClient(srv.URL, time.Second)
	require.NoError(t, err)

	_, err = client.Clone(context.Background(), "https://github.com/acme/widgets", "main")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Network))
}

func TestCloneUnreachableServiceIsNetworkFault(t *testing.T) {
	client, err := NewClient("http://127.0.0.1:1", 500*time.Millisecond)
	require.NoError(t, err)

	_, err = client.Clone(context.Background(), "https://github.com/acme/widgets", "main")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Network))
}

func TestListFilesSkipsDirsAndGitMetadata(t *testing.T) {
	_, client := newTestService(t)

	paths, err := client.ListFiles(context.Background(), "sess-123")
	require.NoError(t, err)
	assert.Equal(t, []string{"go.mod", "internal/app/main.go"}, paths)
}

func TestReadFile(t *testing.T) {
	_, client := newTestService(t)

	data, err := client.ReadFile(context.Background(), "sess-123", "go.mod")
	require.NoError(t, err)
	assert.Contains(t, string(data), "module example.com/demo")
}

func TestReadFileMissingIsNetworkFault(t *testing.T) {
	_, client := newTestService(t)

	_, err := client.ReadFile(context.Background(), "sess-123", "nope.txt")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Network))
}

func TestCleanupAndHealth(t *testing.T) {
	_, client := newTestService(t)

	assert.NoError(t, client.Cleanup(context.Background(), "sess-123"))
	assert.NoError(t, client.Health(context.Background()))
}
