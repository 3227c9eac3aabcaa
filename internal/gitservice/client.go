// Package gitservice is the HTTP client for the remote cloning
// microservice: clone a repository into a server-side session, list
// and read its files, and release the session when done.
package gitservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lucasnoah/autodevops/internal/fault"
)

// Client talks to one cloning microservice instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the service at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("git service URL is required")
	}
	if timeout <= 0 {
		timeout = 3 * time.Minute // clone of a cold repo can be slow
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type cloneRequest struct {
	RepoURL string `json:"repo_url"`
	Branch  string `json:"branch"`
}

type cloneResponse struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	Message   string `json:"message"`
}

type fileInfo struct {
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	IsDir bool   `json:"is_dir"`
}

type filesResponse struct {
	SessionID string     `json:"session_id"`
	Files     []fileInfo `json:"files"`
}

// Clone requests a shallow single-branch clone and returns the session id.
func (c *Client) Clone(ctx context.Context, repoURL, branch string) (string, error) {
	body, err := json.Marshal(cloneRequest{RepoURL: repoURL, Branch: branch})
	if err != nil {
		return "", fault.Wrap(fault.Network, "gitservice.clone", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/clone", bytes.NewReader(body))
	if err != nil {
		return "", fault.Wrap(fault.Network, "gitservice.clone", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fault.Wrap(fault.Network, "gitservice.clone", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fault.New(fault.Network, "gitservice.clone", "http status %d: %s", resp.StatusCode, readDetail(resp.Body))
	}

	var decoded cloneResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fault.Wrap(fault.Network, "gitservice.clone", err)
	}
	if decoded.SessionID == "" {
		return "", fault.New(fault.Network, "gitservice.clone", "service returned no session id")
	}
	return decoded.SessionID, nil
}

// ListFiles returns the relative paths of all regular files in the
// session, directories and version-control metadata excluded.
func (c *Client) ListFiles(ctx context.Context, session string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+url.PathEscape(session), nil)
	if err != nil {
		return nil, fault.Wrap(fault.Network, "gitservice.list_files", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.Network, "gitservice.list_files", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.New(fault.Network, "gitservice.list_files", "http status %d: %s", resp.StatusCode, readDetail(resp.Body))
	}

	var decoded filesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fault.Wrap(fault.Network, "gitservice.list_files", err)
	}

	paths := make([]string, 0, len(decoded.Files))
	for _, f := range decoded.Files {
		if f.IsDir {
			continue
		}
		if f.Path == ".git" || strings.HasPrefix(f.Path, ".git/") {
			continue
		}
		paths = append(paths, f.Path)
	}
	return paths, nil
}

// ReadFile fetches one file's raw content from the session.
func (c *Client) ReadFile(ctx context.Context, session, path string) ([]byte, error) {
	escaped := url.PathEscape(session) + "/" + escapePath(path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/files/"+escaped, nil)
	if err != nil {
		return nil, fault.Wrap(fault.Network, "gitservice.read_file", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fault.Wrap(fault.Network, "gitservice.read_file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.New(fault.Network, "gitservice.read_file", "http status %d for %s", resp.StatusCode, path)
	}
	return io.ReadAll(resp.Body)
}

// Cleanup releases the session's server-side clone.
func (c *Client) Cleanup(ctx context.Context, session string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/cleanup/"+url.PathEscape(session), nil)
	if err != nil {
		return fault.Wrap(fault.Network, "gitservice.cleanup", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(fault.Network, "gitservice.cleanup", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fault.New(fault.Network, "gitservice.cleanup", "http status %d: %s", resp.StatusCode, readDetail(resp.Body))
	}
	return nil
}

// Health checks the service's health endpoint.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fault.Wrap(fault.Network, "gitservice.health", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(fault.Network, "gitservice.health", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fault.New(fault.Network, "gitservice.health", "http status %d", resp.StatusCode)
	}
	return nil
}

// escapePath escapes each path segment but keeps slashes.
func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

func readDetail(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, 512))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
