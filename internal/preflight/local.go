package preflight

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/lucasnoah/autodevops/internal/fault"
)

// GitRunner provides git commands. Interface for testing.
type GitRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// ExecGit implements GitRunner using exec.CommandContext.
type ExecGit struct{}

func (g *ExecGit) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return strings.TrimSpace(string(out)), fmt.Errorf("git %s: %s: %w", strings.Join(args, " "), strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// LocalClone is a Backend that shallow-clones repositories into
// temporary directories on this host.
type LocalClone struct {
	git     GitRunner
	baseDir string

	mu       sync.Mutex
	sessions map[string]string // session id -> clone dir
}

// NewLocalClone creates a local backend. baseDir may be empty, in
// which case the system temp directory is used.
func NewLocalClone(git GitRunner, baseDir string) *LocalClone {
	if git == nil {
		git = &ExecGit{}
	}
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	return &LocalClone{
		git:      git,
		baseDir:  baseDir,
		sessions: make(map[string]string),
	}
}

// Clone shallow-clones one branch of the repository into a fresh
// directory and registers it under a new session id.
func (l *LocalClone) Clone(ctx context.Context, repoURL, branch string) (string, error) {
	dir, err := os.MkdirTemp(l.baseDir, "autodevops-clone-")
	if err != nil {
		return "", fault.Wrap(fault.Network, "preflight.local_clone", err)
	}

	args := []string{"clone", "--depth", "1", "--single-branch"}
	if branch != "" {
		args = append(args, "--branch", branch)
	}
	args = append(args, repoURL, dir)

	if _, err := l.git.Run(ctx, "", args...); err != nil {
		os.RemoveAll(dir)
		return "", fault.Wrap(fault.Network, "preflight.local_clone", err)
	}

	session := uuid.NewString()
	l.mu.Lock()
	l.sessions[session] = dir
	l.mu.Unlock()
	return session, nil
}

// ListFiles walks the clone and returns relative paths of regular
// files, skipping the .git directory.
func (l *LocalClone) ListFiles(ctx context.Context, session string) ([]string, error) {
	dir, err := l.dirFor(session)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		paths = append(paths, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fault.Wrap(fault.Network, "preflight.local_list", err)
	}
	return paths, nil
}

// ReadFile reads one file from the clone. Paths that escape the clone
// directory are rejected.
func (l *LocalClone) ReadFile(ctx context.Context, session, path string) ([]byte, error) {
	dir, err := l.dirFor(session)
	if err != nil {
		return nil, err
	}

	full := filepath.Join(dir, filepath.FromSlash(path))
	rel, err := filepath.Rel(dir, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fault.New(fault.Validation, "preflight.local_read", "path %q escapes clone root", path)
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fault.Wrap(fault.Network, "preflight.local_read", err)
	}
	return data, nil
}

// Cleanup removes the clone directory and forgets the session.
func (l *LocalClone) Cleanup(ctx context.Context, session string) error {
	l.mu.Lock()
	dir, ok := l.sessions[session]
	delete(l.sessions, session)
	l.mu.Unlock()
	if !ok {
		return nil
	}
	if err := os.RemoveAll(dir); err != nil {
		return fault.Wrap(fault.Network, "preflight.local_cleanup", err)
	}
	return nil
}

func (l *LocalClone) dirFor(session string) (string, error) {
	l.mu.Lock()
	dir, ok := l.sessions[session]
	l.mu.Unlock()
	if !ok {
		return "", fault.New(fault.Validation, "preflight.local", "unknown clone session %q", session)
	}
	return dir, nil
}
