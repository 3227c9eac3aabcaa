package preflight

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/reasoning"
)

// Result is everything a run needs from a repository before the
// first reasoning call.
type Result struct {
	RepoURL        string   `json:"repoUrl"`
	Branch         string   `json:"branch"`
	FileTree       []string `json:"fileTree"`
	ContextBlob    string   `json:"contextBlob"`
	PredictedStack string   `json:"predictedStack"`
	CloneSessionID string   `json:"cloneSessionId"`
}

// Options tunes context assembly.
type Options struct {
	MaxContextFiles int // priority files read into the context blob
	MaxFileChars    int // per-file truncation
	MaxBlobChars    int // total context blob safety cap
	TreeSample      int // file tree entries sent for stack prediction
}

// The blob cap is a safety net only; the working bound is per file,
// so the default leaves room for every context file at full size.
func (o Options) withDefaults() Options {
	if o.MaxContextFiles <= 0 {
		o.MaxContextFiles = 20
	}
	if o.MaxFileChars <= 0 {
		o.MaxFileChars = 4000
	}
	if o.MaxBlobChars <= 0 {
		o.MaxBlobChars = 2 * o.MaxContextFiles * o.MaxFileChars
	}
	if o.TreeSample <= 0 {
		o.TreeSample = 200
	}
	return o
}

// Preflighter clones a repository and assembles its run context.
type Preflighter struct {
	backend  Backend
	reasoner reasoning.Client
	opts     Options
	log      *zap.Logger
}

// New creates a Preflighter. reasoner may be nil, in which case the
// stack is predicted from file extensions alone.
func New(backend Backend, reasoner reasoning.Client, opts Options, log *zap.Logger) (*Preflighter, error) {
	if backend == nil {
		return nil, fmt.Errorf("clone backend is required")
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Preflighter{
		backend:  backend,
		reasoner: reasoner,
		opts:     opts.withDefaults(),
		log:      log,
	}, nil
}

// ValidateRepoURL checks that a repository URL is plausibly cloneable.
// Accepts http(s) URLs and scp-style git addresses.
func ValidateRepoURL(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fault.New(fault.Validation, "preflight.validate", "repository URL is required")
	}
	if strings.HasPrefix(raw, "git@") && strings.Contains(raw, ":") {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fault.New(fault.Validation, "preflight.validate", "invalid repository URL %q", raw)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fault.New(fault.Validation, "preflight.validate", "unsupported URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fault.New(fault.Validation, "preflight.validate", "repository URL %q has no host", raw)
	}
	return nil
}

// Run clones the repository, builds the context blob, and predicts
// the tech stack. The clone session stays open; the caller owns its
// cleanup.
func (p *Preflighter) Run(ctx context.Context, repoURL, branch string) (*Result, error) {
	if err := ValidateRepoURL(repoURL); err != nil {
		return nil, err
	}
	if branch == "" {
		branch = "main"
	}

	session, err := p.backend.Clone(ctx, repoURL, branch)
	if err != nil {
		return nil, err
	}

	tree, err := p.backend.ListFiles(ctx, session)
	if err != nil {
		_ = p.backend.Cleanup(ctx, session)
		return nil, err
	}
	sort.Strings(tree)

	blob := p.buildContext(ctx, session, tree)
	stack := p.predictStack(ctx, repoURL, tree)

	p.log.Info("preflight complete",
		zap.String("repo", repoURL),
		zap.String("branch", branch),
		zap.Int("files", len(tree)),
		zap.String("stack", stack))

	return &Result{
		RepoURL:        repoURL,
		Branch:         branch,
		FileTree:       tree,
		ContextBlob:    blob,
		PredictedStack: stack,
		CloneSessionID: session,
	}, nil
}

// priorityPatterns ranks files for inclusion in the context blob.
// Earlier groups win; manifests first, docs and entrypoints after.
var priorityPatterns = [][]string{
	{"go.mod", "package.json", "requirements.txt", "pyproject.toml", "cargo.toml", "pom.xml", "build.gradle", "gemfile", "composer.json"},
	{"go.sum", "package-lock.json", "yarn.lock", "poetry.lock", "cargo.lock"},
	{"readme"},
	{"dockerfile", "docker-compose", "makefile"},
	{"main.", "index.", "app.", "server.", "cmd/"},
}

func (p *Preflighter) selectContextFiles(tree []string) []string {
	selected := make([]string, 0, p.opts.MaxContextFiles)
	seen := make(map[string]bool)

	for _, group := range priorityPatterns {
		for _, path := range tree {
			if len(selected) >= p.opts.MaxContextFiles {
				return selected
			}
			if seen[path] {
				continue
			}
			lower := strings.ToLower(path)
			for _, pat := range group {
				if strings.Contains(lower, pat) {
					selected = append(selected, path)
					seen[path] = true
					break
				}
			}
		}
	}
	return selected
}

// buildContext concatenates priority files into one annotated blob.
// Unreadable files are skipped; a partial context is better than none.
func (p *Preflighter) buildContext(ctx context.Context, session string, tree []string) string {
	var b strings.Builder
	for _, path := range p.selectContextFiles(tree) {
		if b.Len() >= p.opts.MaxBlobChars {
			break
		}
		data, err := p.backend.ReadFile(ctx, session, path)
		if err != nil {
			p.log.Debug("context file unreadable", zap.String("path", path), zap.Error(err))
			continue
		}
		content := string(data)
		if len(content) > p.opts.MaxFileChars {
			content = content[:p.opts.MaxFileChars]
		}
		fmt.Fprintf(&b, "// FILE: %s\n%s\n\n", path, content)
	}
	blob := b.String()
	if len(blob) > p.opts.MaxBlobChars {
		blob = blob[:p.opts.MaxBlobChars]
	}
	return blob
}

func (p *Preflighter) predictStack(ctx context.Context, repoURL string, tree []string) string {
	fallback := DetectStack(tree)
	if p.reasoner == nil {
		return fallback
	}

	sample := tree
	if len(sample) > p.opts.TreeSample {
		sample = sample[:p.opts.TreeSample]
	}
	prediction, err := p.reasoner.PredictStack(ctx, repoURL, sample)
	if err != nil {
		p.log.Warn("stack prediction failed, using extension heuristic", zap.Error(err))
		return fallback
	}
	if prediction.Framework != "" {
		return fmt.Sprintf("%s (%s)", prediction.Language, prediction.Framework)
	}
	return prediction.Language
}
