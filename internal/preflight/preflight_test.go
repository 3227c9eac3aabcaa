package preflight

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/reasoning"
	"github.com/lucasnoah/autodevops/internal/run"
)

// fakeBackend serves an in-memory file set.
type fakeBackend struct {
	files      map[string]string
	cloneErr   error
	cleanedUp  []string
	cloneCount int
}

func (f *fakeBackend) Clone(ctx context.Context, repoURL, branch string) (string, error) {
	if f.cloneErr != nil {
		return "", f.cloneErr
	}
	f.cloneCount++
	return "session-1", nil
}

func (f *fakeBackend) ListFiles(ctx context.Context, session string) ([]string, error) {
	paths := make([]string, 0, len(f.files))
	for p := range f.files {
		paths = append(paths, p)
	}
	return paths, nil
}

func (f *fakeBackend) ReadFile(ctx context.Context, session, path string) ([]byte, error) {
	content, ok := f.files[path]
	if !ok {
		return nil, fault.New(fault.Network, "fake.read", "no such file %s", path)
	}
	return []byte(content), nil
}

func (f *fakeBackend) Cleanup(ctx context.Context, session string) error {
	f.cleanedUp = append(f.cleanedUp, session)
	return nil
}

// stackOnlyReasoner answers PredictStack and nothing else.
type stackOnlyReasoner struct {
	prediction reasoning.StackPrediction
	err        error
}

func (s *stackOnlyReasoner) Reason(ctx context.Context, signature, context_ string) (string, error) {
	return "", nil
}

func (s *stackOnlyReasoner) PredictStack(ctx context.Context, repoURL string, treeSample []string) (reasoning.StackPrediction, error) {
	return s.prediction, s.err
}

func (s *stackOnlyReasoner) Audit(ctx context.Context, signature, repoURL, branch string, fileTree []string, contextBlob string) (reasoning.AuditResult, error) {
	return reasoning.AuditResult{}, nil
}

func (s *stackOnlyReasoner) ProposeFix(ctx context.Context, signature string, issue run.Issue, contextBlob string) (run.CodeFix, error) {
	return run.CodeFix{}, nil
}

func (s *stackOnlyReasoner) Summarize(ctx context.Context, signature string, r run.Run) (string, error) {
	return "", nil
}

func TestValidateRepoURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"https", "https://github.com/acme/widgets", false},
		{"http", "http://gitea.local/acme/widgets", false},
		{"scp style", "git@github.com:acme/widgets.git", false},
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"bad scheme", "ftp://example.com/repo", true},
		{"no host", "https:///repo", true},
		{"garbage", "not a url at all", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRepoURL(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, fault.IsKind(err, fault.Validation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRunBuildsContextFromPriorityFiles(t *testing.T) {
	backend := &fakeBackend{files: map[string]string{
		"go.mod":           "module example.com/demo\n",
		"README.md":        "# Demo\n",
		"internal/util.go": "package internal\n",
		"main.go":          "package main\n",
	}}
	pf, err := New(backend, nil, Options{}, nil)
	require.NoError(t, err)

	result, err := pf.Run(context.Background(), "https://github.com/acme/demo", "")
	require.NoError(t, err)

	assert.Equal(t, "main", result.Branch)
	assert.Equal(t, "session-1", result.CloneSessionID)
	assert.Len(t, result.FileTree, 4)
	assert.Contains(t, result.ContextBlob, "// FILE: go.mod")
	assert.Contains(t, result.ContextBlob, "// FILE: README.md")
	assert.Contains(t, result.ContextBlob, "module example.com/demo")
	// Manifest outranks docs and entrypoints.
	assert.Less(t,
		strings.Index(result.ContextBlob, "// FILE: go.mod"),
		strings.Index(result.ContextBlob, "// FILE: README.md"))
}

func TestRunCapsContextBlob(t *testing.T) {
	backend := &fakeBackend{files: map[string]string{
		"package.json": strings.Repeat("x", 10000),
		"README.md":    strings.Repeat("y", 10000),
	}}
	pf, err := New(backend, nil, Options{MaxFileChars: 100, MaxBlobChars: 150}, nil)
	require.NoError(t, err)

	result, err := pf.Run(context.Background(), "https://github.com/acme/demo", "main")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.ContextBlob), 150)
}

func TestDefaultCapsKeepFullSizedContextFiles(t *testing.T) {
	opts := Options{}.withDefaults()
	assert.Equal(t, 4000, opts.MaxFileChars)
	assert.GreaterOrEqual(t, opts.MaxBlobChars, opts.MaxContextFiles*opts.MaxFileChars,
		"blob cap must not undercut the per-file budget")

	// Two files near the per-file cap both land in the blob untruncated.
	backend := &fakeBackend{files: map[string]string{
		"package.json": strings.Repeat("x", 3500),
		"README.md":    strings.Repeat("y", 3500),
	}}
	pf, err := New(backend, nil, Options{}, nil)
	require.NoError(t, err)

	result, err := pf.Run(context.Background(), "https://github.com/acme/demo", "main")
	require.NoError(t, err)
	assert.Contains(t, result.ContextBlob, strings.Repeat("x", 3500))
	assert.Contains(t, result.ContextBlob, strings.Repeat("y", 3500))
}

func TestRunInvalidURLIsValidationFault(t *testing.T) {
	backend := &fakeBackend{files: map[string]string{}}
	pf, err := New(backend, nil, Options{}, nil)
	require.NoError(t, err)

	_, err = pf.Run(context.Background(), "ftp://nope", "main")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Validation))
	assert.Zero(t, backend.cloneCount, "clone must not run for an invalid URL")
}

func TestRunCloneFailurePropagates(t *testing.T) {
	backend := &fakeBackend{
		cloneErr: fault.New(fault.Network, "fake.clone", "service down"),
	}
	pf, err := New(backend, nil, Options{}, nil)
	require.NoError(t, err)

	_, err = pf.Run(context.Background(), "https://github.com/acme/demo", "main")
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.Network))
}

func TestPredictStackUsesReasoner(t *testing.T) {
	backend := &fakeBackend{files: map[string]string{"main.py": "print('hi')\n"}}
	reasoner := &stackOnlyReasoner{
		prediction: reasoning.StackPrediction{Language: "Python", Framework: "Django", Confidence: 0.9},
	}
	pf, err := New(backend, reasoner, Options{}, nil)
	require.NoError(t, err)

	result, err := pf.Run(context.Background(), "https://github.com/acme/demo", "main")
	require.NoError(t, err)
	assert.Equal(t, "Python (Django)", result.PredictedStack)
}

func TestPredictStackFallsBackToHeuristic(t *testing.T) {
	backend := &fakeBackend{files: map[string]string{
		"app.py":  "",
		"util.py": "",
		"note.md": "",
	}}
	reasoner := &stackOnlyReasoner{
		err: fault.New(fault.Network, "fake.predict", "engine unavailable"),
	}
	pf, err := New(backend, reasoner, Options{}, nil)
	require.NoError(t, err)

	result, err := pf.Run(context.Background(), "https://github.com/acme/demo", "main")
	require.NoError(t, err)
	assert.Equal(t, "Python (Pytest)", result.PredictedStack)
}

func TestDetectStack(t *testing.T) {
	tests := []struct {
		name string
		tree []string
		want string
	}{
		{"python", []string{"a.py", "b.py", "c.md"}, "Python (Pytest)"},
		{"typescript", []string{"src/a.ts", "src/b.tsx", "x.py"}, "TypeScript (Jest)"},
		{"go", []string{"main.go", "x_test.go"}, "Go (go test)"},
		{"nothing", []string{"data.csv", "notes.txt"}, "Unknown Stack"},
		{"empty", nil, "Unknown Stack"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectStack(tt.tree))
		})
	}
}
