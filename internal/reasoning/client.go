// Package reasoning wraps calls to the external reasoning service
// behind a typed client. Responses are decoded and validated once at
// this boundary; schema violations surface as MalformedResponse faults
// instead of flowing into run state.
package reasoning

import (
	"context"

	"github.com/lucasnoah/autodevops/internal/run"
)

// StackPrediction is the engine's guess at a repository's technology.
type StackPrediction struct {
	Language   string  `json:"language"`
	Framework  string  `json:"framework"`
	Confidence float64 `json:"confidence"`
}

// AuditResult is the outcome of a codebase audit.
type AuditResult struct {
	TechStack string      `json:"techStack"`
	Issues    []run.Issue `json:"issues"`
}

// Client is the contract with the reasoning engine. Every run-scoped
// operation takes the run's thought signature so the engine can treat
// the calls as one coherent session.
type Client interface {
	// Reason produces a short reasoning-log entry for the given context.
	Reason(ctx context.Context, signature, context_ string) (string, error)

	// PredictStack guesses language/framework from a file-tree sample.
	PredictStack(ctx context.Context, repoURL string, treeSample []string) (StackPrediction, error)

	// Audit scans the ingested repository and returns detected issues.
	Audit(ctx context.Context, signature, repoURL, branch string, fileTree []string, contextBlob string) (AuditResult, error)

	// ProposeFix generates a stabilization patch for one issue.
	ProposeFix(ctx context.Context, signature string, issue run.Issue, contextBlob string) (run.CodeFix, error)

	// Summarize produces the final report text for a finished run.
	Summarize(ctx context.Context, signature string, r run.Run) (string, error)
}
