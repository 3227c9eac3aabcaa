package reasoning

import (
	"encoding/json"
	"strings"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/run"
)

// stripFences removes a markdown code fence if the engine wrapped its
// JSON in one, which the generateContent API does routinely.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func decodeStackPrediction(raw string) (StackPrediction, error) {
	var p StackPrediction
	if err := json.Unmarshal([]byte(stripFences(raw)), &p); err != nil {
		return StackPrediction{}, fault.Wrap(fault.MalformedResponse, "reasoning.predict_stack", err)
	}
	if strings.TrimSpace(p.Language) == "" {
		return StackPrediction{}, fault.New(fault.MalformedResponse, "reasoning.predict_stack", "missing language field")
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		return StackPrediction{}, fault.New(fault.MalformedResponse, "reasoning.predict_stack", "confidence %v out of range", p.Confidence)
	}
	return p, nil
}

var validSeverities = map[run.Severity]bool{
	run.SeverityCritical: true,
	run.SeverityMajor:    true,
	run.SeverityMinor:    true,
}

func decodeAuditResult(raw string) (AuditResult, error) {
	var res AuditResult
	if err := json.Unmarshal([]byte(stripFences(raw)), &res); err != nil {
		return AuditResult{}, fault.Wrap(fault.MalformedResponse, "reasoning.audit", err)
	}
	for i := range res.Issues {
		issue := &res.Issues[i]
		if strings.TrimSpace(issue.Title) == "" {
			return AuditResult{}, fault.New(fault.MalformedResponse, "reasoning.audit", "issue %d has no title", i)
		}
		if !validSeverities[issue.Severity] {
			return AuditResult{}, fault.New(fault.MalformedResponse, "reasoning.audit", "issue %d has invalid severity %q", i, issue.Severity)
		}
		// The engine does not own issue lifecycle; incoming status is
		// always coerced to pending.
		issue.Status = run.IssuePending
	}
	if res.Issues == nil {
		res.Issues = []run.Issue{}
	}
	return res, nil
}

var validDiffLineTypes = map[string]bool{
	"added":   true,
	"removed": true,
	"neutral": true,
}

func decodeCodeFix(raw string) (run.CodeFix, error) {
	var fix run.CodeFix
	if err := json.Unmarshal([]byte(stripFences(raw)), &fix); err != nil {
		return run.CodeFix{}, fault.Wrap(fault.MalformedResponse, "reasoning.propose_fix", err)
	}
	if strings.TrimSpace(fix.FilePath) == "" {
		return run.CodeFix{}, fault.New(fault.MalformedResponse, "reasoning.propose_fix", "missing filePath")
	}
	if strings.TrimSpace(fix.RootCause) == "" {
		return run.CodeFix{}, fault.New(fault.MalformedResponse, "reasoning.propose_fix", "missing rootCause")
	}
	for _, line := range fix.Before {
		if !validDiffLineTypes[line.Type] {
			return run.CodeFix{}, fault.New(fault.MalformedResponse, "reasoning.propose_fix", "invalid diff line type %q", line.Type)
		}
	}
	for _, line := range fix.After {
		if !validDiffLineTypes[line.Type] {
			return run.CodeFix{}, fault.New(fault.MalformedResponse, "reasoning.propose_fix", "invalid diff line type %q", line.Type)
		}
	}
	if fix.ImpactRadius == nil {
		fix.ImpactRadius = []string{}
	}
	return fix, nil
}
