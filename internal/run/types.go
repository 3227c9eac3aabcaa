// Package run defines the state of a single remediation run and the
// event set it is folded from. All mutation goes through Reduce; the
// orchestrator emits events and downstream consumers receive the
// folded state.
package run

import "time"

// StepStatus is the lifecycle state of a pipeline step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepSuccess StepStatus = "success"
	StepFailed  StepStatus = "failed"
)

// rank orders step statuses for the monotonic-transition invariant:
// pending -> running -> (success | failed), never backward.
func (s StepStatus) rank() int {
	switch s {
	case StepPending:
		return 0
	case StepRunning:
		return 1
	case StepSuccess, StepFailed:
		return 2
	default:
		return -1
	}
}

// Step is one entry in the fixed pipeline step list.
type Step struct {
	ID          string     `json:"id"`
	Label       string     `json:"label"`
	Status      StepStatus `json:"status"`
	Timestamp   string     `json:"timestamp,omitempty"`
	Description string     `json:"description,omitempty"`
}

// Step IDs, in pipeline order.
const (
	StepIngest   = "ingest"
	StepTest     = "test"
	StepDiagnose = "diagnose"
	StepFix      = "fix"
	StepVerify   = "verify"
	StepFinalize = "finalize"
)

// InitialSteps returns the fixed step list with every step pending.
func InitialSteps() []Step {
	return []Step{
		{ID: StepIngest, Label: "Repository Ingestion", Status: StepPending, Description: "Analyzing repository structure and dependencies."},
		{ID: StepTest, Label: "Test Execution", Status: StepPending, Description: "Running existing test suites to baseline system health."},
		{ID: StepDiagnose, Label: "Failure Diagnosis", Status: StepPending, Description: "Tracing errors and identifying root causes."},
		{ID: StepFix, Label: "Patch Generation", Status: StepPending, Description: "Synthesizing bug fixes based on diagnosed issues."},
		{ID: StepVerify, Label: "Verification Loop", Status: StepPending, Description: "Re-running tests to confirm fix stability."},
		{ID: StepFinalize, Label: "System Stabilization", Status: StepPending, Description: "Finalizing the codebase and generating report."},
	}
}

// LogType classifies a log entry.
type LogType string

const (
	LogSystem    LogType = "system"
	LogTest      LogType = "test"
	LogReasoning LogType = "reasoning"
	LogError     LogType = "error"
	LogAudit     LogType = "audit"
)

// LogEntry is one append-only log line. Ordering is insertion order.
type LogEntry struct {
	ID        string  `json:"id"`
	Type      LogType `json:"type"`
	Message   string  `json:"message"`
	Timestamp string  `json:"timestamp"`
}

// Severity grades an audited issue.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityMajor    Severity = "Major"
	SeverityMinor    Severity = "Minor"
)

// IssueStatus is the per-issue lifecycle within the stabilization loop.
type IssueStatus string

const (
	IssuePending  IssueStatus = "pending"
	IssueFixing   IssueStatus = "fixing"
	IssueResolved IssueStatus = "resolved"
)

// Issue is a single audited finding. Issues are processed strictly in
// list order, one at a time.
type Issue struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Severity    Severity    `json:"severity"`
	File        string      `json:"file"`
	Description string      `json:"description"`
	Status      IssueStatus `json:"status"`
}

// DiffLine is one line of a before/after patch rendering.
type DiffLine struct {
	Type       string `json:"type"` // "added", "removed", "neutral"
	Content    string `json:"content"`
	LineNumber int    `json:"lineNumber"`
}

// CodeFix is a proposed stabilization patch for one issue.
type CodeFix struct {
	FilePath             string     `json:"filePath"`
	Explanation          string     `json:"explanation"`
	RootCause            string     `json:"rootCause"`
	ImpactRadius         []string   `json:"impactRadius"`
	VerificationStrategy string     `json:"verificationStrategy"`
	Before               []DiffLine `json:"before"`
	After                []DiffLine `json:"after"`
}

// RiskLevel summarizes perceived run risk.
type RiskLevel string

const (
	RiskLow    RiskLevel = "Low"
	RiskMedium RiskLevel = "Medium"
	RiskHigh   RiskLevel = "High"
)

// Run is the aggregate root for one launch. SimulationID is assigned
// exactly once at launch; a Run without one is never persisted.
type Run struct {
	SimulationID     string    `json:"simulationId"`
	RepoURL          string    `json:"repoUrl"`
	Branch           string    `json:"branch"`
	TechStack        string    `json:"techStack,omitempty"`
	ThoughtSignature string    `json:"thoughtSignature"`
	Confidence       int       `json:"confidence"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	CurrentAttempt   int       `json:"currentAttempt"`
	MaxAttempts      int       `json:"maxAttempts"`
	Memory           []string  `json:"memory"`
	Issues           []Issue   `json:"issues"`
	GeneratedFix     *CodeFix  `json:"generatedFix,omitempty"`
	ReportSummary    string    `json:"reportSummary,omitempty"`
}

// State is the full in-memory view of a run: the aggregate plus its
// step list and log.
type State struct {
	Run   Run        `json:"run"`
	Steps []Step     `json:"steps"`
	Logs  []LogEntry `json:"logs"`
}

// Update is one emitted state snapshot. Consumers receive a value copy
// after every suspension point in the orchestrator.
type Update = State

// Snapshot is the durable form of a run, keyed by (ownerId, simulationId).
type Snapshot struct {
	OwnerID      string     `json:"ownerId"`
	SimulationID string     `json:"simulationId"`
	RepoURL      string     `json:"repoUrl"`
	CreatedAt    time.Time  `json:"createdAt"`
	Run          Run        `json:"agentRun"`
	Steps        []Step     `json:"steps"`
	Logs         []LogEntry `json:"logs"`
}

// Clone returns a deep copy of the state so emitted updates never
// alias orchestrator-owned slices.
func (s State) Clone() State {
	out := s
	out.Run.Memory = append([]string(nil), s.Run.Memory...)
	out.Run.Issues = append([]Issue(nil), s.Run.Issues...)
	if s.Run.GeneratedFix != nil {
		fix := *s.Run.GeneratedFix
		fix.ImpactRadius = append([]string(nil), fix.ImpactRadius...)
		fix.Before = append([]DiffLine(nil), fix.Before...)
		fix.After = append([]DiffLine(nil), fix.After...)
		out.Run.GeneratedFix = &fix
	}
	out.Steps = append([]Step(nil), s.Steps...)
	out.Logs = append([]LogEntry(nil), s.Logs...)
	return out
}
