package run

// Event is one element of the closed event set the run state is folded
// from. The set is deliberately small: the orchestrator is the only
// producer and Reduce is the only consumer.
type Event interface {
	isEvent()
}

// Initialized starts a fresh run: ids minted, steps reset to pending,
// logs and issues cleared, confidence at the launch baseline.
type Initialized struct {
	SimulationID     string
	RepoURL          string
	Branch           string
	ThoughtSignature string
	MaxAttempts      int
	Confidence       int
	Memory           []string
}

// LogAppended appends one log entry.
type LogAppended struct {
	Entry LogEntry
}

// StepStatusSet moves a step to a new status. Backward transitions are
// ignored by Reduce, which keeps step progress monotonic.
type StepStatusSet struct {
	StepID string
	Status StepStatus
	At     string
}

// AuditRecorded stores the audit outcome: detected stack, issue list,
// and post-audit confidence.
type AuditRecorded struct {
	TechStack  string
	Issues     []Issue
	Confidence int
}

// IssueStatusSet moves one issue to a new status.
type IssueStatusSet struct {
	Index  int
	Status IssueStatus
}

// FixRecorded resolves one issue: stores the returned fix as the run's
// generated fix and raises confidence.
type FixRecorded struct {
	Index      int
	Fix        CodeFix
	Confidence int
}

// Verified marks the verification outcome.
type Verified struct {
	Confidence int
	Risk       RiskLevel
}

// ReportRecorded stores the final report summary.
type ReportRecorded struct {
	Summary string
}

// MemoryNoted appends one context note to run memory.
type MemoryNoted struct {
	Note string
}

// RunFailed terminates the run: confidence to zero, risk to High.
type RunFailed struct{}

func (Initialized) isEvent()    {}
func (LogAppended) isEvent()    {}
func (StepStatusSet) isEvent()  {}
func (AuditRecorded) isEvent()  {}
func (IssueStatusSet) isEvent() {}
func (FixRecorded) isEvent()    {}
func (Verified) isEvent()       {}
func (ReportRecorded) isEvent() {}
func (MemoryNoted) isEvent()    {}
func (RunFailed) isEvent()      {}

// Reduce folds one event into the state and returns the new state.
// It never mutates its input; slices are copied before modification.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case Initialized:
		return State{
			Run: Run{
				SimulationID:     e.SimulationID,
				RepoURL:          e.RepoURL,
				Branch:           e.Branch,
				ThoughtSignature: e.ThoughtSignature,
				Confidence:       e.Confidence,
				RiskLevel:        RiskLow,
				CurrentAttempt:   1,
				MaxAttempts:      e.MaxAttempts,
				Memory:           append([]string(nil), e.Memory...),
				Issues:           []Issue{},
			},
			Steps: InitialSteps(),
			Logs:  []LogEntry{},
		}

	case LogAppended:
		out := s
		out.Logs = append(append([]LogEntry(nil), s.Logs...), e.Entry)
		return out

	case StepStatusSet:
		out := s
		out.Steps = append([]Step(nil), s.Steps...)
		for i := range out.Steps {
			if out.Steps[i].ID != e.StepID {
				continue
			}
			if e.Status.rank() <= out.Steps[i].Status.rank() {
				break // monotonic: never move a step backward
			}
			out.Steps[i].Status = e.Status
			if e.Status == StepRunning || e.Status == StepSuccess {
				out.Steps[i].Timestamp = e.At
			}
			break
		}
		return out

	case AuditRecorded:
		out := s
		out.Run.TechStack = e.TechStack
		out.Run.Issues = append([]Issue(nil), e.Issues...)
		out.Run.Confidence = e.Confidence
		return out

	case IssueStatusSet:
		out := s
		if e.Index < 0 || e.Index >= len(s.Run.Issues) {
			return s
		}
		out.Run.Issues = append([]Issue(nil), s.Run.Issues...)
		out.Run.Issues[e.Index].Status = e.Status
		return out

	case FixRecorded:
		out := s
		if e.Index < 0 || e.Index >= len(s.Run.Issues) {
			return s
		}
		out.Run.Issues = append([]Issue(nil), s.Run.Issues...)
		out.Run.Issues[e.Index].Status = IssueResolved
		fix := e.Fix
		out.Run.GeneratedFix = &fix
		out.Run.Confidence = e.Confidence
		return out

	case Verified:
		out := s
		out.Run.Confidence = e.Confidence
		out.Run.RiskLevel = e.Risk
		return out

	case ReportRecorded:
		out := s
		out.Run.ReportSummary = e.Summary
		return out

	case MemoryNoted:
		out := s
		out.Run.Memory = append(append([]string(nil), s.Run.Memory...), e.Note)
		return out

	case RunFailed:
		out := s
		out.Run.Confidence = 0
		out.Run.RiskLevel = RiskHigh
		return out
	}
	return s
}
