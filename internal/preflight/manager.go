package preflight

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Phase is the manager's externally visible state.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseWaiting Phase = "waiting"
	PhaseRunning Phase = "running"
	PhaseReady   Phase = "ready"
	PhaseFailed  Phase = "failed"
)

// Status is a point-in-time view of the manager.
type Status struct {
	Phase   Phase
	RepoURL string
	Branch  string
	Result  *Result
	Err     error
}

// Manager debounces preflight requests. A new request during the
// quiet period or while a preflight is in flight supersedes the old
// one: its work is cancelled, its clone session cleaned up, and its
// result discarded. Only the latest request can ever become ready.
type Manager struct {
	pf          *Preflighter
	backend     Backend
	quietPeriod time.Duration
	log         *zap.Logger

	mu     sync.Mutex
	gen    uint64
	status Status
	timer  *time.Timer
	cancel context.CancelFunc
	notify chan Status
}

// NewManager creates a Manager. quietPeriod defaults to 800ms.
func NewManager(pf *Preflighter, quietPeriod time.Duration, log *zap.Logger) *Manager {
	if quietPeriod <= 0 {
		quietPeriod = 800 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		pf:          pf,
		backend:     pf.backend,
		quietPeriod: quietPeriod,
		log:         log,
		status:      Status{Phase: PhaseIdle},
		notify:      make(chan Status, 16),
	}
}

// Updates delivers status changes. Best effort; slow consumers miss
// intermediate states but the final one can always be read via Status.
func (m *Manager) Updates() <-chan Status {
	return m.notify
}

// Status returns the current state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Request schedules a preflight for repoURL/branch after the quiet
// period, superseding any pending or running preflight.
func (m *Manager) Request(repoURL, branch string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	gen := m.gen

	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	m.setStatusLocked(Status{Phase: PhaseWaiting, RepoURL: repoURL, Branch: branch})
	m.timer = time.AfterFunc(m.quietPeriod, func() {
		m.fire(gen, repoURL, branch)
	})
}

// Cancel abandons any pending or running preflight.
func (m *Manager) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.setStatusLocked(Status{Phase: PhaseIdle})
}

func (m *Manager) fire(gen uint64, repoURL, branch string) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.setStatusLocked(Status{Phase: PhaseRunning, RepoURL: repoURL, Branch: branch})
	m.mu.Unlock()

	result, err := m.pf.Run(ctx, repoURL, branch)

	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		// Superseded mid-flight. The result belongs to a request the
		// caller no longer cares about; release its clone.
		if result != nil {
			go func() {
				_ = m.backend.Cleanup(context.Background(), result.CloneSessionID)
			}()
		}
		return
	}
	m.cancel = nil

	if err != nil {
		m.log.Warn("preflight failed", zap.String("repo", repoURL), zap.Error(err))
		m.setStatusLocked(Status{Phase: PhaseFailed, RepoURL: repoURL, Branch: branch, Err: err})
		return
	}
	m.setStatusLocked(Status{Phase: PhaseReady, RepoURL: repoURL, Branch: branch, Result: result})
}

func (m *Manager) setStatusLocked(s Status) {
	m.status = s
	select {
	case m.notify <- s:
	default:
	}
}
