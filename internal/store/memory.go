package store

import (
	"context"
	"sort"
	"sync"

	"github.com/lucasnoah/autodevops/internal/run"
)

// Memory is an in-process Store for tests and for running without a
// database.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]map[string]run.Snapshot // owner -> simulation -> snapshot
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]map[string]run.Snapshot)}
}

func (m *Memory) Save(ctx context.Context, snap run.Snapshot) error {
	if !savable(snap) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	owner := m.snaps[snap.OwnerID]
	if owner == nil {
		owner = make(map[string]run.Snapshot)
		m.snaps[snap.OwnerID] = owner
	}
	owner[snap.SimulationID] = cloneSnapshot(snap)
	return nil
}

func (m *Memory) List(ctx context.Context, ownerID string) ([]run.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner := m.snaps[ownerID]
	out := make([]run.Snapshot, 0, len(owner))
	for _, snap := range owner {
		out = append(out, cloneSnapshot(snap))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *Memory) Load(ctx context.Context, ownerID, simulationID string) (run.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[ownerID][simulationID]
	if !ok {
		return run.Snapshot{}, ErrNotFound
	}
	return cloneSnapshot(snap), nil
}

func (m *Memory) Delete(ctx context.Context, ownerID, simulationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps[ownerID], simulationID)
	return nil
}

// cloneSnapshot deep-copies a snapshot so callers cannot alias the
// store's internal state.
func cloneSnapshot(snap run.Snapshot) run.Snapshot {
	state := run.State{Run: snap.Run, Steps: snap.Steps, Logs: snap.Logs}
	clone := state.Clone()
	snap.Run = clone.Run
	snap.Steps = clone.Steps
	snap.Logs = clone.Logs
	return snap
}
