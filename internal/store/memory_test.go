package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucasnoah/autodevops/internal/run"
)

func snapshotFixture(owner, sim string, at time.Time) run.Snapshot {
	return run.Snapshot{
		OwnerID:      owner,
		SimulationID: sim,
		RepoURL:      "https://github.com/acme/widgets",
		CreatedAt:    at,
		Run: run.Run{
			SimulationID: sim,
			RepoURL:      "https://github.com/acme/widgets",
			Branch:       "main",
			TechStack:    "Go (go test)",
			Confidence:   100,
			RiskLevel:    run.RiskLow,
			Memory:       []string{"audit found 2 issues"},
			Issues: []run.Issue{
				{Title: "nil deref in parser", Severity: run.SeverityCritical, Status: run.IssueResolved},
			},
		},
		Steps: run.InitialSteps(),
		Logs: []run.LogEntry{
			{Type: run.LogSystem, Message: "run complete"},
		},
	}
}

func TestMemorySaveLoadRoundTrip(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	snap := snapshotFixture("owner-1", "ABC123", time.Now())

	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx, "owner-1", "ABC123")
	require.NoError(t, err)
	assert.Equal(t, snap.Run, got.Run)
	assert.Equal(t, snap.Steps, got.Steps)
	assert.Equal(t, snap.Logs, got.Logs)
}

func TestMemorySaveSkipsUninitializedRuns(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, snapshotFixture("owner-1", "", time.Now())))
	require.NoError(t, s.Save(ctx, snapshotFixture("owner-1", "INIT", time.Now())))

	snaps, err := s.List(ctx, "owner-1")
	require.NoError(t, err)
	assert.Empty(t, snaps)
}

func TestMemoryListNewestFirst(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	base := time.Now()

	require.NoError(t, s.Save(ctx, snapshotFixture("owner-1", "OLD111", base.Add(-time.Hour))))
	require.NoError(t, s.Save(ctx, snapshotFixture("owner-1", "NEW222", base)))
	require.NoError(t, s.Save(ctx, snapshotFixture("owner-1", "MID333", base.Add(-time.Minute))))

	snaps, err := s.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, snaps, 3)
	assert.Equal(t, "NEW222", snaps[0].SimulationID)
	assert.Equal(t, "MID333", snaps[1].SimulationID)
	assert.Equal(t, "OLD111", snaps[2].SimulationID)
}

func TestMemoryDeleteIsScopedToOwner(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, snapshotFixture("owner-1", "ABC123", time.Now())))
	require.NoError(t, s.Save(ctx, snapshotFixture("owner-2", "ABC123", time.Now())))

	require.NoError(t, s.Delete(ctx, "owner-1", "ABC123"))

	_, err := s.Load(ctx, "owner-1", "ABC123")
	assert.ErrorIs(t, err, ErrNotFound)

	got, err := s.Load(ctx, "owner-2", "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "owner-2", got.OwnerID)
}

func TestMemoryDeleteMissingIsNoop(t *testing.T) {
	s := NewMemory()
	assert.NoError(t, s.Delete(context.Background(), "owner-1", "NOPE"))
}

func TestMemorySaveUpserts(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	snap := snapshotFixture("owner-1", "ABC123", time.Now())

	require.NoError(t, s.Save(ctx, snap))
	snap.Run.Confidence = 35
	require.NoError(t, s.Save(ctx, snap))

	snaps, err := s.List(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 35, snaps[0].Run.Confidence)
}

func TestMemoryLoadIsolatesFromLaterMutation(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	snap := snapshotFixture("owner-1", "ABC123", time.Now())
	require.NoError(t, s.Save(ctx, snap))

	got, err := s.Load(ctx, "owner-1", "ABC123")
	require.NoError(t, err)
	got.Run.Memory[0] = "mutated"
	got.Logs[0].Message = "mutated"

	again, err := s.Load(ctx, "owner-1", "ABC123")
	require.NoError(t, err)
	assert.Equal(t, "audit found 2 issues", again.Run.Memory[0])
	assert.Equal(t, "run complete", again.Logs[0].Message)
}
