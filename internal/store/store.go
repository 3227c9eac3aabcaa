// Package store persists run snapshots per owner so sessions survive
// restarts and can be resumed or reviewed later.
package store

import (
	"context"
	"errors"

	"github.com/lucasnoah/autodevops/internal/run"
)

// ErrNotFound is returned when no snapshot exists for the requested
// owner and simulation id.
var ErrNotFound = errors.New("snapshot not found")

// Store saves and loads run snapshots keyed by (owner, simulation).
type Store interface {
	// Save upserts a snapshot. Snapshots without a simulation id are
	// placeholders from runs that never initialized; Save drops them
	// silently.
	Save(ctx context.Context, snap run.Snapshot) error

	// List returns all snapshots for an owner, newest first.
	List(ctx context.Context, ownerID string) ([]run.Snapshot, error)

	// Load returns one snapshot or ErrNotFound.
	Load(ctx context.Context, ownerID, simulationID string) (run.Snapshot, error)

	// Delete removes one snapshot. Deleting a missing snapshot is
	// not an error.
	Delete(ctx context.Context, ownerID, simulationID string) error
}

// savable reports whether a snapshot carries a real simulation id.
func savable(snap run.Snapshot) bool {
	return snap.SimulationID != "" && snap.SimulationID != "INIT"
}
