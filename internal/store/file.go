package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/run"
)

// File is a Store keeping one JSON file per snapshot under
// baseDir/<owner>/<simulation>.json. Writes are atomic so a crash
// mid-save never leaves a corrupt session behind.
type File struct {
	mu      sync.Mutex
	baseDir string
}

// NewFile creates a file store rooted at baseDir.
func NewFile(baseDir string) *File {
	return &File{baseDir: baseDir}
}

// DefaultFile returns a file store at ~/.autodevops/sessions, creating
// the directory if needed.
func DefaultFile() (*File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".autodevops", "sessions")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &File{baseDir: dir}, nil
}

func (f *File) snapshotPath(ownerID, simulationID string) string {
	return filepath.Join(f.baseDir, sanitizeSegment(ownerID), sanitizeSegment(simulationID)+".json")
}

func (f *File) Save(ctx context.Context, snap run.Snapshot) error {
	if !savable(snap) {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fault.Wrap(fault.Persistence, "store.save", err)
	}
	data = append(data, '\n')
	if err := writeAtomic(f.snapshotPath(snap.OwnerID, snap.SimulationID), data); err != nil {
		return fault.Wrap(fault.Persistence, "store.save", err)
	}
	return nil
}

func (f *File) List(ctx context.Context, ownerID string) ([]run.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Join(f.baseDir, sanitizeSegment(ownerID))
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, "store.list", err)
	}

	var out []run.Snapshot
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		var snap run.Snapshot
		if err := readJSON(filepath.Join(dir, e.Name()), &snap); err != nil {
			continue // skip unreadable entries rather than failing the listing
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (f *File) Load(ctx context.Context, ownerID, simulationID string) (run.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var snap run.Snapshot
	err := readJSON(f.snapshotPath(ownerID, simulationID), &snap)
	if os.IsNotExist(err) {
		return run.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return run.Snapshot{}, fault.Wrap(fault.Persistence, "store.load", err)
	}
	return snap, nil
}

func (f *File) Delete(ctx context.Context, ownerID, simulationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	err := os.Remove(f.snapshotPath(ownerID, simulationID))
	if err != nil && !os.IsNotExist(err) {
		return fault.Wrap(fault.Persistence, "store.delete", err)
	}
	return nil
}

// sanitizeSegment keeps owner and simulation ids safe as path segments.
func sanitizeSegment(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}

// writeAtomic writes data to a file atomically by writing to a temp
// file in the same directory, then renaming.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up temp file on any error path.
	defer func() {
		if tmpName != "" {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename %s -> %s: %w", tmpName, path, err)
	}
	tmpName = "" // prevent deferred removal
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal %s: %w", path, err)
	}
	return nil
}
