package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/lucasnoah/autodevops/internal/fault"
	"github.com/lucasnoah/autodevops/internal/run"
	"github.com/lucasnoah/autodevops/internal/sanitize"
)

// PG is a Store backed by PostgreSQL.
type PG struct {
	conn *sql.DB
}

// Open connects to PostgreSQL and applies the schema.
func Open(ctx context.Context, dsn string) (*PG, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	pg := &PG{conn: conn}
	if err := pg.Migrate(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return pg, nil
}

// NewPG wraps an existing connection without applying the schema.
func NewPG(conn *sql.DB) *PG {
	return &PG{conn: conn}
}

// Close closes the database connection.
func (p *PG) Close() error {
	return p.conn.Close()
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    owner_id      TEXT        NOT NULL,
    simulation_id TEXT        NOT NULL,
    repo_url      TEXT        NOT NULL DEFAULT '',
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    payload       JSONB       NOT NULL,
    PRIMARY KEY (owner_id, simulation_id)
);

CREATE INDEX IF NOT EXISTS sessions_owner_created_idx
    ON sessions (owner_id, created_at DESC);
`

// Migrate applies the schema.
func (p *PG) Migrate(ctx context.Context) error {
	if _, err := p.conn.ExecContext(ctx, schema); err != nil {
		return fault.Wrap(fault.Persistence, "store.migrate", err)
	}
	return nil
}

func (p *PG) Save(ctx context.Context, snap run.Snapshot) error {
	if !savable(snap) {
		return nil
	}

	payload, err := encodePayload(snap)
	if err != nil {
		return fault.Wrap(fault.Persistence, "store.save", err)
	}

	const q = `
		INSERT INTO sessions (owner_id, simulation_id, repo_url, created_at, payload)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (owner_id, simulation_id)
		DO UPDATE SET repo_url = EXCLUDED.repo_url, payload = EXCLUDED.payload`
	if _, err := p.conn.ExecContext(ctx, q, snap.OwnerID, snap.SimulationID, snap.RepoURL, snap.CreatedAt, payload); err != nil {
		return fault.Wrap(fault.Persistence, "store.save", err)
	}
	return nil
}

func (p *PG) List(ctx context.Context, ownerID string) ([]run.Snapshot, error) {
	const q = `
		SELECT payload FROM sessions
		WHERE owner_id = $1
		ORDER BY created_at DESC`
	rows, err := p.conn.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, fault.Wrap(fault.Persistence, "store.list", err)
	}
	defer rows.Close()

	var out []run.Snapshot
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fault.Wrap(fault.Persistence, "store.list", err)
		}
		var snap run.Snapshot
		if err := json.Unmarshal(payload, &snap); err != nil {
			return nil, fault.Wrap(fault.Persistence, "store.list", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.Persistence, "store.list", err)
	}
	return out, nil
}

func (p *PG) Load(ctx context.Context, ownerID, simulationID string) (run.Snapshot, error) {
	const q = `
		SELECT payload FROM sessions
		WHERE owner_id = $1 AND simulation_id = $2`
	var payload []byte
	err := p.conn.QueryRowContext(ctx, q, ownerID, simulationID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return run.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return run.Snapshot{}, fault.Wrap(fault.Persistence, "store.load", err)
	}
	var snap run.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return run.Snapshot{}, fault.Wrap(fault.Persistence, "store.load", err)
	}
	return snap, nil
}

func (p *PG) Delete(ctx context.Context, ownerID, simulationID string) error {
	const q = `DELETE FROM sessions WHERE owner_id = $1 AND simulation_id = $2`
	if _, err := p.conn.ExecContext(ctx, q, ownerID, simulationID); err != nil {
		return fault.Wrap(fault.Persistence, "store.delete", err)
	}
	return nil
}

// encodePayload serializes a snapshot through the sanitizer so no
// value the storage layer cannot represent reaches the database.
func encodePayload(snap run.Snapshot) ([]byte, error) {
	raw, err := json.Marshal(snap)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, err
	}
	return json.Marshal(sanitize.Value(tree))
}
