package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGPersister keeps snapshots in the client_state table, one row per key.
type PGPersister struct {
	DB  *sql.DB
	Key string
}

func (p *PGPersister) key() string {
	if p.Key == "" {
		return SnapshotKey
	}
	return p.Key
}

func (p *PGPersister) Load(ctx context.Context) (Snapshot, error) {
	const query = `
SELECT version, payload
FROM client_state
WHERE key = $1`
	var (
		version int
		payload []byte
	)
	err := p.DB.QueryRowContext(ctx, query, p.key()).Scan(&version, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load client state: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode client state: %w", err)
	}
	snap.Version = version
	return snap, nil
}

func (p *PGPersister) Save(ctx context.Context, snap Snapshot) error {
	const query = `
INSERT INTO client_state (key, version, payload, updated_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (key) DO UPDATE
SET version = EXCLUDED.version,
    payload = EXCLUDED.payload,
    updated_at = EXCLUDED.updated_at`
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode client state: %w", err)
	}
	_, err = p.DB.ExecContext(ctx, query, p.key(), snap.Version, payload, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save client state: %w", err)
	}
	return nil
}
