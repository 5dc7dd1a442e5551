package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

const lockRetry = 50 * time.Millisecond

// FilePersister keeps the snapshot in a JSON file readable only by the
// owner. An advisory lock next to the file serializes processes sharing it.
type FilePersister struct {
	Path string
}

func (p *FilePersister) lock(ctx context.Context, shared bool) (func(), error) {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	fl := flock.New(p.Path + ".lock")
	try := fl.TryLockContext
	if shared {
		try = fl.TryRLockContext
	}
	ok, err := try(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock state file: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("lock state file: %s is busy", p.Path)
	}
	return func() { _ = fl.Unlock() }, nil
}

type fileRecord struct {
	Key      string   `json:"key"`
	Snapshot Snapshot `json:"snapshot"`
}

func (p *FilePersister) Load(ctx context.Context) (Snapshot, error) {
	unlock, err := p.lock(ctx, true)
	if err != nil {
		return Snapshot{}, err
	}
	defer unlock()

	data, err := os.ReadFile(p.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return Snapshot{}, ErrNoSnapshot
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("read state file: %w", err)
	}
	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Snapshot{}, fmt.Errorf("decode state file: %w", err)
	}
	if rec.Key != SnapshotKey {
		return Snapshot{}, ErrNoSnapshot
	}
	return rec.Snapshot, nil
}

// Save writes to a temp file and renames it over Path.
func (p *FilePersister) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.MarshalIndent(fileRecord{Key: SnapshotKey, Snapshot: snap}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	unlock, err := p.lock(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	dir := filepath.Dir(p.Path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Rename(tmpName, p.Path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
