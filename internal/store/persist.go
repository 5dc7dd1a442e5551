package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"scholar-console/internal/api"
	"scholar-console/internal/shared/telemetry"
)

const (
	// SnapshotKey names the persisted record.
	SnapshotKey     = "scholar-root"
	SnapshotVersion = 1
)

// ErrNoSnapshot is returned by Persister.Load when nothing was saved yet.
var ErrNoSnapshot = errors.New("no persisted snapshot")

type AuthSnapshot struct {
	User            *User  `json:"user"`
	Token           string `json:"token"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

type TenantSnapshot struct {
	Tenants []api.Tenant `json:"tenants"`
	Current *api.Tenant  `json:"currentTenant"`
}

// Snapshot is the persisted subset of State: the session and the tenant
// selection.
type Snapshot struct {
	Version int            `json:"version"`
	Auth    AuthSnapshot   `json:"auth"`
	Tenant  TenantSnapshot `json:"tenant"`
}

// SnapshotOf extracts the persisted subset of st.
func SnapshotOf(st State) Snapshot {
	return Snapshot{
		Version: SnapshotVersion,
		Auth: AuthSnapshot{
			User:            st.Auth.User,
			Token:           st.Auth.Token,
			IsAuthenticated: st.Auth.IsAuthenticated,
		},
		Tenant: TenantSnapshot{
			Tenants: st.Tenant.Tenants,
			Current: st.Tenant.Current,
		},
	}
}

// Persister loads and saves snapshots.
type Persister interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snap Snapshot) error
}

// Restore loads the saved snapshot into s. A missing snapshot is not an
// error.
func Restore(ctx context.Context, s *Store, p Persister) error {
	snap, err := p.Load(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return nil
	}
	if err != nil {
		return err
	}
	if snap.Version != SnapshotVersion {
		telemetry.Warn("store.snapshot.version_mismatch", map[string]any{"version": snap.Version})
		return nil
	}
	s.Dispatch(Rehydrate{Snapshot: snap})
	return nil
}

// PersistTo saves a snapshot whenever an auth or tenant action commits.
// Saves run synchronously and older revisions never overwrite newer ones.
// The returned function stops persisting.
func PersistTo(s *Store, p Persister, timeout time.Duration) func() {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	var (
		mu      sync.Mutex
		lastRev uint64
	)
	return s.Subscribe(func(st State, a Action) {
		switch a.slice() {
		case SliceAuth, SliceTenant, sliceRoot:
		default:
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if st.Rev <= lastRev {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := p.Save(ctx, SnapshotOf(st)); err != nil {
			telemetry.Error("store.snapshot.save_failed", map[string]any{"error": err})
			return
		}
		lastRev = st.Rev
	})
}

// NopPersister keeps nothing.
type NopPersister struct{}

func (NopPersister) Load(context.Context) (Snapshot, error) { return Snapshot{}, ErrNoSnapshot }
func (NopPersister) Save(context.Context, Snapshot) error   { return nil }
