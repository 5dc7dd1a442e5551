package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"scholar-console/internal/api"
)

type memoryPersister struct {
	saved []Snapshot
	load  Snapshot
	err   error
}

func (m *memoryPersister) Load(context.Context) (Snapshot, error) { return m.load, m.err }
func (m *memoryPersister) Save(_ context.Context, snap Snapshot) error {
	m.saved = append(m.saved, snap)
	return nil
}

func TestFilePersisterRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.json")
	p := &FilePersister{Path: path}
	ctx := context.Background()

	if _, err := p.Load(ctx); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Load on missing file = %v, want ErrNoSnapshot", err)
	}

	snap := Snapshot{
		Version: SnapshotVersion,
		Auth:    AuthSnapshot{Token: "tok", IsAuthenticated: true, User: &User{UserID: "u1"}},
		Tenant:  TenantSnapshot{Tenants: []api.Tenant{{ID: "t1"}}, Current: &api.Tenant{ID: "t1"}},
	}
	if err := p.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("mode = %v, want 0600", info.Mode().Perm())
	}
	got, err := p.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Auth.Token != "tok" || got.Tenant.Current == nil || got.Tenant.Current.ID != "t1" {
		t.Fatalf("loaded = %+v", got)
	}
}

func TestRestoreRehydratesAuthAndTenant(t *testing.T) {
	p := &memoryPersister{load: Snapshot{
		Version: SnapshotVersion,
		Auth:    AuthSnapshot{Token: "tok", IsAuthenticated: true},
		Tenant:  TenantSnapshot{Tenants: []api.Tenant{{ID: "t1"}}, Current: &api.Tenant{ID: "t1"}},
	}}
	s := New()
	if err := Restore(context.Background(), s, p); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !s.IsAuthenticated() || s.CurrentTenantID() != "t1" {
		t.Fatalf("state not restored: %+v", s.State())
	}
}

func TestRestoreIgnoresOtherVersions(t *testing.T) {
	p := &memoryPersister{load: Snapshot{Version: 7, Auth: AuthSnapshot{Token: "tok", IsAuthenticated: true}}}
	s := New()
	if err := Restore(context.Background(), s, p); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if s.IsAuthenticated() {
		t.Fatalf("snapshot with unknown version must be ignored")
	}
}

func TestPersistToSavesOnlyAuthAndTenantChanges(t *testing.T) {
	p := &memoryPersister{}
	s := New()
	stop := PersistTo(s, p, 0)
	defer stop()

	s.Dispatch(LoginSucceeded{Session: api.Session{Token: "tok"}})
	s.Dispatch(ToggleSidebar{})
	s.Dispatch(TenantsFetched{Tenants: []api.Tenant{{ID: "t1"}}})
	s.Dispatch(CVsPending{Scope: Scope{TenantID: "t1"}})

	if len(p.saved) != 2 {
		t.Fatalf("saves = %d, want 2", len(p.saved))
	}
	last := p.saved[len(p.saved)-1]
	if last.Tenant.Current == nil || last.Tenant.Current.ID != "t1" || last.Auth.Token != "tok" {
		t.Fatalf("last snapshot = %+v", last)
	}
}

func TestPGPersisterSaveUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	p := &PGPersister{DB: db}
	snap := Snapshot{Version: SnapshotVersion, Auth: AuthSnapshot{Token: "tok"}}
	payload, _ := json.Marshal(snap)

	mock.ExpectExec("INSERT INTO client_state").
		WithArgs(SnapshotKey, SnapshotVersion, payload, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := p.Save(context.Background(), snap); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGPersisterLoad(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	p := &PGPersister{DB: db}
	payload := []byte(`{"version":1,"auth":{"token":"tok","isAuthenticated":true},"tenant":{"tenants":[],"currentTenant":{"id":"t1"}}}`)
	mock.ExpectQuery("SELECT version, payload").
		WithArgs(SnapshotKey).
		WillReturnRows(sqlmock.NewRows([]string{"version", "payload"}).AddRow(1, payload))

	snap, err := p.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if snap.Auth.Token != "tok" || snap.Tenant.Current == nil || snap.Tenant.Current.ID != "t1" {
		t.Fatalf("snap = %+v", snap)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGPersisterLoadMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	mock.ExpectQuery("SELECT version, payload").
		WithArgs(SnapshotKey).
		WillReturnRows(sqlmock.NewRows([]string{"version", "payload"}))

	p := &PGPersister{DB: db}
	if _, err := p.Load(context.Background()); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("Load = %v, want ErrNoSnapshot", err)
	}
}
