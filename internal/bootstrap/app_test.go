package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/shared/config"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/store"
)

func TestBuildRestoresSessionFromFile(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	path := filepath.Join(t.TempDir(), "state.json")
	seed := store.New()
	seed.Dispatch(store.LoginSucceeded{Session: api.Session{Token: "tok", UserID: "u1"}})
	seed.Dispatch(store.TenantsFetched{Tenants: []api.Tenant{{ID: "t1", Name: "Lab"}}})
	if err := (&store.FilePersister{Path: path}).Save(context.Background(), store.SnapshotOf(seed.State())); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	app, err := Build(context.Background(), config.Config{
		Env:          "test",
		APIBaseURL:   "http://backend.invalid/api",
		CacheBackend: "none",
		StateBackend: "file",
		StateFile:    path,
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	if !app.Store.IsAuthenticated() || app.Store.CurrentTenantID() != "t1" {
		t.Fatalf("restored state = %+v / %+v", app.Store.State().Auth, app.Store.State().Tenant)
	}

	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("healthz = %d %s", resp.Code, resp.Body.String())
	}
}

func TestUnauthorizedDropsCachedResponses(t *testing.T) {
	telemetry.SetOutput(io.Discard)
	defer telemetry.SetOutput(nil)

	var statsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/tenants/t1/stats":
			n := statsHits.Add(1)
			_, _ = fmt.Fprintf(w, `{"success":true,"data":{"totalCvs":%d}}`, 7*n)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"success":false,"error":"Token expired"}`)
		}
	}))
	defer srv.Close()

	app, err := Build(context.Background(), config.Config{
		Env:          "test",
		APIBaseURL:   srv.URL,
		CacheBackend: "memory",
		StateBackend: "none",
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	app.Store.Dispatch(store.LoginSucceeded{Session: api.Session{Token: "tok1", UserID: "u1"}})
	if d, err := app.API.TenantDashboard(ctx, "t1"); err != nil || d.TotalCVs != 7 {
		t.Fatalf("first dashboard = %+v, %v", d, err)
	}

	if _, err := app.API.ListCVs(ctx, "t1", 0, 10); httpclient.StatusOf(err) != http.StatusUnauthorized {
		t.Fatalf("ListCVs err = %v", err)
	}
	if app.Store.IsAuthenticated() {
		t.Fatalf("still signed in after 401")
	}

	app.Store.Dispatch(store.LoginSucceeded{Session: api.Session{Token: "tok2", UserID: "u2"}})
	d, err := app.API.TenantDashboard(ctx, "t1")
	if err != nil {
		t.Fatalf("second dashboard: %v", err)
	}
	if d.TotalCVs != 14 || statsHits.Load() != 2 {
		t.Fatalf("totalCvs = %d after %d backend hits, want fresh stats", d.TotalCVs, statsHits.Load())
	}
}

func TestBuildRequiresBaseURL(t *testing.T) {
	if _, err := Build(context.Background(), config.Config{APIBaseURL: "  "}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestBuildPersister(t *testing.T) {
	tests := []struct {
		backend string
		want    string
	}{
		{"file", "*store.FilePersister"},
		{"none", "store.NopPersister"},
		{"postgres", "store.NopPersister"},
		{"s3", "*store.S3Persister"},
		{"keyring", "*store.KeyringPersister"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.backend, func(t *testing.T) {
			cfg := config.Config{StateBackend: tt.backend, StateFile: "x.json", AWSRegion: "eu-west-1", StateS3Bucket: "console"}
			p, err := buildPersister(context.Background(), cfg, nil)
			if err != nil {
				t.Fatalf("buildPersister: %v", err)
			}
			if got := typeName(p); got != tt.want {
				t.Fatalf("persister = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuildPersisterS3RequiresBucket(t *testing.T) {
	if _, err := buildPersister(context.Background(), config.Config{StateBackend: "s3"}, nil); err == nil {
		t.Fatalf("expected error without STATE_S3_BUCKET")
	}
}

func typeName(p store.Persister) string {
	switch p.(type) {
	case *store.FilePersister:
		return "*store.FilePersister"
	case *store.PGPersister:
		return "*store.PGPersister"
	case store.NopPersister:
		return "store.NopPersister"
	case *store.S3Persister:
		return "*store.S3Persister"
	case *store.KeyringPersister:
		return "*store.KeyringPersister"
	}
	return "unknown"
}
