package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"scholar-console/internal/api"
	"scholar-console/internal/httpclient"
	"scholar-console/internal/services/health"
	"scholar-console/internal/shared/config"
	"scholar-console/internal/shared/server"
	"scholar-console/internal/shared/storage/db"
	"scholar-console/internal/shared/telemetry"
	"scholar-console/internal/store"
	"scholar-console/internal/web"
)

const persistTimeout = 5 * time.Second

// App holds the wired console.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Redis     *redis.Client
	Store     *store.Store
	HTTP      *httpclient.Client
	API       *api.Client
	Services  web.Services
	Web       *web.Server
	Persister store.Persister

	stopPersist func()
}

// Build wires configuration, state, the backend client and the console
// routes. The persisted session, if any, is restored before persisting
// starts.
func Build(ctx context.Context, cfg config.Config) (*App, error) {
	cfg = config.Normalize(cfg)
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	rdb, cache := buildCache(ctx, cfg)

	st := store.New()
	persister, err := buildPersister(ctx, cfg, sqlDB)
	if err != nil {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	if err := store.Restore(ctx, st, persister); err != nil {
		telemetry.Warn("bootstrap.restore_failed", map[string]any{"error": err})
	}

	var hc *httpclient.Client
	hc = httpclient.New(httpclient.Options{
		BaseURL:        cfg.APIBaseURL,
		Timeout:        cfg.APITimeout,
		TokenSource:    st,
		Notifier:       st,
		OnUnauthorized: func() { signOut(st, hc) },
		Cache:          cache,
		CacheTTL:       cfg.CacheTTL,
	})
	client := api.New(hc)

	svc := web.NewServices(st, client)
	svc.CVs.PollInterval = cfg.CVPollInterval
	svc.CVs.PollMaxFailures = cfg.PollMaxFailures
	svc.Campaigns.PollInterval = cfg.GenerationPollInterval
	svc.Campaigns.PollMaxFailures = cfg.PollMaxFailures

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Redis:     rdb,
		Store:     st,
		HTTP:      hc,
		API:       client,
		Services:  svc,
		Persister: persister,
	}
	app.Web = web.New(st, svc, health.NewService(app.healthChecks()))
	app.Router = server.NewEngine(cfg)
	app.Web.Register(app.Router)
	app.stopPersist = store.PersistTo(st, persister, persistTimeout)
	svc.Auth.ExpireStaleSession(ctx, time.Now())

	telemetry.Info("bootstrap.ready", map[string]any{
		"env":           cfg.Env,
		"api_base_url":  cfg.APIBaseURL,
		"cache_backend": cfg.CacheBackend,
		"state_backend": cfg.StateBackend,
		"signed_in":     st.IsAuthenticated(),
	})
	return app, nil
}

// Close stops pollers and persistence and releases connections.
func (a *App) Close() {
	if a.Web != nil {
		a.Web.Close()
	}
	if a.stopPersist != nil {
		a.stopPersist()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func (a *App) healthChecks() map[string]health.Check {
	checks := map[string]health.Check{}
	if a.DB != nil {
		checks["state_db"] = a.DB.PingContext
	}
	if a.Redis != nil {
		checks["cache_redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// buildDB connects and migrates only when snapshots live in Postgres.
func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if cfg.StateBackend != "postgres" {
		return nil, nil
	}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required when STATE_BACKEND=postgres")
	}
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultConsoleOptions()))
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.db_unavailable", map[string]any{"error": err})
			return nil, nil
		}
		return nil, err
	}
	if err := db.MigrateClientState(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildPersister(ctx context.Context, cfg config.Config, sqlDB *sql.DB) (store.Persister, error) {
	switch {
	case cfg.StateBackend == "postgres" && sqlDB != nil:
		return &store.PGPersister{DB: sqlDB}, nil
	case cfg.StateBackend == "file":
		return &store.FilePersister{Path: cfg.StateFile}, nil
	case cfg.StateBackend == "keyring":
		return &store.KeyringPersister{}, nil
	case cfg.StateBackend == "s3":
		p, err := store.NewS3Persister(ctx, cfg.AWSRegion, cfg.StateS3Bucket, cfg.StateS3Key, cfg.StateS3KMSKeyID)
		if err != nil {
			return nil, fmt.Errorf("state backend s3: %w", err)
		}
		return p, nil
	default:
		return store.NopPersister{}, nil
	}
}

// buildCache falls back to the in-process cache when Redis is unreachable.
func buildCache(ctx context.Context, cfg config.Config) (*redis.Client, httpclient.Cache) {
	switch cfg.CacheBackend {
	case "none":
		return nil, httpclient.NopCache{}
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			telemetry.Warn("bootstrap.redis_unavailable", map[string]any{"addr": cfg.RedisAddr, "error": err})
			_ = rdb.Close()
			return nil, httpclient.NewMemoryCache(nil)
		}
		return rdb, httpclient.NewRedisCache(rdb)
	default:
		return nil, httpclient.NewMemoryCache(nil)
	}
}

func isDevLike(env string) bool {
	switch env {
	case "dev", "local", "test":
		return true
	}
	return false
}

// signOut ends the session after the backend rejected the token. Cached
// responses belong to the old session and are dropped with it.
func signOut(st *store.Store, hc *httpclient.Client) {
	st.Dispatch(store.Logout{})
	if hc != nil {
		hc.Invalidate(context.Background(), "")
	}
}
