package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/neurabot/neurabot-api/internal/domain/auth"
	"github.com/neurabot/neurabot-api/internal/domain/history"
	"github.com/neurabot/neurabot-api/internal/domain/share"
	"github.com/neurabot/neurabot-api/internal/domain/summarizer"
	"github.com/neurabot/neurabot-api/internal/infra/archive"
	"github.com/neurabot/neurabot-api/internal/infra/config"
	"github.com/neurabot/neurabot-api/internal/infra/historyrepo"
	"github.com/neurabot/neurabot-api/internal/infra/llm/groq"
	"github.com/neurabot/neurabot-api/internal/infra/sharestore"
	"github.com/neurabot/neurabot-api/pkg/metrics"
)

func provideSummaryConfig(cfg *config.Config) summarizer.Config {
	return summarizer.Config{
		DefaultMode:   summarizer.Mode(cfg.Summary.DefaultMode),
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxRetries:    cfg.Summary.MaxRetries,
		BaseBackoff:   cfg.Summary.BaseBackoff,
		MinRetryAfter: cfg.Summary.MinRetryAfter,
	}
}

func provideGroqClient(cfg *config.Config) (*groq.Client, error) {
	return groq.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL, cfg.LLM.Timeout)
}

func provideTokenCounter(cfg *config.Config) *metrics.TokenCounter {
	return metrics.NewTokenCounter(cfg.LLM.TokenEncoding)
}

func provideAuthService(cfg *config.Config, logger *slog.Logger) auth.Service {
	authCfg := auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		JWKSURL:  cfg.Auth.JWKSURL,
		Issuer:   cfg.Auth.Issuer,
		Audience: cfg.Auth.Audience,
	}
	svc, err := auth.NewService(context.Background(), authCfg, logger)
	if err != nil {
		logger.Warn("bearer auth disabled, protected endpoints will reject all tokens", "error", err)
		return auth.NewServiceWithVerifier(auth.DisabledVerifier{}, logger)
	}
	return svc
}

func provideShareConfig(cfg *config.Config) share.Config {
	return share.Config{TTL: cfg.Share.TTL}
}

// providePostgresPool returns nil when no DSN is configured or the database
// is unreachable; repositories then fall back to memory.
func providePostgresPool(cfg *config.Config, logger *slog.Logger) *pgxpool.Pool {
	dsn := strings.TrimSpace(cfg.Store.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory stores")
		return nil
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory stores", "error", err)
		return nil
	}
	if cfg.Store.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Store.Postgres.MaxConns
	}
	if cfg.Store.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Store.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory stores", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory stores", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("postgres store enabled")
	return pool
}

func provideHistoryRepository(pool *pgxpool.Pool) history.Repository {
	if pool == nil {
		return historyrepo.NewMemoryRepository()
	}
	return historyrepo.NewPostgresRepository(pool)
}

func provideHistoryArchiver(cfg *config.Config, logger *slog.Logger) history.Archiver {
	if !cfg.Archive.Enabled {
		return nil
	}
	a := cfg.Archive
	store, err := archive.NewR2Archive(a.Endpoint, a.AccessKey, a.SecretKey, a.Bucket, a.Region, logger)
	if err != nil {
		logger.Error("failed to initialize history archive, archiving disabled", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.EnsureBucket(ctx); err != nil {
		logger.Error("archive bucket unavailable, archiving disabled", "bucket", a.Bucket, "error", err)
		return nil
	}
	logger.Info("history archive enabled", "bucket", a.Bucket)
	return store
}

// provideShareStore prefers Valkey when enabled, then Postgres, then memory.
func provideShareStore(cfg *config.Config, pool *pgxpool.Pool, logger *slog.Logger) share.Store {
	if cfg.Share.Redis.Enabled {
		if store, ok := newValkeyShareStore(cfg, logger); ok {
			return store
		}
	}
	if pool != nil {
		return sharestore.NewPostgresStore(pool)
	}
	return sharestore.NewMemoryStore()
}

func newValkeyShareStore(cfg *config.Config, logger *slog.Logger) (share.Store, bool) {
	opt, err := buildValkeyOptions(cfg.Share.Redis.Addr)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back", "error", err)
		return nil, false
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back", "error", err)
		return nil, false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back", "error", err)
		client.Close()
		return nil, false
	}
	logger.Info("share valkey store enabled", "addr", cfg.Share.Redis.Addr)
	return sharestore.NewValkeyStore(client, cfg.Share.Redis.Prefix), true
}

func buildValkeyOptions(addr string) (valkey.ClientOption, error) {
	if strings.Contains(addr, "://") {
		return valkey.ParseURL(addr)
	}
	return valkey.ClientOption{InitAddress: []string{addr}}, nil
}
