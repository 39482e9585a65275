package bootstrap

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"strings"

	"github.com/cwal8202/chill-tuna-web/internal/api/router"
	"github.com/cwal8202/chill-tuna-web/internal/chat"
	appconfig "github.com/cwal8202/chill-tuna-web/internal/config"
	"github.com/cwal8202/chill-tuna-web/internal/persona"
	"github.com/cwal8202/chill-tuna-web/pkg/logging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
)

// Stores bundles the persistence the chat service runs on.
type Stores struct {
	Personas persona.Repository
	Chat     chat.Store

	Pool  *pgxpool.Pool
	DB    *sql.DB
	Redis *redis.Client
}

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; history cache disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildStores connects Postgres when DATABASE_URL is set and falls back to
// in-memory stores otherwise. A reachable Redis fronts the turn store with
// the history cache.
func BuildStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*Stores, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	stores := &Stores{}
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		logger.Warn("DATABASE_URL not set; using in-memory persona and chat stores")
		stores.Personas = persona.NewInMemoryRepository()
		stores.Chat = chat.NewMemoryStore()
	} else {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("bootstrap: ping postgres: %w", err)
		}
		stores.Pool = pool
		stores.DB = stdlib.OpenDBFromPool(pool)
		stores.Personas = persona.NewPostgresRepository(stores.DB)
		stores.Chat = chat.NewPostgresStore(pool)
		logger.Info("postgres connected")
	}

	if client := BuildRedisClient(ctx, cfg, logger, true); client != nil {
		stores.Redis = client
		stores.Chat = chat.NewCachedStore(stores.Chat, client, cfg.HistoryCacheTTL, logger)
		logger.Info("history cache enabled", "redis", cfg.RedisAddr, "ttl", cfg.HistoryCacheTTL.String())
	}
	return stores, nil
}

// HealthChecks returns a reachability check per connected backend.
func (s *Stores) HealthChecks() map[string]router.HealthCheck {
	checks := make(map[string]router.HealthCheck)
	if s == nil {
		return checks
	}
	if s.Pool != nil {
		checks["postgres"] = s.Pool.Ping
	}
	if s.Redis != nil {
		client := s.Redis
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases every connection held by the stores.
func (s *Stores) Close() {
	if s == nil {
		return
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.DB != nil {
		_ = s.DB.Close()
	}
	if s.Pool != nil {
		s.Pool.Close()
	}
}
