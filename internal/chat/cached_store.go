package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cwal8202/chill-tuna-web/pkg/logging"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultCacheTTL bounds how long a cached turn list may live in Redis.
const DefaultCacheTTL = 30 * time.Minute

// CachedStore fronts a Store with a Redis copy of each thread's turn list.
// Writes go to the backing store first and then drop the cached copy.
type CachedStore struct {
	Store
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
	logger *logging.Logger
}

func NewCachedStore(backing Store, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedStore {
	if backing == nil {
		panic("chat: backing store cannot be nil")
	}
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &CachedStore{
		Store:  backing,
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("chilltuna.internal.chat.cache"),
		logger: logger,
	}
}

func (s *CachedStore) ListTurns(ctx context.Context, threadID string) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "chat.list_turns")
	defer span.End()

	key := turnsKey(threadID)
	data, err := s.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var turns []Turn
		if jsonErr := json.Unmarshal(data, &turns); jsonErr == nil {
			return turns, nil
		}
		s.logger.Warn("chat: dropping undecodable cached turns", "thread_id", threadID)
	case !errors.Is(err, redis.Nil):
		span.RecordError(err)
		s.logger.Warn("chat: turn cache read failed", "thread_id", threadID, "error", err)
	}

	// The refill only lands if no append bumped the generation while the
	// backing store was being read.
	var (
		turns   []Turn
		readErr error
		loaded  bool
	)
	fillErr := s.redis.Watch(ctx, func(tx *redis.Tx) error {
		turns, readErr = s.Store.ListTurns(ctx, threadID)
		loaded = true
		if readErr != nil {
			return nil
		}
		encoded, err := json.Marshal(turns)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, encoded, s.ttl)
			return nil
		})
		return err
	}, generationKey(threadID))
	if !loaded {
		turns, readErr = s.Store.ListTurns(ctx, threadID)
	}
	if readErr != nil {
		span.RecordError(readErr)
		return nil, readErr
	}
	switch {
	case errors.Is(fillErr, redis.TxFailedErr):
		s.logger.Debug("chat: turn cache refill skipped after concurrent append", "thread_id", threadID)
	case fillErr != nil:
		s.logger.Warn("chat: turn cache write failed", "thread_id", threadID, "error", fillErr)
	}
	return turns, nil
}

// AppendExchange commits to the backing store and then invalidates the
// cached copy. An invalidation failure is logged, not returned, since the
// exchange is already durable.
func (s *CachedStore) AppendExchange(ctx context.Context, threadID, userText, personaText string) error {
	ctx, span := s.tracer.Start(ctx, "chat.append_exchange")
	defer span.End()

	if err := s.Store.AppendExchange(ctx, threadID, userText, personaText); err != nil {
		span.RecordError(err)
		return err
	}
	genKey := generationKey(threadID)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, s.ttl)
		pipe.Del(ctx, turnsKey(threadID))
		return nil
	})
	if err != nil {
		span.RecordError(err)
		s.logger.Warn("chat: turn cache invalidation failed", "thread_id", threadID, "error", err)
	}
	return nil
}

func turnsKey(threadID string) string {
	return fmt.Sprintf("chat:turns:%s", threadID)
}

func generationKey(threadID string) string {
	return fmt.Sprintf("chat:turns:%s:gen", threadID)
}
