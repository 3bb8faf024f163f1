package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/constants"
)

// MemoryGuard suppresses repeat sends of the same key within one process.
type MemoryGuard struct {
	mu    sync.Mutex
	seen  map[string]time.Time
	ttl   time.Duration
	clock clock.Clock
}

func NewMemoryGuard(ttl time.Duration, c clock.Clock) *MemoryGuard {
	if ttl <= 0 {
		ttl = constants.DedupKeyTTL
	}
	if c == nil {
		c = clock.System{}
	}
	return &MemoryGuard{seen: make(map[string]time.Time), ttl: ttl, clock: c}
}

// Acquire reports whether key was unclaimed and claims it.
func (g *MemoryGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	for k, exp := range g.seen {
		if !now.Before(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return false, nil
	}
	g.seen[key] = now.Add(g.ttl)
	return true, nil
}

// setNX is the slice of the redis client the guard needs.
type setNX interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisGuard claims keys with SET NX so several schedulers can share one
// deployment without double sends.
type RedisGuard struct {
	client setNX
	closer func() error
	prefix string
	ttl    time.Duration
}

// NewRedisGuard connects to redisURL and checks the connection.
func NewRedisGuard(ctx context.Context, redisURL string) (*RedisGuard, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisGuard{client: client, closer: client.Close, prefix: constants.AppName + ":sent:", ttl: constants.DedupKeyTTL}, nil
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.client.SetNX(ctx, g.prefix+key, 1, g.ttl).Result()
}

func (g *RedisGuard) Close() error {
	if g.closer == nil {
		return nil
	}
	return g.closer()
}
