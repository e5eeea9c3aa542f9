// Package cache keeps recently computed scoreboards in redis so bursts of
// polling clients do not each rerun the ranking pass.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jjudge-oj/scoreboard/config"
	"github.com/jjudge-oj/scoreboard/internal/standings"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix        = "scoreboard:standings:"
	generationPrefix = "scoreboard:standings-gen:"
	defaultTTL       = 5 * time.Second
	generationTTL    = 24 * time.Hour
	pingTimeout      = 3 * time.Second
)

// setIfGeneration stores the table only while the contest's generation still
// matches the one read before the table was computed.
var setIfGeneration = redis.NewScript(`
	if (tonumber(redis.call("get", KEYS[1])) or 0) == tonumber(ARGV[1]) then
		redis.call("set", KEYS[2], ARGV[2], "PX", ARGV[3])
		return 1
	end
	return 0
`)

// RedisCache stores full ranked tables keyed by contest id.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg config.RedisConfig) (*RedisCache, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		return nil, errors.New("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisCache{client: client, ttl: ttl}, nil
}

// Get returns the cached table. A miss is reported as ok == false with a
// nil error.
func (c *RedisCache) Get(ctx context.Context, contestID int) (standings.Table, bool, error) {
	data, err := c.client.Get(ctx, Key(contestID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return standings.Table{}, false, nil
	}
	if err != nil {
		return standings.Table{}, false, err
	}

	var table standings.Table
	if err := json.Unmarshal(data, &table); err != nil {
		return standings.Table{}, false, fmt.Errorf("decode cached standings: %w", err)
	}
	return table, true, nil
}

// Generation returns the contest's invalidation counter. A contest that was
// never invalidated is at generation zero.
func (c *RedisCache) Generation(ctx context.Context, contestID int) (int64, error) {
	gen, err := c.client.Get(ctx, GenerationKey(contestID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

// Set stores the table if no invalidation happened since generation was
// read. stored is false when the table was computed from stale input.
func (c *RedisCache) Set(ctx context.Context, contestID int, generation int64, table standings.Table) (bool, error) {
	data, err := json.Marshal(table)
	if err != nil {
		return false, err
	}
	stored, err := setIfGeneration.Run(ctx, c.client,
		[]string{GenerationKey(contestID), Key(contestID)},
		generation, data, c.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, err
	}
	return stored == 1, nil
}

// Invalidate bumps the contest's generation and drops its cached table.
func (c *RedisCache) Invalidate(ctx context.Context, contestID int) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, GenerationKey(contestID))
		pipe.Expire(ctx, GenerationKey(contestID), generationTTL)
		pipe.Del(ctx, Key(contestID))
		return nil
	})
	return err
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Key is the redis key of a contest's cached table.
func Key(contestID int) string {
	return fmt.Sprintf("%s%d", keyPrefix, contestID)
}

// GenerationKey is the redis key of a contest's invalidation counter.
func GenerationKey(contestID int) string {
	return fmt.Sprintf("%s%d", generationPrefix, contestID)
}
