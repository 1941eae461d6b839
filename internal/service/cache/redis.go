// Package cache keeps finished analyses in Redis so identical requests skip
// the engine.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/park285/cheese-engine-bridge/internal/chess"
)

const (
	defaultTTL = time.Hour
	keyPrefix  = "bridge:analysis:"
)

type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to redisURL and pings it once.
func New(redisURL string, ttl time.Duration) (*Redis, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewWithClient(rdb, ttl), nil
}

func NewWithClient(rdb *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Redis{rdb: rdb, ttl: ttl}
}

func (c *Redis) key(k string) string { return keyPrefix + k }

func (c *Redis) Get(ctx context.Context, key string) (chess.AnalyzeResult, bool, error) {
	raw, err := c.rdb.Get(ctx, c.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return chess.AnalyzeResult{}, false, nil
	}
	if err != nil {
		return chess.AnalyzeResult{}, false, err
	}
	var res chess.AnalyzeResult
	if err := json.Unmarshal(raw, &res); err != nil {
		// a stale layout is a miss; drop it so the next Set replaces it
		_ = c.rdb.Del(ctx, c.key(key)).Err()
		return chess.AnalyzeResult{}, false, fmt.Errorf("decode cached analysis: %w", err)
	}
	return res, true, nil
}

func (c *Redis) Set(ctx context.Context, key string, res chess.AnalyzeResult) error {
	res.ID = ""
	res.Cached = false
	raw, err := json.Marshal(res)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, c.key(key), raw, c.ttl).Err()
}

func (c *Redis) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
