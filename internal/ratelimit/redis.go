package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter is a fixed-window limiter shared by every server instance.
type RedisLimiter struct {
	rdb      redis.Scripter
	limit    int
	window   time.Duration
	prefix   string
	failOpen bool
	logger   *slog.Logger
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

type RedisConfig struct {
	Limit    int
	Window   time.Duration
	Prefix   string
	FailOpen bool
}

func NewRedisLimiter(rdb redis.Scripter, logger *slog.Logger, cfg RedisConfig) *RedisLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 60
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	cfg.Prefix = strings.TrimSpace(cfg.Prefix)
	if cfg.Prefix == "" {
		cfg.Prefix = "bookly:rl"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{
		rdb:      rdb,
		limit:    cfg.Limit,
		window:   cfg.Window,
		prefix:   cfg.Prefix,
		failOpen: cfg.FailOpen,
		logger:   logger,
	}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	count, err := l.incr(ctx, l.prefix+":"+key)
	if err != nil {
		l.logger.Warn("redis rate limiter error", slog.Any("err", err))
		if l.failOpen {
			return nil
		}
		return fmt.Errorf("rate limiter unavailable: %w", err)
	}
	if count > int64(l.limit) {
		return ErrLimited
	}
	return nil
}

func (l *RedisLimiter) incr(ctx context.Context, key string) (int64, error) {
	ms := l.window.Milliseconds()
	if ms <= 0 {
		ms = int64(time.Minute / time.Millisecond)
	}
	res, err := fixedWindowScript.Run(ctx, l.rdb, []string{key}, ms).Result()
	if err != nil {
		return 0, err
	}
	switch v := res.(type) {
	case int64:
		return v, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", res)
	}
}
