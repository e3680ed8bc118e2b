package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/itfintrack/itfintrack/internal/infra/logger"
	"github.com/itfintrack/itfintrack/internal/ports"
)

// Config configures the fixed-window limiter
type Config struct {
	Enabled  bool
	RedisURL string
	Limit    int
	Window   time.Duration
	Prefix   string
}

// redisLimiter counts hits per key in Redis with INCR and EXPIRE
type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
	logger logger.Logger
}

// New returns a Redis-backed limiter, or one that allows everything when disabled
func New(ctx context.Context, cfg Config, log logger.Logger) (ports.RateLimiter, error) {
	if log == nil {
		log = logger.Discard()
	}
	if !cfg.Enabled {
		log.Info(ctx, "Rate limiting disabled", nil)
		return Noop{}, nil
	}
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive")
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive")
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "ratelimit"
	}

	log.Info(ctx, "Rate limiting service initialized", map[string]interface{}{
		"limit":  cfg.Limit,
		"window": cfg.Window.String(),
	})

	return &redisLimiter{
		client: client,
		limit:  cfg.Limit,
		window: cfg.Window,
		prefix: prefix,
		logger: log,
	}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := WindowKey(l.prefix, key, time.Now(), l.window)

	pipeline := l.client.TxPipeline()
	incr := pipeline.Incr(ctx, redisKey)
	pipeline.Expire(ctx, redisKey, l.window)
	if _, err := pipeline.Exec(ctx); err != nil {
		l.logger.Error(ctx, "Failed to increment rate limit counter", err, map[string]interface{}{"key": key})
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	allowed := incr.Val() <= int64(l.limit)
	if !allowed {
		l.logger.Warn(ctx, "Rate limit exceeded", map[string]interface{}{
			"key":   key,
			"count": incr.Val(),
			"limit": l.limit,
		})
	}
	return allowed, nil
}

// WindowKey names the counter for key in the window containing at
func WindowKey(prefix, key string, at time.Time, window time.Duration) string {
	secs := int64(window / time.Second)
	if secs < 1 {
		secs = 1
	}
	bucket := at.Unix() / secs
	return fmt.Sprintf("%s:%s:%d", prefix, key, bucket)
}

// Noop allows every request
type Noop struct{}

func (Noop) Allow(ctx context.Context, key string) (bool, error) {
	return true, nil
}
