package di

import (
	"context"
	"fmt"

	"chart_backend/internal/config"
	"chart_backend/internal/platform/ratelimit"
	platformredis "chart_backend/internal/platform/redis"
)

// NewLimiter creates the per-client chart quota.
// The redis backend shares counters between instances; the memory backend is
// swept on a cron schedule. The returned stop function releases either.
func NewLimiter(ctx context.Context, cfg *config.Config) (ratelimit.Limiter, func() error, error) {
	rl := cfg.RateLimit
	if rl.Backend == "redis" {
		rdb, err := platformredis.NewRedisClient(ctx, platformredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("rate limit redis: %w", err)
		}
		return ratelimit.NewRedisLimiter(rdb, rl.Requests, rl.Window, "ratelimit:chart"), rdb.Close, nil
	}

	mem := ratelimit.NewMemoryLimiter(rl.Requests, rl.Window)
	sweeper, err := ratelimit.NewSweeper(mem, rl.SweepCron)
	if err != nil {
		return nil, nil, err
	}
	sweeper.Start()
	return mem, func() error { sweeper.Stop(); return nil }, nil
}
