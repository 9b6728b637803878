package redis

import (
	"Ripple/internal/api/config"
	"Ripple/internal/pkg/metrics"
	"context"
	"errors"
	log "log/slog"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// AttemptOptions 控制单次缓存操作的重试与降级策略
type AttemptOptions[T any] struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Fallback    *T
}

func (o *AttemptOptions[T]) fillDefaults() {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
		if config.Cfg != nil && config.Cfg.Cache.MaxAttempts > 0 {
			o.MaxAttempts = config.Cfg.Cache.MaxAttempts
		}
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 50 * time.Millisecond
		if config.Cfg != nil && config.Cfg.Cache.BaseBackoffMs > 0 {
			o.BaseDelay = time.Duration(config.Cfg.Cache.BaseBackoffMs) * time.Millisecond
		}
	}
}

// Attempt 执行缓存操作,瞬时故障按指数退避重试,耗尽后优先返回降级值。
// 未命中(redis.Nil)原样返回,永不重试也不降级。
func Attempt[T any](ctx context.Context, name string, op func(context.Context) (T, error), opts AttemptOptions[T]) (T, error) {
	opts.fillDefaults()

	var zero T
	var lastErr error

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		value, err := op(ctx)
		if err == nil {
			return value, nil
		}
		if errors.Is(err, redis.Nil) {
			return zero, err
		}

		lastErr = err
		if !IsRetryable(err) {
			break
		}
		if attempt == opts.MaxAttempts {
			break
		}

		metrics.CacheRetries.Inc()
		delay := opts.BaseDelay * (1 << (attempt - 1))
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}

	if opts.Fallback != nil {
		metrics.CacheFallbacks.Inc()
		log.WarnContext(ctx, "cache operation degraded, using fallback",
			"op", name, "err", lastErr)
		return *opts.Fallback, nil
	}

	return zero, pkgerrors.Wrapf(ErrCacheUnavailable, "op %s: %v", name, lastErr)
}

// AttemptWarm 纯缓存预热写入,失败只记日志,不影响调用方
func AttemptWarm(ctx context.Context, name string, op func(context.Context) error) {
	ok := struct{}{}
	_, _ = Attempt(ctx, name, func(c context.Context) (struct{}, error) {
		return struct{}{}, op(c)
	}, AttemptOptions[struct{}]{Fallback: &ok})
}
