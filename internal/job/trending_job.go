package job

import (
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/logger"
	"Ripple/internal/pkg/redis"
	"Ripple/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// 锁的有效期远小于调度周期,持有者崩溃后下一轮能自动接手
const trendingLockTTL = 10 * time.Minute

type TrendingJob struct {
	feedSvc service.FeedService
}

func NewTrendingJob(feedSvc service.FeedService) *TrendingJob {
	return &TrendingJob{
		feedSvc: feedSvc,
	}
}

func (s *TrendingJob) Run() {
	traceID := "job-trending-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	token := uuid.NewString()
	locked, err := redis.TryLock(ctx, consts.TrendingJobLock, token, trendingLockTTL, 1)
	if err != nil {
		log.ErrorContext(ctx, "acquire trending lock error", "err", err)
		return
	}
	if !locked {
		log.InfoContext(ctx, "trending prewarm held by another instance, skipped")
		return
	}
	defer redis.UnLock(ctx, consts.TrendingJobLock, token)

	start := time.Now()
	if err := s.feedSvc.PrewarmDiscovery(ctx); err != nil {
		log.ErrorContext(ctx, "trending prewarm error", "err", err)
		return
	}

	log.InfoContext(ctx, "trending prewarm success", "elapsed_ms", time.Since(start).Milliseconds())
}
