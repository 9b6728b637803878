package job

import (
	"Ripple/internal/api/config"
	"Ripple/internal/api/dto"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/logger"
	"Ripple/internal/pkg/metrics"
	"Ripple/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

type profileSnapshot struct {
	username string
	avatar   string
}

// ProfileSyncWorker 把资料变更事件按用户合并,定期批量刷新内容上的作者快照。
// 同一用户在一个周期内的多次修改只落库最后一份。
type ProfileSyncWorker struct {
	contentRepo repository.ContentRepo
	interval    time.Duration

	mu      sync.Mutex
	pending map[uint64]profileSnapshot

	cancel context.CancelFunc
	done   chan struct{}
}

func NewProfileSyncWorker(contentRepo repository.ContentRepo) *ProfileSyncWorker {
	return &ProfileSyncWorker{
		contentRepo: contentRepo,
		interval:    time.Duration(config.Cfg.Worker.ProfileSyncIntervalSec) * time.Second,
		pending:     make(map[uint64]profileSnapshot),
		done:        make(chan struct{}),
	}
}

// Enqueue 资料变更事件入口,同一用户后到的快照覆盖先到的
func (s *ProfileSyncWorker) Enqueue(ctx context.Context, evt eventbus.Event) error {
	payload, ok := evt.Payload.(dto.ProfileChangedDTO)
	if !ok {
		return fmt.Errorf("unexpected profile payload: %T", evt.Payload)
	}

	s.mu.Lock()
	s.pending[payload.UserID] = profileSnapshot{username: payload.Username, avatar: payload.Avatar}
	s.mu.Unlock()
	return nil
}

func (s *ProfileSyncWorker) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	go s.loop(runCtx)
	log.Info("profile sync worker started", "interval", s.interval.String())
}

func (s *ProfileSyncWorker) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flush()
		}
	}
}

// Stop 停止定时循环并做最后一次冲刷,停机前的积压不丢
func (s *ProfileSyncWorker) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	s.flush()
	log.Info("profile sync worker stopped")
}

// flush 取走当前积压逐用户刷库,失败的快照放回等待下一轮
func (s *ProfileSyncWorker) flush() {
	s.mu.Lock()
	if len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	batch := s.pending
	s.pending = make(map[uint64]profileSnapshot)
	s.mu.Unlock()

	traceID := "worker-profile-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)

	start := time.Now()
	synced := 0
	for userID, snap := range batch {
		contentCount, err := s.contentRepo.UpdateAuthorSnapshot(ctx, userID, snap.username, snap.avatar)
		if err != nil {
			log.ErrorContext(ctx, "author snapshot sync error", "user_id", userID, "err", err)
			s.requeue(userID, snap)
			continue
		}
		synced++
		log.InfoContext(ctx, "author snapshot synced", "user_id", userID, "content_count", contentCount)
	}
	metrics.ProfileSyncFlushSeconds.Observe(time.Since(start).Seconds())

	log.InfoContext(ctx, "profile sync flush finished",
		"synced_count", synced,
		"failed_count", len(batch)-synced)
}

// requeue 失败重新入队,期间已到达更新快照的用户不覆盖
func (s *ProfileSyncWorker) requeue(userID uint64, snap profileSnapshot) {
	s.mu.Lock()
	if _, ok := s.pending[userID]; !ok {
		s.pending[userID] = snap
	}
	s.mu.Unlock()
}
