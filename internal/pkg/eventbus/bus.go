package eventbus

import (
	"context"
	log "log/slog"
	"sync"
)

// Event 领域事件,Type 与跨进程广播的消息类型共用同一套命名
type Event struct {
	Type    string
	Payload interface{}
}

// Handler 进程内事件处理器
type Handler func(ctx context.Context, evt Event) error

// Bus 进程内同步事件总线。同一类型的处理器按注册顺序依次调用,
// 单个处理器失败只记日志,不影响其余处理器。
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// Subscribe 注册处理器,启动阶段调用
func (b *Bus) Subscribe(eventType string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventType] = append(b.handlers[eventType], h)
}

// Publish 同步派发事件到该类型的全部处理器
func (b *Bus) Publish(ctx context.Context, evt Event) {
	b.mu.RLock()
	handlers := b.handlers[evt.Type]
	b.mu.RUnlock()

	for _, h := range handlers {
		if err := h(ctx, evt); err != nil {
			log.ErrorContext(ctx, "event handler failed",
				"type", evt.Type, "err", err)
		}
	}
}

// QueueTransactional 事务内暂存事件,提交后派发;
// 不在事务中调用时等价于立即 Publish
func (b *Bus) QueueTransactional(ctx context.Context, evt Event) {
	if q, ok := QueueFromContext(ctx); ok {
		q.Enqueue(evt)
		return
	}
	b.Publish(ctx, evt)
}
