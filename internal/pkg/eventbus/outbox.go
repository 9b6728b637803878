package eventbus

import (
	"Ripple/internal/pkg/metrics"
	"context"
)

// Queue 单个事务的事件暂存队列。提交后 Flush 恰好派发一次,
// 回滚后 Discard 全部丢弃。
type Queue struct {
	bus     *Bus
	events  []Event
	flushed bool
}

func NewQueue(bus *Bus) *Queue {
	return &Queue{bus: bus}
}

// Enqueue 暂存事件,保持入队顺序
func (q *Queue) Enqueue(evt Event) {
	q.events = append(q.events, evt)
}

// Reset 清空暂存,事务回调重试前调用
func (q *Queue) Reset() {
	q.events = q.events[:0]
}

// Flush 按入队顺序派发全部暂存事件,重复调用无效果
func (q *Queue) Flush(ctx context.Context) {
	if q.flushed {
		return
	}
	q.flushed = true

	for _, evt := range q.events {
		q.bus.Publish(ctx, evt)
		metrics.OutboxFlushed.Inc()
	}
	q.events = nil
}

// Discard 丢弃全部暂存事件
func (q *Queue) Discard() {
	metrics.OutboxDiscarded.Add(float64(len(q.events)))
	q.events = nil
	q.flushed = true
}

type queueCtxKey struct{}

// ContextWithQueue 把事务队列装入 Context,供 QueueTransactional 取用
func ContextWithQueue(ctx context.Context, q *Queue) context.Context {
	return context.WithValue(ctx, queueCtxKey{}, q)
}

// QueueFromContext 取出当前事务的队列
func QueueFromContext(ctx context.Context) (*Queue, bool) {
	q, ok := ctx.Value(queueCtxKey{}).(*Queue)
	return q, ok
}
