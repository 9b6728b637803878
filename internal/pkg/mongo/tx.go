package mongo

import (
	"Ripple/internal/pkg/eventbus"
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// TxRunner 事务执行器抽象,业务层通过它把写入和事件派发绑在一起
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxManager 把事务暂存的事件派发绑定到提交时机:
// 回滚的事务不派发任何事件,提交成功后按入队顺序派发一次
type TxManager struct {
	db  *mongo.Database
	bus *eventbus.Bus
}

func NewTxManager(db *mongo.Database, bus *eventbus.Bus) *TxManager {
	return &TxManager{db: db, bus: bus}
}

// WithTransaction 在会话事务中执行 fn,fn 里排队的事件在提交后统一派发
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := m.db.Client().StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	queue := eventbus.NewQueue(m.bus)
	txCtx := eventbus.ContextWithQueue(ctx, queue)

	_, err = session.WithTransaction(txCtx, func(sc mongo.SessionContext) (interface{}, error) {
		// 驱动可能重试整个回调,先清空暂存避免事件重复入队
		queue.Reset()
		return nil, fn(sc)
	})
	if err != nil {
		queue.Discard()
		return err
	}

	queue.Flush(ctx)
	return nil
}
