package kafka

import (
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
)

const (
	batchSize    = 32
	batchTimeout = 1 * time.Second
)

// BatchFunc 一批消息的处理逻辑,返回错误则整批退避重试
type BatchFunc func(ctx context.Context, msgs []*sarama.ConsumerMessage) error

// pullMessageBatch 攒批拉取消息并执行业务逻辑,批满或计时器到期时冲刷
func pullMessageBatch(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim, logic BatchFunc) error {
	batch := make([]*sarama.ConsumerMessage, 0, batchSize)
	ticker := time.NewTicker(batchTimeout)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				if len(batch) > 0 {
					processBatch(session, batch, logic)
				}
				return nil
			}
			batch = append(batch, msg)
			if len(batch) >= batchSize {
				processBatch(session, batch, logic)
				// 清空缓冲区 & 重置定时器
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
				ticker.Reset(batchTimeout)
			}
		case <-ticker.C:
			if len(batch) > 0 {
				processBatch(session, batch, logic)
				batch = make([]*sarama.ConsumerMessage, 0, batchSize)
			}
		case <-session.Context().Done():
			return nil
		}
	}
}

// processBatch 整批执行,失败按指数退避重试,成功后提交最后位点
func processBatch(session sarama.ConsumerGroupSession, messages []*sarama.ConsumerMessage, logic BatchFunc) {
	var retryInterval = 100 * time.Millisecond

	for {
		err := logic(session.Context(), messages)
		if err == nil {
			break
		}
		select {
		case <-session.Context().Done():
			return
		default:
		}

		log.Error("process batch error", "size", len(messages), "err", err)
		time.Sleep(retryInterval)

		retryInterval *= 2
		if retryInterval > 5*time.Second {
			retryInterval = 5 * time.Second
		}
	}

	lastMsg := messages[len(messages)-1]
	session.MarkMessage(lastMsg, "")
}
