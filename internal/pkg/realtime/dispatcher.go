package realtime

import (
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/metrics"
	"Ripple/internal/pkg/redis"
	"context"
	log "log/slog"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const maxResubscribeBackoff = 30 * time.Second

// Message 从广播频道收到的消息。Channel 由派发器填入,不参与序列化。
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Channel string          `json:"-"`
}

// TypeHandler 按消息类型分发的处理器
type TypeHandler func(e Emitter, msg Message) error

// Dispatcher 跨进程广播派发器。每个进程订阅全部频道,
// 按消息类型解析出处理器并向本进程的在线连接推送。
type Dispatcher struct {
	emitter  Emitter
	registry map[string]TypeHandler
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewDispatcher(emitter Emitter) *Dispatcher {
	return &Dispatcher{
		emitter:  emitter,
		registry: newRegistry(),
		done:     make(chan struct{}),
	}
}

// Start 启动订阅循环
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, d.cancel = context.WithCancel(ctx)
	go d.run(ctx)
	log.Info("broadcast dispatcher started",
		"channels", []string{consts.ChannelFeed, consts.ChannelIM, consts.ChannelNotify},
		"types", len(d.registry))
}

// Stop 退订并等待派发循环退出
func (d *Dispatcher) Stop() {
	if d.cancel != nil {
		d.cancel()
	}
	<-d.done
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	backoff := time.Second
	for {
		pubsub := redis.Subscribe(ctx, consts.ChannelFeed, consts.ChannelIM, consts.ChannelNotify)
		ch := pubsub.Channel()

	receive:
		for {
			select {
			case <-ctx.Done():
				_ = pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break receive
				}
				d.dispatch(msg.Channel, msg.Payload)
				backoff = time.Second
			}
		}
		_ = pubsub.Close()

		log.Warn("broadcast subscription lost, resubscribing", "backoff", backoff)
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < maxResubscribeBackoff {
			backoff *= 2
		}
	}
}

// dispatch 解析一条入站消息并调用对应处理器。
// 无法识别的类型记日志后丢弃,处理器失败不影响后续消息。
func (d *Dispatcher) dispatch(channel, raw string) {
	msg, err := decodeMessage(raw)
	if err != nil {
		metrics.FanoutDropped.Inc()
		log.Warn("undecodable broadcast message", "channel", channel, "err", err)
		return
	}
	msg.Channel = channel

	handler, ok := d.registry[msg.Type]
	if !ok {
		metrics.FanoutDropped.Inc()
		log.Warn("no handler for broadcast type", "type", msg.Type, "channel", channel)
		return
	}

	metrics.FanoutMessages.WithLabelValues(msg.Type).Inc()
	if err := handler(d.emitter, msg); err != nil {
		log.Error("broadcast handler failed", "type", msg.Type, "channel", channel, "err", err)
	}
}

// decodeMessage 解析信封,兼容对象载荷和再编码过一次的字符串载荷
func decodeMessage(raw string) (Message, error) {
	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, errors.New("missing message type")
	}
	if len(msg.Payload) > 0 && msg.Payload[0] == '"' {
		var inner string
		if err := json.Unmarshal(msg.Payload, &inner); err != nil {
			return Message{}, err
		}
		msg.Payload = json.RawMessage(inner)
	}
	return msg, nil
}
