package realtime

import (
	"Ripple/internal/pkg/consts"
	"Ripple/internal/pkg/eventbus"
	"Ripple/internal/pkg/redis"
	"context"
)

// channelFor 返回事件类型对应的广播频道,非广播事件返回空串
func channelFor(eventType string) string {
	switch eventType {
	case consts.EventNewPost, consts.EventLikeUpdate:
		return consts.ChannelFeed
	case consts.EventMessageSent, consts.EventMessageStatus:
		return consts.ChannelIM
	case consts.EventNotification, consts.EventNotifyRead:
		return consts.ChannelNotify
	}
	return ""
}

// RelayToChannel 事件总线处理器,把面向客户端的事件写入跨进程广播频道。
// 本进程和其余进程都通过各自的派发器收到同一份消息。
func RelayToChannel(ctx context.Context, evt eventbus.Event) error {
	channel := channelFor(evt.Type)
	if channel == "" {
		return nil
	}
	return redis.Publish(ctx, channel, envelope{Type: evt.Type, Payload: evt.Payload})
}
