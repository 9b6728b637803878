package realtime

import (
	"Ripple/internal/api/dto"
	"Ripple/internal/pkg/consts"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// newRegistry 构建类型到处理器的映射,旧版别名指向同一处理器。
// 处理器对重复投递幂等,推送的消息类型始终用当前命名。
func newRegistry() map[string]TypeHandler {
	r := map[string]TypeHandler{
		consts.EventNewPost:       handleNewPost,
		consts.EventLikeUpdate:    handleLikeUpdate,
		consts.EventMessageSent:   handleMessageSent,
		consts.EventMessageStatus: handleMessageStatus,
		consts.EventNotification:  handleNotification,
		consts.EventNotifyRead:    handleNotifyRead,
	}
	r[consts.AliasPostCreated] = r[consts.EventNewPost]
	r[consts.AliasPostLiked] = r[consts.EventLikeUpdate]
	r[consts.AliasIMMessage] = r[consts.EventMessageSent]
	r[consts.AliasIMStatus] = r[consts.EventMessageStatus]
	return r
}

// handleNewPost 全局广播给发现页,再定向推给受影响的关注者,
// 最后向作者房间回执
func handleNewPost(e Emitter, msg Message) error {
	var payload dto.NewPostEventDTO
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode new_post payload")
	}

	e.EmitGlobal(consts.EventNewPost, payload.Content)

	seen := map[uint64]struct{}{payload.Content.AuthorID: {}}
	for _, followerID := range payload.FollowerIDs {
		if followerID == 0 {
			continue
		}
		if _, ok := seen[followerID]; ok {
			continue
		}
		seen[followerID] = struct{}{}
		e.EmitToRoom(followerID, consts.EventNewPost, payload.Content)
	}

	e.EmitToRoom(payload.Content.AuthorID, consts.EventNewPost, payload.Content)
	return nil
}

// handleLikeUpdate 原样转播权威计数,只做全局广播,不定向
func handleLikeUpdate(e Emitter, msg Message) error {
	var payload dto.LikeUpdateDTO
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode like_update payload")
	}

	e.EmitGlobal(consts.EventLikeUpdate, payload)
	return nil
}

// handleMessageSent 推给发送方和接收方的并集
func handleMessageSent(e Emitter, msg Message) error {
	var payload dto.MessageDTO
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode message_sent payload")
	}

	for _, userID := range uniqueIDs(payload.SenderID, payload.RecipientID) {
		e.EmitToRoom(userID, consts.EventMessageSent, payload)
	}
	return nil
}

// handleMessageStatus 回执只推给需要知道状态变化的一方
func handleMessageStatus(e Emitter, msg Message) error {
	var payload dto.MessageStatusDTO
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode message_status payload")
	}

	for _, userID := range uniqueIDs(payload.Recipients...) {
		e.EmitToRoom(userID, consts.EventMessageStatus, payload)
	}
	return nil
}

// handleNotification 只推给通知归属者的房间
func handleNotification(e Emitter, msg Message) error {
	var payload dto.NotificationDTO
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode new_notification payload")
	}
	if payload.ReceiverID == 0 {
		return nil
	}

	e.EmitToRoom(payload.ReceiverID, consts.EventNotification, payload)
	return nil
}

// handleNotifyRead 已读状态推回归属者的其余在线设备
func handleNotifyRead(e Emitter, msg Message) error {
	var payload dto.NotifyReadDTO
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		return errors.Wrap(err, "decode notifications_read payload")
	}
	if payload.UserID == 0 {
		return nil
	}

	e.EmitToRoom(payload.UserID, consts.EventNotifyRead, payload)
	return nil
}

// uniqueIDs 去重并跳过零值用户ID
func uniqueIDs(ids ...uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(ids))
	res := make([]uint64, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		res = append(res, id)
	}
	return res
}
