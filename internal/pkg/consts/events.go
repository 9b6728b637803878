package consts

// 事件类型,事件总线与跨进程广播共用同一套命名
const (
	EventNewPost        = "new_post"
	EventLikeUpdate     = "like_update"
	EventFollowCreated  = "follow_created"
	EventFollowRemoved  = "follow_removed"
	EventMessageSent    = "message_sent"
	EventMessageStatus  = "message_status"
	EventNotification   = "new_notification"
	EventNotifyRead     = "notifications_read"
	EventProfileChanged = "profile_changed"
	EventColdStart      = "cold_start"
)

// 旧版客户端仍在使用的事件别名
const (
	AliasPostCreated = "post_created"
	AliasPostLiked   = "post_liked"
	AliasIMMessage   = "im_message"
	AliasIMStatus    = "im_status"
)

// 跨进程 Pub/Sub 频道
const (
	ChannelFeed   = "channel:feed"
	ChannelIM     = "channel:im"
	ChannelNotify = "channel:notify"
)
