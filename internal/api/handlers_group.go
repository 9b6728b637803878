package api

import "Ripple/internal/api/handler"

// HandlersGroup 封装了所有已初始化的 Handler 实例
type HandlersGroup struct {
	FeedHandler    *handler.FeedHandler
	ContentHandler *handler.ContentHandler
	FollowHandler  *handler.FollowHandler
	NotifyHandler  *handler.NotificationHandler
	IMHandler      *handler.IMHandler
	ProfileHandler *handler.ProfileHandler
	WsHandler      *handler.WsHandler
}
