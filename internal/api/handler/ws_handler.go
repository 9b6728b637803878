package handler

import (
	"Ripple/internal/pkg/realtime"
	"Ripple/internal/pkg/response"
	"Ripple/internal/pkg/security"
	"Ripple/internal/service"
	log "log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WsHandler struct {
	hub *realtime.Hub
}

func NewWsHandler(hub *realtime.Hub) *WsHandler {
	return &WsHandler{hub: hub}
}

// Connect 建立实时推送连接。浏览器的 WebSocket 握手带不了自定义头,
// Token 从查询参数读取。
func (s *WsHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, service.UnauthorizedError)
		return
	}
	claims, err := security.ValidateToken(token)
	if err != nil {
		log.Warn("WS 鉴权失败", "err", err)
		response.Error(c, service.UnauthorizedError)
		return
	}
	userID := claims.UserID

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("WS 协议升级失败", "err", err)
		return
	}

	log.Info("用户 WS 连接已建立", "user_id", userID)
	realtime.NewClient(s.hub, conn, userID).Serve()
}
