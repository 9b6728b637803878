package realtime

import (
	"Ripple/internal/pkg/metrics"
	"sync"

	"github.com/goccy/go-json"
)

// Emitter 连接注册表的推送入口,按用户房间定向或全局广播
type Emitter interface {
	EmitToRoom(userID uint64, event string, payload interface{})
	EmitGlobal(event string, payload interface{})
}

// envelope 推给客户端和写入广播频道的消息信封
type envelope struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Hub 连接注册表。一个用户可以有多个并行连接,全部归入同一个房间。
type Hub struct {
	mu    sync.RWMutex
	rooms map[uint64]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{rooms: make(map[uint64]map[*Client]struct{})}
}

// Register 把连接加入所属用户的房间
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	room, ok := h.rooms[c.UserID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[c.UserID] = room
	}
	room[c] = struct{}{}
	h.mu.Unlock()

	metrics.WsConnections.Inc()
}

// Unregister 把连接移出房间并关闭其发送通道,重复调用安全
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[c.UserID]
	if !ok {
		return
	}
	if _, member := room[c]; !member {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, c.UserID)
	}
	close(c.send)
	metrics.WsConnections.Dec()
}

// EmitToRoom 向指定用户的全部连接推送事件
func (h *Hub) EmitToRoom(userID uint64, event string, payload interface{}) {
	data, err := json.Marshal(envelope{Type: event, Payload: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[userID] {
		c.enqueue(data)
	}
}

// EmitGlobal 向全部在线连接广播事件
func (h *Hub) EmitGlobal(event string, payload interface{}) {
	data, err := json.Marshal(envelope{Type: event, Payload: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, room := range h.rooms {
		for c := range room {
			c.enqueue(data)
		}
	}
}

// Online 返回指定用户当前的连接数
func (h *Hub) Online(userID uint64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}

// Shutdown 关闭全部在线连接,进程退出前调用
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, room := range h.rooms {
		for c := range room {
			close(c.send)
			_ = c.conn.Close()
			metrics.WsConnections.Dec()
		}
	}
	h.rooms = make(map[uint64]map[*Client]struct{})
}
