package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"projecthub/internal/dto"
	"projecthub/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message websocket 推送消息
type Message struct {
	Type      string                         `json:"type"`
	ProjectID string                         `json:"project_id"`
	Event     *dto.NotificationEventResponse `json:"event,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub 按项目分组的 websocket 连接表
// 每个连接由独立的写协程串行写出，慢连接缓冲满时被断开
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHub 创建 Hub；不带 Origin 头的客户端始终放行，"*" 放行全部来源
func NewHub(allowedOrigins []string, logger *zap.Logger) *Hub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = struct{}{}
	}

	h := &Hub{
		clients: make(map[string]map[*client]struct{}),
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			if _, ok := origins["*"]; ok {
				return true
			}
			_, ok := origins[origin]
			return ok
		},
	}
	return h
}

// Publish 向项目订阅者广播一条已投递事件
func (h *Hub) Publish(ev *model.NotificationEvent) {
	if ev.ProjectID == nil {
		return
	}
	resp := Response(ev)
	h.Broadcast(*ev.ProjectID, Message{Type: "notification", ProjectID: *ev.ProjectID, Event: &resp})
}

// Broadcast 向项目订阅者发送消息
func (h *Hub) Broadcast(projectID string, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("序列化推送消息失败", zap.Error(err))
		return
	}

	// 持读锁发送，unregister 需要写锁才能关闭通道
	var slow []*client
	h.mu.RLock()
	for c := range h.clients[projectID] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("推送缓冲已满，断开连接", zap.String("project_id", projectID))
		h.unregister(projectID, c)
	}
}

// Count 返回项目当前的订阅连接数
func (h *Hub) Count(projectID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[projectID])
}

// Serve 升级连接并阻塞直到客户端断开
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, projectID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	welcome, _ := json.Marshal(Message{Type: "connected", ProjectID: projectID})
	c.send <- welcome
	h.register(projectID, c)
	defer h.unregister(projectID, c)

	go h.writePump(projectID, c)
	h.readPump(projectID, c)
	return nil
}

// Close 断开全部连接
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.clients
	h.clients = make(map[string]map[*client]struct{})
	h.mu.Unlock()

	for _, set := range all {
		for c := range set {
			close(c.send)
		}
	}
}

func (h *Hub) register(projectID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[projectID] == nil {
		h.clients[projectID] = make(map[*client]struct{})
	}
	h.clients[projectID][c] = struct{}{}
}

// unregister 可重复调用，仅第一次关闭发送通道
func (h *Hub) unregister(projectID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[projectID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, projectID)
	}
	close(c.send)
}

// readPump 只处理控制帧，客户端消息直接丢弃
func (h *Hub) readPump(projectID string, c *client) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug("websocket 连接异常关闭", zap.String("project_id", projectID), zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(projectID string, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("websocket 写入失败", zap.String("project_id", projectID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
