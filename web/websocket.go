package web

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"cricket-scoring-service/logger"
	"cricket-scoring-service/services"
)

// Client WebSocket客户端，按比赛ID订阅
type Client struct {
	id       string
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	matchIDs map[int64]bool // 订阅的比赛，空表示接收全部
	mu       sync.RWMutex
}

// Hub 按比赛频道分发实时事件。实现 services.Broadcaster 接口
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *services.LiveEvent
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub 创建新的Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan *services.LiveEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run 运行Hub事件循环
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			services.ConnectedClients.Set(float64(total))
			logger.Printf("[WS] Client %s registered. Total clients: %d", client.id, total)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			services.ConnectedClients.Set(float64(total))
			logger.Printf("[WS] Client %s unregistered. Total clients: %d", client.id, total)

		case event := <-h.broadcast:
			h.dispatch(event)
		}
	}
}

// dispatch 把事件发给该比赛频道的所有订阅者
func (h *Hub) dispatch(event *services.LiveEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("[WS] Failed to marshal event: %v", err)
		return
	}

	h.mu.RLock()
	var stale []*Client
	for client := range h.clients {
		if !client.subscribedTo(event.MatchID) {
			continue
		}
		select {
		case client.send <- payload:
		default:
			// 发送缓冲满视为客户端失联
			stale = append(stale, client)
		}
	}
	h.mu.RUnlock()

	if len(stale) > 0 {
		h.mu.Lock()
		for _, client := range stale {
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		}
		h.mu.Unlock()
	}
}

// BroadcastToMatch 实现 services.Broadcaster 接口。
// 非阻塞: Hub 队列满时丢弃，客户端靠下一条消息或重新拉取实时视图对齐
func (h *Hub) BroadcastToMatch(event *services.LiveEvent) {
	select {
	case h.broadcast <- event:
	default:
		logger.Errorf("[WS] Broadcast queue full, dropping %s for match %d", event.Type, event.MatchID)
	}
}

// ClientCount 当前连接的客户端数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// subscribedTo 客户端是否订阅了该比赛
func (c *Client) subscribedTo(matchID int64) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.matchIDs) == 0 {
		return true
	}
	return c.matchIDs[matchID]
}

// readPump 读取客户端消息（订阅控制）
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("[WS] Client %s error: %v", c.id, err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump 向客户端写入消息
func (c *Client) writePump() {
	defer c.conn.Close()

	for {
		message, ok := <-c.send
		if !ok {
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// subscribeMessage 客户端订阅控制消息
type subscribeMessage struct {
	Type     string  `json:"type"` // subscribe / unsubscribe
	MatchIDs []int64 `json:"match_ids"`
}

// handleMessage 处理订阅控制
func (c *Client) handleMessage(message []byte) {
	var msg subscribeMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Errorf("[WS] Malformed client message from %s: %v", c.id, err)
		return
	}

	switch msg.Type {
	case "subscribe":
		c.mu.Lock()
		c.matchIDs = make(map[int64]bool)
		for _, id := range msg.MatchIDs {
			c.matchIDs[id] = true
		}
		c.mu.Unlock()
		logger.Printf("[WS] Client %s subscribed to matches %v", c.id, msg.MatchIDs)

	case "unsubscribe":
		c.mu.Lock()
		c.matchIDs = make(map[int64]bool)
		c.mu.Unlock()
		logger.Printf("[WS] Client %s unsubscribed", c.id)
	}
}

func newClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:       uuid.NewString(),
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 64),
		matchIDs: make(map[int64]bool),
	}
}
