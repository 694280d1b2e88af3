package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 16
)

var errHubStopped = errors.New("notification hub stopped")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// BadgeClient 单个 websocket 连接
type BadgeClient struct {
	Hub    *NotificationHub
	Conn   *websocket.Conn
	Send   chan []byte
	UserID string
}

// readPump 只处理 pong 和关闭，客户端不需要上行消息
func (c *BadgeClient) readPump() {
	defer func() {
		select {
		case c.Hub.unregister <- c:
		case <-c.Hub.done:
		}
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.String("userId", c.UserID))
			}
			return
		}
	}
}

func (c *BadgeClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// NotificationHub 订阅 redis 徽章频道并推送给本实例上的在线用户
type NotificationHub struct {
	Redis   *redis.Client
	Channel string

	mu         sync.RWMutex
	clients    map[string]map[*BadgeClient]struct{}
	register   chan *BadgeClient
	unregister chan *BadgeClient
	ready      chan struct{}
	done       chan struct{}
}

func NewNotificationHub(rdb *redis.Client) *NotificationHub {
	return &NotificationHub{
		Redis:      rdb,
		Channel:    BadgeAwardChannel,
		clients:    make(map[string]map[*BadgeClient]struct{}),
		register:   make(chan *BadgeClient),
		unregister: make(chan *BadgeClient),
		ready:      make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Ready 订阅建立后关闭
func (h *NotificationHub) Ready() <-chan struct{} {
	return h.ready
}

// Run 阻塞直到 ctx 结束
func (h *NotificationHub) Run(ctx context.Context) {
	defer close(h.done)
	pubsub := h.Redis.Subscribe(ctx, h.Channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		logger.Log.Error("Badge notification subscribe failed", zap.Error(err))
		return
	}
	close(h.ready)
	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.mu.Lock()
			if h.clients[client.UserID] == nil {
				h.clients[client.UserID] = make(map[*BadgeClient]struct{})
			}
			h.clients[client.UserID][client] = struct{}{}
			h.mu.Unlock()
			monitoring.BadgeSubscribers.Inc()

		case client := <-h.unregister:
			h.remove(client)

		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event BadgeAwardEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				logger.Log.Error("PubSub unmarshal error", zap.Error(err))
				continue
			}
			h.deliver(event)
		}
	}
}

func (h *NotificationHub) deliver(event BadgeAwardEvent) {
	payload, _ := json.Marshal(WSMessage{Type: "BADGE_AWARDED", Data: event.Badges})

	var slow []*BadgeClient
	h.mu.RLock()
	for client := range h.clients[event.UserID] {
		select {
		case client.Send <- payload:
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// 缓冲区满的连接直接断开
	for _, c := range slow {
		h.remove(c)
	}
}

func (h *NotificationHub) remove(client *BadgeClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	if _, ok := set[client]; !ok {
		return
	}
	delete(set, client)
	if len(set) == 0 {
		delete(h.clients, client.UserID)
	}
	close(client.Send)
	monitoring.BadgeSubscribers.Dec()
}

func (h *NotificationHub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	closed := 0
	for userID, set := range h.clients {
		for client := range set {
			close(client.Send)
			closed++
		}
		delete(h.clients, userID)
	}
	monitoring.BadgeSubscribers.Set(0)
	logger.Log.Info("Notification hub stopped", zap.Int("closedConnections", closed))
}

// ClientCount 某用户在本实例上的连接数
func (h *NotificationHub) ClientCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// ServeWS 升级连接并注册到 hub
func (h *NotificationHub) ServeWS(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &BadgeClient{Hub: h, Conn: conn, Send: make(chan []byte, sendBuffer), UserID: userID}
	select {
	case h.register <- client:
	case <-h.done:
		conn.Close()
		return errHubStopped
	}

	go client.writePump()
	go client.readPump()
	return nil
}
