package hub

import (
	"encoding/json"
	"html/template"
	"sync"
	"time"

	"listenboard/logger"
	"listenboard/render"
)

// MessageType 消息类型
type MessageType string

const (
	MsgTypePanels   MessageType = "panels"   // 面板更新 (服务端 -> 浏览器)
	MsgTypeProgress MessageType = "progress" // 进度条更新
	MsgTypeSetTerm  MessageType = "set_term" // 切换时间窗口 (浏览器 -> 服务端)
	MsgTypeError    MessageType = "error"
	MsgTypePing     MessageType = "ping"
	MsgTypePong     MessageType = "pong"
)

// WSMessage WebSocket 消息结构
type WSMessage struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// SetTermData 切换时间窗口请求
type SetTermData struct {
	Kind string `json:"kind"`
	Term string `json:"term"`
}

// ErrorData 错误消息
type ErrorData struct {
	Message string `json:"message"`
}

type registration struct {
	client  *Client
	welcome func(*Client)
}

// Hub fans dashboard updates out to every connected browser.
type Hub struct {
	clients map[*Client]bool

	register   chan registration
	unregister chan *Client
	broadcast  chan []byte

	mu   sync.RWMutex
	done chan struct{}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan registration),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
	}
}

// Run 启动 Hub 主循环
func (h *Hub) Run() {
	for {
		select {
		case reg := <-h.register:
			// welcome 在主循环内执行，保证它先于之后的广播进入发送队列
			if reg.welcome != nil {
				reg.welcome(reg.client)
			}
			h.mu.Lock()
			h.clients[reg.client] = true
			h.mu.Unlock()
			logger.Info("dashboard viewer connected", logger.String("client", reg.client.ID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.broadcastAll(msg)

		case <-h.done:
			h.cleanup()
			return
		}
	}
}

// Stop 停止 Hub
func (h *Hub) Stop() {
	close(h.done)
}

// removeClient needs h.mu held.
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
		logger.Info("dashboard viewer disconnected", logger.String("client", client.ID))
	}
}

func (h *Hub) broadcastAll(msg []byte) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		select {
		case c.Send <- msg:
		default:
			// 发送缓冲区满，移除客户端
			h.mu.Lock()
			h.removeClient(c)
			h.mu.Unlock()
		}
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.Send)
	}
	h.clients = make(map[*Client]bool)
}

// Register 注册客户端
func (h *Hub) Register(c *Client) {
	h.RegisterWithWelcome(c, nil)
}

// RegisterWithWelcome registers c and queues welcome's messages ahead of any
// broadcast the client will receive.
func (h *Hub) RegisterWithWelcome(c *Client, welcome func(*Client)) {
	select {
	case h.register <- registration{client: c, welcome: welcome}:
	case <-h.done:
	}
}

// Unregister 注销客户端
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount 当前连接数
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// PublishPanels broadcasts changed panel markup keyed by element id.
func (h *Hub) PublishPanels(panels map[string]template.HTML) {
	h.publish(MsgTypePanels, panels)
}

// PublishProgress broadcasts the progress bar.
func (h *Hub) PublishProgress(p render.Progress) {
	h.publish(MsgTypeProgress, p)
}

func (h *Hub) publish(t MessageType, payload interface{}) {
	data, err := Encode(t, payload)
	if err != nil {
		logger.Error("encode broadcast failed", logger.ErrorField(err), logger.String("type", string(t)))
		return
	}
	select {
	case h.broadcast <- data:
	case <-h.done:
	default:
		logger.Warn("broadcast queue full, dropping update", logger.String("type", string(t)))
	}
}

// Encode builds a WSMessage with payload as its data.
func Encode(t MessageType, payload interface{}) ([]byte, error) {
	msg := WSMessage{Type: t, Timestamp: time.Now().UnixMilli()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Data = raw
	}
	return json.Marshal(msg)
}
