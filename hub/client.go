package hub

import (
	"context"
	"encoding/json"
	"time"

	"listenboard/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10 // 必须小于 pongWait
	maxMessageSize = 4096
	sendBuffer     = 64
)

// Handler processes a message sent by the browser.
type Handler func(ctx context.Context, c *Client, msg *WSMessage)

// Client WebSocket 客户端
type Client struct {
	ID   string
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
}

// NewClient 创建客户端
func NewClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   uuid.NewString(),
		Hub:  h,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
}

// ReadPump 读取消息循环
func (c *Client) ReadPump(ctx context.Context, handler Handler) {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error", logger.ErrorField(err), logger.String("client", c.ID))
			}
			return
		}

		var msg WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			logger.Warn("invalid message format", logger.ErrorField(err), logger.String("client", c.ID))
			continue
		}

		if msg.Type == MsgTypePing {
			c.SendMessage(MsgTypePong, nil)
			continue
		}
		if handler != nil {
			handler(ctx, c, &msg)
		}
	}
}

// WritePump 写入消息循环
func (c *Client) WritePump() {
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
				// Hub 关闭了通道
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

// SendMessage queues a message for this client only. A full buffer drops it.
func (c *Client) SendMessage(t MessageType, payload interface{}) {
	data, err := Encode(t, payload)
	if err != nil {
		logger.Warn("encode message failed", logger.ErrorField(err))
		return
	}
	defer func() {
		// Send 可能已被 Hub 关闭
		_ = recover()
	}()
	select {
	case c.Send <- data:
	default:
	}
}
