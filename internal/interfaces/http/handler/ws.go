package handler

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/docchat/backend/internal/infrastructure/log"
	"github.com/docchat/backend/internal/infrastructure/websocket"
)

const (
	// writeWait 单次写入超时
	writeWait = 10 * time.Second
	// pingPeriod 心跳间隔
	pingPeriod = 30 * time.Second
)

// upgrader WebSocket 升级器
// 前后端分端口运行，不校验 Origin
var upgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// WSHandler WebSocket 处理器
// 向客户端推送索引进度消息
type WSHandler struct {
	hub    *websocket.Hub
	logger *slog.Logger
}

// NewWSHandler 创建 WebSocket 处理器
func NewWSHandler(hub *websocket.Hub) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: log.NewModuleLogger("websocket", "handler"),
	}
}

// Serve 升级连接并持续推送进度消息
// GET /ws
func (h *WSHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewConnection()
	h.hub.Register(client)

	go h.writePump(conn, client)
	h.readPump(conn, client)
}

// writePump 将 Hub 消息写入连接
func (h *WSHandler) writePump(conn *gorilla.Conn, client *websocket.Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case data, ok := <-client.Send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub 已关闭该连接
				conn.WriteMessage(gorilla.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(gorilla.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(gorilla.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump 消费客户端消息直到连接断开
func (h *WSHandler) readPump(conn *gorilla.Conn, client *websocket.Connection) {
	defer func() {
		h.hub.Unregister(client)
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
