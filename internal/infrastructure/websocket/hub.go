package websocket

import (
	"encoding/json"
	"sync"
)

// Hub WebSocket 连接管理中心
// 向所有已连接客户端广播索引进度消息
type Hub struct {
	// 已注册的连接
	connections map[*Connection]bool
	// 注册连接
	register chan *Connection
	// 注销连接
	unregister chan *Connection
	// 广播消息
	broadcast chan []byte
	// 停止信号
	stopCh chan struct{}
	mu     sync.RWMutex
}

// Connection WebSocket 连接
type Connection struct {
	Send chan []byte
}

// NewConnection 创建连接
func NewConnection() *Connection {
	return &Connection{
		Send: make(chan []byte, 16),
	}
}

// NewHub 创建 Hub
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
		broadcast:   make(chan []byte),
		stopCh:      make(chan struct{}),
	}
}

// Run 运行 Hub（需要在 goroutine 中运行）
func (h *Hub) Run() {
	for {
		select {
		case <-h.stopCh:
			h.mu.Lock()
			for conn := range h.connections {
				close(conn.Send)
				delete(h.connections, conn)
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = true
			h.mu.Unlock()

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.Send)
			}
			h.mu.Unlock()

		case data := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.connections {
				select {
				case conn.Send <- data:
				default:
					// 消费过慢的连接直接断开
					close(conn.Send)
					delete(h.connections, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Start 启动 Hub（启动后台 goroutine）
func (h *Hub) Start() {
	go h.Run()
}

// Stop 停止 Hub 并断开所有连接
func (h *Hub) Stop() {
	close(h.stopCh)
}

// Register 注册连接
// Hub 停止后直接返回，不再阻塞
func (h *Hub) Register(conn *Connection) {
	select {
	case h.register <- conn:
	case <-h.stopCh:
	}
}

// Unregister 注销连接
// Hub 停止后直接返回，不再阻塞
func (h *Hub) Unregister(conn *Connection) {
	select {
	case h.unregister <- conn:
	case <-h.stopCh:
	}
}

// Broadcast 向所有连接广播消息
func (h *Hub) Broadcast(data interface{}) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- jsonData:
	case <-h.stopCh:
	}
	return nil
}

// ConnectionCount 当前连接数
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}
