package websocket

import (
	"log/slog"
	"time"

	"github.com/docchat/backend/internal/domain/events"
	"github.com/docchat/backend/internal/infrastructure/log"
)

// ProgressMessage 推送给客户端的进度消息
type ProgressMessage struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Documents int    `json:"documents,omitempty"`
	Chunks    int    `json:"chunks,omitempty"`
	Error     string `json:"error,omitempty"`
}

// IngestNotifier 订阅索引事件并推送到 WebSocket 客户端
type IngestNotifier struct {
	hub    *Hub
	logger *slog.Logger
	unsub  []func()
}

// NewIngestNotifier 创建索引进度通知器
func NewIngestNotifier(hub *Hub, eventBus events.EventBus) *IngestNotifier {
	n := &IngestNotifier{
		hub:    hub,
		logger: log.NewModuleLogger("websocket", "ingest_notifier"),
	}

	for _, eventType := range []events.EventType{
		events.IngestStarted,
		events.IngestCompleted,
		events.IngestFailed,
	} {
		n.unsub = append(n.unsub, eventBus.Subscribe(eventType, events.HandlerFunc(n.handle)))
	}

	return n
}

// handle 将索引事件转为进度消息并广播
func (n *IngestNotifier) handle(event events.Event) error {
	msg := ProgressMessage{
		Type:      string(event.Type()),
		Timestamp: event.Timestamp().Format(time.RFC3339),
	}

	if ingestEvent, ok := event.(*events.IngestEvent); ok {
		msg.Documents = ingestEvent.Documents
		msg.Chunks = ingestEvent.Chunks
		msg.Error = ingestEvent.Error
	}

	if err := n.hub.Broadcast(msg); err != nil {
		n.logger.Error("Failed to broadcast progress message",
			"type", msg.Type,
			"error", err,
		)
		return err
	}

	return nil
}

// Close 取消事件订阅
func (n *IngestNotifier) Close() {
	for _, unsub := range n.unsub {
		unsub()
	}
}
