package websocket

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/backend/internal/domain/events"
	"github.com/docchat/backend/internal/infrastructure/watcher"
)

// TestHub_Broadcast 测试广播到所有连接
func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	conn1 := NewConnection()
	conn2 := NewConnection()
	hub.Register(conn1)
	hub.Register(conn2)

	require.NoError(t, hub.Broadcast(map[string]string{"type": "test"}))

	for _, conn := range []*Connection{conn1, conn2} {
		select {
		case data := <-conn.Send:
			var msg map[string]string
			require.NoError(t, json.Unmarshal(data, &msg))
			assert.Equal(t, "test", msg["type"])
		case <-time.After(time.Second):
			t.Fatal("connection did not receive broadcast")
		}
	}
}

// TestHub_Unregister 测试注销后连接通道被关闭
func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	conn := NewConnection()
	hub.Register(conn)
	hub.Unregister(conn)

	select {
	case _, ok := <-conn.Send:
		assert.False(t, ok, "注销后 Send 通道应已关闭")
	case <-time.After(time.Second):
		t.Fatal("Send channel not closed after unregister")
	}
}

// TestHub_RegisterUnregisterAfterStop 测试 Hub 停止后注册与注销不会阻塞
func TestHub_RegisterUnregisterAfterStop(t *testing.T) {
	hub := NewHub()
	hub.Start()

	conn := NewConnection()
	hub.Register(conn)
	hub.Stop()

	done := make(chan struct{})
	go func() {
		hub.Unregister(conn)
		hub.Register(NewConnection())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Register/Unregister blocked after Stop")
	}
}

// TestIngestNotifier_ForwardsEvents 测试索引事件被转发为进度消息
func TestIngestNotifier_ForwardsEvents(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	bus := watcher.NewEventBus()
	defer bus.Close()

	notifier := NewIngestNotifier(hub, bus)
	defer notifier.Close()

	conn := NewConnection()
	hub.Register(conn)

	bus.Publish(events.NewIngestCompleted(2, 17))

	select {
	case data := <-conn.Send:
		var msg ProgressMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, string(events.IngestCompleted), msg.Type)
		assert.Equal(t, 2, msg.Documents)
		assert.Equal(t, 17, msg.Chunks)
		assert.Empty(t, msg.Error)
	case <-time.After(time.Second):
		t.Fatal("progress message not received")
	}
}

// TestIngestNotifier_FailedEventCarriesError 测试失败事件包含错误信息
func TestIngestNotifier_FailedEventCarriesError(t *testing.T) {
	hub := NewHub()
	hub.Start()
	defer hub.Stop()

	bus := watcher.NewEventBus()
	defer bus.Close()

	notifier := NewIngestNotifier(hub, bus)
	defer notifier.Close()

	conn := NewConnection()
	hub.Register(conn)

	bus.Publish(events.NewIngestFailed(errors.New("embedding service unavailable")))

	select {
	case data := <-conn.Send:
		var msg ProgressMessage
		require.NoError(t, json.Unmarshal(data, &msg))
		assert.Equal(t, string(events.IngestFailed), msg.Type)
		assert.Equal(t, "embedding service unavailable", msg.Error)
	case <-time.After(time.Second):
		t.Fatal("progress message not received")
	}
}
