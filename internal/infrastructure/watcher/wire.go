package watcher

import (
	"github.com/docchat/backend/internal/domain/events"
	"github.com/docchat/backend/internal/infrastructure/config"
)

// ProvideEventBus 提供事件总线实例
func ProvideEventBus() events.EventBus {
	return NewEventBus()
}

// ProvideDocumentWatcher 提供文档监听器实例
func ProvideDocumentWatcher(eventBus events.EventBus, docsConfig *config.DocumentsConfig) (*DocumentWatcher, error) {
	watchConfig := DefaultWatchConfig()
	watchConfig.DocumentsDir = docsConfig.Dir

	return NewDocumentWatcher(watchConfig, eventBus)
}
