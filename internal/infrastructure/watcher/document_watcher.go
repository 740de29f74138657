package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/docchat/backend/internal/domain/events"
	"github.com/docchat/backend/internal/infrastructure/log"
)

// WatchConfig DocumentWatcher 配置
type WatchConfig struct {
	// DocumentsDir 文档目录
	DocumentsDir string
	// DebounceDelay 防抖延迟
	DebounceDelay time.Duration
}

// DefaultWatchConfig 返回默认配置
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		DocumentsDir:  "./data",
		DebounceDelay: 500 * time.Millisecond,
	}
}

// DocumentWatcher 文档目录监听器
// 监听文档目录的增删改，防抖后发布 DocumentsChanged 事件
type DocumentWatcher struct {
	config   WatchConfig
	eventBus events.EventBus
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// 防抖相关
	debounceTimers map[string]*time.Timer
	debounceMu     sync.Mutex

	// 控制
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewDocumentWatcher 创建文档监听器
func NewDocumentWatcher(config WatchConfig, eventBus events.EventBus) (*DocumentWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &DocumentWatcher{
		config:         config,
		eventBus:       eventBus,
		watcher:        watcher,
		logger:         log.NewModuleLogger("watcher", "document_watcher"),
		debounceTimers: make(map[string]*time.Timer),
		stopCh:         make(chan struct{}),
	}, nil
}

// Start 启动文档监听
func (dw *DocumentWatcher) Start() error {
	dw.logger.Info("Starting document watcher",
		"documents_dir", dw.config.DocumentsDir,
	)

	// 目录不存在时先创建，保证监听可用
	if err := os.MkdirAll(dw.config.DocumentsDir, 0o755); err != nil {
		return err
	}

	if err := dw.watcher.Add(dw.config.DocumentsDir); err != nil {
		return err
	}

	dw.wg.Add(1)
	go dw.watchLoop()

	return nil
}

// Stop 停止文档监听
func (dw *DocumentWatcher) Stop() {
	dw.logger.Info("Stopping document watcher")

	close(dw.stopCh)
	dw.watcher.Close()
	dw.wg.Wait()

	// 取消所有防抖定时器
	dw.debounceMu.Lock()
	for _, timer := range dw.debounceTimers {
		timer.Stop()
	}
	dw.debounceMu.Unlock()

	dw.logger.Info("Document watcher stopped")
}

// watchLoop 事件监听循环
func (dw *DocumentWatcher) watchLoop() {
	defer dw.wg.Done()

	for {
		select {
		case <-dw.stopCh:
			return

		case event, ok := <-dw.watcher.Events:
			if !ok {
				return
			}
			dw.handleFsEvent(event)

		case err, ok := <-dw.watcher.Errors:
			if !ok {
				return
			}
			dw.logger.Error("Watcher error", "error", err)
		}
	}
}

// handleFsEvent 处理文件系统事件（带防抖）
func (dw *DocumentWatcher) handleFsEvent(fsEvent fsnotify.Event) {
	if !isDocumentFile(fsEvent.Name) {
		return
	}
	if !fsEvent.Has(fsnotify.Create) && !fsEvent.Has(fsnotify.Write) &&
		!fsEvent.Has(fsnotify.Remove) && !fsEvent.Has(fsnotify.Rename) {
		return
	}

	dw.debounceMu.Lock()
	defer dw.debounceMu.Unlock()

	// 取消之前的定时器
	if timer, exists := dw.debounceTimers[fsEvent.Name]; exists {
		timer.Stop()
	}

	// 创建新的防抖定时器
	dw.debounceTimers[fsEvent.Name] = time.AfterFunc(dw.config.DebounceDelay, func() {
		dw.emitDocumentEvent(fsEvent.Name)

		// 清理定时器
		dw.debounceMu.Lock()
		delete(dw.debounceTimers, fsEvent.Name)
		dw.debounceMu.Unlock()
	})
}

// emitDocumentEvent 发送文档变更事件
func (dw *DocumentWatcher) emitDocumentEvent(path string) {
	dw.eventBus.Publish(events.NewDocumentEvent(path))

	dw.logger.Debug("Document change event emitted",
		"path", path,
	)
}

// isDocumentFile 判断是否为受支持的文档文件
func isDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf", ".txt", ".md":
		return true
	default:
		return false
	}
}
