package wire

import (
	"database/sql"

	"log/slog"

	appIngest "github.com/docchat/backend/internal/application/ingest"
	"github.com/docchat/backend/internal/domain/events"
	applog "github.com/docchat/backend/internal/infrastructure/log"
	"github.com/docchat/backend/internal/infrastructure/watcher"
	"github.com/docchat/backend/internal/infrastructure/websocket"
	interfacesHTTP "github.com/docchat/backend/internal/interfaces/http"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfacesHTTP.HTTPServer

	wsHub           *websocket.Hub
	ingestNotifier  *websocket.IngestNotifier
	ingestService   *appIngest.Service
	documentWatcher *watcher.DocumentWatcher
	eventBus        events.EventBus
	db              *sql.DB
	logger          *slog.Logger
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfacesHTTP.HTTPServer,
	wsHub *websocket.Hub,
	ingestNotifier *websocket.IngestNotifier,
	ingestService *appIngest.Service,
	documentWatcher *watcher.DocumentWatcher,
	eventBus events.EventBus,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer:      httpServer,
		wsHub:           wsHub,
		ingestNotifier:  ingestNotifier,
		ingestService:   ingestService,
		documentWatcher: documentWatcher,
		eventBus:        eventBus,
		db:              db,
		logger:          applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动所有服务
func (a *App) Start() error {
	a.logger.Info("Starting docchat backend application")

	// 启动 WebSocket Hub
	a.wsHub.Start()

	// 启动文档目录监听
	if a.documentWatcher != nil {
		if err := a.documentWatcher.Start(); err != nil {
			a.logger.Error("Failed to start document watcher",
				"error", err,
			)
		} else {
			a.logger.Info("Document watcher started")
		}
	}

	// 启动 HTTP 服务器（goroutine）
	go func() {
		if err := a.HTTPServer.Start(); err != nil {
			a.logger.Error("Failed to start HTTP server",
				"error", err,
			)
		}
	}()

	a.logger.Info("docchat backend application started successfully")
	return nil
}

// Stop 停止所有服务
func (a *App) Stop() error {
	a.logger.Info("Stopping docchat backend application")

	if err := a.HTTPServer.Stop(); err != nil {
		a.logger.Error("Error stopping HTTP server", "error", err)
	}

	if a.documentWatcher != nil {
		a.documentWatcher.Stop()
	}

	if a.ingestService != nil {
		a.ingestService.Close()
	}
	if a.ingestNotifier != nil {
		a.ingestNotifier.Close()
	}

	if a.eventBus != nil {
		a.eventBus.Close()
	}

	a.wsHub.Stop()

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Error("Error closing database", "error", err)
		}
	}

	a.logger.Info("docchat backend application stopped")
	return nil
}
