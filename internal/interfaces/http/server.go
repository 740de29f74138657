// Package http 提供 HTTP 接口层
package http

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/docchat/backend/internal/infrastructure/config"
	"github.com/docchat/backend/internal/infrastructure/log"
	"github.com/docchat/backend/internal/interfaces/http/handler"
	"github.com/docchat/backend/internal/interfaces/http/middleware"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// NewServer 创建 HTTP 服务器
func NewServer(
	serverConfig *config.ServerConfig,
	chatHandler *handler.ChatHandler,
	uploadHandler *handler.UploadHandler,
	ragConfigHandler *handler.RAGConfigHandler,
	wsHandler *handler.WSHandler,
) *HTTPServer {
	router := gin.Default()
	router.Use(middleware.CORS())
	router.Use(middleware.EnsureUTF8Body())

	logger := log.NewModuleLogger("http", "server")

	// 核心问答与上传路由
	router.POST("/ask", chatHandler.Ask)
	router.POST("/upload-files", uploadHandler.UploadFiles)

	// 注册路由
	api := router.Group("/api/v1")
	{
		// 对话历史
		api.GET("/chat/history", chatHandler.History)
		api.DELETE("/chat/history", chatHandler.ClearHistory)

		// RAG 配置与统计
		rag := api.Group("/rag")
		{
			rag.GET("/config", ragConfigHandler.GetConfig)
			rag.POST("/config", ragConfigHandler.UpdateConfig)
			rag.GET("/stats", ragConfigHandler.Stats)
		}
	}

	// 索引进度推送
	router.GET("/ws", wsHandler.Serve)

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &HTTPServer{
		router:   router,
		httpPort: serverConfig.HTTPPort,
		logger:   logger,
	}
}

// Start 启动服务器
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:    s.httpPort,
		Handler: s.router,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	return s.server.ListenAndServe()
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// Stop 停止服务器
func (s *HTTPServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}
