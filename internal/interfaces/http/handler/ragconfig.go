package handler

import (
	"net/http"

	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/docchat/backend/internal/application/ingest"
	"github.com/docchat/backend/internal/infrastructure/log"
	infraRAG "github.com/docchat/backend/internal/infrastructure/rag"
)

// RAGConfigHandler RAG 配置与索引统计处理器
type RAGConfigHandler struct {
	configManager *infraRAG.ConfigManager
	ingestService *ingest.Service
	logger        *slog.Logger
}

// NewRAGConfigHandler 创建 RAG 配置处理器
func NewRAGConfigHandler(configManager *infraRAG.ConfigManager, ingestService *ingest.Service) *RAGConfigHandler {
	return &RAGConfigHandler{
		configManager: configManager,
		ingestService: ingestService,
		logger:        log.NewModuleLogger("rag", "config_handler"),
	}
}

// maskAPIKey API Key 打码，仅保留末四位
func maskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

// GetConfig 返回 RAG 配置（API Key 打码）
// GET /api/v1/rag/config
func (h *RAGConfigHandler) GetConfig(c *gin.Context) {
	config, err := h.configManager.ReadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"embedding_api": gin.H{
			"url":     config.EmbeddingAPI.URL,
			"api_key": maskAPIKey(config.EmbeddingAPI.APIKey),
			"model":   config.EmbeddingAPI.Model,
		},
		"llm_chat_api": gin.H{
			"url":     config.LLMChatAPI.URL,
			"api_key": maskAPIKey(config.LLMChatAPI.APIKey),
			"model":   config.LLMChatAPI.Model,
		},
		"qdrant": config.Qdrant,
	})
}

// UpdateConfigRequest 配置更新请求
type UpdateConfigRequest struct {
	EmbeddingAPI *infraRAG.APIConfig `json:"embedding_api,omitempty"`
	LLMChatAPI   *infraRAG.APIConfig `json:"llm_chat_api,omitempty"`
}

// UpdateConfig 更新 RAG 配置
// POST /api/v1/rag/config
// 省略的字段保留原值，API Key 为空时不覆盖已存储的 Key
func (h *RAGConfigHandler) UpdateConfig(c *gin.Context) {
	var req UpdateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	config, err := h.configManager.ReadConfig()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if req.EmbeddingAPI != nil {
		applyAPIConfig(&config.EmbeddingAPI, req.EmbeddingAPI)
	}
	if req.LLMChatAPI != nil {
		applyAPIConfig(&config.LLMChatAPI, req.LLMChatAPI)
	}

	if err := h.configManager.WriteConfig(config); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.logger.Info("RAG config updated")
	c.JSON(http.StatusOK, gin.H{"message": "config updated"})
}

// applyAPIConfig 应用配置更新，空 Key 不覆盖
func applyAPIConfig(dst *infraRAG.APIConfig, src *infraRAG.APIConfig) {
	dst.URL = src.URL
	dst.Model = src.Model
	if src.APIKey != "" {
		dst.APIKey = src.APIKey
	}
}

// Stats 返回索引统计
// GET /api/v1/rag/stats
func (h *RAGConfigHandler) Stats(c *gin.Context) {
	stats, err := h.ingestService.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_documents": stats.TotalDocuments,
		"total_chunks":    stats.TotalChunks,
		"last_indexed_at": stats.LastIndexedAt,
	})
}
