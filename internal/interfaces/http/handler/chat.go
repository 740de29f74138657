package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/gin-gonic/gin"

	appChat "github.com/docchat/backend/internal/application/chat"
	"github.com/docchat/backend/internal/infrastructure/log"
	"github.com/docchat/backend/internal/interfaces/http/response"
)

// ChatHandler 问答处理器
type ChatHandler struct {
	workflow *appChat.Workflow
	logger   *slog.Logger
}

// NewChatHandler 创建问答处理器
func NewChatHandler(workflow *appChat.Workflow) *ChatHandler {
	return &ChatHandler{
		workflow: workflow,
		logger:   log.NewModuleLogger("chat", "handler"),
	}
}

// AskRequest 提问请求
type AskRequest struct {
	Query string `json:"query" binding:"required"`
}

// askLine NDJSON 响应中的单行
// 增量行只含 content，终止行只含 done 或 error
type askLine struct {
	Content string `json:"content,omitempty"`
	Done    bool   `json:"done,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ask 处理提问请求，按 NDJSON 流式返回回答
// POST /ask
func (h *ChatHandler) Ask(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "application/x-ndjson")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)

	start := time.Now()
	encoder := json.NewEncoder(c.Writer)

	// 客户端断开时的写失败只记日志，事件流仍需读完
	writeLine := func(line askLine) {
		if err := encoder.Encode(line); err != nil {
			h.logger.Debug("Client disconnected during stream", "error", err)
			return
		}
		flusher.Flush()
	}

	for event := range h.workflow.Ask(c.Request.Context(), req.Query) {
		switch {
		case event.Err != nil:
			writeLine(askLine{Error: event.Err.Error()})
		case event.Done:
			writeLine(askLine{Done: true})
		default:
			writeLine(askLine{Content: event.Content})
		}
	}

	h.logger.Info("Ask request completed",
		"latency_ms", time.Since(start).Milliseconds(),
	)
}

// turnView 历史记录的响应视图
type turnView struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

// History 返回完整对话历史
// GET /api/v1/chat/history
func (h *ChatHandler) History(c *gin.Context) {
	turns, err := h.workflow.History()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, 1, err.Error())
		return
	}

	views := make([]turnView, len(turns))
	for i, turn := range turns {
		views[i] = turnView{
			Role:      string(turn.Role),
			Content:   turn.Content,
			CreatedAt: turn.CreatedAt.Format(time.RFC3339),
		}
	}

	response.Success(c, gin.H{
		"turns": views,
		"total": len(views),
	})
}

// ClearHistory 清空对话历史
// DELETE /api/v1/chat/history
func (h *ChatHandler) ClearHistory(c *gin.Context) {
	if err := h.workflow.ClearHistory(); err != nil {
		response.Error(c, http.StatusInternalServerError, 1, err.Error())
		return
	}
	response.Success(c, nil)
}
