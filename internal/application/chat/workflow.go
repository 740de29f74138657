// Package chat 实现两步式问答工作流：检索上下文，再流式生成回答
package chat

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"log/slog"

	domainChat "github.com/docchat/backend/internal/domain/chat"
	domainRAG "github.com/docchat/backend/internal/domain/rag"
	"github.com/docchat/backend/internal/infrastructure/config"
	"github.com/docchat/backend/internal/infrastructure/llm"
	"github.com/docchat/backend/internal/infrastructure/log"
)

// systemPromptTemplate 生成步骤的系统提示词
// %s 处填入检索到的上下文
const systemPromptTemplate = "You are a helpful assistant. Answer questions based on the provided context and conversation history. " +
	"If the context doesn't contain relevant information, say so honestly.\n\n" +
	"Context:\n%s\n\n" +
	"Now answer the user's question based on this context."

// Embedder 查询向量化
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Retriever 相似度检索
type Retriever interface {
	Query(ctx context.Context, queryVector []float32, limit int) ([]*domainRAG.ScoredChunk, error)
}

// Generator 流式生成
type Generator interface {
	ChatStream(ctx context.Context, messages []llm.Message, onDelta func(delta string) error) (string, error)
}

// Workflow 问答工作流
// 每次提问顺序执行两个步骤：
//  1. Retrieve：将最新问题向量化并检索相关片段，失败时降级为空上下文
//  2. Generate：合成系统提示词 + 完整历史，流式生成回答
//
// 回答成功后将问答双方的消息追加进对话历史；生成失败时仅保留用户消息
type Workflow struct {
	repo      domainChat.ConversationRepository
	embedder  Embedder
	retriever Retriever
	generator Generator
	config    *config.ChatConfig
	logger    *slog.Logger

	// 同一线程的提问串行执行，保证历史追加顺序
	threadMu sync.Mutex
	threads  map[string]*sync.Mutex
}

// NewWorkflow 创建问答工作流
func NewWorkflow(
	repo domainChat.ConversationRepository,
	embedder Embedder,
	retriever Retriever,
	generator Generator,
	chatConfig *config.ChatConfig,
) *Workflow {
	return &Workflow{
		repo:      repo,
		embedder:  embedder,
		retriever: retriever,
		generator: generator,
		config:    chatConfig,
		logger:    log.NewModuleLogger("chat", "workflow"),
		threads:   make(map[string]*sync.Mutex),
	}
}

// Ask 处理一次提问，返回回答事件流
// 返回的通道产生零或多个增量事件，随后恰好一个终止事件并关闭
func (w *Workflow) Ask(ctx context.Context, query string) <-chan StreamEvent {
	events := make(chan StreamEvent, 8)

	query = strings.TrimSpace(query)
	if query == "" {
		events <- errorEvent(domainChat.ErrEmptyQuery)
		close(events)
		return events
	}

	go func() {
		defer close(events)
		w.run(ctx, query, events)
	}()

	return events
}

// run 执行一次完整的问答流程
func (w *Workflow) run(ctx context.Context, query string, events chan<- StreamEvent) {
	threadID := w.threadID()

	mu := w.lockThread(threadID)
	mu.Lock()
	defer mu.Unlock()

	// 历史必须在生成前读取，当前问题不在其中
	history, err := w.repo.GetTurns(threadID)
	if err != nil {
		events <- errorEvent(fmt.Errorf("failed to load conversation history: %w", err))
		return
	}

	// 第一步：检索
	contextText := w.retrieveContext(ctx, query)

	// 第二步：生成
	answer, err := w.generateAnswer(ctx, query, contextText, history, events)

	humanTurn := domainChat.NewTurn(threadID, domainChat.RoleHuman, query)
	if err != nil {
		// 生成失败时保留用户消息，回答不落库
		if appendErr := w.repo.AppendTurn(humanTurn); appendErr != nil {
			w.logger.Error("Failed to persist human turn after generation failure",
				"thread_id", threadID,
				"error", appendErr,
			)
		}
		events <- errorEvent(err)
		return
	}

	assistantTurn := domainChat.NewTurn(threadID, domainChat.RoleAssistant, answer)
	if err := w.repo.AppendTurns([]*domainChat.Turn{humanTurn, assistantTurn}); err != nil {
		events <- errorEvent(fmt.Errorf("failed to persist conversation: %w", err))
		return
	}

	events <- doneEvent()
}

// retrieveContext 检索步骤
// 任何失败都降级为空上下文，不中断问答
func (w *Workflow) retrieveContext(ctx context.Context, query string) string {
	timeout := w.config.RetrieveTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retrieveCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()

	queryVector, err := w.embedder.EmbedText(retrieveCtx, query)
	if err != nil {
		w.logger.Warn("Query embedding failed, continuing without context",
			"error", err,
		)
		return ""
	}

	topK := w.config.TopK
	if topK <= 0 {
		topK = 5
	}
	chunks, err := w.retriever.Query(retrieveCtx, queryVector, topK)
	if err != nil {
		w.logger.Warn("Retrieval failed, continuing without context",
			"error", err,
		)
		return ""
	}

	w.logger.Info("Context retrieved",
		"results", len(chunks),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return FormatContext(chunks)
}

// generateAnswer 生成步骤
// 增量写入事件流，返回完整回答
func (w *Workflow) generateAnswer(
	ctx context.Context,
	query string,
	contextText string,
	history []*domainChat.Turn,
	events chan<- StreamEvent,
) (string, error) {
	timeout := w.config.GenerateTimeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	generateCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	messages := buildMessages(query, contextText, history)

	answer, err := w.generator.ChatStream(generateCtx, messages, func(delta string) error {
		select {
		case events <- deltaEvent(delta):
			return nil
		case <-generateCtx.Done():
			return generateCtx.Err()
		}
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", domainChat.ErrGeneration, err)
	}

	return answer, nil
}

// buildMessages 合成生成 Prompt
// 顺序为：系统提示词（含上下文）、完整历史、当前问题
func buildMessages(query, contextText string, history []*domainChat.Turn) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: fmt.Sprintf(systemPromptTemplate, contextText),
	})

	for _, turn := range history {
		messages = append(messages, llm.Message{
			Role:    llmRole(turn.Role),
			Content: turn.Content,
		})
	}

	messages = append(messages, llm.Message{Role: "user", Content: query})
	return messages
}

// llmRole 将领域角色映射为 Chat API 角色
func llmRole(role domainChat.Role) string {
	switch role {
	case domainChat.RoleHuman:
		return "user"
	case domainChat.RoleAssistant:
		return "assistant"
	default:
		return "system"
	}
}

// FormatContext 将检索结果格式化为上下文文本
// 每个片段带序号与相似度，片段之间以空行分隔；无结果时返回空串
func FormatContext(chunks []*domainRAG.ScoredChunk) string {
	if len(chunks) == 0 {
		return ""
	}

	parts := make([]string, len(chunks))
	for i, chunk := range chunks {
		rank := chunk.Rank
		if rank == 0 {
			rank = i + 1
		}
		parts[i] = fmt.Sprintf("[Result %d] (Score: %.3f)\n%s", rank, chunk.Score, chunk.Text)
	}
	return strings.Join(parts, "\n\n")
}

// lockThread 获取线程级互斥锁
func (w *Workflow) lockThread(threadID string) *sync.Mutex {
	w.threadMu.Lock()
	defer w.threadMu.Unlock()

	mu, ok := w.threads[threadID]
	if !ok {
		mu = &sync.Mutex{}
		w.threads[threadID] = mu
	}
	return mu
}
