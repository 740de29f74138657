package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"log/slog"

	infraRAG "github.com/docchat/backend/internal/infrastructure/rag"
	"github.com/docchat/backend/internal/infrastructure/log"
)

// Client LLM Chat 客户端（OpenAI 兼容）
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *slog.Logger
}

// ChatRequest Chat API 请求
type ChatRequest struct {
	Messages []Message `json:"messages"`
	Model    string    `json:"model,omitempty"`
	Stream   bool      `json:"stream,omitempty"`
}

// Message Chat 消息
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatResponse Chat API 响应
type ChatResponse struct {
	ID      string `json:"id,omitempty"`
	Object  string `json:"object,omitempty"`
	Created int64  `json:"created,omitempty"`
	Model   string `json:"model,omitempty"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// chatStreamChunk 流式响应的单个数据块
type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// NewClient 创建 LLM 客户端
func NewClient(baseURL, apiKey, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	baseURL = strings.TrimSuffix(baseURL, "/")

	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			// 流式生成可能持续较久，不在 Client 级别设超时，
			// 由调用方通过 context 控制
			Timeout: 0,
		},
		logger: log.NewModuleLogger("llm", "client"),
	}
}

// NewClientFromConfig 从持久化的 RAG 配置创建 LLM 客户端
func NewClientFromConfig(cm *infraRAG.ConfigManager) (*Client, error) {
	config, err := cm.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to read rag config: %w", err)
	}
	return NewClient(config.LLMChatAPI.URL, config.LLMChatAPI.APIKey, config.LLMChatAPI.Model), nil
}

// Chat 发起一次阻塞式对话请求，返回完整回答
func (c *Client) Chat(ctx context.Context, messages []Message) (string, error) {
	reqBody := ChatRequest{
		Messages: messages,
		Model:    c.model,
	}

	start := time.Now()
	resp, err := c.doChatRequest(ctx, reqBody)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode LLM response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("LLM API returned no choices")
	}

	c.logger.Info("LLM chat completed",
		"model", c.model,
		"latency_ms", time.Since(start).Milliseconds(),
		"tokens", chatResp.Usage.TotalTokens,
	)

	return chatResp.Choices[0].Message.Content, nil
}

// ChatStream 发起一次流式对话请求
// 每个内容增量产生时立即回调 onDelta，返回完整拼接结果
// onDelta 返回 error（如消费端断开）时中止生成
func (c *Client) ChatStream(ctx context.Context, messages []Message, onDelta func(delta string) error) (string, error) {
	reqBody := ChatRequest{
		Messages: messages,
		Model:    c.model,
		Stream:   true,
	}

	start := time.Now()
	resp, err := c.doChatRequest(ctx, reqBody)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	// 单行可能超过默认 64KB 上限
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}

		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			c.logger.Warn("Failed to parse stream chunk, skipping",
				"error", err,
			)
			continue
		}

		if len(chunk.Choices) == 0 {
			continue
		}

		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}

		full.WriteString(delta)
		if err := onDelta(delta); err != nil {
			return "", fmt.Errorf("stream consumer aborted: %w", err)
		}
	}

	if err := scanner.Err(); err != nil {
		// 消费端取消时 context 错误优先
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("failed to read stream: %w", err)
	}

	c.logger.Info("LLM stream completed",
		"model", c.model,
		"latency_ms", time.Since(start).Milliseconds(),
		"content_length", full.Len(),
	)

	return full.String(), nil
}

// TestConnection 测试 LLM API 连接
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.Chat(ctx, []Message{
		{Role: "user", Content: "This is a connectivity test. Reply with OK."},
	})
	if err != nil {
		return fmt.Errorf("LLM connection test failed: %w", err)
	}

	c.logger.Info("LLM connection test successful",
		"model", c.model,
	)

	return nil
}

// doChatRequest 发送 Chat API 请求
func (c *Client) doChatRequest(ctx context.Context, reqBody ChatRequest) (*http.Response, error) {
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))

	c.logger.Debug("Sending LLM chat request",
		"url", url,
		"model", c.model,
		"stream", reqBody.Stream,
		"messages", len(reqBody.Messages),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("LLM API request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("LLM API returned status %d: %s", resp.StatusCode, string(body))
	}

	return resp, nil
}
