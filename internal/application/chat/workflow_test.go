package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainChat "github.com/docchat/backend/internal/domain/chat"
	domainRAG "github.com/docchat/backend/internal/domain/rag"
	"github.com/docchat/backend/internal/infrastructure/config"
	"github.com/docchat/backend/internal/infrastructure/llm"
)

// fakeRepo 内存版对话仓库
type fakeRepo struct {
	mu    sync.Mutex
	turns map[string][]*domainChat.Turn
	fail  bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{turns: make(map[string][]*domainChat.Turn)}
}

func (r *fakeRepo) AppendTurn(turn *domainChat.Turn) error {
	return r.AppendTurns([]*domainChat.Turn{turn})
}

func (r *fakeRepo) AppendTurns(turns []*domainChat.Turn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return errors.New("storage unavailable")
	}
	for _, turn := range turns {
		r.turns[turn.ThreadID] = append(r.turns[turn.ThreadID], turn)
	}
	return nil
}

func (r *fakeRepo) GetTurns(threadID string) ([]*domainChat.Turn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domainChat.Turn, len(r.turns[threadID]))
	copy(out, r.turns[threadID])
	return out, nil
}

func (r *fakeRepo) CountTurns(threadID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.turns[threadID]), nil
}

func (r *fakeRepo) ClearThread(threadID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.turns, threadID)
	return nil
}

// fakeEmbedder 固定向量或失败
type fakeEmbedder struct {
	err    error
	lastIn string
}

func (e *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	e.lastIn = text
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeRetriever 固定命中结果或失败
type fakeRetriever struct {
	chunks []*domainRAG.ScoredChunk
	err    error
}

func (r *fakeRetriever) Query(ctx context.Context, queryVector []float32, limit int) ([]*domainRAG.ScoredChunk, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.chunks, nil
}

// fakeGenerator 按预设增量流式输出
type fakeGenerator struct {
	deltas       []string
	err          error
	lastMessages []llm.Message
}

func (g *fakeGenerator) ChatStream(ctx context.Context, messages []llm.Message, onDelta func(string) error) (string, error) {
	g.lastMessages = messages
	if g.err != nil {
		return "", g.err
	}
	var full strings.Builder
	for _, delta := range g.deltas {
		if err := onDelta(delta); err != nil {
			return "", err
		}
		full.WriteString(delta)
	}
	return full.String(), nil
}

func testChatConfig() *config.ChatConfig {
	return &config.ChatConfig{
		ThreadID:        "test-thread",
		TopK:            5,
		RetrieveTimeout: 5 * time.Second,
		GenerateTimeout: 5 * time.Second,
	}
}

// collect 读取事件流，返回增量列表和终止事件
func collect(t *testing.T, events <-chan StreamEvent) ([]string, StreamEvent) {
	t.Helper()

	var deltas []string
	var terminal StreamEvent
	terminalCount := 0

	for event := range events {
		if event.IsTerminal() {
			terminal = event
			terminalCount++
			continue
		}
		deltas = append(deltas, event.Content)
	}

	require.Equal(t, 1, terminalCount, "事件流应恰好包含一个终止事件")
	return deltas, terminal
}

// TestAsk_StreamsAndPersists 测试正常问答：增量拼接等于完整回答，历史落库
func TestAsk_StreamsAndPersists(t *testing.T) {
	repo := newFakeRepo()
	generator := &fakeGenerator{deltas: []string{"The sky ", "is ", "blue."}}
	w := NewWorkflow(repo, &fakeEmbedder{}, &fakeRetriever{}, generator, testChatConfig())

	deltas, terminal := collect(t, w.Ask(context.Background(), "why is the sky blue?"))

	assert.True(t, terminal.Done)
	assert.NoError(t, terminal.Err)
	assert.Equal(t, "The sky is blue.", strings.Join(deltas, ""))

	turns, err := repo.GetTurns("test-thread")
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, domainChat.RoleHuman, turns[0].Role)
	assert.Equal(t, "why is the sky blue?", turns[0].Content)
	assert.Equal(t, domainChat.RoleAssistant, turns[1].Role)
	assert.Equal(t, "The sky is blue.", turns[1].Content)
}

// TestAsk_EmptyQuery 测试空白问题直接返回错误终止事件
func TestAsk_EmptyQuery(t *testing.T) {
	repo := newFakeRepo()
	w := NewWorkflow(repo, &fakeEmbedder{}, &fakeRetriever{}, &fakeGenerator{}, testChatConfig())

	deltas, terminal := collect(t, w.Ask(context.Background(), "   "))

	assert.Empty(t, deltas)
	assert.ErrorIs(t, terminal.Err, domainChat.ErrEmptyQuery)

	count, err := repo.CountTurns("test-thread")
	require.NoError(t, err)
	assert.Zero(t, count, "空问题不应写入历史")
}

// TestAsk_RetrievalFailureDegrades 测试检索失败时降级为空上下文继续生成
func TestAsk_RetrievalFailureDegrades(t *testing.T) {
	repo := newFakeRepo()
	generator := &fakeGenerator{deltas: []string{"I don't have relevant context."}}
	w := NewWorkflow(repo,
		&fakeEmbedder{err: errors.New("embedding service down")},
		&fakeRetriever{},
		generator,
		testChatConfig(),
	)

	deltas, terminal := collect(t, w.Ask(context.Background(), "anything indexed?"))

	assert.True(t, terminal.Done)
	assert.NotEmpty(t, deltas)

	// 系统提示词的上下文部分为空
	require.NotEmpty(t, generator.lastMessages)
	assert.Equal(t, "system", generator.lastMessages[0].Role)
	assert.Contains(t, generator.lastMessages[0].Content, "Context:\n\n")
}

// TestAsk_ContextInjectedIntoPrompt 测试检索结果注入系统提示词
func TestAsk_ContextInjectedIntoPrompt(t *testing.T) {
	repo := newFakeRepo()
	generator := &fakeGenerator{deltas: []string{"ok"}}
	retriever := &fakeRetriever{chunks: []*domainRAG.ScoredChunk{
		{Text: "Go was announced in 2009.", Score: 0.912, Rank: 1},
		{Text: "Go 1.0 shipped in 2012.", Score: 0.843, Rank: 2},
	}}
	w := NewWorkflow(repo, &fakeEmbedder{}, retriever, generator, testChatConfig())

	_, terminal := collect(t, w.Ask(context.Background(), "when was Go released?"))
	require.True(t, terminal.Done)

	prompt := generator.lastMessages[0].Content
	assert.Contains(t, prompt, "[Result 1] (Score: 0.912)\nGo was announced in 2009.")
	assert.Contains(t, prompt, "[Result 2] (Score: 0.843)\nGo 1.0 shipped in 2012.")
}

// TestAsk_GenerationFailureKeepsHumanTurn 测试生成失败时保留用户消息
func TestAsk_GenerationFailureKeepsHumanTurn(t *testing.T) {
	repo := newFakeRepo()
	generator := &fakeGenerator{err: errors.New("model overloaded")}
	w := NewWorkflow(repo, &fakeEmbedder{}, &fakeRetriever{}, generator, testChatConfig())

	deltas, terminal := collect(t, w.Ask(context.Background(), "will this fail?"))

	assert.Empty(t, deltas)
	require.Error(t, terminal.Err)
	assert.ErrorIs(t, terminal.Err, domainChat.ErrGeneration)

	turns, err := repo.GetTurns("test-thread")
	require.NoError(t, err)
	require.Len(t, turns, 1, "失败时只保留用户消息")
	assert.Equal(t, domainChat.RoleHuman, turns[0].Role)
}

// blockingGenerator 输出一个增量后挂起，直到 ctx 取消
type blockingGenerator struct {
	firstDelta chan struct{}
}

func (g *blockingGenerator) ChatStream(ctx context.Context, messages []llm.Message, onDelta func(string) error) (string, error) {
	if err := onDelta("partial "); err != nil {
		return "", err
	}
	close(g.firstDelta)
	<-ctx.Done()
	return "", ctx.Err()
}

// TestAsk_ConsumerCancellation 测试消费方取消后生成中止，不落库部分回答
func TestAsk_ConsumerCancellation(t *testing.T) {
	repo := newFakeRepo()
	generator := &blockingGenerator{firstDelta: make(chan struct{})}
	w := NewWorkflow(repo, &fakeEmbedder{}, &fakeRetriever{}, generator, testChatConfig())

	ctx, cancel := context.WithCancel(context.Background())
	events := w.Ask(ctx, "cancel me")

	// 收到第一个增量后取消
	go func() {
		<-generator.firstDelta
		cancel()
	}()

	done := make(chan struct{})
	var terminal StreamEvent
	go func() {
		defer close(done)
		_, terminal = collect(t, events)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event stream not closed after cancellation")
	}

	require.Error(t, terminal.Err)
	assert.ErrorIs(t, terminal.Err, domainChat.ErrGeneration)

	// 部分回答不落库，仅保留用户消息
	turns, err := repo.GetTurns("test-thread")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, domainChat.RoleHuman, turns[0].Role)
}

// TestAsk_HistoryReplayedInOrder 测试多轮问答后历史按序回放进 Prompt
func TestAsk_HistoryReplayedInOrder(t *testing.T) {
	repo := newFakeRepo()
	generator := &fakeGenerator{deltas: []string{"answer"}}
	w := NewWorkflow(repo, &fakeEmbedder{}, &fakeRetriever{}, generator, testChatConfig())

	for i := 1; i <= 3; i++ {
		_, terminal := collect(t, w.Ask(context.Background(), fmt.Sprintf("question %d", i)))
		require.True(t, terminal.Done)
	}

	// 三轮过后历史有 6 条，角色交替
	turns, err := repo.GetTurns("test-thread")
	require.NoError(t, err)
	require.Len(t, turns, 6)
	for i, turn := range turns {
		if i%2 == 0 {
			assert.Equal(t, domainChat.RoleHuman, turn.Role)
		} else {
			assert.Equal(t, domainChat.RoleAssistant, turn.Role)
		}
	}

	// 第三次提问的 Prompt：system + 前两轮 4 条 + 当前问题
	require.Len(t, generator.lastMessages, 6)
	assert.Equal(t, "system", generator.lastMessages[0].Role)
	assert.Equal(t, "question 1", generator.lastMessages[1].Content)
	assert.Equal(t, "user", generator.lastMessages[1].Role)
	assert.Equal(t, "assistant", generator.lastMessages[2].Role)
	assert.Equal(t, "question 3", generator.lastMessages[5].Content)
}

// TestAsk_EmbedsBareQuery 测试检索只向量化当前问题本身
func TestAsk_EmbedsBareQuery(t *testing.T) {
	repo := newFakeRepo()
	embedder := &fakeEmbedder{}
	generator := &fakeGenerator{deltas: []string{"a"}}
	w := NewWorkflow(repo, embedder, &fakeRetriever{}, generator, testChatConfig())

	_, terminal := collect(t, w.Ask(context.Background(), "latest question"))
	require.True(t, terminal.Done)

	assert.Equal(t, "latest question", embedder.lastIn)
}

// TestClearHistory 测试清空历史
func TestClearHistory(t *testing.T) {
	repo := newFakeRepo()
	generator := &fakeGenerator{deltas: []string{"x"}}
	w := NewWorkflow(repo, &fakeEmbedder{}, &fakeRetriever{}, generator, testChatConfig())

	_, terminal := collect(t, w.Ask(context.Background(), "hello"))
	require.True(t, terminal.Done)

	require.NoError(t, w.ClearHistory())

	turns, err := w.History()
	require.NoError(t, err)
	assert.Empty(t, turns)
}

// TestFormatContext 测试上下文格式化
func TestFormatContext(t *testing.T) {
	assert.Empty(t, FormatContext(nil))

	chunks := []*domainRAG.ScoredChunk{
		{Text: "first", Score: 0.5},
		{Text: "second", Score: 0.25},
	}
	got := FormatContext(chunks)
	assert.Equal(t, "[Result 1] (Score: 0.500)\nfirst\n\n[Result 2] (Score: 0.250)\nsecond", got)
}
