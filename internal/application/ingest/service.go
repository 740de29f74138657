package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/docchat/backend/internal/domain/events"
	domainRAG "github.com/docchat/backend/internal/domain/rag"
	"github.com/docchat/backend/internal/infrastructure/config"
	"github.com/docchat/backend/internal/infrastructure/log"
	infraRAG "github.com/docchat/backend/internal/infrastructure/rag"
)

// Embedder 批量向量化
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex 向量索引写入
type VectorIndex interface {
	RecreateCollection(ctx context.Context, vectorSize uint64) error
	UpsertChunks(ctx context.Context, chunks []*domainRAG.DocumentChunk, vectors [][]float32) error
}

// Service 文档摄取服务
// 扫描文档目录，抽取、切分、向量化并重建向量索引
// 同一时刻只允许一次摄取运行
type Service struct {
	docsConfig    *config.DocumentsConfig
	chunker       *Chunker
	embedder      Embedder
	index         VectorIndex
	configManager *infraRAG.ConfigManager
	eventBus      events.EventBus
	logger        *slog.Logger

	// 容量 1 的信号量，同一时刻只允许一次摄取
	sem chan struct{}

	// 记录运行期间到达的重复触发
	mu      sync.Mutex
	pending bool

	unsubscribe func()
}

// NewService 创建摄取服务
func NewService(
	docsConfig *config.DocumentsConfig,
	chunker *Chunker,
	embedder Embedder,
	index VectorIndex,
	configManager *infraRAG.ConfigManager,
	eventBus events.EventBus,
) *Service {
	s := &Service{
		docsConfig:    docsConfig,
		chunker:       chunker,
		embedder:      embedder,
		index:         index,
		configManager: configManager,
		eventBus:      eventBus,
		logger:        log.NewModuleLogger("ingest", "service"),
		sem:           make(chan struct{}, 1),
	}

	// 文档目录变化时自动重建索引
	s.unsubscribe = eventBus.Subscribe(events.DocumentsChanged, events.HandlerFunc(func(e events.Event) error {
		return s.triggerIngest()
	}))

	return s
}

// Close 取消事件订阅
func (s *Service) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// triggerIngest 异步触发一次全量摄取
// 已有摄取在运行时记为待执行，运行结束后补跑一次
func (s *Service) triggerIngest() error {
	select {
	case s.sem <- struct{}{}:
	default:
		s.mu.Lock()
		s.pending = true
		s.mu.Unlock()
		return nil
	}

	go func() {
		defer func() { <-s.sem }()
		for {
			if _, err := s.ingestAll(context.Background()); err != nil {
				s.logger.Error("Background ingest failed", "error", err)
			}

			s.mu.Lock()
			if !s.pending {
				s.mu.Unlock()
				return
			}
			s.pending = false
			s.mu.Unlock()
		}
	}()

	return nil
}

// IngestAll 同步执行一次全量摄取，返回索引统计
// 后台摄取进行中时等待其结束再运行，保证调用前落盘的文档被本次运行索引
func (s *Service) IngestAll(ctx context.Context) (*domainRAG.IndexStats, error) {
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	// 本次全量运行覆盖此前排队的触发
	s.mu.Lock()
	s.pending = false
	s.mu.Unlock()

	defer func() {
		<-s.sem

		s.mu.Lock()
		rerun := s.pending
		s.pending = false
		s.mu.Unlock()
		if rerun {
			s.triggerIngest()
		}
	}()

	return s.ingestAll(ctx)
}

// ingestAll 摄取流水线主体
func (s *Service) ingestAll(ctx context.Context) (*domainRAG.IndexStats, error) {
	start := time.Now()
	s.eventBus.Publish(events.NewIngestStarted())

	stats, err := s.runPipeline(ctx)
	if err != nil {
		s.eventBus.Publish(events.NewIngestFailed(err))
		return nil, err
	}

	s.eventBus.Publish(events.NewIngestCompleted(stats.TotalDocuments, stats.TotalChunks))
	s.logger.Info("Ingest completed",
		"documents", stats.TotalDocuments,
		"chunks", stats.TotalChunks,
		"duration", time.Since(start),
	)

	return stats, nil
}

// runPipeline 抽取 → 切分 → 向量化 → 重建索引 → 更新统计
func (s *Service) runPipeline(ctx context.Context) (*domainRAG.IndexStats, error) {
	paths, err := ListDocuments(s.docsConfig.Dir)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, domainRAG.ErrNoDocuments
	}

	documents := make([]*domainRAG.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := ExtractDocument(path)
		if err != nil {
			s.logger.Warn("Skipping unreadable document",
				"path", path,
				"error", err,
			)
			continue
		}
		if doc.Text == "" {
			s.logger.Warn("Skipping empty document", "path", path)
			continue
		}
		documents = append(documents, doc)
	}
	if len(documents) == 0 {
		return nil, domainRAG.ErrNoDocuments
	}

	chunks := s.chunker.ChunkDocuments(documents)
	if len(chunks) == 0 {
		return nil, domainRAG.ErrNoChunks
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, domainRAG.ErrEmptyEmbedding
	}

	// 全量重建，避免已删除文档的片段残留
	if err := s.index.RecreateCollection(ctx, uint64(len(vectors[0]))); err != nil {
		return nil, err
	}
	if err := s.index.UpsertChunks(ctx, chunks, vectors); err != nil {
		return nil, err
	}

	stats := &domainRAG.IndexStats{
		TotalDocuments: len(documents),
		TotalChunks:    len(chunks),
		LastIndexedAt:  time.Now().Unix(),
	}
	if err := s.configManager.UpdateIndexStats(stats.TotalDocuments, stats.TotalChunks, stats.LastIndexedAt); err != nil {
		s.logger.Warn("Failed to persist index stats", "error", err)
	}

	return stats, nil
}

// SaveUpload 保存上传的文档到文档目录
// 返回落盘后的完整路径
func (s *Service) SaveUpload(filename string, reader io.Reader) (string, error) {
	name := filepath.Base(filename)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "", fmt.Errorf("invalid filename: %q", filename)
	}
	if !supportedExtensions[strings.ToLower(filepath.Ext(name))] {
		return "", fmt.Errorf("unsupported document type: %s", name)
	}

	if err := os.MkdirAll(s.docsConfig.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create documents dir: %w", err)
	}

	dstPath := filepath.Join(s.docsConfig.Dir, name)
	dst, err := os.Create(dstPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, reader); err != nil {
		os.Remove(dstPath)
		return "", fmt.Errorf("failed to write file: %w", err)
	}

	s.logger.Info("Document saved", "path", dstPath)
	return dstPath, nil
}

// Stats 返回当前持久化的索引统计
func (s *Service) Stats() (*domainRAG.IndexStats, error) {
	ragConfig, err := s.configManager.ReadConfig()
	if err != nil {
		return nil, err
	}
	return &domainRAG.IndexStats{
		TotalDocuments: ragConfig.TotalDocuments,
		TotalChunks:    ragConfig.TotalChunks,
		LastIndexedAt:  ragConfig.LastIndexedAt,
	}, nil
}
