package vector

import (
	"context"
	"fmt"
	"sync"

	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	domainRAG "github.com/docchat/backend/internal/domain/rag"
	infraRAG "github.com/docchat/backend/internal/infrastructure/rag"
	"github.com/docchat/backend/internal/infrastructure/log"
)

// Store Qdrant 向量存储
// 负责集合管理、分块写入与相似度查询
type Store struct {
	configManager *infraRAG.ConfigManager
	logger        *slog.Logger

	mu     sync.Mutex
	client *qdrant.Client
}

// NewStore 创建向量存储
func NewStore(configManager *infraRAG.ConfigManager) *Store {
	return &Store{
		configManager: configManager,
		logger:        log.NewModuleLogger("vector", "store"),
	}
}

// getClient 获取（按需建立）Qdrant 连接
func (s *Store) getClient() (*qdrant.Client, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	config, err := s.configManager.ReadConfig()
	if err != nil {
		return nil, "", fmt.Errorf("failed to read rag config: %w", err)
	}

	if config.Qdrant.Host == "" || config.Qdrant.Collection == "" {
		return nil, "", fmt.Errorf("%w: qdrant host or collection not configured", domainRAG.ErrStoreNotReady)
	}

	if s.client == nil {
		client, err := qdrant.NewClient(&qdrant.Config{
			Host: config.Qdrant.Host,
			Port: config.Qdrant.GRPCPort,
		})
		if err != nil {
			return nil, "", fmt.Errorf("failed to connect to qdrant: %w", err)
		}
		s.client = client

		s.logger.Info("Connected to qdrant",
			"host", config.Qdrant.Host,
			"grpc_port", config.Qdrant.GRPCPort,
		)
	}

	return s.client, config.Qdrant.Collection, nil
}

// Close 关闭 Qdrant 连接
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client != nil {
		err := s.client.Close()
		s.client = nil
		return err
	}
	return nil
}

// EnsureCollection 确保集合存在（余弦距离）
func (s *Store) EnsureCollection(ctx context.Context, vectorSize uint64) error {
	client, collection, err := s.getClient()
	if err != nil {
		return err
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", collection, err)
	}

	s.logger.Info("Created collection",
		"collection", collection,
		"vector_size", vectorSize,
	)

	return nil
}

// RecreateCollection 删除并重建集合
// 全量重建索引时使用，避免残留已删除文档的分块
func (s *Store) RecreateCollection(ctx context.Context, vectorSize uint64) error {
	client, collection, err := s.getClient()
	if err != nil {
		return err
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := client.DeleteCollection(ctx, collection); err != nil {
			return fmt.Errorf("failed to delete collection %s: %w", collection, err)
		}
	}

	return s.EnsureCollection(ctx, vectorSize)
}

// UpsertChunks 写入分块向量
// 点 ID 由来源与序号确定性生成，重复索引同一文档时覆盖而非累积
func (s *Store) UpsertChunks(ctx context.Context, chunks []*domainRAG.DocumentChunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return domainRAG.ErrNoChunks
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("chunk count %d does not match vector count %d", len(chunks), len(vectors))
	}

	client, collection, err := s.getClient()
	if err != nil {
		return err
	}

	points := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		vectorArgs := make([]float32, len(vectors[i]))
		copy(vectorArgs, vectors[i])

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunkPointID(chunk)),
			Vectors: qdrant.NewVectors(vectorArgs...),
			Payload: qdrant.NewValueMap(map[string]interface{}{
				"text":         chunk.Text,
				"source_index": int64(chunk.SourceIndex),
				"ordinal":      int64(chunk.Ordinal),
			}),
		}
	}

	_, err = client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert chunks: %w", err)
	}

	s.logger.Info("Upserted chunks",
		"collection", collection,
		"count", len(points),
	)

	return nil
}

// Query 相似度查询，返回按得分降序的分块
func (s *Store) Query(ctx context.Context, queryVector []float32, limit int) ([]*domainRAG.ScoredChunk, error) {
	if len(queryVector) == 0 {
		return nil, domainRAG.ErrEmptyEmbedding
	}
	if limit <= 0 {
		limit = 5
	}

	client, collection, err := s.getClient()
	if err != nil {
		return nil, err
	}

	queryLimit := uint64(limit)
	resp, err := client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(queryVector...),
		Limit:          &queryLimit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query collection %s: %w", collection, err)
	}

	results := make([]*domainRAG.ScoredChunk, 0, len(resp))
	for i, hit := range resp {
		payload := hit.GetPayload()
		text := ""
		if val, ok := payload["text"]; ok {
			text = val.GetStringValue()
		}
		results = append(results, &domainRAG.ScoredChunk{
			Text:  text,
			Score: hit.GetScore(),
			Rank:  i + 1,
		})
	}

	s.logger.Debug("Query completed",
		"collection", collection,
		"limit", limit,
		"results", len(results),
	)

	return results, nil
}

// CountPoints 统计集合中的分块总数
func (s *Store) CountPoints(ctx context.Context) (uint64, error) {
	client, collection, err := s.getClient()
	if err != nil {
		return 0, err
	}

	exact := true
	count, err := client.Count(ctx, &qdrant.CountPoints{
		CollectionName: collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}

	return count, nil
}

// TestConnection 测试 Qdrant 连接
func (s *Store) TestConnection(ctx context.Context) error {
	client, _, err := s.getClient()
	if err != nil {
		return err
	}

	if _, err := client.ListCollections(ctx); err != nil {
		return fmt.Errorf("qdrant connection test failed: %w", err)
	}

	return nil
}

// chunkPointID 生成分块的确定性点 ID
func chunkPointID(chunk *domainRAG.DocumentChunk) string {
	name := fmt.Sprintf("chunk/%d/%d", chunk.SourceIndex, chunk.Ordinal)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}
