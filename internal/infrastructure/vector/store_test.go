package vector

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainRAG "github.com/docchat/backend/internal/domain/rag"
	infraRAG "github.com/docchat/backend/internal/infrastructure/rag"
)

// TestChunkPointID_Deterministic 测试点 ID 生成的确定性
func TestChunkPointID_Deterministic(t *testing.T) {
	chunk := &domainRAG.DocumentChunk{SourceIndex: 2, Ordinal: 7, Text: "some text"}

	id1 := chunkPointID(chunk)
	id2 := chunkPointID(chunk)
	assert.Equal(t, id1, id2, "同一分块应始终生成相同的点 ID")

	// 文本变化不影响 ID（重复索引同一位置时覆盖旧向量）
	changed := &domainRAG.DocumentChunk{SourceIndex: 2, Ordinal: 7, Text: "updated text"}
	assert.Equal(t, id1, chunkPointID(changed))
}

// TestStore_UnconfiguredQdrant 测试 Qdrant 未配置时返回存储未就绪错误
func TestStore_UnconfiguredQdrant(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "rag_config.json")
	require.NoError(t, os.WriteFile(configPath, []byte(`{"qdrant":{"host":"","collection":""}}`), 0644))

	store := NewStore(infraRAG.NewConfigManagerWithPath(configPath))

	_, err := store.Query(context.Background(), []float32{0.1, 0.2}, 5)
	assert.ErrorIs(t, err, domainRAG.ErrStoreNotReady)

	err = store.EnsureCollection(context.Background(), 4)
	assert.ErrorIs(t, err, domainRAG.ErrStoreNotReady)
}

// TestChunkPointID_Unique 测试不同位置的分块 ID 互不相同
func TestChunkPointID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for source := 0; source < 3; source++ {
		for ordinal := 0; ordinal < 10; ordinal++ {
			id := chunkPointID(&domainRAG.DocumentChunk{SourceIndex: source, Ordinal: ordinal})
			assert.False(t, seen[id], "点 ID 冲突: source=%d ordinal=%d", source, ordinal)
			seen[id] = true
		}
	}
}
