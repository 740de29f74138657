package ingest

import (
	"github.com/google/wire"

	"github.com/docchat/backend/internal/domain/events"
	"github.com/docchat/backend/internal/infrastructure/config"
	"github.com/docchat/backend/internal/infrastructure/embedding"
	infraRAG "github.com/docchat/backend/internal/infrastructure/rag"
	"github.com/docchat/backend/internal/infrastructure/vector"
)

// ProvideService 用具体基础设施实现组装摄取服务
func ProvideService(
	docsConfig *config.DocumentsConfig,
	chunker *Chunker,
	embeddingClient *embedding.Client,
	store *vector.Store,
	configManager *infraRAG.ConfigManager,
	eventBus events.EventBus,
) *Service {
	return NewService(docsConfig, chunker, embeddingClient, store, configManager, eventBus)
}

// ProviderSet Ingest 应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewChunker,
	ProvideService,
)
