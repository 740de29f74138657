package infrastructure

import (
	"github.com/google/wire"

	"github.com/docchat/backend/internal/infrastructure/config"
	"github.com/docchat/backend/internal/infrastructure/embedding"
	"github.com/docchat/backend/internal/infrastructure/llm"
	"github.com/docchat/backend/internal/infrastructure/rag"
	"github.com/docchat/backend/internal/infrastructure/storage"
	"github.com/docchat/backend/internal/infrastructure/vector"
	"github.com/docchat/backend/internal/infrastructure/watcher"
	"github.com/docchat/backend/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	rag.ProviderSet,
	storage.ProviderSet,
	embedding.ProviderSet,
	llm.ProviderSet,
	vector.ProviderSet,
	websocket.ProviderSet,
	watcher.ProvideEventBus,
	watcher.ProvideDocumentWatcher,
)
