package vector

import "github.com/google/wire"

// ProviderSet Vector 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	NewStore, // Qdrant 向量存储
)
