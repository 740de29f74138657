package rag

import "github.com/google/wire"

// ProviderSet RAG 配置基础设施 ProviderSet
var ProviderSet = wire.NewSet(
	NewConfigManager,
)
