package llm

import "github.com/google/wire"

// ProviderSet LLM 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	NewClientFromConfig, // 从持久化配置创建 LLM 客户端
)
