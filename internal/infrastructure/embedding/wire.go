package embedding

import "github.com/google/wire"

// ProviderSet Embedding 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	NewClientFromConfig, // 从持久化配置创建 Embedding 客户端
)
