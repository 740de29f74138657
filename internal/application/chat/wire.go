package chat

import (
	"github.com/google/wire"

	domainChat "github.com/docchat/backend/internal/domain/chat"
	"github.com/docchat/backend/internal/infrastructure/config"
	"github.com/docchat/backend/internal/infrastructure/embedding"
	"github.com/docchat/backend/internal/infrastructure/llm"
	"github.com/docchat/backend/internal/infrastructure/vector"
)

// ProvideWorkflow 用具体基础设施实现组装问答工作流
func ProvideWorkflow(
	repo domainChat.ConversationRepository,
	embeddingClient *embedding.Client,
	store *vector.Store,
	llmClient *llm.Client,
	chatConfig *config.ChatConfig,
) *Workflow {
	return NewWorkflow(repo, embeddingClient, store, llmClient, chatConfig)
}

// ProviderSet Chat 应用层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideWorkflow,
)
