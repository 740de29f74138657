package application

import (
	"github.com/google/wire"

	"github.com/docchat/backend/internal/application/chat"
	"github.com/docchat/backend/internal/application/ingest"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	chat.ProviderSet,
	ingest.ProviderSet,
)
