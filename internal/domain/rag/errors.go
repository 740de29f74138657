package rag

import "errors"

// 检索相关错误
var (
	// ErrStoreNotReady 向量库未就绪
	ErrStoreNotReady = errors.New("vector store not ready")
	// ErrEmptyEmbedding 向量化结果为空
	ErrEmptyEmbedding = errors.New("embedding result is empty")
)

// 摄取相关错误
var (
	// ErrNoDocuments 文档目录中没有可抽取的文档
	ErrNoDocuments = errors.New("no documents found to ingest")
	// ErrNoChunks 抽取后没有产生任何片段
	ErrNoChunks = errors.New("no chunks produced from documents")
)
