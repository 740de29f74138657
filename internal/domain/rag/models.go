package rag

// ScoredChunk 检索命中的知识片段
// 仅在 Retrieve 步骤内部消费，不落库
type ScoredChunk struct {
	Text  string  `json:"text"`
	Score float32 `json:"score"` // 相似度，越大越相关
	Rank  int     `json:"rank"`  // 结果序号，从 1 开始
}

// DocumentChunk 摄取阶段产出的文档片段
// 带来源文档序号，便于追溯出处
type DocumentChunk struct {
	SourceIndex int    // 来源文档序号，从 1 开始
	Ordinal     int    // 片段在该文档内的序号，从 0 开始
	Text        string // 已带 [DOC i] 标签的文本
}

// Document 已抽取文本的源文档
type Document struct {
	Path string // 文件路径
	Text string // 清洗后的全文
}

// IndexStats 索引统计信息
type IndexStats struct {
	TotalDocuments int   `json:"total_documents"`
	TotalChunks    int   `json:"total_chunks"`
	LastIndexedAt  int64 `json:"last_indexed_at"` // Unix 秒
}
