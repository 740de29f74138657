package ingest

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"

	domainRAG "github.com/docchat/backend/internal/domain/rag"
)

const (
	// encodingName 切分使用的 BPE 编码
	encodingName = "cl100k_base"
	// DefaultChunkSize 单个片段的 token 数上限
	DefaultChunkSize = 1000
	// DefaultChunkOverlap 相邻片段的重叠 token 数
	DefaultChunkOverlap = 100
)

func init() {
	// 离线加载 BPE 词表，避免运行时下载
	tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
}

// Chunker 基于 token 的文档切分器
type Chunker struct {
	encoding  *tiktoken.Tiktoken
	chunkSize int
	overlap   int
}

// NewChunker 创建切分器（默认 1000 token 片段、100 token 重叠）
func NewChunker() (*Chunker, error) {
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoding %s: %w", encodingName, err)
	}

	return &Chunker{
		encoding:  encoding,
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}, nil
}

// ChunkDocuments 切分一组文档
// 每个片段带 [DOC i] 来源标签，i 为文档序号（从 1 开始）
func (c *Chunker) ChunkDocuments(documents []*domainRAG.Document) []*domainRAG.DocumentChunk {
	var chunks []*domainRAG.DocumentChunk
	for i, doc := range documents {
		chunks = append(chunks, c.chunkDocument(i+1, doc)...)
	}
	return chunks
}

// chunkDocument 切分单个文档
func (c *Chunker) chunkDocument(sourceIndex int, doc *domainRAG.Document) []*domainRAG.DocumentChunk {
	tokens := c.encoding.Encode(doc.Text, nil, nil)
	if len(tokens) == 0 {
		return nil
	}

	step := c.chunkSize - c.overlap
	if step <= 0 {
		step = c.chunkSize
	}

	var chunks []*domainRAG.DocumentChunk
	ordinal := 0
	for start := 0; start < len(tokens); start += step {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}

		text := c.encoding.Decode(tokens[start:end])
		chunks = append(chunks, &domainRAG.DocumentChunk{
			SourceIndex: sourceIndex,
			Ordinal:     ordinal,
			Text:        fmt.Sprintf("[DOC %d] %s", sourceIndex, text),
		})
		ordinal++

		if end == len(tokens) {
			break
		}
	}

	return chunks
}

// CountTokens 统计文本的 token 数
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}
