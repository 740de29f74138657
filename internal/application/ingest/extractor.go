// Package ingest 实现文档摄取流水线：抽取文本、切分片段、向量化并写入索引
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	domainRAG "github.com/docchat/backend/internal/domain/rag"
)

// whitespaceRE 连续空白字符
var whitespaceRE = regexp.MustCompile(`\s+`)

// supportedExtensions 受支持的文档扩展名
var supportedExtensions = map[string]bool{
	".pdf": true,
	".txt": true,
	".md":  true,
}

// ListDocuments 列出目录下受支持的文档文件（按文件名排序）
func ListDocuments(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read documents dir: %w", err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if supportedExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}

	sort.Strings(paths)
	return paths, nil
}

// ExtractDocument 抽取单个文档的文本
func ExtractDocument(path string) (*domainRAG.Document, error) {
	var text string
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		text, err = extractPDF(path)
	case ".txt", ".md":
		text, err = extractPlainText(path)
	default:
		return nil, fmt.Errorf("unsupported document type: %s", path)
	}
	if err != nil {
		return nil, err
	}

	return &domainRAG.Document{Path: path, Text: text}, nil
}

// extractPDF 抽取 PDF 文本，每页前插入页码标记
func extractPDF(path string) (string, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf %s: %w", path, err)
	}
	defer file.Close()

	var sb strings.Builder
	totalPages := reader.NumPage()
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			// 单页解析失败不中断整个文档
			continue
		}

		pageText = normalizeWhitespace(pageText)
		if pageText == "" {
			continue
		}

		sb.WriteString(fmt.Sprintf("--- Page %d ---\n", pageNum))
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	return strings.TrimSpace(sb.String()), nil
}

// extractPlainText 抽取纯文本文档
func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return normalizeWhitespace(string(data)), nil
}

// normalizeWhitespace 将连续空白归一为单个空格
func normalizeWhitespace(text string) string {
	return strings.TrimSpace(whitespaceRE.ReplaceAllString(text, " "))
}
