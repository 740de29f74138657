package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNormalizeWhitespace 测试空白归一化
func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", normalizeWhitespace("a\n\n b\t\tc"))
	assert.Equal(t, "hello world", normalizeWhitespace("  hello   world  "))
	assert.Equal(t, "", normalizeWhitespace(" \n\t "))
}

// TestListDocuments 测试目录扫描：只收录受支持类型，按文件名排序
func TestListDocuments(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.md", "c.pdf", "skip.png", "notes.json"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.txt"), 0o755))

	paths, err := ListDocuments(dir)
	require.NoError(t, err)

	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "a.md"), paths[0])
	assert.Equal(t, filepath.Join(dir, "b.txt"), paths[1])
	assert.Equal(t, filepath.Join(dir, "c.pdf"), paths[2])
}

// TestListDocuments_MissingDir 测试目录不存在时返回空列表
func TestListDocuments_MissingDir(t *testing.T) {
	paths, err := ListDocuments("/nonexistent/docs")
	require.NoError(t, err)
	assert.Empty(t, paths)
}

// TestExtractDocument_PlainText 测试纯文本抽取
func TestExtractDocument_PlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("line one\n\nline   two\n"), 0o644))

	doc, err := ExtractDocument(path)
	require.NoError(t, err)
	assert.Equal(t, path, doc.Path)
	assert.Equal(t, "line one line two", doc.Text)
}

// TestExtractDocument_Unsupported 测试不支持的类型报错
func TestExtractDocument_Unsupported(t *testing.T) {
	_, err := ExtractDocument("/data/image.png")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document type")
}
