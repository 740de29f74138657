package embedding

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBuildEmbeddingURL 测试 URL 拼接
func TestBuildEmbeddingURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/v1/embeddings", buildEmbeddingURL("https://api.example.com"))
	assert.Equal(t, "https://api.example.com/v1/embeddings", buildEmbeddingURL("https://api.example.com/v1"))
	assert.Equal(t, "https://api.example.com/v1/embeddings", buildEmbeddingURL("https://api.example.com/v1/"))
	assert.Equal(t, "https://api.example.com/v1/embeddings", buildEmbeddingURL("https://api.example.com/v1/embeddings"))
}

// TestEmbedTexts 测试批量向量化
func TestEmbedTexts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := EmbeddingResponse{}
		// 逆序返回，验证按 Index 还原顺序
		for i := len(req.Input) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, struct {
				Embedding []float32 `json:"embedding"`
				Index     int       `json:"index"`
			}{
				Embedding: []float32{float32(i), 1.0},
				Index:     i,
			})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL, "test-key", "text-embedding-3-small")

	vectors, err := client.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, []float32{0, 1.0}, vectors[0])
	assert.Equal(t, []float32{2, 1.0}, vectors[2])
}

// TestEmbedTexts_Empty 测试空输入
func TestEmbedTexts_Empty(t *testing.T) {
	client := NewClient("https://api.example.com", "key", "model")
	_, err := client.EmbedTexts(context.Background(), nil)
	assert.Error(t, err)
}

// TestEmbedTexts_APIError 测试 API 错误（重试后仍失败）
func TestEmbedTexts_APIError(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key", "model")
	_, err := client.EmbedTexts(context.Background(), []string{"a"})
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)
}
