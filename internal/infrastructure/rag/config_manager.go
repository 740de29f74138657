package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ConfigManager RAG 运行时配置管理器
// 持久化 Embedding/LLM API 凭据与索引统计，API Key 加密存储
type ConfigManager struct {
	configPath string
	encryptKey *EncryptionKey
}

// NewConfigManager 创建 RAG 配置管理器
func NewConfigManager() (*ConfigManager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}

	configPath := filepath.Join(homeDir, ".docchat", "rag_config.json")

	encryptKey, err := NewEncryptionKey()
	if err != nil {
		return nil, fmt.Errorf("failed to create encryption key: %w", err)
	}

	return &ConfigManager{
		configPath: configPath,
		encryptKey: encryptKey,
	}, nil
}

// NewConfigManagerWithPath 创建使用指定配置文件路径的管理器（不加密，测试用）
func NewConfigManagerWithPath(configPath string) *ConfigManager {
	return &ConfigManager{configPath: configPath}
}

// APIConfig OpenAI 兼容 API 配置
type APIConfig struct {
	URL    string `json:"url"`     // API URL
	APIKey string `json:"api_key"` // API Key（加密存储）
	Model  string `json:"model"`   // 模型名称
}

// RAGConfig RAG 配置结构
type RAGConfig struct {
	// EmbeddingAPI 向量化 API 配置
	EmbeddingAPI APIConfig `json:"embedding_api"`

	// LLMChatAPI 生成模型 API 配置
	LLMChatAPI APIConfig `json:"llm_chat_api"`

	// Qdrant 向量库连接配置
	Qdrant struct {
		Host       string `json:"host"`       // gRPC 主机
		GRPCPort   int    `json:"grpc_port"`  // gRPC 端口
		Collection string `json:"collection"` // 集合名称
	} `json:"qdrant"`

	// 索引统计
	TotalDocuments int   `json:"total_documents"` // 已索引文档数
	TotalChunks    int   `json:"total_chunks"`    // 已索引片段数
	LastIndexedAt  int64 `json:"last_indexed_at"` // 最后索引时间（Unix 秒）
}

// ReadConfig 读取 RAG 配置
func (c *ConfigManager) ReadConfig() (*RAGConfig, error) {
	// 文件不存在时返回默认配置
	if _, err := os.Stat(c.configPath); os.IsNotExist(err) {
		return c.getDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config RAGConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// 解密 API Key，解密失败保持原值（可能是未加密的旧数据）
	if c.encryptKey != nil {
		if config.EmbeddingAPI.APIKey != "" {
			if decrypted, err := c.encryptKey.Decrypt(config.EmbeddingAPI.APIKey); err == nil {
				config.EmbeddingAPI.APIKey = decrypted
			}
		}
		if config.LLMChatAPI.APIKey != "" {
			if decrypted, err := c.encryptKey.Decrypt(config.LLMChatAPI.APIKey); err == nil {
				config.LLMChatAPI.APIKey = decrypted
			}
		}
	}

	return &config, nil
}

// WriteConfig 写入 RAG 配置
func (c *ConfigManager) WriteConfig(config *RAGConfig) error {
	// 创建副本，避免把加密后的 Key 写回调用方
	configCopy := *config

	if c.encryptKey != nil {
		if configCopy.EmbeddingAPI.APIKey != "" {
			if encrypted, err := c.encryptKey.Encrypt(configCopy.EmbeddingAPI.APIKey); err == nil {
				configCopy.EmbeddingAPI.APIKey = encrypted
			}
		}
		if configCopy.LLMChatAPI.APIKey != "" {
			if encrypted, err := c.encryptKey.Encrypt(configCopy.LLMChatAPI.APIKey); err == nil {
				configCopy.LLMChatAPI.APIKey = encrypted
			}
		}
	}

	dir := filepath.Dir(c.configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(configCopy, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// UpdateIndexStats 更新索引统计信息
func (c *ConfigManager) UpdateIndexStats(totalDocuments, totalChunks int, indexedAt int64) error {
	config, err := c.ReadConfig()
	if err != nil {
		return err
	}

	config.TotalDocuments = totalDocuments
	config.TotalChunks = totalChunks
	config.LastIndexedAt = indexedAt

	return c.WriteConfig(config)
}

// getDefaultConfig 获取默认配置
func (c *ConfigManager) getDefaultConfig() *RAGConfig {
	config := &RAGConfig{}
	config.Qdrant.Host = "localhost"
	config.Qdrant.GRPCPort = 6334
	config.Qdrant.Collection = "documents"
	return config
}
