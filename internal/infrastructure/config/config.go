package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Documents DocumentsConfig `yaml:"documents"`
	Chat      ChatConfig      `yaml:"chat"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	// HTTPPort 固定端口，同时用于单例锁
	HTTPPort string `yaml:"http_port"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path SQLite 文件路径，留空使用 ~/.docchat/docchat.db
	Path string `yaml:"path"`
}

// DocumentsConfig 文档目录配置
type DocumentsConfig struct {
	// Dir 上传文件落盘与摄取扫描的目录
	Dir string `yaml:"dir"`
}

// ChatConfig 对话配置
type ChatConfig struct {
	// ThreadID 会话线程 ID，当前版本所有请求共享同一线程
	ThreadID string `yaml:"thread_id"`

	// TopK 检索返回的片段数
	TopK int `yaml:"top_k"`

	// RetrieveTimeout 检索步骤超时
	RetrieveTimeout time.Duration `yaml:"retrieve_timeout"`

	// GenerateTimeout 生成步骤超时
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
}

// NewConfig 创建配置（默认值 + 可选的 YAML 覆盖）
func NewConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			HTTPPort: ":18930",
		},
		Database: DatabaseConfig{
			Path: "",
		},
		Documents: DocumentsConfig{
			Dir: "./data",
		},
		Chat: ChatConfig{
			ThreadID:        "1",
			TopK:            5,
			RetrieveTimeout: 30 * time.Second,
			GenerateTimeout: 120 * time.Second,
		},
	}

	// 存在 ~/.docchat/config.yaml 时覆盖默认值
	if path, err := DefaultConfigPath(); err == nil {
		_ = cfg.loadFile(path)
	}

	return cfg
}

// DefaultConfigPath 获取配置文件路径
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".docchat", "config.yaml"), nil
}

// loadFile 从 YAML 文件加载配置覆盖
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewDocumentsConfig 创建文档目录配置
func NewDocumentsConfig(cfg *Config) *DocumentsConfig {
	return &cfg.Documents
}

// NewChatConfig 创建对话配置
func NewChatConfig(cfg *Config) *ChatConfig {
	return &cfg.Chat
}
