package log

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestParseLevel 测试日志级别解析
func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warn"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	// 未知级别回退到 info
	assert.Equal(t, slog.LevelInfo, parseLevel("unknown"))
}

// TestGetLogger_LazyInit 测试未初始化时自动使用默认配置
func TestGetLogger_LazyInit(t *testing.T) {
	defaultLogger = nil
	logger := GetLogger()
	assert.NotNil(t, logger)
}

// TestNewModuleLogger 测试模块 logger 创建
func TestNewModuleLogger(t *testing.T) {
	Init(&Config{Level: "debug", Format: "console"})
	logger := NewModuleLogger("chat", "workflow")
	assert.NotNil(t, logger)
	assert.True(t, IsDebugMode())
}
