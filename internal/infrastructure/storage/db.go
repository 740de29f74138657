package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/docchat/backend/internal/infrastructure/config"

	_ "modernc.org/sqlite"
)

// GetDBPath 获取 docchat 数据库路径
// Windows: %USERPROFILE%\.docchat\docchat.db
// macOS/Linux: ~/.docchat/docchat.db
func GetDBPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	dbPath := filepath.Join(homeDir, ".docchat", "docchat.db")
	return dbPath, nil
}

// NewDB 打开数据库连接并初始化表结构
func NewDB(cfg *config.DatabaseConfig) (*sql.DB, error) {
	dbPath := cfg.Path
	if dbPath == "" {
		var err error
		dbPath, err = GetDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get database path: %w", err)
		}
	}

	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, err
	}

	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// OpenDB 打开数据库连接
func OpenDB(dbPath string) (*sql.DB, error) {
	// 确保目录存在
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// 测试连接
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// InitSchema 初始化表结构
func InitSchema(db *sql.DB) error {
	// conversation_turns 表：按线程组织的追加式对话日志
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS conversation_turns (
		id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		UNIQUE(thread_id, seq)
	);`

	if _, err := db.Exec(createTableSQL); err != nil {
		return fmt.Errorf("failed to create conversation_turns table: %w", err)
	}

	createIndexSQL := `
	CREATE INDEX IF NOT EXISTS idx_conversation_turns_thread ON conversation_turns(thread_id, seq);`

	if _, err := db.Exec(createIndexSQL); err != nil {
		return fmt.Errorf("failed to create conversation_turns index: %w", err)
	}

	return nil
}
