package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainChat "github.com/docchat/backend/internal/domain/chat"
)

// 确保 ConversationRepositoryImpl 实现了 domainChat.ConversationRepository 接口
var _ domainChat.ConversationRepository = (*ConversationRepositoryImpl)(nil)

// ConversationRepositoryImpl 对话历史仓库实现
type ConversationRepositoryImpl struct {
	db *sql.DB
}

// NewConversationRepository 创建对话历史仓库实例
func NewConversationRepository(db *sql.DB) domainChat.ConversationRepository {
	return &ConversationRepositoryImpl{db: db}
}

// AppendTurn 追加一条对话记录
// seq 取线程内当前最大值加一，保证插入顺序即对话顺序
func (r *ConversationRepositoryImpl) AppendTurn(turn *domainChat.Turn) error {
	return r.AppendTurns([]*domainChat.Turn{turn})
}

// AppendTurns 在同一事务中追加多条对话记录
func (r *ConversationRepositoryImpl) AppendTurns(turns []*domainChat.Turn) error {
	if len(turns) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, turn := range turns {
		if !turn.Role.IsValid() {
			return domainChat.ErrInvalidRole
		}

		if turn.ID == "" {
			turn.ID = uuid.NewString()
		}
		if turn.CreatedAt.IsZero() {
			turn.CreatedAt = time.Now()
		}

		_, err := tx.Exec(`
			INSERT INTO conversation_turns (id, thread_id, seq, role, content, created_at)
			VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM conversation_turns WHERE thread_id = ?), ?, ?, ?)`,
			turn.ID,
			turn.ThreadID,
			turn.ThreadID,
			string(turn.Role),
			turn.Content,
			turn.CreatedAt.Unix(),
		)
		if err != nil {
			return fmt.Errorf("failed to append turn: %w", err)
		}
	}

	return tx.Commit()
}

// GetTurns 按插入顺序返回线程的全部对话记录
func (r *ConversationRepositoryImpl) GetTurns(threadID string) ([]*domainChat.Turn, error) {
	rows, err := r.db.Query(`
		SELECT id, thread_id, role, content, created_at
		FROM conversation_turns
		WHERE thread_id = ?
		ORDER BY seq ASC`,
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	var turns []*domainChat.Turn
	for rows.Next() {
		var turn domainChat.Turn
		var role string
		var createdAt int64

		if err := rows.Scan(&turn.ID, &turn.ThreadID, &role, &turn.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}

		turn.Role = domainChat.Role(role)
		turn.CreatedAt = time.Unix(createdAt, 0)
		turns = append(turns, &turn)
	}

	return turns, rows.Err()
}

// CountTurns 统计线程的对话记录数
func (r *ConversationRepositoryImpl) CountTurns(threadID string) (int, error) {
	var count int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM conversation_turns WHERE thread_id = ?`,
		threadID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return count, nil
}

// ClearThread 清空线程的全部对话记录
func (r *ConversationRepositoryImpl) ClearThread(threadID string) error {
	_, err := r.db.Exec(`DELETE FROM conversation_turns WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("failed to clear thread: %w", err)
	}
	return nil
}
