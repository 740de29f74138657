package chat

// ConversationRepository 对话历史仓库接口
// 存储按线程组织的追加式对话日志，进程重启后历史不丢失
type ConversationRepository interface {
	// AppendTurn 追加一条对话记录
	AppendTurn(turn *Turn) error
	// AppendTurns 在同一事务中追加多条对话记录
	AppendTurns(turns []*Turn) error
	// GetTurns 按插入顺序返回线程的全部对话记录
	GetTurns(threadID string) ([]*Turn, error)
	// CountTurns 统计线程的对话记录数
	CountTurns(threadID string) (int, error)
	// ClearThread 清空线程的全部对话记录
	ClearThread(threadID string) error
}
