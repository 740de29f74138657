package chat

import "time"

// Role 对话消息角色
type Role string

const (
	// RoleHuman 用户消息
	RoleHuman Role = "human"
	// RoleAssistant 助手消息
	RoleAssistant Role = "assistant"
	// RoleSystem 系统消息（每次生成时临时合成，不落库）
	RoleSystem Role = "system"
)

// IsValid 检查角色是否合法
func (r Role) IsValid() bool {
	switch r {
	case RoleHuman, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Turn 一条对话记录
// 追加后不可变：turns 序列只追加、不重排、不原地修改，
// 插入顺序即对话顺序，会原样回放进生成 Prompt
type Turn struct {
	ID        string
	ThreadID  string
	Role      Role
	Content   string
	CreatedAt time.Time
}

// NewTurn 创建一条对话记录
func NewTurn(threadID string, role Role, content string) *Turn {
	return &Turn{
		ThreadID:  threadID,
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// DefaultThreadID 默认会话线程 ID
// 当前版本面向单会话场景，所有请求共享同一线程
const DefaultThreadID = "1"
