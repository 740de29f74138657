package chat

import "errors"

// 对话相关错误
var (
	// ErrEmptyQuery 查询内容为空
	ErrEmptyQuery = errors.New("query is empty")
	// ErrInvalidRole 非法的消息角色
	ErrInvalidRole = errors.New("invalid turn role")
	// ErrGeneration 模型生成失败
	ErrGeneration = errors.New("generation failed")
)
