package chat

import (
	domainChat "github.com/docchat/backend/internal/domain/chat"
)

// History 返回当前线程的全部对话记录（按插入顺序）
func (w *Workflow) History() ([]*domainChat.Turn, error) {
	return w.repo.GetTurns(w.threadID())
}

// ClearHistory 清空当前线程的对话记录
func (w *Workflow) ClearHistory() error {
	threadID := w.threadID()

	mu := w.lockThread(threadID)
	mu.Lock()
	defer mu.Unlock()

	if err := w.repo.ClearThread(threadID); err != nil {
		return err
	}

	w.logger.Info("Conversation history cleared",
		"thread_id", threadID,
	)
	return nil
}

// threadID 当前配置的线程 ID
func (w *Workflow) threadID() string {
	if w.config.ThreadID != "" {
		return w.config.ThreadID
	}
	return domainChat.DefaultThreadID
}
