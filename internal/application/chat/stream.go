package chat

// StreamEvent 回答流中的单个事件
// 一次回答产生零或多个增量事件，最后恰好一个终止事件
type StreamEvent struct {
	// Content 本次新增的回答文本（增量事件）
	Content string
	// Done 回答正常完成（终止事件）
	Done bool
	// Err 回答异常终止（终止事件）
	Err error
}

// IsTerminal 是否为终止事件
func (e StreamEvent) IsTerminal() bool {
	return e.Done || e.Err != nil
}

// deltaEvent 构造增量事件
func deltaEvent(content string) StreamEvent {
	return StreamEvent{Content: content}
}

// doneEvent 构造正常终止事件
func doneEvent() StreamEvent {
	return StreamEvent{Done: true}
}

// errorEvent 构造异常终止事件
func errorEvent(err error) StreamEvent {
	return StreamEvent{Err: err}
}
