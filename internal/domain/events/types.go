// Package events 定义领域事件类型和接口
// 用于文档监听、摄取流水线与通知推送之间的解耦通信
package events

import "time"

// EventType 事件类型标识
type EventType string

// 文档相关事件类型
const (
	// DocumentsChanged 文档目录发生变化（新增/修改/删除文件）
	DocumentsChanged EventType = "documents.changed"
)

// 摄取相关事件类型
const (
	// IngestStarted 摄取任务开始
	IngestStarted EventType = "ingest.started"
	// IngestCompleted 摄取任务完成
	IngestCompleted EventType = "ingest.completed"
	// IngestFailed 摄取任务失败
	IngestFailed EventType = "ingest.failed"
)

// Event 领域事件接口
type Event interface {
	// Type 返回事件类型
	Type() EventType
	// Timestamp 返回事件发生时间
	Timestamp() time.Time
}

// baseEvent 公共字段
type baseEvent struct {
	eventType  EventType
	occurredAt time.Time
}

func (e *baseEvent) Type() EventType      { return e.eventType }
func (e *baseEvent) Timestamp() time.Time { return e.occurredAt }

// DocumentEvent 文档目录变化事件
type DocumentEvent struct {
	baseEvent
	// Path 触发变化的文件路径（批量变化时为空）
	Path string
}

// NewDocumentEvent 创建文档变化事件
func NewDocumentEvent(path string) *DocumentEvent {
	return &DocumentEvent{
		baseEvent: baseEvent{eventType: DocumentsChanged, occurredAt: time.Now()},
		Path:      path,
	}
}

// IngestEvent 摄取进度事件
type IngestEvent struct {
	baseEvent
	// Documents 本次摄取的文档数
	Documents int
	// Chunks 本次摄取产出的片段数
	Chunks int
	// Error 失败原因（仅 IngestFailed 事件携带）
	Error string
}

// NewIngestStarted 创建摄取开始事件
func NewIngestStarted() *IngestEvent {
	return &IngestEvent{baseEvent: baseEvent{eventType: IngestStarted, occurredAt: time.Now()}}
}

// NewIngestCompleted 创建摄取完成事件
func NewIngestCompleted(documents, chunks int) *IngestEvent {
	return &IngestEvent{
		baseEvent: baseEvent{eventType: IngestCompleted, occurredAt: time.Now()},
		Documents: documents,
		Chunks:    chunks,
	}
}

// NewIngestFailed 创建摄取失败事件
func NewIngestFailed(err error) *IngestEvent {
	e := &IngestEvent{baseEvent: baseEvent{eventType: IngestFailed, occurredAt: time.Now()}}
	if err != nil {
		e.Error = err.Error()
	}
	return e
}
