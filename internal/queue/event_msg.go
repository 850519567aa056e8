package queue

import "fmt"

// 生命周期事件类型，与状态机的五个迁移一一对应。
const (
	EventCreated      = "created"
	EventAccepted     = "accepted"
	EventCompleted    = "completed"
	EventAcknowledged = "acknowledged"
	EventCancelled    = "cancelled"
)

// LifecycleEvent 是写入 Kafka 的请求生命周期事件。
type LifecycleEvent struct {
	EventID    string `json:"event_id"`
	RequestID  int64  `json:"request_id"`
	Type       string `json:"type"`
	ActorID    int64  `json:"actor_id"`
	OccurredAt int64  `json:"occurred_at"` // Unix 秒
}

// Validate 做最小字段校验，防止消费者处理脏消息。
func (m LifecycleEvent) Validate() error {
	if m.EventID == "" {
		return fmt.Errorf("event_id is required")
	}
	if m.RequestID <= 0 {
		return fmt.Errorf("request_id is required")
	}
	switch m.Type {
	case EventCreated, EventAccepted, EventCompleted, EventAcknowledged, EventCancelled:
	default:
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.ActorID <= 0 {
		return fmt.Errorf("actor_id is required")
	}
	if m.OccurredAt <= 0 {
		return fmt.Errorf("occurred_at is required")
	}
	return nil
}
