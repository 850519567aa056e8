package model

import "time"

// RequestEvent 生命周期事件的落库审计记录，由 Kafka 消费者写入。
// 请求行被取消（物理删除）后，历史仍可在这里追溯。
type RequestEvent struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// EventID 全链路唯一，UNIQUE 约束兜底消费端幂等。
	EventID    string    `gorm:"size:64;uniqueIndex;not null" json:"event_id"`
	RequestID  int64     `gorm:"not null;index" json:"request_id"`
	EventType  string    `gorm:"size:20;not null" json:"event_type"`
	ActorID    int64     `gorm:"not null" json:"actor_id"`
	OccurredAt time.Time `gorm:"not null" json:"occurred_at"`
}

func (RequestEvent) TableName() string { return "request_events" }
