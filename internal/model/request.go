package model

import "time"

// RequestStatus 描述跑腿请求的生命周期状态机。
type RequestStatus string

const (
	// StatusOpen 已发布、尚未被接单（fulfiller 为空）。
	StatusOpen RequestStatus = "open"
	// StatusInProgress 已被接单，等待送达。
	StatusInProgress RequestStatus = "in_progress"
	// StatusCompleted 接单人已标记完成（completed_at 已写入）。
	StatusCompleted RequestStatus = "completed"
)

// Label 将存储层状态映射为对外语义：open 对外展示为 pending。
// 所有读路径统一经过这里，避免两套叫法各自漂移。
func (s RequestStatus) Label() string {
	if s == StatusOpen {
		return "pending"
	}
	return string(s)
}

// Request 跑腿请求，系统的核心实体。
// 取消是物理删除（没有 cancelled 状态），审计记录由事件管道保留。
type Request struct {
	RequestID int64     `gorm:"column:request_id;primaryKey" json:"request_id"`
	CreatedAt time.Time `json:"created_at"`

	ItemName string `gorm:"size:255;not null" json:"item_name"`
	// PriceOffered 以十进制字符串存取（numeric 列），避免浮点漂移。
	PriceOffered string `gorm:"type:numeric(10,2);not null" json:"price_offered"`

	Status         RequestStatus `gorm:"size:20;not null;default:'open';index" json:"-"`
	RequesterID    int64         `gorm:"not null;index" json:"requester_id"`
	FulfillerID    *int64        `gorm:"index" json:"fulfiller_id"`
	DeliveryMessID int64         `gorm:"not null" json:"delivery_mess_id"`

	AcceptedAt     *time.Time `json:"accepted_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	Acknowledged   bool       `gorm:"not null;default:false" json:"acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at"`
}

func (Request) TableName() string { return "requests" }

// RequestView 是 Request 的对外形态：status 已做标签映射。
type RequestView struct {
	Request
	StatusLabel string `json:"status"`
}

// View 生成对外响应体。所有 handler 返回请求行时都必须走这里。
func (r Request) View() RequestView {
	return RequestView{Request: r, StatusLabel: r.Status.Label()}
}
