package model

import "time"

// User 校园跑腿用户：身份由外部 Firebase 验证，这里只存档案信息。
// 注册后档案不可修改（本系统范围内没有更新入口）。
type User struct {
	UserID    int64     `gorm:"column:user_id;primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`

	Email         string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	RoomNumber    string `gorm:"size:32;not null" json:"room_number"`
	PhoneNumber   string `gorm:"size:32;not null" json:"phone_number"`
	DefaultMessID int64  `gorm:"not null" json:"default_mess_id"`
}

func (User) TableName() string { return "users" }
