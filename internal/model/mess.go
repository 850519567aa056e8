package model

// Mess 食堂/宿舍片区，固定的只读参照表（配送地点）。
type Mess struct {
	MessID    int64  `gorm:"column:mess_id;primaryKey" json:"mess_id"`
	MessBlock string `gorm:"size:64;not null" json:"mess_block"`
}

func (Mess) TableName() string { return "messes" }
