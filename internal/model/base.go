package model

import "time"

// TimestampModel 通用时间审计字段
// created_date 仅在插入时写入，updated_date 在每次保存时由 GORM 刷新
type TimestampModel struct {
	CreatedDate time.Time `gorm:"column:created_date;not null;autoCreateTime" json:"created_date"`
	UpdatedDate time.Time `gorm:"column:updated_date;not null;autoUpdateTime" json:"updated_date"`
}
