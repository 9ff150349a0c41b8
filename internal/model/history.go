package model

import (
	"errors"
	"time"
)

// HistoryModel 请求历史记录数据模型
// 仅追加,审计展示使用,引擎不回读
type HistoryModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	RequestID string    `gorm:"type:varchar(64);not null;index"`
	Action    string    `gorm:"type:varchar(32);not null;index"`
	ActorID   string    `gorm:"type:varchar(64);not null"`
	ActorName string    `gorm:"type:varchar(255)"`
	Details   string    `gorm:"type:text"`
	Metadata  []byte    `gorm:"type:jsonb"` // 原因、新旧值等附加信息
	CreatedAt time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (HistoryModel) TableName() string {
	return "request_history"
}

// Validate 验证历史记录模型
func (hm *HistoryModel) Validate() error {
	if hm.ID == "" {
		return errors.New("history ID is required")
	}
	if hm.RequestID == "" {
		return errors.New("request ID is required")
	}
	if hm.Action == "" {
		return errors.New("action is required")
	}
	if hm.ActorID == "" {
		return errors.New("actor ID is required")
	}
	return nil
}
