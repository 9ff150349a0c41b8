package model

import (
	"errors"
	"time"
)

// WorkflowModel 标准流程数据模型
// Data 列保存序列化后的 StandardWorkflow 聚合
type WorkflowModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Version   int       `gorm:"type:int;not null;default:1"`
	Data      []byte    `gorm:"type:jsonb;not null"` // 序列化后的 StandardWorkflow 对象
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	UpdatedBy string    `gorm:"type:varchar(64)"` // 更新人 ID
}

// TableName 指定表名
func (WorkflowModel) TableName() string {
	return "standard_workflows"
}

// Validate 验证标准流程模型
func (wm *WorkflowModel) Validate() error {
	if wm.ID == "" {
		return errors.New("workflow ID is required")
	}
	if wm.Name == "" {
		return errors.New("workflow name is required")
	}
	if wm.Version < 1 {
		return errors.New("workflow version must be at least 1")
	}
	if len(wm.Data) == 0 {
		return errors.New("workflow data is required")
	}
	return nil
}
