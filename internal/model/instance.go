package model

import (
	"errors"
	"time"
)

// InstanceModel 子流程数据模型
// Data 列保存序列化后的 WorkflowInstance 对象(含步骤快照)
type InstanceModel struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)"`
	Name            string    `gorm:"type:varchar(255);not null"`
	CategoryID      string    `gorm:"type:varchar(64);index"` // 绑定的产品状态 ID,可为空
	TemplateVersion int       `gorm:"type:int;not null"`      // 创建/同步时的标准流程版本
	Data            []byte    `gorm:"type:jsonb;not null"`
	CreatedAt       time.Time `gorm:"not null;index"`
	UpdatedAt       time.Time `gorm:"not null"`
	CreatedBy       string    `gorm:"type:varchar(64)"` // 创建人 ID
}

// TableName 指定表名
func (InstanceModel) TableName() string {
	return "workflow_instances"
}

// Validate 验证子流程模型
func (im *InstanceModel) Validate() error {
	if im.ID == "" {
		return errors.New("instance ID is required")
	}
	if im.Name == "" {
		return errors.New("instance name is required")
	}
	if im.TemplateVersion < 1 {
		return errors.New("template version must be at least 1")
	}
	if len(im.Data) == 0 {
		return errors.New("instance data is required")
	}
	return nil
}
