package model

import (
	"errors"
	"time"
)

// ChangeLogModel 标准流程结构变更日志数据模型
// 每次结构性修改记录一条,Diff 保存逐属性的新旧值
type ChangeLogModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(64)"`
	WorkflowID  string    `gorm:"type:varchar(64);not null;index"`
	FromVersion int       `gorm:"type:int;not null"`
	ToVersion   int       `gorm:"type:int;not null"`
	Action      string    `gorm:"type:varchar(64);not null"` // add_step/update_step/delete_step/...
	Diff        []byte    `gorm:"type:jsonb"`                // 变更明细(新旧值)
	Operator    string    `gorm:"type:varchar(64)"`          // 操作人 ID
	CreatedAt   time.Time `gorm:"not null;index"`
}

// TableName 指定表名
func (ChangeLogModel) TableName() string {
	return "workflow_change_log"
}

// Validate 验证变更日志模型
func (cm *ChangeLogModel) Validate() error {
	if cm.ID == "" {
		return errors.New("change log ID is required")
	}
	if cm.WorkflowID == "" {
		return errors.New("workflow ID is required")
	}
	if cm.Action == "" {
		return errors.New("action is required")
	}
	if cm.ToVersion != cm.FromVersion+1 {
		return errors.New("version must increment by exactly 1")
	}
	return nil
}
