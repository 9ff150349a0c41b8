package model

import (
	"errors"
	"time"
)

// RequestModel 请求数据模型
// Data 列保存序列化后的 Request 对象(含字段值与完成步骤账本)
type RequestModel struct {
	ID            string     `gorm:"primaryKey;type:varchar(64)"`
	Code          string     `gorm:"type:varchar(64);uniqueIndex"` // 业务编号
	Title         string     `gorm:"type:varchar(255);not null"`
	CategoryID    string     `gorm:"type:varchar(64);index"`
	InstanceID    string     `gorm:"type:varchar(64);index"` // 绑定的子流程 ID
	Status        string     `gorm:"type:varchar(32);not null;index"`
	CurrentStepID string     `gorm:"type:varchar(64)"`
	Data          []byte     `gorm:"type:jsonb;not null"`
	CreatedAt     time.Time  `gorm:"not null;index"`
	UpdatedAt     time.Time  `gorm:"not null;index"`
	ConvertedAt   *time.Time `gorm:"index"` // 转换为产品的时间
	CreatedBy     string     `gorm:"type:varchar(64);index"` // 创建人 ID
}

// TableName 指定表名
func (RequestModel) TableName() string {
	return "requests"
}

// Validate 验证请求模型
func (rm *RequestModel) Validate() error {
	if rm.ID == "" {
		return errors.New("request ID is required")
	}
	if rm.Title == "" {
		return errors.New("request title is required")
	}
	if rm.Status == "" {
		return errors.New("request status is required")
	}
	if len(rm.Data) == 0 {
		return errors.New("request data is required")
	}
	return nil
}
