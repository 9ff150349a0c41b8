package model

import (
	"errors"
	"time"
)

// ProductModel 产品数据模型
// 请求完成后转换的产物,保留完整的完成步骤账本用于溯源
type ProductModel struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	RequestID string    `gorm:"type:varchar(64);not null;uniqueIndex"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Attrs     []byte    `gorm:"type:jsonb"`          // 转换时传入的产品属性
	History   []byte    `gorm:"type:jsonb;not null"` // 完成步骤账本快照
	CreatedAt time.Time `gorm:"not null;index"`
	CreatedBy string    `gorm:"type:varchar(64)"`
}

// TableName 指定表名
func (ProductModel) TableName() string {
	return "products"
}

// Validate 验证产品模型
func (pm *ProductModel) Validate() error {
	if pm.ID == "" {
		return errors.New("product ID is required")
	}
	if pm.RequestID == "" {
		return errors.New("request ID is required")
	}
	if pm.Name == "" {
		return errors.New("product name is required")
	}
	return nil
}
