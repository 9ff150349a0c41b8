package repository

import (
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"gorm.io/gorm"
)

// HistoryRepository 请求历史仓储接口
// 仅追加,不提供更新与删除
type HistoryRepository interface {
	Append(entry *model.HistoryModel) error
	FindByRequestID(requestID string) ([]*model.HistoryModel, error)
}

// historyRepository 请求历史仓储实现
type historyRepository struct {
	db *gorm.DB
}

// NewHistoryRepository 创建请求历史仓储
func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

// Append 追加历史记录
func (r *historyRepository) Append(entry *model.HistoryModel) error {
	return r.db.Create(entry).Error
}

// FindByRequestID 按时间升序返回请求的全部历史
// 同一时间戳按 ID 排序,保证展示顺序稳定
func (r *historyRepository) FindByRequestID(requestID string) ([]*model.HistoryModel, error) {
	var entries []*model.HistoryModel
	err := r.db.Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error
	return entries, err
}
