package repository

import (
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"gorm.io/gorm"
)

// ChangeLogRepository 标准流程变更日志仓储接口
type ChangeLogRepository interface {
	Append(entry *model.ChangeLogModel) error
	FindByWorkflowID(workflowID string) ([]*model.ChangeLogModel, error)
}

// changeLogRepository 变更日志仓储实现
type changeLogRepository struct {
	db *gorm.DB
}

// NewChangeLogRepository 创建变更日志仓储
func NewChangeLogRepository(db *gorm.DB) ChangeLogRepository {
	return &changeLogRepository{db: db}
}

// Append 追加变更日志
func (r *changeLogRepository) Append(entry *model.ChangeLogModel) error {
	return r.db.Create(entry).Error
}

// FindByWorkflowID 按版本升序返回标准流程的变更日志
func (r *changeLogRepository) FindByWorkflowID(workflowID string) ([]*model.ChangeLogModel, error) {
	var entries []*model.ChangeLogModel
	err := r.db.Where("workflow_id = ?", workflowID).
		Order("to_version ASC").
		Find(&entries).Error
	return entries, err
}
