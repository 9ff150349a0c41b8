package repository

import (
	"errors"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"gorm.io/gorm"
)

// WorkflowRepository 标准流程仓储接口
// 标准流程是单例聚合,读写都针对唯一一行
type WorkflowRepository interface {
	Save(workflow *model.WorkflowModel) error
	Find() (*model.WorkflowModel, error)
	// SaveWithVersion 带版本比较的保存
	// 只有数据库中的版本仍等于 expectedVersion 时才写入,实现乐观并发
	SaveWithVersion(workflow *model.WorkflowModel, expectedVersion int) error
}

// ErrVersionConflict 乐观并发写入冲突
var ErrVersionConflict = errors.New("workflow version conflict, reload and retry")

// workflowRepository 标准流程仓储实现
type workflowRepository struct {
	db *gorm.DB
}

// NewWorkflowRepository 创建标准流程仓储
func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

// Save 保存标准流程
func (r *workflowRepository) Save(workflow *model.WorkflowModel) error {
	return r.db.Save(workflow).Error
}

// Find 读取标准流程,不存在时返回 gorm.ErrRecordNotFound
func (r *workflowRepository) Find() (*model.WorkflowModel, error) {
	var workflow model.WorkflowModel
	if err := r.db.Order("created_at ASC").First(&workflow).Error; err != nil {
		return nil, err
	}
	return &workflow, nil
}

// SaveWithVersion 带版本比较的保存
func (r *workflowRepository) SaveWithVersion(workflow *model.WorkflowModel, expectedVersion int) error {
	result := r.db.Model(&model.WorkflowModel{}).
		Where("id = ? AND version = ?", workflow.ID, expectedVersion).
		Updates(map[string]interface{}{
			"name":       workflow.Name,
			"version":    workflow.Version,
			"data":       workflow.Data,
			"updated_at": workflow.UpdatedAt,
			"updated_by": workflow.UpdatedBy,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}
