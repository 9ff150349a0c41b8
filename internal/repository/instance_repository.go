package repository

import (
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"gorm.io/gorm"
)

// InstanceRepository 子流程仓储接口
type InstanceRepository interface {
	Save(instance *model.InstanceModel) error
	FindByID(id string) (*model.InstanceModel, error)
	FindByCategory(categoryID string) (*model.InstanceModel, error)
	FindAll() ([]*model.InstanceModel, error)
	Delete(id string) error
}

// instanceRepository 子流程仓储实现
type instanceRepository struct {
	db *gorm.DB
}

// NewInstanceRepository 创建子流程仓储
func NewInstanceRepository(db *gorm.DB) InstanceRepository {
	return &instanceRepository{db: db}
}

// Save 保存子流程
func (r *instanceRepository) Save(instance *model.InstanceModel) error {
	return r.db.Save(instance).Error
}

// FindByID 根据 ID 查找子流程
func (r *instanceRepository) FindByID(id string) (*model.InstanceModel, error) {
	var instance model.InstanceModel
	if err := r.db.Where("id = ?", id).First(&instance).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

// FindByCategory 查找绑定到指定分类的子流程
func (r *instanceRepository) FindByCategory(categoryID string) (*model.InstanceModel, error) {
	var instance model.InstanceModel
	if err := r.db.Where("category_id = ?", categoryID).First(&instance).Error; err != nil {
		return nil, err
	}
	return &instance, nil
}

// FindAll 查找所有子流程
func (r *instanceRepository) FindAll() ([]*model.InstanceModel, error) {
	var instances []*model.InstanceModel
	err := r.db.Order("created_at DESC").Find(&instances).Error
	return instances, err
}

// Delete 删除子流程
func (r *instanceRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&model.InstanceModel{}).Error
}
