package repository

import (
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"gorm.io/gorm"
)

// ProductRepository 产品仓储接口
type ProductRepository interface {
	Save(product *model.ProductModel) error
	FindByID(id string) (*model.ProductModel, error)
	FindByRequestID(requestID string) (*model.ProductModel, error)
}

// productRepository 产品仓储实现
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建产品仓储
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Save 保存产品
func (r *productRepository) Save(product *model.ProductModel) error {
	return r.db.Save(product).Error
}

// FindByID 根据 ID 查找产品
func (r *productRepository) FindByID(id string) (*model.ProductModel, error) {
	var product model.ProductModel
	if err := r.db.Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByRequestID 根据来源请求 ID 查找产品
func (r *productRepository) FindByRequestID(requestID string) (*model.ProductModel, error) {
	var product model.ProductModel
	if err := r.db.Where("request_id = ?", requestID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}
