package repository

import (
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/utils"
	"gorm.io/gorm"
)

// RequestRepository 请求仓储接口
type RequestRepository interface {
	Save(request *model.RequestModel) error
	FindByID(id string) (*model.RequestModel, error)
	FindAll() ([]*model.RequestModel, error)
	FindByFilter(filter *RequestFilter) ([]*model.RequestModel, int64, error)
	CountByStatus() (map[string]int64, error)
}

// RequestFilter 请求查询过滤器
type RequestFilter struct {
	Status     *string
	CategoryID *string
	InstanceID *string
	CreatedBy  *string
	StartTime  *string
	EndTime    *string
	SortBy     string
	SortOrder  string
	Page       int
	PageSize   int
}

// requestRepository 请求仓储实现
type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository 创建请求仓储
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// Save 保存请求
func (r *requestRepository) Save(request *model.RequestModel) error {
	return r.db.Save(request).Error
}

// FindByID 根据 ID 查找请求
func (r *requestRepository) FindByID(id string) (*model.RequestModel, error) {
	var request model.RequestModel
	if err := r.db.Where("id = ?", id).First(&request).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// FindAll 查找所有请求
func (r *requestRepository) FindAll() ([]*model.RequestModel, error) {
	var requests []*model.RequestModel
	err := r.db.Order("created_at DESC").Find(&requests).Error
	return requests, err
}

// FindByFilter 根据过滤器分页查找请求
func (r *requestRepository) FindByFilter(filter *RequestFilter) ([]*model.RequestModel, int64, error) {
	var requests []*model.RequestModel
	query := r.db.Model(&model.RequestModel{})

	if filter != nil {
		if filter.Status != nil {
			query = query.Where("status = ?", *filter.Status)
		}
		if filter.CategoryID != nil {
			query = query.Where("category_id = ?", *filter.CategoryID)
		}
		if filter.InstanceID != nil {
			query = query.Where("instance_id = ?", *filter.InstanceID)
		}
		if filter.CreatedBy != nil {
			query = query.Where("created_by = ?", *filter.CreatedBy)
		}
		if filter.StartTime != nil {
			query = query.Where("created_at >= ?", *filter.StartTime)
		}
		if filter.EndTime != nil {
			query = query.Where("created_at <= ?", *filter.EndTime)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter != nil && filter.PageSize > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		query = query.Offset((page - 1) * filter.PageSize).Limit(filter.PageSize)
	}

	order := "created_at DESC"
	if filter != nil && filter.SortBy != "" {
		// 排序字段来自外部输入,拼接前必须清洗
		field := utils.SanitizeSortField(filter.SortBy)
		if field != "" {
			order = field + " " + utils.SanitizeSortOrder(filter.SortOrder)
		}
	}

	err := query.Order(order).Find(&requests).Error
	return requests, total, err
}

// CountByStatus 按状态统计请求数量
func (r *requestRepository) CountByStatus() (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := r.db.Model(&model.RequestModel{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, rw := range rows {
		counts[rw.Status] = rw.Count
	}
	return counts, nil
}
