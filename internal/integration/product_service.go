package integration

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"gorm.io/gorm"
)

// dbProductService 本地产品服务
// 没有外部产品系统时的默认实现:把转换载荷落到本地产品表,
// 完成步骤账本原样保留用于溯源
type dbProductService struct {
	productRepo repository.ProductRepository
	clock       workflow.Clock
}

// NewProductService 创建本地产品服务
func NewProductService(db *gorm.DB, clock workflow.Clock) workflow.ProductService {
	if clock == nil {
		clock = workflow.SystemClock{}
	}
	return &dbProductService{
		productRepo: repository.NewProductRepository(db),
		clock:       clock,
	}
}

// CreateFromRequest 从请求载荷创建产品
func (s *dbProductService) CreateFromRequest(payload *workflow.ProductPayload) (string, error) {
	if payload == nil || payload.RequestID == "" {
		return "", fmt.Errorf("product payload with a request ID is required")
	}

	name := payload.Title
	if n, ok := payload.Attrs["name"]; ok && n != "" {
		name = n
	}

	attrs, err := json.Marshal(payload.Attrs)
	if err != nil {
		return "", fmt.Errorf("failed to marshal product attrs: %w", err)
	}
	history, err := json.Marshal(payload.CompletedSteps)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completed steps: %w", err)
	}

	product := &model.ProductModel{
		ID:        generateProductID(),
		RequestID: payload.RequestID,
		Name:      name,
		Attrs:     attrs,
		History:   history,
		CreatedAt: s.clock.Now(),
	}
	if err := s.productRepo.Save(product); err != nil {
		return "", fmt.Errorf("failed to save product: %w", err)
	}
	return product.ID, nil
}

// generateProductID 生成产品 ID
func generateProductID() string {
	return fmt.Sprintf("prod-%d", time.Now().UnixNano())
}
