package integration

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"gorm.io/gorm"
)

// InstanceManager 子流程管理器
// 负责子流程的创建、查询与漂移同步
type InstanceManager interface {
	Create(req *CreateInstanceRequest, operator string) (*workflow.WorkflowInstance, error)
	Get(id string) (*workflow.WorkflowInstance, error)
	GetByCategory(categoryID string) (*workflow.WorkflowInstance, error)
	List() ([]*workflow.WorkflowInstance, error)
	Delete(id string) error
	ComputeDrift(instanceID string) (*workflow.DriftReport, error)
	ApplySelectedDrift(instanceID string, computedVersion int, selectedKeys []string, operator string) (*workflow.WorkflowInstance, error)
}

// CreateInstanceRequest 创建子流程请求
type CreateInstanceRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	CategoryID  string   `json:"category_id"`
	StepOrder   []string `json:"step_order" binding:"required"`
}

// dbInstanceManager 基于数据库的子流程管理器
type dbInstanceManager struct {
	db           *gorm.DB
	workflowMgr  WorkflowManager
	instanceRepo repository.InstanceRepository
	categories   workflow.CategoryRegistry
	clock        workflow.Clock
}

// NewInstanceManager 创建子流程管理器
// categories 为 nil 时跳过分类存在性检查
func NewInstanceManager(db *gorm.DB, workflowMgr WorkflowManager, categories workflow.CategoryRegistry, clock workflow.Clock) InstanceManager {
	if clock == nil {
		clock = workflow.SystemClock{}
	}
	return &dbInstanceManager{
		db:           db,
		workflowMgr:  workflowMgr,
		instanceRepo: repository.NewInstanceRepository(db),
		categories:   categories,
		clock:        clock,
	}
}

// Create 创建子流程
// 校验 stepOrder 中的每个 ID 都存在于当前标准流程,
// 且分类没有绑定其他子流程,并打上当前模板版本戳
func (m *dbInstanceManager) Create(req *CreateInstanceRequest, operator string) (*workflow.WorkflowInstance, error) {
	if req == nil || req.Name == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if len(req.StepOrder) == 0 {
		return nil, fmt.Errorf("step order must contain at least one step")
	}

	// 1. 加载标准流程
	wf, err := m.workflowMgr.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load standard workflow: %w", err)
	}

	// 2. 校验 stepOrder 是模板步骤的子集且无重复
	seen := make(map[string]bool, len(req.StepOrder))
	steps := make([]*workflow.InstanceStep, 0, len(req.StepOrder))
	for _, id := range req.StepOrder {
		if seen[id] {
			return nil, fmt.Errorf("duplicate step id %q in step order", id)
		}
		seen[id] = true
		step := wf.StepByID(id)
		if step == nil {
			return nil, &workflow.UnknownStepError{StepID: id}
		}
		steps = append(steps, workflow.SnapshotStep(step))
	}

	// 3. 校验分类唯一绑定
	if req.CategoryID != "" {
		if m.categories != nil {
			exists, err := m.categories.Exists(req.CategoryID)
			if err != nil {
				return nil, fmt.Errorf("failed to check category: %w", err)
			}
			if !exists {
				return nil, fmt.Errorf("category %q does not exist", req.CategoryID)
			}
		}
		existing, err := m.instanceRepo.FindByCategory(req.CategoryID)
		if err == nil {
			return nil, &workflow.DuplicateCategoryBindingError{
				CategoryID: req.CategoryID,
				InstanceID: existing.ID,
			}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	// 4. 构建并保存
	now := m.clock.Now()
	instance := &workflow.WorkflowInstance{
		ID:                         generateInstanceID(),
		Name:                       req.Name,
		Description:                req.Description,
		CategoryID:                 req.CategoryID,
		StepOrder:                  append([]string(nil), req.StepOrder...),
		Steps:                      steps,
		CreatedFromTemplateVersion: wf.Version,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}
	if err := m.saveInstance(instance, operator); err != nil {
		return nil, err
	}
	return instance, nil
}

// Get 获取子流程
func (m *dbInstanceManager) Get(id string) (*workflow.WorkflowInstance, error) {
	im, err := m.instanceRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("instance not found: %w", err)
	}
	return unmarshalInstance(im)
}

// GetByCategory 获取绑定到分类的子流程
// 未绑定时返回 NoInstanceForCategoryError
func (m *dbInstanceManager) GetByCategory(categoryID string) (*workflow.WorkflowInstance, error) {
	im, err := m.instanceRepo.FindByCategory(categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &workflow.NoInstanceForCategoryError{CategoryID: categoryID}
		}
		return nil, err
	}
	return unmarshalInstance(im)
}

// List 列出所有子流程
func (m *dbInstanceManager) List() ([]*workflow.WorkflowInstance, error) {
	models, err := m.instanceRepo.FindAll()
	if err != nil {
		return nil, err
	}
	instances := make([]*workflow.WorkflowInstance, 0, len(models))
	for _, im := range models {
		instance, err := unmarshalInstance(im)
		if err != nil {
			return nil, err
		}
		instances = append(instances, instance)
	}
	return instances, nil
}

// Delete 删除子流程
func (m *dbInstanceManager) Delete(id string) error {
	return m.instanceRepo.Delete(id)
}

// ComputeDrift 计算子流程与标准流程之间的漂移
// 只读,不产生副作用
func (m *dbInstanceManager) ComputeDrift(instanceID string) (*workflow.DriftReport, error) {
	instance, err := m.Get(instanceID)
	if err != nil {
		return nil, err
	}
	wf, err := m.workflowMgr.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load standard workflow: %w", err)
	}
	return workflow.ComputeDrift(instance, wf), nil
}

// ApplySelectedDrift 选择性应用漂移变更
// computedVersion 必须仍等于当前模板版本,否则返回 StaleDriftError;
// 未选中的变更保持待同步状态,留待下一次调用
func (m *dbInstanceManager) ApplySelectedDrift(instanceID string, computedVersion int, selectedKeys []string, operator string) (*workflow.WorkflowInstance, error) {
	instance, err := m.Get(instanceID)
	if err != nil {
		return nil, err
	}
	wf, err := m.workflowMgr.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load standard workflow: %w", err)
	}

	// 1. 模板在漂移计算之后又发生变化时拒绝,要求重新计算
	if wf.Version != computedVersion {
		return nil, &workflow.StaleDriftError{
			InstanceID:      instanceID,
			ComputedVersion: computedVersion,
			CurrentVersion:  wf.Version,
		}
	}

	// 2. 重新计算漂移并按 key 过滤出选中的变更
	// selectedKeys 为空表示全部应用
	report := workflow.ComputeDrift(instance, wf)
	selected := make(map[string]bool, len(selectedKeys))
	for _, k := range selectedKeys {
		selected[k] = true
	}
	applied := 0
	for _, change := range report.Changes {
		if len(selectedKeys) > 0 && !selected[change.Key()] {
			continue
		}
		if err := workflow.ApplyChange(instance, wf, change); err != nil {
			return nil, fmt.Errorf("failed to apply drift change %q: %w", change.Key(), err)
		}
		applied++
	}

	// 3. 按模板顺序重排;全部变更都已应用时才推进版本戳,
	// 否则保留旧版本,剩余变更在下一次计算时继续出现
	workflow.ResortByTemplate(instance, wf)
	if applied == len(report.Changes) {
		instance.CreatedFromTemplateVersion = wf.Version
	}
	instance.UpdatedAt = m.clock.Now()

	if err := m.saveInstance(instance, operator); err != nil {
		return nil, err
	}
	return instance, nil
}

// saveInstance 序列化并保存子流程
func (m *dbInstanceManager) saveInstance(instance *workflow.WorkflowInstance, operator string) error {
	data, err := json.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to marshal instance: %w", err)
	}
	im := &model.InstanceModel{
		ID:              instance.ID,
		Name:            instance.Name,
		CategoryID:      instance.CategoryID,
		TemplateVersion: instance.CreatedFromTemplateVersion,
		Data:            data,
		CreatedAt:       instance.CreatedAt,
		UpdatedAt:       instance.UpdatedAt,
		CreatedBy:       operator,
	}
	if err := m.instanceRepo.Save(im); err != nil {
		return fmt.Errorf("failed to save instance: %w", err)
	}
	return nil
}

// unmarshalInstance 反序列化子流程
func unmarshalInstance(im *model.InstanceModel) (*workflow.WorkflowInstance, error) {
	var instance workflow.WorkflowInstance
	if err := json.Unmarshal(im.Data, &instance); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance: %w", err)
	}
	return &instance, nil
}

// generateInstanceID 生成子流程 ID
func generateInstanceID() string {
	return fmt.Sprintf("inst-%d", time.Now().UnixNano())
}
