package service

import (
	"context"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
)

// InstanceService 子流程服务接口
type InstanceService interface {
	Create(ctx context.Context, req *integration.CreateInstanceRequest) (*workflow.WorkflowInstance, error)
	Get(id string) (*workflow.WorkflowInstance, error)
	GetByCategory(categoryID string) (*workflow.WorkflowInstance, error)
	List() ([]*workflow.WorkflowInstance, error)
	Delete(ctx context.Context, id string) error
	ComputeDrift(instanceID string) (*workflow.DriftReport, error)
	ApplyDrift(ctx context.Context, instanceID string, req *ApplyDriftRequest) (*workflow.WorkflowInstance, error)
}

// ApplyDriftRequest 应用差异请求参数
type ApplyDriftRequest struct {
	ComputedVersion int      `json:"computed_version" binding:"required"` // 计算差异时的模板版本
	SelectedKeys    []string `json:"selected_keys"`                       // 选择应用的变更键,为空表示全部应用
}

// instanceService 子流程服务实现
type instanceService struct {
	instanceMgr integration.InstanceManager
	auditLogSvc AuditLogService
}

// NewInstanceService 创建子流程服务
func NewInstanceService(instanceMgr integration.InstanceManager, auditLogSvc AuditLogService) InstanceService {
	return &instanceService{
		instanceMgr: instanceMgr,
		auditLogSvc: auditLogSvc,
	}
}

// Create 创建子流程
func (s *instanceService) Create(ctx context.Context, req *integration.CreateInstanceRequest) (*workflow.WorkflowInstance, error) {
	inst, err := s.instanceMgr.Create(req, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "create", inst.ID, map[string]interface{}{
		"category_id":      inst.CategoryID,
		"template_version": inst.CreatedFromTemplateVersion,
	})
	return inst, nil
}

// Get 获取子流程详情
func (s *instanceService) Get(id string) (*workflow.WorkflowInstance, error) {
	return s.instanceMgr.Get(id)
}

// GetByCategory 按类别获取子流程
func (s *instanceService) GetByCategory(categoryID string) (*workflow.WorkflowInstance, error) {
	return s.instanceMgr.GetByCategory(categoryID)
}

// List 查询子流程列表
func (s *instanceService) List() ([]*workflow.WorkflowInstance, error) {
	return s.instanceMgr.List()
}

// Delete 删除子流程
func (s *instanceService) Delete(ctx context.Context, id string) error {
	if err := s.instanceMgr.Delete(id); err != nil {
		return err
	}

	s.audit(ctx, "delete", id, nil)
	return nil
}

// ComputeDrift 计算子流程与最新模板的差异
func (s *instanceService) ComputeDrift(instanceID string) (*workflow.DriftReport, error) {
	return s.instanceMgr.ComputeDrift(instanceID)
}

// ApplyDrift 选择性应用差异
func (s *instanceService) ApplyDrift(ctx context.Context, instanceID string, req *ApplyDriftRequest) (*workflow.WorkflowInstance, error) {
	inst, err := s.instanceMgr.ApplySelectedDrift(instanceID, req.ComputedVersion, req.SelectedKeys, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "apply_drift", instanceID, map[string]interface{}{
		"computed_version": req.ComputedVersion,
		"selected_keys":    req.SelectedKeys,
	})
	return inst, nil
}

// audit 记录审计日志,失败不影响主流程
func (s *instanceService) audit(ctx context.Context, action, instanceID string, details map[string]interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, "instance", instanceID, details)
}
