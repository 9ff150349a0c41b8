package service

import (
	"context"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
)

// WorkflowService 标准流程服务接口
type WorkflowService interface {
	Get() (*workflow.StandardWorkflow, error)
	UpdateMeta(ctx context.Context, req *UpdateWorkflowMetaRequest) (*workflow.StandardWorkflow, error)
	AddStep(ctx context.Context, def *workflow.StepTemplate) (*workflow.StandardWorkflow, error)
	UpdateStep(ctx context.Context, stepID string, patch *integration.StepPatch) (*workflow.StandardWorkflow, error)
	DeleteStep(ctx context.Context, stepID string) (*workflow.StandardWorkflow, error)
	ReorderSteps(ctx context.Context, req *ReorderStepsRequest) (*workflow.StandardWorkflow, error)
	AddField(ctx context.Context, stepID string, field *workflow.CustomField) (*workflow.StandardWorkflow, error)
	UpdateField(ctx context.Context, stepID, fieldID string, patch *integration.FieldPatch) (*workflow.StandardWorkflow, error)
	DeleteField(ctx context.Context, stepID, fieldID string) (*workflow.StandardWorkflow, error)
}

// UpdateWorkflowMetaRequest 更新流程元信息请求参数
type UpdateWorkflowMetaRequest struct {
	Name        *string `json:"name"`        // 流程名称,为空表示不修改
	Description *string `json:"description"` // 流程描述,为空表示不修改
}

// ReorderStepsRequest 步骤重排请求参数
type ReorderStepsRequest struct {
	StepIDs []string `json:"step_ids" binding:"required"` // 全量步骤 ID 的新顺序
}

// workflowService 标准流程服务实现
type workflowService struct {
	workflowMgr integration.WorkflowManager
	auditLogSvc AuditLogService
}

// NewWorkflowService 创建标准流程服务
func NewWorkflowService(workflowMgr integration.WorkflowManager, auditLogSvc AuditLogService) WorkflowService {
	return &workflowService{
		workflowMgr: workflowMgr,
		auditLogSvc: auditLogSvc,
	}
}

// Get 获取标准流程
func (s *workflowService) Get() (*workflow.StandardWorkflow, error) {
	return s.workflowMgr.Get()
}

// UpdateMeta 更新流程元信息
func (s *workflowService) UpdateMeta(ctx context.Context, req *UpdateWorkflowMetaRequest) (*workflow.StandardWorkflow, error) {
	wf, err := s.workflowMgr.UpdateMeta(req.Name, req.Description, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "update_meta", wf.ID, map[string]interface{}{"version": wf.Version})
	return wf, nil
}

// AddStep 新增步骤
func (s *workflowService) AddStep(ctx context.Context, def *workflow.StepTemplate) (*workflow.StandardWorkflow, error) {
	wf, err := s.workflowMgr.AddStep(def, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "add_step", wf.ID, map[string]interface{}{"step_name": def.Name, "version": wf.Version})
	return wf, nil
}

// UpdateStep 更新步骤
func (s *workflowService) UpdateStep(ctx context.Context, stepID string, patch *integration.StepPatch) (*workflow.StandardWorkflow, error) {
	wf, err := s.workflowMgr.UpdateStep(stepID, patch, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "update_step", wf.ID, map[string]interface{}{"step_id": stepID, "version": wf.Version})
	return wf, nil
}

// DeleteStep 删除步骤
func (s *workflowService) DeleteStep(ctx context.Context, stepID string) (*workflow.StandardWorkflow, error) {
	wf, err := s.workflowMgr.DeleteStep(stepID, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "delete_step", wf.ID, map[string]interface{}{"step_id": stepID, "version": wf.Version})
	return wf, nil
}

// ReorderSteps 重排步骤顺序
func (s *workflowService) ReorderSteps(ctx context.Context, req *ReorderStepsRequest) (*workflow.StandardWorkflow, error) {
	wf, err := s.workflowMgr.ReorderSteps(req.StepIDs, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "reorder_steps", wf.ID, map[string]interface{}{"version": wf.Version})
	return wf, nil
}

// AddField 新增步骤字段
func (s *workflowService) AddField(ctx context.Context, stepID string, field *workflow.CustomField) (*workflow.StandardWorkflow, error) {
	wf, err := s.workflowMgr.AddField(stepID, field, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "add_field", wf.ID, map[string]interface{}{"step_id": stepID, "field_name": field.Name, "version": wf.Version})
	return wf, nil
}

// UpdateField 更新步骤字段
func (s *workflowService) UpdateField(ctx context.Context, stepID, fieldID string, patch *integration.FieldPatch) (*workflow.StandardWorkflow, error) {
	wf, err := s.workflowMgr.UpdateField(stepID, fieldID, patch, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "update_field", wf.ID, map[string]interface{}{"step_id": stepID, "field_id": fieldID, "version": wf.Version})
	return wf, nil
}

// DeleteField 删除步骤字段
func (s *workflowService) DeleteField(ctx context.Context, stepID, fieldID string) (*workflow.StandardWorkflow, error) {
	wf, err := s.workflowMgr.DeleteField(stepID, fieldID, getUserIDFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "delete_field", wf.ID, map[string]interface{}{"step_id": stepID, "field_id": fieldID, "version": wf.Version})
	return wf, nil
}

// audit 记录审计日志,失败不影响主流程
func (s *workflowService) audit(ctx context.Context, action, workflowID string, details map[string]interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, "workflow", workflowID, details)
}
