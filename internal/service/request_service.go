package service

import (
	"context"
	"fmt"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/metrics"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
)

// RequestService 请求服务接口
type RequestService interface {
	Create(ctx context.Context, req *integration.CreateRequestRequest) (*workflow.Request, error)
	Get(id string) (*workflow.Request, error)
	List(filter *repository.RequestFilter) ([]*workflow.Request, int64, error)
	StartStep(ctx context.Context, id string) (*workflow.Request, error)
	CompleteStep(ctx context.Context, id string) (*workflow.Request, error)
	RejectStep(ctx context.Context, id string, req *PauseRequest) (*workflow.Request, error)
	HoldStep(ctx context.Context, id string, req *PauseRequest) (*workflow.Request, error)
	ContinueWorkflow(ctx context.Context, id string, reason string) (*workflow.Request, error)
	ChangeCategory(ctx context.Context, id string, req *ChangeCategoryRequest) (*workflow.Request, error)
	ConvertToProduct(ctx context.Context, id string, req *ConvertRequest) (*workflow.Request, string, error)
	UpdateFieldValue(ctx context.Context, id string, req *UpdateFieldRequest) (*workflow.Request, error)
	GetHistory(id string) ([]*workflow.HistoryEntry, error)
}

// PauseRequest 拒绝/挂起请求参数
type PauseRequest struct {
	Reason string `json:"reason" binding:"required"` // 拒绝或挂起原因
}

// ChangeCategoryRequest 变更类别请求参数
type ChangeCategoryRequest struct {
	CategoryID string `json:"category_id" binding:"required"` // 新类别 ID
}

// ConvertRequest 转化为产品请求参数
type ConvertRequest struct {
	Attrs workflow.ProductAttrs `json:"attrs"` // 产品属性
}

// UpdateFieldRequest 更新字段值请求参数
type UpdateFieldRequest struct {
	FieldID string               `json:"field_id" binding:"required"` // 字段 ID
	Value   *workflow.FieldValue `json:"value"`                       // 字段值
}

// requestService 请求服务实现
type requestService struct {
	requestMgr  integration.RequestManager
	auditLogSvc AuditLogService
}

// NewRequestService 创建请求服务
func NewRequestService(requestMgr integration.RequestManager, auditLogSvc AuditLogService) RequestService {
	return &requestService{
		requestMgr:  requestMgr,
		auditLogSvc: auditLogSvc,
	}
}

// Create 创建请求
func (s *requestService) Create(ctx context.Context, req *integration.CreateRequestRequest) (*workflow.Request, error) {
	r, err := s.requestMgr.Create(req, actorFromContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// 记录业务指标
	metrics.RecordRequestCreated()

	// 记录审计日志
	s.audit(ctx, "create", r.ID, map[string]interface{}{
		"code":        r.Code,
		"category_id": r.CategoryID,
		"instance_id": r.WorkflowInstanceID,
	})

	return r, nil
}

// Get 获取请求详情
func (s *requestService) Get(id string) (*workflow.Request, error) {
	return s.requestMgr.Get(id)
}

// List 查询请求列表
func (s *requestService) List(filter *repository.RequestFilter) ([]*workflow.Request, int64, error) {
	return s.requestMgr.List(filter)
}

// StartStep 启动当前步骤
func (s *requestService) StartStep(ctx context.Context, id string) (*workflow.Request, error) {
	r, err := s.requestMgr.StartStep(id, actorFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "start_step", id, map[string]interface{}{"step_id": r.CurrentStepID})
	return r, nil
}

// CompleteStep 完成当前步骤
func (s *requestService) CompleteStep(ctx context.Context, id string) (*workflow.Request, error) {
	r, err := s.requestMgr.CompleteStep(id, actorFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "complete_step", id, map[string]interface{}{
		"current_step_id": r.CurrentStepID,
		"status":          string(r.Status),
	})
	return r, nil
}

// RejectStep 拒绝当前步骤
func (s *requestService) RejectStep(ctx context.Context, id string, req *PauseRequest) (*workflow.Request, error) {
	r, err := s.requestMgr.RejectStep(id, req.Reason, actorFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "reject_step", id, map[string]interface{}{"reason": req.Reason})
	return r, nil
}

// HoldStep 挂起当前步骤
func (s *requestService) HoldStep(ctx context.Context, id string, req *PauseRequest) (*workflow.Request, error) {
	r, err := s.requestMgr.HoldStep(id, req.Reason, actorFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "hold_step", id, map[string]interface{}{"reason": req.Reason})
	return r, nil
}

// ContinueWorkflow 恢复流程
func (s *requestService) ContinueWorkflow(ctx context.Context, id string, reason string) (*workflow.Request, error) {
	r, err := s.requestMgr.ContinueWorkflow(id, reason, actorFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "continue_workflow", id, map[string]interface{}{"reason": reason})
	return r, nil
}

// ChangeCategory 变更请求类别
func (s *requestService) ChangeCategory(ctx context.Context, id string, req *ChangeCategoryRequest) (*workflow.Request, error) {
	r, err := s.requestMgr.ChangeCategory(id, req.CategoryID, actorFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "change_category", id, map[string]interface{}{
		"category_id": req.CategoryID,
		"instance_id": r.WorkflowInstanceID,
	})
	return r, nil
}

// ConvertToProduct 转化为产品
func (s *requestService) ConvertToProduct(ctx context.Context, id string, req *ConvertRequest) (*workflow.Request, string, error) {
	r, productID, err := s.requestMgr.ConvertToProduct(id, req.Attrs, actorFromContext(ctx))
	if err != nil {
		return nil, "", err
	}

	s.audit(ctx, "convert_to_product", id, map[string]interface{}{"product_id": productID})
	return r, productID, nil
}

// UpdateFieldValue 更新当前步骤字段值
func (s *requestService) UpdateFieldValue(ctx context.Context, id string, req *UpdateFieldRequest) (*workflow.Request, error) {
	r, err := s.requestMgr.UpdateFieldValue(id, req.FieldID, req.Value, actorFromContext(ctx))
	if err != nil {
		return nil, err
	}

	s.audit(ctx, "field_update", id, map[string]interface{}{"field_id": req.FieldID})
	return r, nil
}

// GetHistory 获取请求历史记录
func (s *requestService) GetHistory(id string) ([]*workflow.HistoryEntry, error) {
	return s.requestMgr.GetHistory(id)
}

// audit 记录审计日志，失败不影响主流程
func (s *requestService) audit(ctx context.Context, action, requestID string, details map[string]interface{}) {
	if s.auditLogSvc == nil {
		return
	}
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return
	}
	_ = s.auditLogSvc.RecordAction(ctx, userID, action, "request", requestID, details)
}

// actorFromContext 从 context 构造操作人
func actorFromContext(ctx context.Context) *workflow.User {
	userID := getUserIDFromContext(ctx)
	if userID == "" {
		return nil
	}
	name := ""
	if v, ok := ctx.Value("user_name").(string); ok {
		name = v
	}
	return &workflow.User{ID: userID, Name: name}
}
