package api

import (
	"net/http"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/service"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/utils"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"github.com/gin-gonic/gin"
)

// WorkflowController 标准流程控制器
type WorkflowController struct {
	workflowService service.WorkflowService
}

// NewWorkflowController 创建标准流程控制器
func NewWorkflowController(workflowService service.WorkflowService) *WorkflowController {
	return &WorkflowController{
		workflowService: workflowService,
	}
}

// validateStepID 验证步骤 ID 并返回错误响应（如果无效）
func (c *WorkflowController) validateStepID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid step ID", err.Error())
		return false
	}
	return true
}

// Get 获取标准流程
func (c *WorkflowController) Get(ctx *gin.Context) {
	wf, err := c.workflowService.Get()
	if err != nil {
		DomainError(ctx, err, "get workflow")
		return
	}

	Success(ctx, wf)
}

// UpdateMeta 更新流程元信息
func (c *WorkflowController) UpdateMeta(ctx *gin.Context) {
	var req service.UpdateWorkflowMetaRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	wf, err := c.workflowService.UpdateMeta(ctx.Request.Context(), &req)
	if err != nil {
		DomainError(ctx, err, "update workflow")
		return
	}

	Success(ctx, wf)
}

// AddStep 新增步骤
func (c *WorkflowController) AddStep(ctx *gin.Context) {
	var def workflow.StepTemplate
	if err := ctx.ShouldBindJSON(&def); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := utils.ValidateName(def.Name); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid step name", err.Error())
		return
	}

	wf, err := c.workflowService.AddStep(ctx.Request.Context(), &def)
	if err != nil {
		DomainError(ctx, err, "add step")
		return
	}

	Success(ctx, wf)
}

// UpdateStep 更新步骤
func (c *WorkflowController) UpdateStep(ctx *gin.Context) {
	stepID := ctx.Param("stepId")
	if !c.validateStepID(ctx, stepID) {
		return
	}

	var patch integration.StepPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	wf, err := c.workflowService.UpdateStep(ctx.Request.Context(), stepID, &patch)
	if err != nil {
		DomainError(ctx, err, "update step")
		return
	}

	Success(ctx, wf)
}

// DeleteStep 删除步骤
func (c *WorkflowController) DeleteStep(ctx *gin.Context) {
	stepID := ctx.Param("stepId")
	if !c.validateStepID(ctx, stepID) {
		return
	}

	wf, err := c.workflowService.DeleteStep(ctx.Request.Context(), stepID)
	if err != nil {
		DomainError(ctx, err, "delete step")
		return
	}

	Success(ctx, wf)
}

// ReorderSteps 重排步骤顺序
func (c *WorkflowController) ReorderSteps(ctx *gin.Context) {
	var req service.ReorderStepsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	wf, err := c.workflowService.ReorderSteps(ctx.Request.Context(), &req)
	if err != nil {
		DomainError(ctx, err, "reorder steps")
		return
	}

	Success(ctx, wf)
}

// AddField 新增步骤字段
func (c *WorkflowController) AddField(ctx *gin.Context) {
	stepID := ctx.Param("stepId")
	if !c.validateStepID(ctx, stepID) {
		return
	}

	var field workflow.CustomField
	if err := ctx.ShouldBindJSON(&field); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}
	if err := utils.ValidateName(field.Name); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid field name", err.Error())
		return
	}

	wf, err := c.workflowService.AddField(ctx.Request.Context(), stepID, &field)
	if err != nil {
		DomainError(ctx, err, "add field")
		return
	}

	Success(ctx, wf)
}

// UpdateField 更新步骤字段
func (c *WorkflowController) UpdateField(ctx *gin.Context) {
	stepID := ctx.Param("stepId")
	fieldID := ctx.Param("fieldId")
	if !c.validateStepID(ctx, stepID) || !c.validateStepID(ctx, fieldID) {
		return
	}

	var patch integration.FieldPatch
	if err := ctx.ShouldBindJSON(&patch); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	wf, err := c.workflowService.UpdateField(ctx.Request.Context(), stepID, fieldID, &patch)
	if err != nil {
		DomainError(ctx, err, "update field")
		return
	}

	Success(ctx, wf)
}

// DeleteField 删除步骤字段
func (c *WorkflowController) DeleteField(ctx *gin.Context) {
	stepID := ctx.Param("stepId")
	fieldID := ctx.Param("fieldId")
	if !c.validateStepID(ctx, stepID) || !c.validateStepID(ctx, fieldID) {
		return
	}

	wf, err := c.workflowService.DeleteField(ctx.Request.Context(), stepID, fieldID)
	if err != nil {
		DomainError(ctx, err, "delete field")
		return
	}

	Success(ctx, wf)
}
