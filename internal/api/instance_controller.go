package api

import (
	"net/http"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/service"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/utils"
	"github.com/gin-gonic/gin"
)

// InstanceController 子流程控制器
type InstanceController struct {
	instanceService service.InstanceService
}

// NewInstanceController 创建子流程控制器
func NewInstanceController(instanceService service.InstanceService) *InstanceController {
	return &InstanceController{
		instanceService: instanceService,
	}
}

// validateInstanceID 验证子流程 ID 并返回错误响应（如果无效）
func (c *InstanceController) validateInstanceID(ctx *gin.Context, id string) bool {
	if err := utils.ValidateID(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid instance ID", err.Error())
		return false
	}
	return true
}

// Create 创建子流程
func (c *InstanceController) Create(ctx *gin.Context) {
	var req integration.CreateInstanceRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	inst, err := c.instanceService.Create(ctx.Request.Context(), &req)
	if err != nil {
		DomainError(ctx, err, "create instance")
		return
	}

	Success(ctx, inst)
}

// Get 获取子流程详情
func (c *InstanceController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	inst, err := c.instanceService.Get(id)
	if err != nil {
		DomainError(ctx, err, "get instance")
		return
	}

	Success(ctx, inst)
}

// List 查询子流程列表,支持按类别过滤
func (c *InstanceController) List(ctx *gin.Context) {
	if categoryID := ctx.Query("category_id"); categoryID != "" {
		inst, err := c.instanceService.GetByCategory(categoryID)
		if err != nil {
			DomainError(ctx, err, "get instance by category")
			return
		}
		Success(ctx, inst)
		return
	}

	instances, err := c.instanceService.List()
	if err != nil {
		DomainError(ctx, err, "list instances")
		return
	}

	Success(ctx, instances)
}

// Delete 删除子流程
func (c *InstanceController) Delete(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	if err := c.instanceService.Delete(ctx.Request.Context(), id); err != nil {
		DomainError(ctx, err, "delete instance")
		return
	}

	Success(ctx, nil)
}

// ComputeDrift 计算子流程与最新模板的差异
func (c *InstanceController) ComputeDrift(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	report, err := c.instanceService.ComputeDrift(id)
	if err != nil {
		DomainError(ctx, err, "compute drift")
		return
	}

	Success(ctx, report)
}

// ApplyDrift 选择性应用差异
func (c *InstanceController) ApplyDrift(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateInstanceID(ctx, id) {
		return
	}

	var req service.ApplyDriftRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	inst, err := c.instanceService.ApplyDrift(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "apply drift")
		return
	}

	Success(ctx, inst)
}
