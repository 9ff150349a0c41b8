package api

import (
	"net/http"
	"strconv"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RequestController 请求控制器
type RequestController struct {
	requestService service.RequestService
}

// NewRequestController 创建请求控制器
func NewRequestController(requestService service.RequestService) *RequestController {
	return &RequestController{
		requestService: requestService,
	}
}

// validateRequestID 验证请求 ID 并返回错误响应（如果无效）
func (c *RequestController) validateRequestID(ctx *gin.Context, id string) bool {
	if _, err := uuid.Parse(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request ID", err.Error())
		return false
	}
	return true
}

// Create 创建请求
func (c *RequestController) Create(ctx *gin.Context) {
	var req integration.CreateRequestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	r, err := c.requestService.Create(ctx.Request.Context(), &req)
	if err != nil {
		DomainError(ctx, err, "create request")
		return
	}

	Success(ctx, r)
}

// Get 获取请求详情
func (c *RequestController) Get(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	r, err := c.requestService.Get(id)
	if err != nil {
		DomainError(ctx, err, "get request")
		return
	}

	Success(ctx, r)
}

// List 分页查询请求列表
func (c *RequestController) List(ctx *gin.Context) {
	filter := &repository.RequestFilter{
		Page:      1,
		PageSize:  20,
		SortBy:    ctx.Query("sort_by"),
		SortOrder: ctx.Query("sort_order"),
	}

	if page, err := strconv.Atoi(ctx.DefaultQuery("page", "1")); err == nil && page > 0 {
		filter.Page = page
	}
	if pageSize, err := strconv.Atoi(ctx.DefaultQuery("page_size", "20")); err == nil && pageSize > 0 && pageSize <= 100 {
		filter.PageSize = pageSize
	}

	if status := ctx.Query("status"); status != "" {
		filter.Status = &status
	}
	if categoryID := ctx.Query("category_id"); categoryID != "" {
		filter.CategoryID = &categoryID
	}
	if instanceID := ctx.Query("instance_id"); instanceID != "" {
		filter.InstanceID = &instanceID
	}
	if createdBy := ctx.Query("created_by"); createdBy != "" {
		filter.CreatedBy = &createdBy
	}
	if startTime := ctx.Query("start_time"); startTime != "" {
		filter.StartTime = &startTime
	}
	if endTime := ctx.Query("end_time"); endTime != "" {
		filter.EndTime = &endTime
	}

	requests, total, err := c.requestService.List(filter)
	if err != nil {
		DomainError(ctx, err, "list requests")
		return
	}

	Paginated(ctx, requests, NewPaginationInfo(filter.Page, filter.PageSize, total))
}

// StartStep 启动当前步骤
func (c *RequestController) StartStep(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	r, err := c.requestService.StartStep(ctx.Request.Context(), id)
	if err != nil {
		DomainError(ctx, err, "start step")
		return
	}

	Success(ctx, r)
}

// CompleteStep 完成当前步骤
func (c *RequestController) CompleteStep(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	r, err := c.requestService.CompleteStep(ctx.Request.Context(), id)
	if err != nil {
		DomainError(ctx, err, "complete step")
		return
	}

	Success(ctx, r)
}

// RejectStep 拒绝当前步骤
func (c *RequestController) RejectStep(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var req service.PauseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	r, err := c.requestService.RejectStep(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "reject step")
		return
	}

	Success(ctx, r)
}

// HoldStep 挂起当前步骤
func (c *RequestController) HoldStep(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var req service.PauseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	r, err := c.requestService.HoldStep(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "hold step")
		return
	}

	Success(ctx, r)
}

// ContinueWorkflow 恢复流程
func (c *RequestController) ContinueWorkflow(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var req service.PauseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	r, err := c.requestService.ContinueWorkflow(ctx.Request.Context(), id, req.Reason)
	if err != nil {
		DomainError(ctx, err, "continue workflow")
		return
	}

	Success(ctx, r)
}

// ChangeCategory 变更请求类别
func (c *RequestController) ChangeCategory(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var req service.ChangeCategoryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	r, err := c.requestService.ChangeCategory(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "change category")
		return
	}

	Success(ctx, r)
}

// ConvertToProduct 转化为产品
func (c *RequestController) ConvertToProduct(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var req service.ConvertRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	r, productID, err := c.requestService.ConvertToProduct(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "convert to product")
		return
	}

	Success(ctx, gin.H{"request": r, "product_id": productID})
}

// UpdateFieldValue 更新当前步骤字段值
func (c *RequestController) UpdateFieldValue(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	var req service.UpdateFieldRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request", err.Error())
		return
	}

	r, err := c.requestService.UpdateFieldValue(ctx.Request.Context(), id, &req)
	if err != nil {
		DomainError(ctx, err, "update field value")
		return
	}

	Success(ctx, r)
}

// GetHistory 获取请求历史记录
func (c *RequestController) GetHistory(ctx *gin.Context) {
	id := ctx.Param("id")
	if !c.validateRequestID(ctx, id) {
		return
	}

	history, err := c.requestService.GetHistory(id)
	if err != nil {
		DomainError(ctx, err, "get history")
		return
	}

	Success(ctx, history)
}
