package api

import (
	"net/http"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// StatisticsController 统计控制器
type StatisticsController struct {
	statisticsService service.StatisticsService
}

// NewStatisticsController 创建统计控制器
func NewStatisticsController(statisticsService service.StatisticsService) *StatisticsController {
	return &StatisticsController{
		statisticsService: statisticsService,
	}
}

// ByStatus 按状态统计请求
func (c *StatisticsController) ByStatus(ctx *gin.Context) {
	stats, err := c.statisticsService.GetRequestStatisticsByStatus()
	if err != nil {
		DomainError(ctx, err, "get statistics by status")
		return
	}

	Success(ctx, stats)
}

// ByCategory 按类别统计请求
func (c *StatisticsController) ByCategory(ctx *gin.Context) {
	stats, err := c.statisticsService.GetRequestStatisticsByCategory()
	if err != nil {
		DomainError(ctx, err, "get statistics by category")
		return
	}

	Success(ctx, stats)
}

// ByTime 按创建日期统计请求
func (c *StatisticsController) ByTime(ctx *gin.Context) {
	stats, err := c.statisticsService.GetRequestStatisticsByTime()
	if err != nil {
		DomainError(ctx, err, "get statistics by time")
		return
	}

	Success(ctx, stats)
}

// Progress 查询请求进度
func (c *StatisticsController) Progress(ctx *gin.Context) {
	id := ctx.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		Error(ctx, http.StatusBadRequest, "invalid request ID", err.Error())
		return
	}

	progress, err := c.statisticsService.GetRequestProgress(id)
	if err != nil {
		DomainError(ctx, err, "get request progress")
		return
	}

	Success(ctx, progress)
}
