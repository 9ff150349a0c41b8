package api

import (
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/config"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/container"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/websocket"
	"github.com/gin-gonic/gin"
)

// SetupRoutes 配置路由
func SetupRoutes(c *container.Container, cfg *config.Config) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(IdentityMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	if cfg.RateLimit.Enabled {
		router.Use(RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	// 健康检查
	healthController := NewHealthController(c.DB())
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", MetricsHandler)

	// WebSocket 路由, "all" 订阅全部请求事件
	router.GET("/ws/requests/:id", websocket.WebSocketHandler(c.Hub()))

	workflowController := NewWorkflowController(c.WorkflowService())
	instanceController := NewInstanceController(c.InstanceService())
	requestController := NewRequestController(c.RequestService())
	statisticsController := NewStatisticsController(c.StatisticsService())

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		// 标准流程管理路由
		workflowGroup := v1.Group("/workflow")
		{
			workflowGroup.GET("", workflowController.Get)
			workflowGroup.PUT("", workflowController.UpdateMeta)
			workflowGroup.POST("/steps", workflowController.AddStep)
			workflowGroup.PUT("/steps/order", workflowController.ReorderSteps)
			workflowGroup.PUT("/steps/:stepId", workflowController.UpdateStep)
			workflowGroup.DELETE("/steps/:stepId", workflowController.DeleteStep)
			workflowGroup.POST("/steps/:stepId/fields", workflowController.AddField)
			workflowGroup.PUT("/steps/:stepId/fields/:fieldId", workflowController.UpdateField)
			workflowGroup.DELETE("/steps/:stepId/fields/:fieldId", workflowController.DeleteField)
		}

		// 子流程管理路由
		instances := v1.Group("/instances")
		{
			instances.POST("", instanceController.Create)
			instances.GET("", instanceController.List)
			instances.GET("/:id", instanceController.Get)
			instances.DELETE("/:id", instanceController.Delete)
			instances.GET("/:id/drift", instanceController.ComputeDrift)
			instances.POST("/:id/drift", instanceController.ApplyDrift)
		}

		// 请求管理路由
		requests := v1.Group("/requests")
		{
			requests.POST("", requestController.Create)
			requests.GET("", requestController.List)
			requests.GET("/:id", requestController.Get)
			requests.POST("/:id/start", requestController.StartStep)
			requests.POST("/:id/complete", requestController.CompleteStep)
			requests.POST("/:id/reject", requestController.RejectStep)
			requests.POST("/:id/hold", requestController.HoldStep)
			requests.POST("/:id/continue", requestController.ContinueWorkflow)
			requests.POST("/:id/category", requestController.ChangeCategory)
			requests.POST("/:id/convert", requestController.ConvertToProduct)
			requests.PUT("/:id/fields", requestController.UpdateFieldValue)
			requests.GET("/:id/history", requestController.GetHistory)
			requests.GET("/:id/progress", statisticsController.Progress)
		}

		// 统计路由
		statistics := v1.Group("/statistics")
		{
			statistics.GET("/status", statisticsController.ByStatus)
			statistics.GET("/categories", statisticsController.ByCategory)
			statistics.GET("/time", statisticsController.ByTime)
		}
	}

	return router
}
