package container

import (
	"fmt"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/calendar"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/config"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/database"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/metrics"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/service"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/websocket"
	"gorm.io/gorm"
)

// Container 依赖注入容器
// 管理所有应用依赖,包括数据库、管理器、服务等
type Container struct {
	db          *gorm.DB
	hub         *websocket.Hub
	cal         *calendar.Calendar
	workflowMgr integration.WorkflowManager
	instanceMgr integration.InstanceManager
	requestMgr  integration.RequestManager

	auditLogSvc       service.AuditLogService
	workflowSvc       service.WorkflowService
	instanceSvc       service.InstanceService
	requestSvc        service.RequestService
	statisticsSvc     service.StatisticsService
	metricsCollector  *metrics.Collector
}

// NewContainer 创建依赖注入容器
// 根据配置初始化所有依赖组件
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化数据库（带重试机制）
	// 默认重试 3 次，初始间隔 1 秒，指数退避
	db, err := database.ConnectWithRetry(cfg.Database, config.IsProduction(cfg), 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return newContainerWithDB(cfg, db)
}

// NewContainerWithDB 基于已有连接创建容器,迁移由调用方负责
func NewContainerWithDB(cfg *config.Config, db *gorm.DB) (*Container, error) {
	return newContainerWithDB(cfg, db)
}

func newContainerWithDB(cfg *config.Config, db *gorm.DB) (*Container, error) {
	// 2. 初始化业务日历
	cal, err := calendar.NewWithWindow(
		cfg.Calendar.WorkStart,
		cfg.Calendar.LunchStart,
		cfg.Calendar.LunchEnd,
		cfg.Calendar.WorkEnd,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build calendar: %w", err)
	}

	// 3. 初始化 WebSocket Hub
	hub := websocket.NewHub()

	// 4. 初始化管理器
	// 标准流程在首次启动时播种默认步骤
	workflowMgr := integration.NewWorkflowManager(db, nil)
	if _, err := workflowMgr.Initialize("system"); err != nil {
		return nil, fmt.Errorf("failed to initialize standard workflow: %w", err)
	}

	instanceMgr := integration.NewInstanceManager(db, workflowMgr, nil, nil)
	requestMgr := integration.NewRequestManager(db, workflowMgr, instanceMgr, cal, nil, nil, nil, hub)

	// 5. 初始化服务
	auditLogSvc := service.NewAuditLogService(repository.NewAuditLogRepository(db))
	workflowSvc := service.NewWorkflowService(workflowMgr, auditLogSvc)
	instanceSvc := service.NewInstanceService(instanceMgr, auditLogSvc)
	requestSvc := service.NewRequestService(requestMgr, auditLogSvc)
	statisticsSvc := service.NewStatisticsService(db, requestMgr, instanceMgr)

	// 6. 初始化指标收集器,每 15 秒刷新一次状态分布
	collector := metrics.NewCollector(db, 15*time.Second)

	return &Container{
		db:               db,
		hub:              hub,
		cal:              cal,
		workflowMgr:      workflowMgr,
		instanceMgr:      instanceMgr,
		requestMgr:       requestMgr,
		auditLogSvc:      auditLogSvc,
		workflowSvc:      workflowSvc,
		instanceSvc:      instanceSvc,
		requestSvc:       requestSvc,
		statisticsSvc:    statisticsSvc,
		metricsCollector: collector,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// Hub 获取 WebSocket Hub
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Calendar 获取业务日历
func (c *Container) Calendar() *calendar.Calendar {
	return c.cal
}

// WorkflowManager 获取标准流程管理器
func (c *Container) WorkflowManager() integration.WorkflowManager {
	return c.workflowMgr
}

// InstanceManager 获取子流程管理器
func (c *Container) InstanceManager() integration.InstanceManager {
	return c.instanceMgr
}

// RequestManager 获取请求管理器
func (c *Container) RequestManager() integration.RequestManager {
	return c.requestMgr
}

// AuditLogService 获取审计日志服务
func (c *Container) AuditLogService() service.AuditLogService {
	return c.auditLogSvc
}

// WorkflowService 获取标准流程服务
func (c *Container) WorkflowService() service.WorkflowService {
	return c.workflowSvc
}

// InstanceService 获取子流程服务
func (c *Container) InstanceService() service.InstanceService {
	return c.instanceSvc
}

// RequestService 获取请求服务
func (c *Container) RequestService() service.RequestService {
	return c.requestSvc
}

// StatisticsService 获取统计服务
func (c *Container) StatisticsService() service.StatisticsService {
	return c.statisticsSvc
}

// MetricsCollector 获取指标收集器
func (c *Container) MetricsCollector() *metrics.Collector {
	return c.metricsCollector
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.metricsCollector != nil {
		c.metricsCollector.Stop()
	}

	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err == nil {
			sqlDB.Close()
		}
	}

	return nil
}
