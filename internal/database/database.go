package database

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/config"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// PoolConfig 连接池配置
type PoolConfig struct {
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // 秒
	ConnMaxIdleTime int // 秒
}

// BuildDSN 构建 PostgreSQL DSN
func BuildDSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
}

// GetPoolConfig 获取连接池配置
func GetPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    10,
		MaxOpenConns:    100,
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 600,  // 10 分钟
	}
}

// GetProductionPoolConfig 获取生产环境连接池配置
func GetProductionPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxIdleConns:    20,   // 生产环境增加空闲连接数
		MaxOpenConns:    200,  // 生产环境增加最大连接数
		ConnMaxLifetime: 3600, // 1 小时
		ConnMaxIdleTime: 300,  // 5 分钟（生产环境缩短空闲时间）
	}
}

// Connect 连接数据库
func Connect(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	poolConfig := resolvePoolConfig(cfg, GetPoolConfig())

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// ConnectProduction 连接数据库（生产环境配置）
func ConnectProduction(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := BuildDSN(cfg)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	// 配置连接池（生产环境）
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	poolConfig := resolvePoolConfig(cfg, GetProductionPoolConfig())

	sqlDB.SetMaxIdleConns(poolConfig.MaxIdleConns)
	sqlDB.SetMaxOpenConns(poolConfig.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(poolConfig.ConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(poolConfig.ConnMaxIdleTime) * time.Second)

	return db, nil
}

// resolvePoolConfig 合并配置文件参数与默认连接池参数
func resolvePoolConfig(cfg config.DatabaseConfig, defaults *PoolConfig) *PoolConfig {
	if cfg.MaxIdleConns <= 0 && cfg.MaxOpenConns <= 0 {
		return defaults
	}

	poolConfig := &PoolConfig{
		MaxIdleConns:    cfg.MaxIdleConns,
		MaxOpenConns:    cfg.MaxOpenConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
	if poolConfig.MaxIdleConns == 0 {
		poolConfig.MaxIdleConns = defaults.MaxIdleConns
	}
	if poolConfig.MaxOpenConns == 0 {
		poolConfig.MaxOpenConns = defaults.MaxOpenConns
	}
	if poolConfig.ConnMaxLifetime == 0 {
		poolConfig.ConnMaxLifetime = defaults.ConnMaxLifetime
	}
	if poolConfig.ConnMaxIdleTime == 0 {
		poolConfig.ConnMaxIdleTime = defaults.ConnMaxIdleTime
	}
	return poolConfig
}

// Migrate 执行数据库迁移
func Migrate(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// SQLite 不支持 jsonb，需要手动创建表
	// GORM SQLite dialector 的名称可能是 "sqlite" 或 "sqlite3"
	if dialector == "sqlite" || dialector == "sqlite3" {
		// 手动创建 SQLite 表（使用 TEXT 替代 jsonb）
		if err := createSQLiteTables(db); err != nil {
			return fmt.Errorf("failed to create SQLite tables: %w", err)
		}
	} else {
		// PostgreSQL 等其他数据库使用 AutoMigrate
		if err := db.AutoMigrate(
			&model.WorkflowModel{},
			&model.InstanceModel{},
			&model.RequestModel{},
			&model.HistoryModel{},
			&model.ChangeLogModel{},
			&model.ProductModel{},
			&model.AuditLogModel{},
		); err != nil {
			return fmt.Errorf("failed to auto migrate: %w", err)
		}
	}

	// 创建索引
	if err := CreateIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

// createSQLiteTables 为 SQLite 手动创建表（使用 TEXT 替代 jsonb）
func createSQLiteTables(db *gorm.DB) error {
	// 创建 standard_workflows 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS standard_workflows (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			version INTEGER NOT NULL DEFAULT 1,
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			updated_by VARCHAR(64)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create standard_workflows table: %w", err)
	}

	// 创建 workflow_instances 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_instances (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category_id VARCHAR(64),
			template_version INTEGER NOT NULL,
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			created_by VARCHAR(64)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create workflow_instances table: %w", err)
	}

	// 创建 requests 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS requests (
			id VARCHAR(64) PRIMARY KEY,
			code VARCHAR(64),
			title VARCHAR(255) NOT NULL,
			category_id VARCHAR(64),
			instance_id VARCHAR(64),
			status VARCHAR(32) NOT NULL,
			current_step_id VARCHAR(64),
			data TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			converted_at DATETIME,
			created_by VARCHAR(64)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create requests table: %w", err)
	}

	// 创建 request_history 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS request_history (
			id VARCHAR(64) PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			action VARCHAR(32) NOT NULL,
			actor_id VARCHAR(64) NOT NULL,
			actor_name VARCHAR(255),
			details TEXT,
			metadata TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create request_history table: %w", err)
	}

	// 创建 workflow_change_log 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS workflow_change_log (
			id VARCHAR(64) PRIMARY KEY,
			workflow_id VARCHAR(64) NOT NULL,
			from_version INTEGER NOT NULL,
			to_version INTEGER NOT NULL,
			action VARCHAR(64) NOT NULL,
			diff TEXT,
			operator VARCHAR(64),
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create workflow_change_log table: %w", err)
	}

	// 创建 products 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS products (
			id VARCHAR(64) PRIMARY KEY,
			request_id VARCHAR(64) NOT NULL,
			name VARCHAR(255) NOT NULL,
			attrs TEXT,
			history TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			created_by VARCHAR(64)
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create products table: %w", err)
	}

	// 创建 audit_logs 表
	if err := db.Exec(`
		CREATE TABLE IF NOT EXISTS audit_logs (
			id VARCHAR(64) PRIMARY KEY,
			user_id VARCHAR(64) NOT NULL,
			action VARCHAR(64) NOT NULL,
			resource_type VARCHAR(32) NOT NULL,
			resource_id VARCHAR(64) NOT NULL,
			request_id VARCHAR(64),
			ip VARCHAR(45),
			user_agent TEXT,
			details TEXT,
			created_at DATETIME NOT NULL
		)
	`).Error; err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}

	return nil
}

// CreateIndexes 创建数据库索引
func CreateIndexes(db *gorm.DB) error {
	// 检测数据库类型
	dialector := db.Dialector.Name()

	// workflow_instances 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_instances_category_id ON workflow_instances(category_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_instances_category_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_instances_created_at ON workflow_instances(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_instances_created_at: %w", err)
	}

	// requests 表索引
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_requests_code ON requests(code)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_code: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_status_category ON requests(status, category_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_status_category: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_instance_id ON requests(instance_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_instance_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_created_by ON requests(created_by)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_created_by: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_created_at ON requests(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_requests_created_at: %w", err)
	}

	// request_history 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_request_id ON request_history(request_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_request_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_history_created_at ON request_history(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_history_created_at: %w", err)
	}

	// workflow_change_log 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_change_log_workflow_id ON workflow_change_log(workflow_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_change_log_workflow_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_change_log_to_version ON workflow_change_log(to_version)").Error; err != nil {
		return fmt.Errorf("failed to create idx_change_log_to_version: %w", err)
	}

	// products 表索引
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_products_request_id ON products(request_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_products_request_id: %w", err)
	}

	// audit_logs 表索引
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_resource ON audit_logs(resource_type, resource_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_resource: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_user_id ON audit_logs(user_id)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_user_id: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_audit_created_at ON audit_logs(created_at)").Error; err != nil {
		return fmt.Errorf("failed to create idx_audit_created_at: %w", err)
	}

	// PostgreSQL 特定的 GIN 索引
	if dialector == "postgres" {
		// JSONB 字段的 GIN 索引
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_workflows_data_gin ON standard_workflows USING GIN (data)").Error; err != nil {
			return fmt.Errorf("failed to create idx_workflows_data_gin: %w", err)
		}
		if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_requests_data_gin ON requests USING GIN (data)").Error; err != nil {
			return fmt.Errorf("failed to create idx_requests_data_gin: %w", err)
		}
	}

	return nil
}

// ConnectWithRetry 带重试的数据库连接
// production 为 true 时使用生产环境连接池参数
func ConnectWithRetry(cfg config.DatabaseConfig, production bool, maxRetries int, retryInterval time.Duration) (*gorm.DB, error) {
	connect := Connect
	if production {
		connect = ConnectProduction
	}

	var db *gorm.DB
	var err error

	for i := 0; i < maxRetries; i++ {
		db, err = connect(cfg)
		if err == nil {
			return db, nil
		}

		// 如果不是最后一次重试，等待后重试
		if i < maxRetries-1 {
			time.Sleep(retryInterval)
			retryInterval *= 2 // 指数退避
		}
	}

	return nil, fmt.Errorf("failed to connect database after %d retries: %w", maxRetries, err)
}

// CheckHealth 检查数据库连接健康状态
func CheckHealth(db *gorm.DB) bool {
	if db == nil {
		return false
	}

	sqlDB, err := db.DB()
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		return false
	}

	return true
}
