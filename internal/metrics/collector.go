package metrics

import (
	"context"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/database"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"gorm.io/gorm"
)

// Collector 指标收集器
// 定期刷新数据库连接数与请求状态分布
type Collector struct {
	db          *gorm.DB
	requestRepo repository.RequestRepository
	interval    time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewCollector 创建指标收集器
func NewCollector(db *gorm.DB, interval time.Duration) *Collector {
	ctx, cancel := context.WithCancel(context.Background())
	return &Collector{
		db:          db,
		requestRepo: repository.NewRequestRepository(db),
		interval:    interval,
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
}

// Start 启动指标收集器
func (c *Collector) Start() {
	go c.collect()
}

// Stop 停止指标收集器
func (c *Collector) Stop() {
	c.cancel()
	<-c.done
}

// collect 定期收集指标
func (c *Collector) collect() {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	defer close(c.done)

	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			// 更新数据库可用性与连接数指标
			SetDatabaseUp(database.CheckHealth(c.db))
			_ = UpdateDatabaseConnections(c.db)
			// 更新请求状态分布指标
			if counts, err := c.requestRepo.CountByStatus(); err == nil {
				for status, count := range counts {
					UpdateRequestsByStatus(status, float64(count))
				}
			}
		}
	}
}
