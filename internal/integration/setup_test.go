package integration

import (
	"testing"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/database"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB 创建内存数据库并建表
// 限制单连接,保证 :memory: 在整个测试期间共享同一个库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

// fixedClock 固定时间源,用于确定性的日历断言
type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

// testMondayMorning 2026-01-05 周一 09:00
func testMondayMorning() time.Time {
	return time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
}
