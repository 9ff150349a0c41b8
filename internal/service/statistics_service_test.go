package service

import (
	"testing"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/calendar"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/database"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type statsTestEnv struct {
	requestMgr integration.RequestManager
	stats      StatisticsService
	actor      *workflow.User
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func newStatsTestEnv(t *testing.T) *statsTestEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))

	clock := &testClock{now: time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)}
	workflowMgr := integration.NewWorkflowManager(db, clock)
	_, err = workflowMgr.Initialize("system")
	require.NoError(t, err)

	instanceMgr := integration.NewInstanceManager(db, workflowMgr, nil, clock)
	_, err = instanceMgr.Create(&integration.CreateInstanceRequest{
		Name:       "主流程",
		CategoryID: "cat-main",
		StepOrder:  []string{"step-intake", "step-design-review", "step-final-check"},
	}, "admin")
	require.NoError(t, err)

	requestMgr := integration.NewRequestManager(db, workflowMgr, instanceMgr, calendar.New(), clock, nil, nil, nil)
	return &statsTestEnv{
		requestMgr: requestMgr,
		stats:      NewStatisticsService(db, requestMgr, instanceMgr),
		actor:      &workflow.User{ID: "user-001", Name: "Tester"},
	}
}

// TestStatisticsByStatusAndCategory 测试状态与类别统计
func TestStatisticsByStatusAndCategory(t *testing.T) {
	env := newStatsTestEnv(t)

	first, err := env.requestMgr.Create(&integration.CreateRequestRequest{
		Title:      "请求一",
		CategoryID: "cat-main",
	}, env.actor)
	require.NoError(t, err)
	_, err = env.requestMgr.Create(&integration.CreateRequestRequest{
		Title:      "请求二",
		CategoryID: "cat-main",
	}, env.actor)
	require.NoError(t, err)
	_, err = env.requestMgr.Create(&integration.CreateRequestRequest{Title: "游离请求"}, env.actor)
	require.NoError(t, err)

	_, err = env.requestMgr.StartStep(first.ID, env.actor)
	require.NoError(t, err)

	byStatus, err := env.stats.GetRequestStatisticsByStatus()
	require.NoError(t, err)
	statusCounts := make(map[string]int64)
	for _, s := range byStatus {
		statusCounts[s.Status] = s.Count
	}
	assert.Equal(t, int64(2), statusCounts["pending"])
	assert.Equal(t, int64(1), statusCounts["in_progress"])

	byCategory, err := env.stats.GetRequestStatisticsByCategory()
	require.NoError(t, err)
	categoryCounts := make(map[string]int64)
	for _, s := range byCategory {
		categoryCounts[s.CategoryID] = s.Count
	}
	assert.Equal(t, int64(2), categoryCounts["cat-main"])

	byTime, err := env.stats.GetRequestStatisticsByTime()
	require.NoError(t, err)
	var total int64
	for _, s := range byTime {
		total += s.Count
	}
	assert.Equal(t, int64(3), total)
}

// TestRequestProgress 测试请求进度计算
func TestRequestProgress(t *testing.T) {
	env := newStatsTestEnv(t)

	r, err := env.requestMgr.Create(&integration.CreateRequestRequest{
		Title:      "新款样品",
		CategoryID: "cat-main",
	}, env.actor)
	require.NoError(t, err)

	progress, err := env.stats.GetRequestProgress(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, progress.TotalSteps)
	assert.Equal(t, 0, progress.CompletedSteps)
	assert.Equal(t, 0.0, progress.PercentDone)

	// 完成第一步后进度为 1/3
	_, err = env.requestMgr.StartStep(r.ID, env.actor)
	require.NoError(t, err)
	_, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	require.NoError(t, err)

	progress, err = env.stats.GetRequestProgress(r.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, progress.CompletedSteps)
	assert.InDelta(t, 33.3, progress.PercentDone, 0.5)
	assert.Equal(t, "step-design-review", progress.CurrentStepID)

	// 未绑定子流程的请求进度为零
	free, err := env.requestMgr.Create(&integration.CreateRequestRequest{Title: "游离请求"}, env.actor)
	require.NoError(t, err)
	progress, err = env.stats.GetRequestProgress(free.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, progress.TotalSteps)
	assert.Equal(t, 0.0, progress.PercentDone)
}
