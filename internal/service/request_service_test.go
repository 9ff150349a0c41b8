package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/calendar"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/database"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type requestServiceTestEnv struct {
	svc       RequestService
	auditRepo repository.AuditLogRepository
	ctx       context.Context
}

func newRequestServiceTestEnv(t *testing.T) *requestServiceTestEnv {
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
		StepOrder:  []string{"step-intake", "step-final-check"},
	}, "admin")
	require.NoError(t, err)

	requestMgr := integration.NewRequestManager(db, workflowMgr, instanceMgr, calendar.New(), clock, nil, nil, nil)
	auditRepo := repository.NewAuditLogRepository(db)

	ctx := context.WithValue(context.Background(), "user_id", "user-001")
	ctx = context.WithValue(ctx, "user_name", "Tester")

	return &requestServiceTestEnv{
		svc:       NewRequestService(requestMgr, NewAuditLogService(auditRepo)),
		auditRepo: auditRepo,
		ctx:       ctx,
	}
}

// TestCreateRecordsAuditLog 测试创建请求时记录审计日志
func TestCreateRecordsAuditLog(t *testing.T) {
	env := newRequestServiceTestEnv(t)

	r, err := env.svc.Create(env.ctx, &integration.CreateRequestRequest{
		Title:      "新品打样",
		CategoryID: "cat-main",
	})
	require.NoError(t, err)
	require.NotEmpty(t, r.WorkflowInstanceID)

	logs, err := env.auditRepo.FindByResource("request", r.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "create", logs[0].Action)
	assert.Equal(t, "user-001", logs[0].UserID)

	// 审计详情记录请求编码与绑定的子流程
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(logs[0].Details, &details))
	assert.Equal(t, r.Code, details["code"])
	assert.Equal(t, r.WorkflowInstanceID, details["instance_id"])
}

// TestChangeCategoryRecordsAuditLog 测试变更类别时记录审计日志
func TestChangeCategoryRecordsAuditLog(t *testing.T) {
	env := newRequestServiceTestEnv(t)

	r, err := env.svc.Create(env.ctx, &integration.CreateRequestRequest{
		Title:      "渠道切换",
		CategoryID: "cat-main",
	})
	require.NoError(t, err)

	_, err = env.svc.ChangeCategory(env.ctx, r.ID, &ChangeCategoryRequest{CategoryID: "cat-main"})
	require.NoError(t, err)

	logs, err := env.auditRepo.FindByResource("request", r.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)

	actions := make(map[string]map[string]interface{}, len(logs))
	for _, l := range logs {
		var details map[string]interface{}
		require.NoError(t, json.Unmarshal(l.Details, &details))
		actions[l.Action] = details
	}
	require.Contains(t, actions, "change_category")
	assert.Equal(t, r.WorkflowInstanceID, actions["change_category"]["instance_id"])
}
