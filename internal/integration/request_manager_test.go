package integration

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/calendar"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requestTestEnv 请求流转测试环境
// 标准流程全部 5 个步骤绑定到 cat-main
type requestTestEnv struct {
	workflowMgr WorkflowManager
	instanceMgr InstanceManager
	requestMgr  RequestManager
	actor       *workflow.User
}

func newRequestTestEnv(t *testing.T) *requestTestEnv {
	t.Helper()
	db := newTestDB(t)
	clock := &fixedClock{now: testMondayMorning()}

	workflowMgr := NewWorkflowManager(db, clock)
	_, err := workflowMgr.Initialize("system")
	require.NoError(t, err)

	instanceMgr := NewInstanceManager(db, workflowMgr, nil, clock)
	_, err = instanceMgr.Create(&CreateInstanceRequest{
		Name:       "主流程",
		CategoryID: "cat-main",
		StepOrder: []string{
			"step-intake", "step-design-review", "step-sampling", "step-costing", "step-final-check",
		},
	}, "admin")
	require.NoError(t, err)

	requestMgr := NewRequestManager(db, workflowMgr, instanceMgr, calendar.New(), clock, nil, nil, nil)
	return &requestTestEnv{
		workflowMgr: workflowMgr,
		instanceMgr: instanceMgr,
		requestMgr:  requestMgr,
		actor:       &workflow.User{ID: "user-001", Name: "Tester"},
	}
}

// createStarted 创建请求并开始第一个步骤
func (env *requestTestEnv) createStarted(t *testing.T) *workflow.Request {
	t.Helper()
	r, err := env.requestMgr.Create(&CreateRequestRequest{
		Title:      "新款样品",
		CategoryID: "cat-main",
	}, env.actor)
	require.NoError(t, err)
	r, err = env.requestMgr.StartStep(r.ID, env.actor)
	require.NoError(t, err)
	return r
}

// TestCreateRequestSeedsFirstStep 测试创建时播种到第一个步骤
func TestCreateRequestSeedsFirstStep(t *testing.T) {
	env := newRequestTestEnv(t)

	r, err := env.requestMgr.Create(&CreateRequestRequest{
		Title:      "新款样品",
		CategoryID: "cat-main",
	}, env.actor)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(r.Code, "REQ-"))
	assert.Equal(t, workflow.RequestStatusPending, r.Status)
	assert.Equal(t, workflow.StepStatusNotStarted, r.CurrentStepStatus)
	assert.Equal(t, "step-intake", r.CurrentStepID)
	assert.NotEmpty(t, r.WorkflowInstanceID)
	assert.Equal(t, "user-001", r.CreatorID)

	// 接收时间为规整后的当前时刻,截止时间按 1 天(8 工时)推算
	receive := r.CurrentStepFieldValues[workflow.FieldIDReceiveDate]
	require.NotNil(t, receive)
	assert.Equal(t, testMondayMorning(), *receive.Date)

	deadline := r.CurrentStepFieldValues[workflow.FieldIDDeadline]
	require.NotNil(t, deadline)
	assert.Equal(t, time.Date(2026, 1, 6, 9, 0, 0, 0, time.UTC), *deadline.Date)

	estimated := r.CurrentStepFieldValues[workflow.FieldIDEstimatedTime]
	require.NotNil(t, estimated)
	assert.Equal(t, 8.0, *estimated.Number)
}

// TestCreateRequestWithoutBinding 测试无分类与子流程的请求
func TestCreateRequestWithoutBinding(t *testing.T) {
	env := newRequestTestEnv(t)

	r, err := env.requestMgr.Create(&CreateRequestRequest{Title: "游离请求"}, env.actor)
	require.NoError(t, err)
	assert.False(t, r.InWorkflow())

	// 不在流程中的请求无法开始步骤
	_, err = env.requestMgr.StartStep(r.ID, env.actor)
	var invalid *workflow.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))

	// 未绑定的分类
	_, err = env.requestMgr.Create(&CreateRequestRequest{
		Title:      "bad",
		CategoryID: "cat-unbound",
	}, env.actor)
	var none *workflow.NoInstanceForCategoryError
	assert.True(t, errors.As(err, &none))
}

// TestRequestFullLifecycle 测试从创建到转换的完整流转
func TestRequestFullLifecycle(t *testing.T) {
	env := newRequestTestEnv(t)
	r := env.createStarted(t)
	assert.Equal(t, workflow.RequestStatusInProgress, r.Status)
	assert.Equal(t, workflow.StepStatusInProgress, r.CurrentStepStatus)

	// intake 没有必填业务字段,直接完成并推进
	r, err := env.requestMgr.CompleteStep(r.ID, env.actor)
	require.NoError(t, err)
	assert.Equal(t, "step-design-review", r.CurrentStepID)
	assert.Equal(t, workflow.StepStatusInProgress, r.CurrentStepStatus)
	require.Len(t, r.CompletedSteps, 1)
	assert.Equal(t, "step-intake", r.CompletedSteps[0].StepID)

	// 必填字段缺失时拒绝完成
	_, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	var incomplete *workflow.IncompleteFieldsError
	require.True(t, errors.As(err, &incomplete))
	assert.Equal(t, "step-design-review", incomplete.StepID)
	assert.Contains(t, incomplete.Missing, "review_notes")

	_, err = env.requestMgr.UpdateFieldValue(r.ID, "review_notes", workflow.TextValue("approved"), env.actor)
	require.NoError(t, err)
	r, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	require.NoError(t, err)
	assert.Equal(t, "step-sampling", r.CurrentStepID)

	r, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	require.NoError(t, err)
	assert.Equal(t, "step-costing", r.CurrentStepID)

	_, err = env.requestMgr.UpdateFieldValue(r.ID, "unit_cost", workflow.CurrencyValue(12.5), env.actor)
	require.NoError(t, err)
	r, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	require.NoError(t, err)
	assert.Equal(t, "step-final-check", r.CurrentStepID)

	// 最后一步完成后整个请求进入完成态
	r, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	require.NoError(t, err)
	assert.Equal(t, workflow.RequestStatusCompleted, r.Status)
	assert.False(t, r.InWorkflow())
	assert.Empty(t, r.CurrentStepFieldValues)
	assert.Len(t, r.CompletedSteps, 5)

	// 完成快照保留字段值
	assert.Equal(t, "approved", r.CompletedSteps[1].FieldValues["review_notes"].Text)

	history, err := env.requestMgr.GetHistory(r.ID)
	require.NoError(t, err)
	actions := make(map[workflow.HistoryAction]int)
	for _, h := range history {
		actions[h.Action]++
	}
	assert.Equal(t, 1, actions[workflow.ActionCreate])
	assert.Equal(t, 1, actions[workflow.ActionStartStep])
	assert.Equal(t, 5, actions[workflow.ActionCompleteStep])
	assert.Equal(t, 1, actions[workflow.ActionCompleteWorkflow])

	// 转换为产品
	r, productID, err := env.requestMgr.ConvertToProduct(r.ID, workflow.ProductAttrs{"sku": "SKU-1"}, env.actor)
	require.NoError(t, err)
	assert.NotEmpty(t, productID)
	assert.Equal(t, workflow.RequestStatusConverted, r.Status)
	assert.NotNil(t, r.ConvertedAt)

	// 幂等保护
	_, _, err = env.requestMgr.ConvertToProduct(r.ID, nil, env.actor)
	var converted *workflow.AlreadyConvertedError
	assert.True(t, errors.As(err, &converted))

	// 终态后禁止继续流转
	_, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	assert.Error(t, err)
}

// TestCompleteStepRequiresStart 测试未开始的步骤不能完成
func TestCompleteStepRequiresStart(t *testing.T) {
	env := newRequestTestEnv(t)

	r, err := env.requestMgr.Create(&CreateRequestRequest{
		Title:      "未开始",
		CategoryID: "cat-main",
	}, env.actor)
	require.NoError(t, err)

	_, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	var invalid *workflow.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, workflow.StepStatusNotStarted, invalid.From)
}

// TestRejectAndContinue 测试驳回与恢复
func TestRejectAndContinue(t *testing.T) {
	env := newRequestTestEnv(t)
	r := env.createStarted(t)

	// 驳回必须给出原因
	_, err := env.requestMgr.RejectStep(r.ID, "", env.actor)
	assert.Error(t, err)

	r, err = env.requestMgr.RejectStep(r.ID, "requirements unclear", env.actor)
	require.NoError(t, err)
	assert.Equal(t, workflow.RequestStatusRejected, r.Status)
	assert.Equal(t, workflow.StepStatusRejected, r.CurrentStepStatus)
	assert.Equal(t, "step-intake", r.CurrentStepID)

	// 驳回态不接受 StartStep,恢复走 ContinueWorkflow
	_, err = env.requestMgr.StartStep(r.ID, env.actor)
	assert.Error(t, err)

	r, err = env.requestMgr.ContinueWorkflow(r.ID, "clarified", env.actor)
	require.NoError(t, err)
	assert.Equal(t, workflow.RequestStatusInProgress, r.Status)
	assert.Equal(t, workflow.StepStatusInProgress, r.CurrentStepStatus)
	assert.Equal(t, "step-intake", r.CurrentStepID)
}

// TestHoldAndContinue 测试挂起与恢复
func TestHoldAndContinue(t *testing.T) {
	env := newRequestTestEnv(t)
	r := env.createStarted(t)

	r, err := env.requestMgr.HoldStep(r.ID, "waiting for supplier", env.actor)
	require.NoError(t, err)
	assert.Equal(t, workflow.RequestStatusOnHold, r.Status)
	assert.Equal(t, workflow.StepStatusOnHold, r.CurrentStepStatus)

	// 进行中的请求不能恢复
	r, err = env.requestMgr.ContinueWorkflow(r.ID, "supplier replied", env.actor)
	require.NoError(t, err)
	_, err = env.requestMgr.ContinueWorkflow(r.ID, "again", env.actor)
	var invalid *workflow.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

// TestChangeCategory 测试切换产品状态
func TestChangeCategory(t *testing.T) {
	env := newRequestTestEnv(t)

	_, err := env.instanceMgr.Create(&CreateInstanceRequest{
		Name:       "简化流程",
		CategoryID: "cat-alt",
		StepOrder:  []string{"step-intake", "step-final-check"},
	}, "admin")
	require.NoError(t, err)

	r := env.createStarted(t)
	r, err = env.requestMgr.CompleteStep(r.ID, env.actor)
	require.NoError(t, err)
	require.Len(t, r.CompletedSteps, 1)

	r, err = env.requestMgr.ChangeCategory(r.ID, "cat-alt", env.actor)
	require.NoError(t, err)
	assert.Equal(t, "cat-alt", r.CategoryID)
	assert.Equal(t, "step-intake", r.CurrentStepID)
	assert.Equal(t, workflow.RequestStatusPending, r.Status)
	assert.Equal(t, workflow.StepStatusNotStarted, r.CurrentStepStatus)

	// 已完成步骤的账本保持不变
	assert.Len(t, r.CompletedSteps, 1)

	// 未绑定的分类
	_, err = env.requestMgr.ChangeCategory(r.ID, "cat-unbound", env.actor)
	var none *workflow.NoInstanceForCategoryError
	assert.True(t, errors.As(err, &none))
}

// TestUpdateFieldValueValidation 测试字段值更新校验
func TestUpdateFieldValueValidation(t *testing.T) {
	env := newRequestTestEnv(t)
	r := env.createStarted(t)

	// 类型不匹配
	_, err := env.requestMgr.UpdateFieldValue(r.ID, "source_channel", workflow.TextValue("sales"), env.actor)
	var mismatch *workflow.FieldTypeMismatchError
	assert.True(t, errors.As(err, &mismatch))

	// 不在允许的选项内
	_, err = env.requestMgr.UpdateFieldValue(r.ID, "source_channel", workflow.SelectValue("unknown"), env.actor)
	assert.Error(t, err)

	// 不属于当前步骤的字段
	_, err = env.requestMgr.UpdateFieldValue(r.ID, "review_notes", workflow.TextValue("x"), env.actor)
	assert.Error(t, err)

	// 合法更新写入历史
	r, err = env.requestMgr.UpdateFieldValue(r.ID, "source_channel", workflow.SelectValue("sales"), env.actor)
	require.NoError(t, err)
	assert.Equal(t, "sales", r.CurrentStepFieldValues["source_channel"].Option)

	// 驳回后不允许更新字段
	_, err = env.requestMgr.RejectStep(r.ID, "stop", env.actor)
	require.NoError(t, err)
	_, err = env.requestMgr.UpdateFieldValue(r.ID, "source_channel", workflow.SelectValue("internal"), env.actor)
	var invalid *workflow.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}

// TestUpdateAssigneeField 测试负责人字段的设置与清除
func TestUpdateAssigneeField(t *testing.T) {
	env := newRequestTestEnv(t)
	r := env.createStarted(t)

	// 设置负责人同步到请求本身
	r, err := env.requestMgr.UpdateFieldValue(r.ID, workflow.FieldIDAssignee, workflow.UserValue("user-7"), env.actor)
	require.NoError(t, err)
	require.NotNil(t, r.Assignee)
	assert.Equal(t, "user-7", r.Assignee.ID)

	// 空值清除负责人,不应出错
	r, err = env.requestMgr.UpdateFieldValue(r.ID, workflow.FieldIDAssignee, nil, env.actor)
	require.NoError(t, err)
	assert.Nil(t, r.Assignee)
}

// TestConvertRequiresCompletion 测试未完成的请求不能转换
func TestConvertRequiresCompletion(t *testing.T) {
	env := newRequestTestEnv(t)
	r := env.createStarted(t)

	_, _, err := env.requestMgr.ConvertToProduct(r.ID, nil, env.actor)
	var invalid *workflow.InvalidTransitionError
	assert.True(t, errors.As(err, &invalid))
}
