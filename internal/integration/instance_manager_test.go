package integration

import (
	"errors"
	"testing"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestInstanceManager(t *testing.T) (WorkflowManager, InstanceManager) {
	t.Helper()
	db := newTestDB(t)
	clock := &fixedClock{now: testMondayMorning()}
	workflowMgr := NewWorkflowManager(db, clock)
	_, err := workflowMgr.Initialize("system")
	require.NoError(t, err)
	return workflowMgr, NewInstanceManager(db, workflowMgr, nil, clock)
}

// TestCreateInstance 测试子流程创建
func TestCreateInstance(t *testing.T) {
	_, mgr := newTestInstanceManager(t)

	instance, err := mgr.Create(&CreateInstanceRequest{
		Name:       "快速通道",
		CategoryID: "cat-apparel",
		StepOrder:  []string{"step-intake", "step-design-review", "step-costing"},
	}, "admin")
	require.NoError(t, err)
	assert.NotEmpty(t, instance.ID)
	assert.Equal(t, 1, instance.CreatedFromTemplateVersion)
	assert.Equal(t, []string{"step-intake", "step-design-review", "step-costing"}, instance.VisibleStepIDs())

	// 快照从模板拷贝
	snap := instance.StepByID("step-design-review")
	require.NotNil(t, snap)
	assert.Equal(t, "Design Review", snap.Name)
	assert.NotNil(t, snapField(snap, "review_notes"))

	// 分类查询命中
	found, err := mgr.GetByCategory("cat-apparel")
	require.NoError(t, err)
	assert.Equal(t, instance.ID, found.ID)
}

func snapField(snap *workflow.InstanceStep, fieldID string) *workflow.CustomField {
	for _, f := range snap.Fields {
		if f.ID == fieldID {
			return f
		}
	}
	return nil
}

// TestCreateInstanceValidation 测试子流程创建校验
func TestCreateInstanceValidation(t *testing.T) {
	_, mgr := newTestInstanceManager(t)

	// 模板中不存在的步骤
	_, err := mgr.Create(&CreateInstanceRequest{
		Name:      "bad",
		StepOrder: []string{"step-intake", "step-missing"},
	}, "admin")
	var unknown *workflow.UnknownStepError
	assert.True(t, errors.As(err, &unknown))

	// 重复步骤
	_, err = mgr.Create(&CreateInstanceRequest{
		Name:      "bad",
		StepOrder: []string{"step-intake", "step-intake"},
	}, "admin")
	assert.Error(t, err)

	// 空步骤列表
	_, err = mgr.Create(&CreateInstanceRequest{Name: "bad"}, "admin")
	assert.Error(t, err)
}

// TestDuplicateCategoryBinding 测试分类唯一绑定
func TestDuplicateCategoryBinding(t *testing.T) {
	_, mgr := newTestInstanceManager(t)

	first, err := mgr.Create(&CreateInstanceRequest{
		Name:       "first",
		CategoryID: "cat-1",
		StepOrder:  []string{"step-intake"},
	}, "admin")
	require.NoError(t, err)

	_, err = mgr.Create(&CreateInstanceRequest{
		Name:       "second",
		CategoryID: "cat-1",
		StepOrder:  []string{"step-intake"},
	}, "admin")
	var dup *workflow.DuplicateCategoryBindingError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "cat-1", dup.CategoryID)
	assert.Equal(t, first.ID, dup.InstanceID)

	// 未绑定的分类
	_, err = mgr.GetByCategory("cat-none")
	var none *workflow.NoInstanceForCategoryError
	assert.True(t, errors.As(err, &none))

	// 删除后不再可见
	require.NoError(t, mgr.Delete(first.ID))
	_, err = mgr.Get(first.ID)
	assert.Error(t, err)
}

// TestComputeDriftAgainstTemplate 测试漂移计算
func TestComputeDriftAgainstTemplate(t *testing.T) {
	workflowMgr, mgr := newTestInstanceManager(t)

	instance, err := mgr.Create(&CreateInstanceRequest{
		Name:      "partial",
		StepOrder: []string{"step-intake", "step-design-review", "step-costing"},
	}, "admin")
	require.NoError(t, err)

	// 版本一致,无漂移
	report, err := mgr.ComputeDrift(instance.ID)
	require.NoError(t, err)
	assert.False(t, report.Stale())

	// 模板改名后产生漂移
	_, err = workflowMgr.UpdateStep("step-design-review", &StepPatch{Name: strPtr("Design Review v2")}, "admin")
	require.NoError(t, err)

	report, err = mgr.ComputeDrift(instance.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ComputedVersion)
	assert.True(t, report.Stale())

	keys := make(map[string]bool, len(report.Changes))
	for _, c := range report.Changes {
		keys[c.Key()] = true
	}
	// 快照外的模板步骤表现为新步骤
	assert.True(t, keys["new_step:step-sampling::"])
	assert.True(t, keys["new_step:step-final-check::"])
	assert.True(t, keys["updated_step_meta:step-design-review::name"])
}

// TestApplySelectedDrift 测试选择性漂移应用
func TestApplySelectedDrift(t *testing.T) {
	workflowMgr, mgr := newTestInstanceManager(t)

	instance, err := mgr.Create(&CreateInstanceRequest{
		Name:      "partial",
		StepOrder: []string{"step-intake", "step-design-review", "step-costing"},
	}, "admin")
	require.NoError(t, err)

	_, err = workflowMgr.UpdateStep("step-design-review", &StepPatch{Name: strPtr("Design Review v2")}, "admin")
	require.NoError(t, err)

	// 只应用改名,剩余变更保持待同步
	updated, err := mgr.ApplySelectedDrift(instance.ID, 2,
		[]string{"updated_step_meta:step-design-review::name"}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "Design Review v2", updated.StepByID("step-design-review").Name)
	assert.Equal(t, 1, updated.CreatedFromTemplateVersion)
	assert.Nil(t, updated.StepByID("step-sampling"))

	report, err := mgr.ComputeDrift(instance.ID)
	require.NoError(t, err)
	assert.True(t, report.Stale())

	// 全部应用:新步骤进入快照但默认隐藏,版本戳推进
	updated, err = mgr.ApplySelectedDrift(instance.ID, 2, nil, "admin")
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CreatedFromTemplateVersion)
	added := updated.StepByID("step-sampling")
	require.NotNil(t, added)
	assert.True(t, added.Hidden)
	assert.NotContains(t, updated.VisibleStepIDs(), "step-sampling")

	report, err = mgr.ComputeDrift(instance.ID)
	require.NoError(t, err)
	assert.False(t, report.Stale())
}

// TestApplyDriftStaleVersion 测试过期漂移拒绝
func TestApplyDriftStaleVersion(t *testing.T) {
	workflowMgr, mgr := newTestInstanceManager(t)

	instance, err := mgr.Create(&CreateInstanceRequest{
		Name:      "partial",
		StepOrder: []string{"step-intake"},
	}, "admin")
	require.NoError(t, err)

	_, err = workflowMgr.UpdateStep("step-intake", &StepPatch{Description: strPtr("updated")}, "admin")
	require.NoError(t, err)

	// 计算时的版本已落后于当前模板版本
	_, err = mgr.ApplySelectedDrift(instance.ID, 1, nil, "admin")
	var stale *workflow.StaleDriftError
	require.True(t, errors.As(err, &stale))
	assert.Equal(t, 1, stale.ComputedVersion)
	assert.Equal(t, 2, stale.CurrentVersion)
}
