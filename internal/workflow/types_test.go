package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestEstimatedHours 测试工时单位折算
func TestEstimatedHours(t *testing.T) {
	step := &StepTemplate{EstimatedTime: 2, EstimatedTimeUnit: TimeUnitDays}
	assert.Equal(t, 16.0, step.EstimatedHours())

	step = &StepTemplate{EstimatedTime: 4, EstimatedTimeUnit: TimeUnitHours}
	assert.Equal(t, 4.0, step.EstimatedHours())

	snap := &InstanceStep{EstimatedTime: 1, EstimatedTimeUnit: TimeUnitDays}
	assert.Equal(t, 8.0, snap.EstimatedHours())
}

// TestOrderedStepsAndNormalize 测试步骤排序与顺序整理
func TestOrderedStepsAndNormalize(t *testing.T) {
	wf := &StandardWorkflow{
		Steps: []*StepTemplate{
			{ID: "c", Order: 7},
			{ID: "a", Order: 0},
			{ID: "b", Order: 3},
		},
	}

	ordered := wf.OrderedSteps()
	assert.Equal(t, "a", ordered[0].ID)
	assert.Equal(t, "b", ordered[1].ID)
	assert.Equal(t, "c", ordered[2].ID)

	wf.Normalize()
	for i, s := range wf.Steps {
		assert.Equal(t, i, s.Order)
	}
	assert.Equal(t, "a", wf.Steps[0].ID)
}

// TestVisibleStepIDs 测试隐藏步骤过滤
func TestVisibleStepIDs(t *testing.T) {
	instance := &WorkflowInstance{
		StepOrder: []string{"a", "b", "c"},
		Steps: []*InstanceStep{
			{StepID: "a"},
			{StepID: "b", Hidden: true},
			{StepID: "c"},
		},
	}
	assert.Equal(t, []string{"a", "c"}, instance.VisibleStepIDs())
}

// TestRequestInWorkflow 测试请求在流程中的判定
func TestRequestInWorkflow(t *testing.T) {
	r := &Request{CurrentStepID: "step-a"}
	assert.True(t, r.InWorkflow())

	r.CurrentStepID = ""
	assert.False(t, r.InWorkflow())
}
