package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// driftTemplate 构造漂移测试用的标准流程(版本 2)
func driftTemplate() *StandardWorkflow {
	return &StandardWorkflow{
		ID:      "standard-workflow",
		Name:    "标准流程",
		Version: 2,
		Steps: []*StepTemplate{
			{
				ID:    "step-a",
				Name:  "Intake",
				Order: 0,
				Fields: []*CustomField{
					{ID: "f1", Name: "Notes", Type: FieldTypeText, Required: true},
					{ID: "f2", Name: "Budget", Type: FieldTypeCurrency},
				},
			},
			{ID: "step-b", Name: "Review v2", Order: 1},
			{ID: "step-c", Name: "Final Check", Order: 2},
		},
	}
}

// driftInstance 构造基于版本 1 的子流程快照
func driftInstance() *WorkflowInstance {
	return &WorkflowInstance{
		ID:                         "inst-1",
		Name:                       "默认子流程",
		CreatedFromTemplateVersion: 1,
		StepOrder:                  []string{"step-b", "step-a"},
		Steps: []*InstanceStep{
			{
				StepID: "step-a",
				Name:   "Intake",
				Fields: []*CustomField{
					{ID: "f1", Name: "Notes", Type: FieldTypeText, Required: false},
				},
			},
			{StepID: "step-b", Name: "Review"},
		},
	}
}

// TestComputeDrift 测试漂移计算
func TestComputeDrift(t *testing.T) {
	report := ComputeDrift(driftInstance(), driftTemplate())
	assert.Equal(t, "inst-1", report.InstanceID)
	assert.Equal(t, 2, report.ComputedVersion)
	assert.True(t, report.Stale())

	byKey := make(map[string]*DriftChange, len(report.Changes))
	for _, c := range report.Changes {
		byKey[c.Key()] = c
	}
	assert.Len(t, byKey, 6)

	// 字段必填属性变化
	change := byKey["updated_field:step-a:f1:required"]
	assert.NotNil(t, change)
	assert.Equal(t, "false", change.Old)
	assert.Equal(t, "true", change.New)

	// 新字段
	assert.NotNil(t, byKey["new_field:step-a:f2:"])

	// 步骤重命名
	change = byKey["updated_step_meta:step-b::name"]
	assert.NotNil(t, change)
	assert.Equal(t, "Review", change.Old)
	assert.Equal(t, "Review v2", change.New)

	// 新步骤
	assert.NotNil(t, byKey["new_step:step-c::"])

	// 顺序变化
	assert.NotNil(t, byKey["reordered_step:step-a::"])
	assert.NotNil(t, byKey["reordered_step:step-b::"])
}

// TestComputeDriftSameVersion 测试版本一致时不产生变更
func TestComputeDriftSameVersion(t *testing.T) {
	instance := driftInstance()
	instance.CreatedFromTemplateVersion = 2

	report := ComputeDrift(instance, driftTemplate())
	assert.False(t, report.Stale())
	assert.Empty(t, report.Changes)
}

// TestApplyChange 测试逐条应用漂移
func TestApplyChange(t *testing.T) {
	template := driftTemplate()
	instance := driftInstance()

	// 新步骤默认隐藏并追加到顺序尾部
	err := ApplyChange(instance, template, &DriftChange{Kind: DriftNewStep, StepID: "step-c"})
	assert.NoError(t, err)
	added := instance.StepByID("step-c")
	assert.NotNil(t, added)
	assert.True(t, added.Hidden)
	assert.Equal(t, []string{"step-b", "step-a", "step-c"}, instance.StepOrder)
	assert.NotContains(t, instance.VisibleStepIDs(), "step-c")

	// 重复应用新步骤不产生副本
	err = ApplyChange(instance, template, &DriftChange{Kind: DriftNewStep, StepID: "step-c"})
	assert.NoError(t, err)
	assert.Len(t, instance.Steps, 3)

	// 步骤元信息同步
	err = ApplyChange(instance, template, &DriftChange{Kind: DriftUpdatedStepMeta, StepID: "step-b", Attribute: "name"})
	assert.NoError(t, err)
	assert.Equal(t, "Review v2", instance.StepByID("step-b").Name)

	// 新字段合入快照
	err = ApplyChange(instance, template, &DriftChange{Kind: DriftNewField, StepID: "step-a", FieldID: "f2"})
	assert.NoError(t, err)
	snap := instance.StepByID("step-a")
	assert.Len(t, snap.Fields, 2)

	// 字段属性同步
	err = ApplyChange(instance, template, &DriftChange{Kind: DriftUpdatedField, StepID: "step-a", FieldID: "f1", Attribute: "required"})
	assert.NoError(t, err)
	assert.True(t, snap.Fields[0].Required)

	// 模板中不存在的步骤
	err = ApplyChange(instance, template, &DriftChange{Kind: DriftNewStep, StepID: "step-x"})
	var unknown *UnknownStepError
	assert.True(t, errors.As(err, &unknown))
}

// TestResortByTemplate 测试按模板顺序重排
func TestResortByTemplate(t *testing.T) {
	template := driftTemplate()
	instance := driftInstance()
	instance.StepOrder = append(instance.StepOrder, "step-gone")

	ResortByTemplate(instance, template)

	// 模板内的步骤按模板顺序,已删除的步骤保留在尾部
	assert.Equal(t, []string{"step-a", "step-b", "step-gone"}, instance.StepOrder)
}

// TestSnapshotStep 测试快照拷贝不共享底层数组
func TestSnapshotStep(t *testing.T) {
	step := &StepTemplate{
		ID:   "step-a",
		Name: "Intake",
		Fields: []*CustomField{
			{ID: "f1", Type: FieldTypeSelect, Options: []string{"a", "b"}},
		},
	}

	snap := SnapshotStep(step)
	assert.False(t, snap.Hidden)
	assert.Len(t, snap.Fields, 1)

	step.Fields[0].Options[0] = "changed"
	assert.Equal(t, "a", snap.Fields[0].Options[0])
}
