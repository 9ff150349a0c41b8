package workflow

import "fmt"

// DriftKind 漂移变更类型
type DriftKind string

const (
	DriftNewStep         DriftKind = "new_step"
	DriftUpdatedStepMeta DriftKind = "updated_step_meta"
	DriftNewField        DriftKind = "new_field"
	DriftUpdatedField    DriftKind = "updated_field"
	DriftReorderedStep   DriftKind = "reordered_step"
)

// DriftChange 子流程快照与标准流程之间的一条差异
// 计算过程只读,应用与否由调用方逐条选择
type DriftChange struct {
	Kind      DriftKind `json:"kind"`
	StepID    string    `json:"step_id"`
	FieldID   string    `json:"field_id,omitempty"`
	Attribute string    `json:"attribute,omitempty"`
	Old       string    `json:"old,omitempty"`
	New       string    `json:"new,omitempty"`
}

// Key 变更的唯一标识,用于选择性应用
func (c *DriftChange) Key() string {
	return fmt.Sprintf("%s:%s:%s:%s", c.Kind, c.StepID, c.FieldID, c.Attribute)
}

// DriftReport 一次漂移计算的结果
type DriftReport struct {
	InstanceID      string         `json:"instance_id"`
	ComputedVersion int            `json:"computed_version"` // 计算时的模板版本
	Changes         []*DriftChange `json:"changes"`
}

// Stale 判断子流程是否落后于给定模板版本
func (r *DriftReport) Stale() bool {
	return len(r.Changes) > 0
}

// ComputeDrift 比较子流程快照与标准流程,产出类型化的变更列表
// 不修改任何一方
func ComputeDrift(instance *WorkflowInstance, template *StandardWorkflow) *DriftReport {
	report := &DriftReport{
		InstanceID:      instance.ID,
		ComputedVersion: template.Version,
		Changes:         []*DriftChange{},
	}
	if instance.CreatedFromTemplateVersion == template.Version {
		return report
	}

	known := make(map[string]bool, len(instance.Steps))
	for _, snap := range instance.Steps {
		known[snap.StepID] = true
	}

	for _, step := range template.OrderedSteps() {
		snap := instance.StepByID(step.ID)
		if snap == nil {
			report.Changes = append(report.Changes, &DriftChange{
				Kind:   DriftNewStep,
				StepID: step.ID,
				New:    step.Name,
			})
			continue
		}
		report.Changes = append(report.Changes, diffStepMeta(step, snap)...)
		report.Changes = append(report.Changes, diffStepFields(step, snap)...)
	}

	// 模板内的顺序变化
	for oldIdx, id := range instance.StepOrder {
		step := template.StepByID(id)
		if step == nil {
			continue
		}
		if step.Order != oldIdx {
			report.Changes = append(report.Changes, &DriftChange{
				Kind:   DriftReorderedStep,
				StepID: id,
				Old:    fmt.Sprintf("%d", oldIdx),
				New:    fmt.Sprintf("%d", step.Order),
			})
		}
	}

	return report
}

// diffStepMeta 比较步骤元信息
func diffStepMeta(step *StepTemplate, snap *InstanceStep) []*DriftChange {
	var changes []*DriftChange
	add := func(attr, oldVal, newVal string) {
		changes = append(changes, &DriftChange{
			Kind:      DriftUpdatedStepMeta,
			StepID:    step.ID,
			Attribute: attr,
			Old:       oldVal,
			New:       newVal,
		})
	}
	if snap.Name != step.Name {
		add("name", snap.Name, step.Name)
	}
	if snap.Description != step.Description {
		add("description", snap.Description, step.Description)
	}
	if snap.EstimatedTime != step.EstimatedTime {
		add("estimated_time", fmt.Sprintf("%g", snap.EstimatedTime), fmt.Sprintf("%g", step.EstimatedTime))
	}
	if snap.EstimatedTimeUnit != step.EstimatedTimeUnit {
		add("estimated_time_unit", string(snap.EstimatedTimeUnit), string(step.EstimatedTimeUnit))
	}
	return changes
}

// diffStepFields 比较步骤字段集合
func diffStepFields(step *StepTemplate, snap *InstanceStep) []*DriftChange {
	var changes []*DriftChange
	snapFields := make(map[string]*CustomField, len(snap.Fields))
	for _, f := range snap.Fields {
		snapFields[f.ID] = f
	}
	for _, f := range step.Fields {
		old, ok := snapFields[f.ID]
		if !ok {
			changes = append(changes, &DriftChange{
				Kind:    DriftNewField,
				StepID:  step.ID,
				FieldID: f.ID,
				New:     f.Name,
			})
			continue
		}
		if old.Name != f.Name {
			changes = append(changes, &DriftChange{
				Kind:      DriftUpdatedField,
				StepID:    step.ID,
				FieldID:   f.ID,
				Attribute: "name",
				Old:       old.Name,
				New:       f.Name,
			})
		}
		if old.Type != f.Type {
			changes = append(changes, &DriftChange{
				Kind:      DriftUpdatedField,
				StepID:    step.ID,
				FieldID:   f.ID,
				Attribute: "type",
				Old:       string(old.Type),
				New:       string(f.Type),
			})
		}
		if old.Required != f.Required {
			changes = append(changes, &DriftChange{
				Kind:      DriftUpdatedField,
				StepID:    step.ID,
				FieldID:   f.ID,
				Attribute: "required",
				Old:       fmt.Sprintf("%t", old.Required),
				New:       fmt.Sprintf("%t", f.Required),
			})
		}
	}
	return changes
}

// ApplyChange 将一条漂移变更应用到子流程快照
// 新步骤默认隐藏,顺序调整由调用方在应用后统一重排
func ApplyChange(instance *WorkflowInstance, template *StandardWorkflow, change *DriftChange) error {
	step := template.StepByID(change.StepID)
	if step == nil {
		return &UnknownStepError{StepID: change.StepID}
	}

	switch change.Kind {
	case DriftNewStep:
		if instance.StepByID(step.ID) != nil {
			return nil
		}
		instance.Steps = append(instance.Steps, snapshotStep(step, true))
		instance.StepOrder = append(instance.StepOrder, step.ID)
	case DriftUpdatedStepMeta:
		snap := instance.StepByID(step.ID)
		if snap == nil {
			return &UnknownStepError{StepID: change.StepID}
		}
		snap.Name = step.Name
		snap.Description = step.Description
		snap.EstimatedTime = step.EstimatedTime
		snap.EstimatedTimeUnit = step.EstimatedTimeUnit
	case DriftNewField, DriftUpdatedField:
		snap := instance.StepByID(step.ID)
		if snap == nil {
			return &UnknownStepError{StepID: change.StepID}
		}
		field := step.FieldByID(change.FieldID)
		if field == nil {
			return fmt.Errorf("field %q not found on template step %q", change.FieldID, step.ID)
		}
		applyField(snap, field)
	case DriftReorderedStep:
		// 顺序统一由 ResortByTemplate 处理
	default:
		return fmt.Errorf("unknown drift kind %q", change.Kind)
	}
	return nil
}

// ResortByTemplate 按模板顺序重排子流程的 StepOrder
func ResortByTemplate(instance *WorkflowInstance, template *StandardWorkflow) {
	ordered := make([]string, 0, len(instance.StepOrder))
	for _, step := range template.OrderedSteps() {
		for _, id := range instance.StepOrder {
			if id == step.ID {
				ordered = append(ordered, id)
				break
			}
		}
	}
	// 模板中已不存在的 ID 保持在尾部,等待调用方清理
	for _, id := range instance.StepOrder {
		if template.StepByID(id) == nil {
			ordered = append(ordered, id)
		}
	}
	instance.StepOrder = ordered
}

// snapshotStep 从模板步骤生成快照
func snapshotStep(step *StepTemplate, hidden bool) *InstanceStep {
	fields := make([]*CustomField, 0, len(step.Fields))
	for _, f := range step.Fields {
		cf := *f
		if len(f.Options) > 0 {
			cf.Options = append([]string(nil), f.Options...)
		}
		fields = append(fields, &cf)
	}
	return &InstanceStep{
		StepID:            step.ID,
		Name:              step.Name,
		Description:       step.Description,
		EstimatedTime:     step.EstimatedTime,
		EstimatedTimeUnit: step.EstimatedTimeUnit,
		Fields:            fields,
		Hidden:            hidden,
	}
}

// SnapshotStep 导出快照构造,供子流程创建时使用
func SnapshotStep(step *StepTemplate) *InstanceStep {
	return snapshotStep(step, false)
}

// applyField 将模板字段合入快照字段集合
func applyField(snap *InstanceStep, field *CustomField) {
	cf := *field
	if len(field.Options) > 0 {
		cf.Options = append([]string(nil), field.Options...)
	}
	for i, f := range snap.Fields {
		if f.ID == field.ID {
			snap.Fields[i] = &cf
			return
		}
	}
	snap.Fields = append(snap.Fields, &cf)
}
