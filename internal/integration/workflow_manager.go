package integration

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"gorm.io/gorm"
)

// WorkflowManager 标准流程管理器
// 标准流程的所有结构性修改都经过这里,每次修改版本号加 1 并记录变更日志
type WorkflowManager interface {
	Initialize(operator string) (*workflow.StandardWorkflow, error)
	Get() (*workflow.StandardWorkflow, error)
	UpdateMeta(name, description *string, operator string) (*workflow.StandardWorkflow, error)
	AddStep(def *workflow.StepTemplate, operator string) (*workflow.StandardWorkflow, error)
	UpdateStep(stepID string, patch *StepPatch, operator string) (*workflow.StandardWorkflow, error)
	DeleteStep(stepID string, operator string) (*workflow.StandardWorkflow, error)
	ReorderSteps(orderedIDs []string, operator string) (*workflow.StandardWorkflow, error)
	AddField(stepID string, field *workflow.CustomField, operator string) (*workflow.StandardWorkflow, error)
	UpdateField(stepID, fieldID string, patch *FieldPatch, operator string) (*workflow.StandardWorkflow, error)
	DeleteField(stepID, fieldID string, operator string) (*workflow.StandardWorkflow, error)
}

// StepPatch 步骤更新补丁,nil 字段表示不修改
type StepPatch struct {
	Name                *string            `json:"name,omitempty"`
	Description         *string            `json:"description,omitempty"`
	EstimatedTime       *float64           `json:"estimated_time,omitempty"`
	EstimatedTimeUnit   *workflow.TimeUnit `json:"estimated_time_unit,omitempty"`
	IsRequired          *bool              `json:"is_required,omitempty"`
	EligibleAssigneeIDs []string           `json:"eligible_assignee_ids,omitempty"`
	HasCost             *bool              `json:"has_cost,omitempty"`
}

// FieldPatch 字段更新补丁,nil 字段表示不修改
type FieldPatch struct {
	Name         *string  `json:"name,omitempty"`
	Required     *bool    `json:"required,omitempty"`
	Options      []string `json:"options,omitempty"`
	DefaultValue *string  `json:"default_value,omitempty"`
}

// attrDiff 单个属性的新旧值
type attrDiff struct {
	Attribute string `json:"attribute"`
	Old       string `json:"old"`
	New       string `json:"new"`
}

// dbWorkflowManager 基于数据库的标准流程管理器
type dbWorkflowManager struct {
	db            *gorm.DB
	workflowRepo  repository.WorkflowRepository
	changeLogRepo repository.ChangeLogRepository
	clock         workflow.Clock
}

// NewWorkflowManager 创建标准流程管理器
func NewWorkflowManager(db *gorm.DB, clock workflow.Clock) WorkflowManager {
	if clock == nil {
		clock = workflow.SystemClock{}
	}
	return &dbWorkflowManager{
		db:            db,
		workflowRepo:  repository.NewWorkflowRepository(db),
		changeLogRepo: repository.NewChangeLogRepository(db),
		clock:         clock,
	}
}

// Initialize 初始化标准流程,幂等
// 不存在时用内置的默认步骤创建,已存在时直接返回现有流程
func (m *dbWorkflowManager) Initialize(operator string) (*workflow.StandardWorkflow, error) {
	existing, err := m.Get()
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	wf := defaultWorkflow(m.clock.Now())
	if err := m.save(wf, 0, operator, "initialize", nil); err != nil {
		return nil, fmt.Errorf("failed to initialize standard workflow: %w", err)
	}
	return wf, nil
}

// Get 读取标准流程
func (m *dbWorkflowManager) Get() (*workflow.StandardWorkflow, error) {
	wm, err := m.workflowRepo.Find()
	if err != nil {
		return nil, err
	}
	var wf workflow.StandardWorkflow
	if err := json.Unmarshal(wm.Data, &wf); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow: %w", err)
	}
	return &wf, nil
}

// UpdateMeta 更新流程名称与描述
func (m *dbWorkflowManager) UpdateMeta(name, description *string, operator string) (*workflow.StandardWorkflow, error) {
	return m.mutate(operator, "update_meta", func(wf *workflow.StandardWorkflow) ([]*attrDiff, error) {
		var diffs []*attrDiff
		if name != nil && *name != wf.Name {
			diffs = append(diffs, &attrDiff{Attribute: "name", Old: wf.Name, New: *name})
			wf.Name = *name
		}
		if description != nil && *description != wf.Description {
			diffs = append(diffs, &attrDiff{Attribute: "description", Old: wf.Description, New: *description})
			wf.Description = *description
		}
		return diffs, nil
	})
}

// AddStep 追加步骤
// 新步骤排在末尾,Order 自动设置为当前最大值加 1
func (m *dbWorkflowManager) AddStep(def *workflow.StepTemplate, operator string) (*workflow.StandardWorkflow, error) {
	if def == nil || def.Name == "" {
		return nil, fmt.Errorf("step definition with a name is required")
	}
	return m.mutate(operator, "add_step", func(wf *workflow.StandardWorkflow) ([]*attrDiff, error) {
		if def.ID == "" {
			def.ID = generateStepID()
		}
		if wf.StepByID(def.ID) != nil {
			return nil, fmt.Errorf("step %q already exists", def.ID)
		}
		if def.EstimatedTimeUnit == "" {
			def.EstimatedTimeUnit = workflow.TimeUnitHours
		}
		ensureSystemFields(def)
		def.Order = len(wf.Steps)
		wf.Steps = append(wf.Steps, def)
		return []*attrDiff{{Attribute: "step", Old: "", New: def.Name}}, nil
	})
}

// UpdateStep 更新步骤元信息
func (m *dbWorkflowManager) UpdateStep(stepID string, patch *StepPatch, operator string) (*workflow.StandardWorkflow, error) {
	if patch == nil {
		return nil, fmt.Errorf("step patch is required")
	}
	return m.mutate(operator, "update_step", func(wf *workflow.StandardWorkflow) ([]*attrDiff, error) {
		step := wf.StepByID(stepID)
		if step == nil {
			return nil, &workflow.UnknownStepError{StepID: stepID}
		}
		var diffs []*attrDiff
		if patch.Name != nil && *patch.Name != step.Name {
			diffs = append(diffs, &attrDiff{Attribute: "name", Old: step.Name, New: *patch.Name})
			step.Name = *patch.Name
		}
		if patch.Description != nil && *patch.Description != step.Description {
			diffs = append(diffs, &attrDiff{Attribute: "description", Old: step.Description, New: *patch.Description})
			step.Description = *patch.Description
		}
		if patch.EstimatedTime != nil && *patch.EstimatedTime != step.EstimatedTime {
			diffs = append(diffs, &attrDiff{
				Attribute: "estimated_time",
				Old:       fmt.Sprintf("%g", step.EstimatedTime),
				New:       fmt.Sprintf("%g", *patch.EstimatedTime),
			})
			step.EstimatedTime = *patch.EstimatedTime
		}
		if patch.EstimatedTimeUnit != nil && *patch.EstimatedTimeUnit != step.EstimatedTimeUnit {
			diffs = append(diffs, &attrDiff{
				Attribute: "estimated_time_unit",
				Old:       string(step.EstimatedTimeUnit),
				New:       string(*patch.EstimatedTimeUnit),
			})
			step.EstimatedTimeUnit = *patch.EstimatedTimeUnit
		}
		if patch.IsRequired != nil && *patch.IsRequired != step.IsRequired {
			diffs = append(diffs, &attrDiff{
				Attribute: "is_required",
				Old:       fmt.Sprintf("%t", step.IsRequired),
				New:       fmt.Sprintf("%t", *patch.IsRequired),
			})
			step.IsRequired = *patch.IsRequired
		}
		if patch.HasCost != nil && *patch.HasCost != step.HasCost {
			diffs = append(diffs, &attrDiff{
				Attribute: "has_cost",
				Old:       fmt.Sprintf("%t", step.HasCost),
				New:       fmt.Sprintf("%t", *patch.HasCost),
			})
			step.HasCost = *patch.HasCost
		}
		if patch.EligibleAssigneeIDs != nil {
			diffs = append(diffs, &attrDiff{
				Attribute: "eligible_assignee_ids",
				Old:       fmt.Sprintf("%d users", len(step.EligibleAssigneeIDs)),
				New:       fmt.Sprintf("%d users", len(patch.EligibleAssigneeIDs)),
			})
			step.EligibleAssigneeIDs = patch.EligibleAssigneeIDs
		}
		return diffs, nil
	})
}

// DeleteStep 删除步骤,必选步骤返回 ProtectedStepError
func (m *dbWorkflowManager) DeleteStep(stepID string, operator string) (*workflow.StandardWorkflow, error) {
	return m.mutate(operator, "delete_step", func(wf *workflow.StandardWorkflow) ([]*attrDiff, error) {
		step := wf.StepByID(stepID)
		if step == nil {
			return nil, &workflow.UnknownStepError{StepID: stepID}
		}
		if step.IsRequired {
			return nil, &workflow.ProtectedStepError{StepID: step.ID, StepName: step.Name}
		}
		steps := make([]*workflow.StepTemplate, 0, len(wf.Steps)-1)
		for _, s := range wf.Steps {
			if s.ID != stepID {
				steps = append(steps, s)
			}
		}
		wf.Steps = steps
		wf.Normalize()
		return []*attrDiff{{Attribute: "step", Old: step.Name, New: ""}}, nil
	})
}

// ReorderSteps 按给定顺序重排步骤
// orderedIDs 必须恰好是现有步骤 ID 的一个排列
func (m *dbWorkflowManager) ReorderSteps(orderedIDs []string, operator string) (*workflow.StandardWorkflow, error) {
	return m.mutate(operator, "reorder_steps", func(wf *workflow.StandardWorkflow) ([]*attrDiff, error) {
		if len(orderedIDs) != len(wf.Steps) {
			return nil, fmt.Errorf("reorder list must contain exactly %d step ids", len(wf.Steps))
		}
		var diffs []*attrDiff
		seen := make(map[string]bool, len(orderedIDs))
		for idx, id := range orderedIDs {
			if seen[id] {
				return nil, fmt.Errorf("duplicate step id %q in reorder list", id)
			}
			seen[id] = true
			step := wf.StepByID(id)
			if step == nil {
				return nil, &workflow.UnknownStepError{StepID: id}
			}
			if step.Order != idx {
				diffs = append(diffs, &attrDiff{
					Attribute: fmt.Sprintf("order:%s", id),
					Old:       fmt.Sprintf("%d", step.Order),
					New:       fmt.Sprintf("%d", idx),
				})
			}
			step.Order = idx
		}
		wf.Normalize()
		return diffs, nil
	})
}

// AddField 为步骤添加自定义字段
func (m *dbWorkflowManager) AddField(stepID string, field *workflow.CustomField, operator string) (*workflow.StandardWorkflow, error) {
	if field == nil || field.Name == "" {
		return nil, fmt.Errorf("field definition with a name is required")
	}
	return m.mutate(operator, "add_field", func(wf *workflow.StandardWorkflow) ([]*attrDiff, error) {
		step := wf.StepByID(stepID)
		if step == nil {
			return nil, &workflow.UnknownStepError{StepID: stepID}
		}
		if field.ID == "" {
			field.ID = generateFieldID()
		}
		if step.FieldByID(field.ID) != nil {
			return nil, fmt.Errorf("field %q already exists on step %q", field.ID, stepID)
		}
		if field.Type == "" {
			field.Type = workflow.FieldTypeText
		}
		step.Fields = append(step.Fields, field)
		return []*attrDiff{{Attribute: fmt.Sprintf("field:%s", field.ID), Old: "", New: field.Name}}, nil
	})
}

// UpdateField 更新步骤字段定义
func (m *dbWorkflowManager) UpdateField(stepID, fieldID string, patch *FieldPatch, operator string) (*workflow.StandardWorkflow, error) {
	if patch == nil {
		return nil, fmt.Errorf("field patch is required")
	}
	return m.mutate(operator, "update_field", func(wf *workflow.StandardWorkflow) ([]*attrDiff, error) {
		step := wf.StepByID(stepID)
		if step == nil {
			return nil, &workflow.UnknownStepError{StepID: stepID}
		}
		field := step.FieldByID(fieldID)
		if field == nil {
			return nil, fmt.Errorf("field %q not found on step %q", fieldID, stepID)
		}
		var diffs []*attrDiff
		if patch.Name != nil && *patch.Name != field.Name {
			diffs = append(diffs, &attrDiff{Attribute: "name", Old: field.Name, New: *patch.Name})
			field.Name = *patch.Name
		}
		if patch.Required != nil && *patch.Required != field.Required {
			diffs = append(diffs, &attrDiff{
				Attribute: "required",
				Old:       fmt.Sprintf("%t", field.Required),
				New:       fmt.Sprintf("%t", *patch.Required),
			})
			field.Required = *patch.Required
		}
		if patch.Options != nil {
			diffs = append(diffs, &attrDiff{
				Attribute: "options",
				Old:       fmt.Sprintf("%d options", len(field.Options)),
				New:       fmt.Sprintf("%d options", len(patch.Options)),
			})
			field.Options = patch.Options
		}
		if patch.DefaultValue != nil && *patch.DefaultValue != field.DefaultValue {
			diffs = append(diffs, &attrDiff{Attribute: "default_value", Old: field.DefaultValue, New: *patch.DefaultValue})
			field.DefaultValue = *patch.DefaultValue
		}
		return diffs, nil
	})
}

// DeleteField 删除步骤字段,系统字段返回 ProtectedFieldError
func (m *dbWorkflowManager) DeleteField(stepID, fieldID string, operator string) (*workflow.StandardWorkflow, error) {
	return m.mutate(operator, "delete_field", func(wf *workflow.StandardWorkflow) ([]*attrDiff, error) {
		step := wf.StepByID(stepID)
		if step == nil {
			return nil, &workflow.UnknownStepError{StepID: stepID}
		}
		field := step.FieldByID(fieldID)
		if field == nil {
			return nil, fmt.Errorf("field %q not found on step %q", fieldID, stepID)
		}
		if field.IsSystem {
			return nil, &workflow.ProtectedFieldError{StepID: stepID, FieldID: fieldID}
		}
		fields := make([]*workflow.CustomField, 0, len(step.Fields)-1)
		for _, f := range step.Fields {
			if f.ID != fieldID {
				fields = append(fields, f)
			}
		}
		step.Fields = fields
		return []*attrDiff{{Attribute: fmt.Sprintf("field:%s", fieldID), Old: field.Name, New: ""}}, nil
	})
}

// mutate 加载标准流程、应用修改、版本加 1、带版本比较写回并记录变更日志
func (m *dbWorkflowManager) mutate(operator, action string, fn func(*workflow.StandardWorkflow) ([]*attrDiff, error)) (*workflow.StandardWorkflow, error) {
	// 1. 加载当前流程
	wf, err := m.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load standard workflow: %w", err)
	}
	oldVersion := wf.Version

	// 2. 应用修改
	diffs, err := fn(wf)
	if err != nil {
		return nil, err
	}

	// 3. 版本加 1 并写回
	wf.Version = oldVersion + 1
	wf.UpdatedAt = m.clock.Now()
	if err := m.save(wf, oldVersion, operator, action, diffs); err != nil {
		return nil, err
	}
	return wf, nil
}

// save 序列化并保存,oldVersion 为 0 时表示首次创建
func (m *dbWorkflowManager) save(wf *workflow.StandardWorkflow, oldVersion int, operator, action string, diffs []*attrDiff) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow: %w", err)
	}

	wm := &model.WorkflowModel{
		ID:        wf.ID,
		Name:      wf.Name,
		Version:   wf.Version,
		Data:      data,
		CreatedAt: wf.UpdatedAt,
		UpdatedAt: wf.UpdatedAt,
		UpdatedBy: operator,
	}

	if oldVersion == 0 {
		if err := m.db.Create(wm).Error; err != nil {
			return fmt.Errorf("failed to create workflow: %w", err)
		}
	} else {
		if err := m.workflowRepo.SaveWithVersion(wm, oldVersion); err != nil {
			return fmt.Errorf("failed to save workflow: %w", err)
		}
	}

	// 记录变更日志,失败不回滚主写入
	diffData, err := json.Marshal(diffs)
	if err != nil {
		diffData = []byte("[]")
	}
	entry := &model.ChangeLogModel{
		ID:          generateChangeLogID(),
		WorkflowID:  wf.ID,
		FromVersion: oldVersion,
		ToVersion:   wf.Version,
		Action:      action,
		Diff:        diffData,
		Operator:    operator,
		CreatedAt:   m.clock.Now(),
	}
	return m.changeLogRepo.Append(entry)
}

// ensureSystemFields 补齐步骤缺失的系统字段
func ensureSystemFields(step *workflow.StepTemplate) {
	system := []*workflow.CustomField{
		{ID: workflow.FieldIDAssignee, Name: "Assignee", Type: workflow.FieldTypeUser, IsSystem: true},
		{ID: workflow.FieldIDReceiveDate, Name: "Receive Date", Type: workflow.FieldTypeDate, IsSystem: true},
		{ID: workflow.FieldIDDeadline, Name: "Deadline", Type: workflow.FieldTypeDate, IsSystem: true},
		{ID: workflow.FieldIDEstimatedTime, Name: "Estimated Time", Type: workflow.FieldTypeNumber, IsSystem: true},
	}
	for _, sf := range system {
		if step.FieldByID(sf.ID) == nil {
			step.Fields = append(step.Fields, sf)
		}
	}
}

// defaultWorkflow 内置的默认标准流程
func defaultWorkflow(now time.Time) *workflow.StandardWorkflow {
	steps := []*workflow.StepTemplate{
		{
			ID:                "step-intake",
			Name:              "Intake",
			Description:       "Receive and register the incoming request",
			EstimatedTime:     1,
			EstimatedTimeUnit: workflow.TimeUnitDays,
			Order:             0,
			IsRequired:        true,
			Fields: []*workflow.CustomField{
				{ID: "source_channel", Name: "Source Channel", Type: workflow.FieldTypeSelect,
					Options: []string{"sales", "marketing", "internal"}},
			},
		},
		{
			ID:                "step-design-review",
			Name:              "Design Review",
			Description:       "Review the design against requirements",
			EstimatedTime:     4,
			EstimatedTimeUnit: workflow.TimeUnitHours,
			Order:             1,
			Fields: []*workflow.CustomField{
				{ID: "review_notes", Name: "Review Notes", Type: workflow.FieldTypeText, Required: true},
			},
		},
		{
			ID:                "step-sampling",
			Name:              "Sampling",
			Description:       "Produce and evaluate a sample",
			EstimatedTime:     2,
			EstimatedTimeUnit: workflow.TimeUnitDays,
			Order:             2,
			Fields: []*workflow.CustomField{
				{ID: "sample_count", Name: "Sample Count", Type: workflow.FieldTypeNumber},
			},
		},
		{
			ID:                "step-costing",
			Name:              "Costing",
			Description:       "Estimate unit cost for the product",
			EstimatedTime:     4,
			EstimatedTimeUnit: workflow.TimeUnitHours,
			Order:             3,
			HasCost:           true,
			Fields: []*workflow.CustomField{
				{ID: "unit_cost", Name: "Unit Cost", Type: workflow.FieldTypeCurrency, Required: true},
			},
		},
		{
			ID:                "step-final-check",
			Name:              "Final Check",
			Description:       "Final verification before completion",
			EstimatedTime:     2,
			EstimatedTimeUnit: workflow.TimeUnitHours,
			Order:             4,
			IsRequired:        true,
		},
	}
	for _, s := range steps {
		ensureSystemFields(s)
	}
	return &workflow.StandardWorkflow{
		ID:        "standard-workflow",
		Name:      "Standard Workflow",
		Version:   1,
		Steps:     steps,
		UpdatedAt: now,
	}
}

// generateStepID 生成步骤 ID
func generateStepID() string {
	return fmt.Sprintf("step-%d", time.Now().UnixNano())
}

// generateFieldID 生成字段 ID
func generateFieldID() string {
	return fmt.Sprintf("field-%d", time.Now().UnixNano())
}

// generateChangeLogID 生成变更日志 ID
func generateChangeLogID() string {
	return fmt.Sprintf("chg-%d", time.Now().UnixNano())
}
