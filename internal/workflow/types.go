package workflow

import (
	"time"
)

// TimeUnit 预估工时单位
type TimeUnit string

const (
	TimeUnitHours TimeUnit = "hours"
	TimeUnitDays  TimeUnit = "days"
)

// HoursPerDay 一个工作日折算的工作小时数
const HoursPerDay = 8.0

// FieldType 自定义字段类型
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeDate     FieldType = "date"
	FieldTypeUser     FieldType = "user"
	FieldTypeNumber   FieldType = "number"
	FieldTypeSelect   FieldType = "select"
	FieldTypeCurrency FieldType = "currency"
	FieldTypeVariable FieldType = "variable"
)

// 系统字段 ID 常量
// 系统字段由引擎在步骤流转时自动填充,不允许删除
const (
	FieldIDAssignee      = "assignee"
	FieldIDReceiveDate   = "receive_date"
	FieldIDDeadline      = "deadline"
	FieldIDEstimatedTime = "estimated_time"
)

// CustomField 步骤自定义字段定义
type CustomField struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         FieldType `json:"type"`
	Required     bool      `json:"required"`
	IsSystem     bool      `json:"is_system"`
	Options      []string  `json:"options,omitempty"`
	DefaultValue string    `json:"default_value,omitempty"`
}

// StepTemplate 标准流程中的步骤定义
type StepTemplate struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Description         string         `json:"description"`
	EstimatedTime       float64        `json:"estimated_time"`
	EstimatedTimeUnit   TimeUnit       `json:"estimated_time_unit"`
	Order               int            `json:"order"`
	IsRequired          bool           `json:"is_required"`
	Fields              []*CustomField `json:"fields"`
	EligibleAssigneeIDs []string       `json:"eligible_assignee_ids,omitempty"`
	HasCost             bool           `json:"has_cost"`
}

// EstimatedHours 将预估工时统一换算为小时
// 以天为单位时按每天 8 个工作小时折算
func (s *StepTemplate) EstimatedHours() float64 {
	if s.EstimatedTimeUnit == TimeUnitDays {
		return s.EstimatedTime * HoursPerDay
	}
	return s.EstimatedTime
}

// FieldByID 根据 ID 查找字段
func (s *StepTemplate) FieldByID(fieldID string) *CustomField {
	for _, f := range s.Fields {
		if f.ID == fieldID {
			return f
		}
	}
	return nil
}

// StandardWorkflow 标准流程聚合
// 每个租户唯一,所有结构性变更都会使 Version 加 1
type StandardWorkflow struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Steps       []*StepTemplate `json:"steps"`
	Version     int             `json:"version"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// StepByID 根据 ID 查找步骤
func (w *StandardWorkflow) StepByID(stepID string) *StepTemplate {
	for _, s := range w.Steps {
		if s.ID == stepID {
			return s
		}
	}
	return nil
}

// OrderedSteps 返回按 Order 排序的步骤副本
func (w *StandardWorkflow) OrderedSteps() []*StepTemplate {
	steps := make([]*StepTemplate, len(w.Steps))
	copy(steps, w.Steps)
	for i := 1; i < len(steps); i++ {
		for j := i; j > 0 && steps[j-1].Order > steps[j].Order; j-- {
			steps[j-1], steps[j] = steps[j], steps[j-1]
		}
	}
	return steps
}

// Normalize 重新整理步骤顺序,保证 Order 连续 0..n-1
func (w *StandardWorkflow) Normalize() {
	steps := w.OrderedSteps()
	for i, s := range steps {
		s.Order = i
	}
	w.Steps = steps
}

// InstanceStep 子流程中缓存的步骤快照
// 快照在子流程创建时拷贝自标准流程,之后仅通过漂移同步更新
type InstanceStep struct {
	StepID            string         `json:"step_id"`
	Name              string         `json:"name"`
	Description       string         `json:"description"`
	EstimatedTime     float64        `json:"estimated_time"`
	EstimatedTimeUnit TimeUnit       `json:"estimated_time_unit"`
	Fields            []*CustomField `json:"fields"`
	Hidden            bool           `json:"hidden"`
}

// EstimatedHours 快照步骤的预估工时(小时)
func (s *InstanceStep) EstimatedHours() float64 {
	if s.EstimatedTimeUnit == TimeUnitDays {
		return s.EstimatedTime * HoursPerDay
	}
	return s.EstimatedTime
}

// WorkflowInstance 子流程
// 标准流程步骤的命名子集,可以绑定到一个产品状态(分类)
type WorkflowInstance struct {
	ID                         string          `json:"id"`
	Name                       string          `json:"name"`
	Description                string          `json:"description"`
	CategoryID                 string          `json:"category_id,omitempty"`
	StepOrder                  []string        `json:"step_order"`
	Steps                      []*InstanceStep `json:"steps"`
	CreatedFromTemplateVersion int             `json:"created_from_template_version"`
	CreatedAt                  time.Time       `json:"created_at"`
	UpdatedAt                  time.Time       `json:"updated_at"`
}

// StepByID 根据步骤 ID 查找快照
func (i *WorkflowInstance) StepByID(stepID string) *InstanceStep {
	for _, s := range i.Steps {
		if s.StepID == stepID {
			return s
		}
	}
	return nil
}

// VisibleStepIDs 按 StepOrder 返回未隐藏的步骤 ID
func (i *WorkflowInstance) VisibleStepIDs() []string {
	ids := make([]string, 0, len(i.StepOrder))
	for _, id := range i.StepOrder {
		step := i.StepByID(id)
		if step != nil && !step.Hidden {
			ids = append(ids, id)
		}
	}
	return ids
}

// User 用户信息
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CompletedStepRecord 步骤完成时的不可变快照
// 作为进度与产品转换溯源的权威账本,创建后不再修改
type CompletedStepRecord struct {
	StepID            string                 `json:"step_id"`
	StepName          string                 `json:"step_name"`
	CompletedAt       time.Time              `json:"completed_at"`
	FieldValues       map[string]*FieldValue `json:"field_values"`
	Assignee          *User                  `json:"assignee,omitempty"`
	EstimatedTime     float64                `json:"estimated_time"`
	EstimatedTimeUnit TimeUnit               `json:"estimated_time_unit"`
}

// Request 流转中的工作项
type Request struct {
	ID                     string                 `json:"id"`
	Code                   string                 `json:"code"`
	Title                  string                 `json:"title"`
	Description            string                 `json:"description"`
	CreatorID              string                 `json:"creator_id"`
	CategoryID             string                 `json:"category_id,omitempty"`
	WorkflowInstanceID     string                 `json:"workflow_instance_id,omitempty"`
	CurrentStepID          string                 `json:"current_step_id,omitempty"`
	CurrentStepStatus      StepStatus             `json:"current_step_status"`
	Assignee               *User                  `json:"assignee,omitempty"`
	CurrentStepFieldValues map[string]*FieldValue `json:"current_step_field_values"`
	CompletedSteps         []*CompletedStepRecord `json:"completed_steps"`
	Status                 RequestStatus          `json:"status"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
	ConvertedAt            *time.Time             `json:"converted_at,omitempty"`
}

// InWorkflow 判断请求是否处于流程中(尚有当前步骤)
func (r *Request) InWorkflow() bool {
	return r.CurrentStepID != ""
}

// HistoryAction 历史记录动作类型
type HistoryAction string

const (
	ActionCreate           HistoryAction = "create"
	ActionStartStep        HistoryAction = "start_step"
	ActionCompleteStep     HistoryAction = "complete_step"
	ActionCompleteWorkflow HistoryAction = "complete_workflow"
	ActionRejectStep       HistoryAction = "reject_step"
	ActionHoldStep         HistoryAction = "hold_step"
	ActionContinueWorkflow HistoryAction = "continue_workflow"
	ActionChangeCategory   HistoryAction = "change_category"
	ActionConvertToProduct HistoryAction = "convert_to_product"
	ActionFieldUpdate      HistoryAction = "field_update"
	ActionAssignmentChange HistoryAction = "assignment_change"
)

// HistoryEntry 请求历史记录条目
// 仅追加,引擎自身不依赖历史记录做控制流
type HistoryEntry struct {
	ID        string                 `json:"id"`
	RequestID string                 `json:"request_id"`
	Action    HistoryAction          `json:"action"`
	ActorID   string                 `json:"actor_id"`
	ActorName string                 `json:"actor_name"`
	Timestamp time.Time              `json:"timestamp"`
	Details   string                 `json:"details"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}
