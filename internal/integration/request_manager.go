package integration

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/calendar"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/metrics"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/repository"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/workflow"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestManager 请求管理器
// 请求的全部状态流转都经过这里:每次操作读取当前请求与步骤元数据,
// 计算新状态,一次性写回并追加一条历史记录
type RequestManager interface {
	Create(req *CreateRequestRequest, actor *workflow.User) (*workflow.Request, error)
	Get(id string) (*workflow.Request, error)
	List(filter *repository.RequestFilter) ([]*workflow.Request, int64, error)
	StartStep(id string, actor *workflow.User) (*workflow.Request, error)
	CompleteStep(id string, actor *workflow.User) (*workflow.Request, error)
	RejectStep(id, reason string, actor *workflow.User) (*workflow.Request, error)
	HoldStep(id, reason string, actor *workflow.User) (*workflow.Request, error)
	ContinueWorkflow(id, reason string, actor *workflow.User) (*workflow.Request, error)
	ChangeCategory(id, newCategoryID string, actor *workflow.User) (*workflow.Request, error)
	ConvertToProduct(id string, attrs workflow.ProductAttrs, actor *workflow.User) (*workflow.Request, string, error)
	UpdateFieldValue(id, fieldID string, value *workflow.FieldValue, actor *workflow.User) (*workflow.Request, error)
	GetHistory(id string) ([]*workflow.HistoryEntry, error)
}

// CreateRequestRequest 创建请求参数
// InstanceID 与 CategoryID 二选一:给定分类时通过分类解析子流程;
// 两者都为空时请求暂不进入流程
type CreateRequestRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
	InstanceID  string `json:"instance_id"`
}

// TransitionNotifier 流转事件通知方(WebSocket Hub 实现)
// 通知失败不影响流转
type TransitionNotifier interface {
	NotifyTransition(requestID string, action workflow.HistoryAction, status workflow.RequestStatus)
}

// stepInfo 解析后的步骤执行信息
// 元数据来自子流程快照,负责人候选池始终来自标准流程
type stepInfo struct {
	ID                  string
	Name                string
	EstimatedTime       float64
	EstimatedTimeUnit   workflow.TimeUnit
	EstimatedHours      float64
	Fields              []*workflow.CustomField
	EligibleAssigneeIDs []string
}

// dbRequestManager 基于数据库的请求管理器
type dbRequestManager struct {
	db           *gorm.DB
	workflowMgr  WorkflowManager
	instanceMgr  InstanceManager
	cal          *calendar.Calendar
	clock        workflow.Clock
	resolver     workflow.IdentityResolver
	productSvc   workflow.ProductService
	notifier     TransitionNotifier
	sm           *workflow.StateMachine
	requestRepo  repository.RequestRepository
	historyRepo  repository.HistoryRepository
}

// NewRequestManager 创建请求管理器
// resolver、productSvc、notifier 允许为 nil:
// 没有身份源时不抽取负责人,没有产品服务时转换落到本地产品表
func NewRequestManager(
	db *gorm.DB,
	workflowMgr WorkflowManager,
	instanceMgr InstanceManager,
	cal *calendar.Calendar,
	clock workflow.Clock,
	resolver workflow.IdentityResolver,
	productSvc workflow.ProductService,
	notifier TransitionNotifier,
) RequestManager {
	if cal == nil {
		cal = calendar.New()
	}
	if clock == nil {
		clock = workflow.SystemClock{}
	}
	if productSvc == nil {
		productSvc = NewProductService(db, clock)
	}
	return &dbRequestManager{
		db:          db,
		workflowMgr: workflowMgr,
		instanceMgr: instanceMgr,
		cal:         cal,
		clock:       clock,
		resolver:    resolver,
		productSvc:  productSvc,
		notifier:    notifier,
		sm:          workflow.NewStateMachine(),
		requestRepo: repository.NewRequestRepository(db),
		historyRepo: repository.NewHistoryRepository(db),
	}
}

// Create 创建请求并在绑定子流程时播种到第一个步骤
func (m *dbRequestManager) Create(req *CreateRequestRequest, actor *workflow.User) (*workflow.Request, error) {
	if req == nil || req.Title == "" {
		return nil, fmt.Errorf("request title is required")
	}

	now := m.clock.Now()
	r := &workflow.Request{
		ID:                     uuid.NewString(),
		Code:                   generateRequestCode(),
		Title:                  req.Title,
		Description:            req.Description,
		CreatorID:              actorID(actor),
		CategoryID:             req.CategoryID,
		CurrentStepFieldValues: make(map[string]*workflow.FieldValue),
		CompletedSteps:         []*workflow.CompletedStepRecord{},
		Status:                 workflow.RequestStatusPending,
		CurrentStepStatus:      workflow.StepStatusNotStarted,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	// 1. 解析子流程:直接指定优先,其次按分类查找
	var instance *workflow.WorkflowInstance
	var err error
	if req.InstanceID != "" {
		instance, err = m.instanceMgr.Get(req.InstanceID)
		if err != nil {
			return nil, err
		}
	} else if req.CategoryID != "" {
		instance, err = m.instanceMgr.GetByCategory(req.CategoryID)
		if err != nil {
			return nil, err
		}
	}

	// 2. 播种到第一个步骤
	if instance != nil {
		r.WorkflowInstanceID = instance.ID
		steps, err := m.resolveSequence(r)
		if err != nil {
			return nil, err
		}
		if len(steps) > 0 {
			m.seedAtStep(r, steps[0], now)
		}
	}

	// 3. 保存并记录历史
	if err := m.saveRequest(r, true); err != nil {
		return nil, err
	}
	m.appendHistory(r, workflow.ActionCreate, actor,
		fmt.Sprintf("request %s created", r.Code), nil)
	return r, nil
}

// Get 获取请求
func (m *dbRequestManager) Get(id string) (*workflow.Request, error) {
	rm, err := m.requestRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("request not found: %w", err)
	}
	return unmarshalRequest(rm)
}

// List 按过滤器分页查询请求
func (m *dbRequestManager) List(filter *repository.RequestFilter) ([]*workflow.Request, int64, error) {
	models, total, err := m.requestRepo.FindByFilter(filter)
	if err != nil {
		return nil, 0, err
	}
	requests := make([]*workflow.Request, 0, len(models))
	for _, rm := range models {
		r, err := unmarshalRequest(rm)
		if err != nil {
			return nil, 0, err
		}
		requests = append(requests, r)
	}
	return requests, total, nil
}

// StartStep 开始当前步骤
func (m *dbRequestManager) StartStep(id string, actor *workflow.User) (*workflow.Request, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if workflow.IsTerminal(r.Status) || !r.InWorkflow() {
		return nil, &workflow.InvalidTransitionError{RequestID: id, From: r.CurrentStepStatus, To: workflow.StepStatusInProgress}
	}
	newStatus, err := m.sm.Transition(id, r.CurrentStepStatus, workflow.StepStatusInProgress)
	if err != nil {
		return nil, err
	}
	if r.CurrentStepStatus != workflow.StepStatusNotStarted {
		// continue 走单独入口,这里只接受首次开始
		return nil, &workflow.InvalidTransitionError{RequestID: id, From: r.CurrentStepStatus, To: workflow.StepStatusInProgress}
	}

	r.CurrentStepStatus = newStatus
	r.Status = workflow.RequestStatusInProgress
	r.UpdatedAt = m.clock.Now()
	if err := m.saveRequest(r, false); err != nil {
		return nil, err
	}
	m.appendHistory(r, workflow.ActionStartStep, actor,
		fmt.Sprintf("step %q started", r.CurrentStepID), nil)
	return r, nil
}

// CompleteStep 完成当前步骤并推进到下一步
// 必填字段缺失时返回 IncompleteFieldsError;
// 已是最后一步时整个请求进入完成态
func (m *dbRequestManager) CompleteStep(id string, actor *workflow.User) (*workflow.Request, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if workflow.IsTerminal(r.Status) || !r.InWorkflow() {
		return nil, &workflow.InvalidTransitionError{RequestID: id, From: r.CurrentStepStatus, To: workflow.StepStatusCompleted}
	}
	if _, err := m.sm.Transition(id, r.CurrentStepStatus, workflow.StepStatusCompleted); err != nil {
		return nil, err
	}

	// 1. 解析步骤序列并定位当前步骤
	steps, err := m.resolveSequence(r)
	if err != nil {
		return nil, err
	}
	idx := -1
	var current *stepInfo
	for i, s := range steps {
		if s.ID == r.CurrentStepID {
			idx = i
			current = s
			break
		}
	}
	if current == nil {
		return nil, &workflow.UnknownStepError{StepID: r.CurrentStepID}
	}

	// 2. 校验必填字段(系统字段由引擎填充,不参与校验)
	var missing []string
	for _, f := range current.Fields {
		if !f.Required || f.IsSystem {
			continue
		}
		if r.CurrentStepFieldValues[f.ID].IsEmpty() {
			missing = append(missing, f.ID)
		}
	}
	if len(missing) > 0 {
		return nil, &workflow.IncompleteFieldsError{StepID: current.ID, Missing: missing}
	}

	// 3. 追加完成快照,账本只增不改
	now := m.clock.Now()
	record := &workflow.CompletedStepRecord{
		StepID:            current.ID,
		StepName:          current.Name,
		CompletedAt:       now,
		FieldValues:       workflow.CloneFieldValues(r.CurrentStepFieldValues),
		Assignee:          r.Assignee,
		EstimatedTime:     current.EstimatedTime,
		EstimatedTimeUnit: current.EstimatedTimeUnit,
	}
	r.CompletedSteps = append(r.CompletedSteps, record)

	// 4. 推进到下一步或完成整个流程
	if idx+1 < len(steps) {
		next := steps[idx+1]
		m.seedAtStep(r, next, now)
		r.CurrentStepStatus = workflow.StepStatusInProgress
		r.Status = workflow.RequestStatusInProgress
		r.UpdatedAt = now
		if err := m.saveRequest(r, false); err != nil {
			return nil, err
		}
		m.appendHistory(r, workflow.ActionCompleteStep, actor,
			fmt.Sprintf("step %q completed, moved to %q", current.Name, next.Name),
			map[string]interface{}{
				"completed_step": current.ID,
				"next_step":      next.ID,
				"receive_date":   fieldTime(r.CurrentStepFieldValues[workflow.FieldIDReceiveDate]),
				"deadline":       fieldTime(r.CurrentStepFieldValues[workflow.FieldIDDeadline]),
			})
		return r, nil
	}

	r.Status = workflow.RequestStatusCompleted
	r.CurrentStepID = ""
	r.CurrentStepStatus = workflow.StepStatusCompleted
	r.CurrentStepFieldValues = make(map[string]*workflow.FieldValue)
	r.UpdatedAt = now
	if err := m.saveRequest(r, false); err != nil {
		return nil, err
	}
	m.appendHistory(r, workflow.ActionCompleteStep, actor,
		fmt.Sprintf("step %q completed", current.Name),
		map[string]interface{}{"completed_step": current.ID})
	m.appendHistory(r, workflow.ActionCompleteWorkflow, actor,
		"all steps completed, workflow finished", nil)
	return r, nil
}

// RejectStep 驳回当前步骤
// 保留 currentStepId,之后可以通过 ContinueWorkflow 恢复
func (m *dbRequestManager) RejectStep(id, reason string, actor *workflow.User) (*workflow.Request, error) {
	return m.pause(id, reason, actor, workflow.StepStatusRejected, workflow.ActionRejectStep)
}

// HoldStep 挂起当前步骤
// 与驳回机制相同,语义上不含否定含义
func (m *dbRequestManager) HoldStep(id, reason string, actor *workflow.User) (*workflow.Request, error) {
	return m.pause(id, reason, actor, workflow.StepStatusOnHold, workflow.ActionHoldStep)
}

// pause 驳回与挂起的公共实现
func (m *dbRequestManager) pause(id, reason string, actor *workflow.User, target workflow.StepStatus, action workflow.HistoryAction) (*workflow.Request, error) {
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if workflow.IsTerminal(r.Status) || !r.InWorkflow() {
		return nil, &workflow.InvalidTransitionError{RequestID: id, From: r.CurrentStepStatus, To: target}
	}
	newStatus, err := m.sm.Transition(id, r.CurrentStepStatus, target)
	if err != nil {
		return nil, err
	}

	r.CurrentStepStatus = newStatus
	r.Status = workflow.RequestStatusFor(newStatus)
	r.UpdatedAt = m.clock.Now()
	if err := m.saveRequest(r, false); err != nil {
		return nil, err
	}
	m.appendHistory(r, action, actor,
		fmt.Sprintf("step %q %s: %s", r.CurrentStepID, newStatus, reason),
		map[string]interface{}{
			"reason":       reason,
			"step":         r.CurrentStepID,
			"field_values": r.CurrentStepFieldValues,
		})
	return r, nil
}

// ContinueWorkflow 恢复被驳回或挂起的请求
// 恢复到暂停时的步骤,currentStepId 保持不变
func (m *dbRequestManager) ContinueWorkflow(id, reason string, actor *workflow.User) (*workflow.Request, error) {
	if reason == "" {
		return nil, fmt.Errorf("reason is required")
	}
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if r.Status != workflow.RequestStatusRejected && r.Status != workflow.RequestStatusOnHold {
		return nil, &workflow.InvalidTransitionError{RequestID: id, From: r.CurrentStepStatus, To: workflow.StepStatusInProgress}
	}
	if !r.InWorkflow() {
		return nil, fmt.Errorf("request %q has no paused step to continue", id)
	}
	previous := r.Status
	newStatus, err := m.sm.Transition(id, r.CurrentStepStatus, workflow.StepStatusInProgress)
	if err != nil {
		return nil, err
	}

	r.CurrentStepStatus = newStatus
	r.Status = workflow.RequestStatusInProgress
	r.UpdatedAt = m.clock.Now()
	if err := m.saveRequest(r, false); err != nil {
		return nil, err
	}
	m.appendHistory(r, workflow.ActionContinueWorkflow, actor,
		fmt.Sprintf("workflow continued at step %q: %s", r.CurrentStepID, reason),
		map[string]interface{}{
			"reason":          reason,
			"previous_status": string(previous),
		})
	return r, nil
}

// ChangeCategory 切换请求的产品状态
// 请求在新分类绑定的子流程的第一个步骤上重新播种,
// 当前步骤未保存的字段值被丢弃,已完成步骤的账本保持不变
func (m *dbRequestManager) ChangeCategory(id, newCategoryID string, actor *workflow.User) (*workflow.Request, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if workflow.IsTerminal(r.Status) {
		return nil, &workflow.InvalidTransitionError{RequestID: id, From: r.CurrentStepStatus, To: workflow.StepStatusNotStarted}
	}

	instance, err := m.instanceMgr.GetByCategory(newCategoryID)
	if err != nil {
		return nil, err
	}

	oldCategory := r.CategoryID
	oldInstance := r.WorkflowInstanceID
	r.CategoryID = newCategoryID
	r.WorkflowInstanceID = instance.ID
	r.CurrentStepFieldValues = make(map[string]*workflow.FieldValue)
	r.Assignee = nil

	steps, err := m.resolveSequence(r)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, fmt.Errorf("instance %q has no visible steps", instance.ID)
	}

	now := m.clock.Now()
	m.seedAtStep(r, steps[0], now)
	r.CurrentStepStatus = workflow.StepStatusNotStarted
	r.Status = workflow.RequestStatusPending
	r.UpdatedAt = now
	if err := m.saveRequest(r, false); err != nil {
		return nil, err
	}
	m.appendHistory(r, workflow.ActionChangeCategory, actor,
		fmt.Sprintf("category changed from %q to %q", oldCategory, newCategoryID),
		map[string]interface{}{
			"old_category": oldCategory,
			"new_category": newCategoryID,
			"old_instance": oldInstance,
			"new_instance": instance.ID,
		})
	return r, nil
}

// ConvertToProduct 将已完成的请求转换为产品
// 幂等保护:已转换的请求返回 AlreadyConvertedError
func (m *dbRequestManager) ConvertToProduct(id string, attrs workflow.ProductAttrs, actor *workflow.User) (*workflow.Request, string, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, "", err
	}
	if r.Status == workflow.RequestStatusConverted {
		return nil, "", &workflow.AlreadyConvertedError{RequestID: id}
	}
	if r.Status != workflow.RequestStatusCompleted {
		return nil, "", &workflow.InvalidTransitionError{RequestID: id, From: r.CurrentStepStatus, To: workflow.StepStatusCompleted}
	}

	productID, err := m.productSvc.CreateFromRequest(&workflow.ProductPayload{
		RequestID:      r.ID,
		Code:           r.Code,
		Title:          r.Title,
		Attrs:          attrs,
		CompletedSteps: r.CompletedSteps,
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to create product: %w", err)
	}

	now := m.clock.Now()
	r.Status = workflow.RequestStatusConverted
	r.ConvertedAt = &now
	r.UpdatedAt = now
	if err := m.saveRequest(r, false); err != nil {
		return nil, "", err
	}
	m.appendHistory(r, workflow.ActionConvertToProduct, actor,
		fmt.Sprintf("request converted to product %q", productID),
		map[string]interface{}{"product_id": productID})
	return r, productID, nil
}

// UpdateFieldValue 更新当前步骤的字段值
// 仅在步骤进行中允许,且字段必须属于当前步骤;
// 已完成步骤的快照不受影响
func (m *dbRequestManager) UpdateFieldValue(id, fieldID string, value *workflow.FieldValue, actor *workflow.User) (*workflow.Request, error) {
	r, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	if r.CurrentStepStatus != workflow.StepStatusInProgress {
		return nil, &workflow.InvalidTransitionError{RequestID: id, From: r.CurrentStepStatus, To: workflow.StepStatusInProgress}
	}

	steps, err := m.resolveSequence(r)
	if err != nil {
		return nil, err
	}
	var def *workflow.CustomField
	for _, s := range steps {
		if s.ID != r.CurrentStepID {
			continue
		}
		for _, f := range s.Fields {
			if f.ID == fieldID {
				def = f
				break
			}
		}
		break
	}
	if def == nil {
		return nil, fmt.Errorf("field %q does not belong to the current step", fieldID)
	}
	if err := value.Validate(def); err != nil {
		return nil, err
	}

	old := r.CurrentStepFieldValues[fieldID]
	r.CurrentStepFieldValues[fieldID] = value
	action := workflow.ActionFieldUpdate
	if fieldID == workflow.FieldIDAssignee {
		// 负责人字段同步到请求本身,空值表示清除负责人
		action = workflow.ActionAssignmentChange
		if value == nil {
			r.Assignee = nil
		} else {
			r.Assignee = m.lookupUser(value.UserID)
		}
	}
	r.UpdatedAt = m.clock.Now()
	if err := m.saveRequest(r, false); err != nil {
		return nil, err
	}
	m.appendHistory(r, action, actor,
		fmt.Sprintf("field %q updated on step %q", fieldID, r.CurrentStepID),
		map[string]interface{}{"field": fieldID, "old": old, "new": value})
	return r, nil
}

// GetHistory 返回请求的历史记录,按时间稳定排序
func (m *dbRequestManager) GetHistory(id string) ([]*workflow.HistoryEntry, error) {
	models, err := m.historyRepo.FindByRequestID(id)
	if err != nil {
		return nil, err
	}
	entries := make([]*workflow.HistoryEntry, 0, len(models))
	for _, hm := range models {
		entry := &workflow.HistoryEntry{
			ID:        hm.ID,
			RequestID: hm.RequestID,
			Action:    workflow.HistoryAction(hm.Action),
			ActorID:   hm.ActorID,
			ActorName: hm.ActorName,
			Timestamp: hm.CreatedAt,
			Details:   hm.Details,
		}
		if len(hm.Metadata) > 0 {
			_ = json.Unmarshal(hm.Metadata, &entry.Metadata)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// resolveSequence 解析请求的步骤序列
// 绑定子流程时使用其可见步骤,stepOrder 中已不存在于标准流程的 ID
// 视为过期并跳过;未绑定时回落到标准流程的全量步骤
func (m *dbRequestManager) resolveSequence(r *workflow.Request) ([]*stepInfo, error) {
	wf, err := m.workflowMgr.Get()
	if err != nil {
		return nil, fmt.Errorf("failed to load standard workflow: %w", err)
	}

	if r.WorkflowInstanceID == "" {
		steps := make([]*stepInfo, 0, len(wf.Steps))
		for _, s := range wf.OrderedSteps() {
			steps = append(steps, &stepInfo{
				ID:                  s.ID,
				Name:                s.Name,
				EstimatedTime:       s.EstimatedTime,
				EstimatedTimeUnit:   s.EstimatedTimeUnit,
				EstimatedHours:      s.EstimatedHours(),
				Fields:              s.Fields,
				EligibleAssigneeIDs: s.EligibleAssigneeIDs,
			})
		}
		return steps, nil
	}

	instance, err := m.instanceMgr.Get(r.WorkflowInstanceID)
	if err != nil {
		return nil, err
	}
	steps := make([]*stepInfo, 0, len(instance.StepOrder))
	for _, id := range instance.VisibleStepIDs() {
		tpl := wf.StepByID(id)
		if tpl == nil {
			// 标准流程中已删除的步骤视为过期
			continue
		}
		snap := instance.StepByID(id)
		info := &stepInfo{
			ID:                  id,
			Name:                snap.Name,
			EstimatedTime:       snap.EstimatedTime,
			EstimatedTimeUnit:   snap.EstimatedTimeUnit,
			EstimatedHours:      snap.EstimatedHours(),
			Fields:              snap.Fields,
			EligibleAssigneeIDs: tpl.EligibleAssigneeIDs,
		}
		steps = append(steps, info)
	}
	return steps, nil
}

// seedAtStep 把请求播种到指定步骤
// 计算接收时间与截止时间,按候选池随机抽取负责人,
// 身份源失败时负责人留空,不阻断流转
func (m *dbRequestManager) seedAtStep(r *workflow.Request, step *stepInfo, now time.Time) {
	receive := m.cal.AdjustToBusinessStart(now)
	deadline := m.cal.AddBusinessHours(receive, step.EstimatedHours)

	values := make(map[string]*workflow.FieldValue)
	values[workflow.FieldIDReceiveDate] = workflow.DateValue(receive)
	values[workflow.FieldIDDeadline] = workflow.DateValue(deadline)
	values[workflow.FieldIDEstimatedTime] = workflow.NumberValue(step.EstimatedHours)

	r.Assignee = nil
	if m.resolver != nil && len(step.EligibleAssigneeIDs) > 0 {
		if picked, err := m.resolver.PickRandom(step.EligibleAssigneeIDs); err == nil && picked != "" {
			r.Assignee = m.lookupUser(picked)
			if r.Assignee != nil {
				values[workflow.FieldIDAssignee] = workflow.UserValue(r.Assignee.ID)
			}
		}
	}

	r.CurrentStepID = step.ID
	r.CurrentStepFieldValues = values
}

// lookupUser 通过身份源解析用户,失败时退化为只含 ID 的用户
func (m *dbRequestManager) lookupUser(id string) *workflow.User {
	if id == "" {
		return nil
	}
	if m.resolver != nil {
		if u, err := m.resolver.ResolveUser(id); err == nil && u != nil {
			return u
		}
	}
	return &workflow.User{ID: id}
}

// saveRequest 序列化并保存请求
func (m *dbRequestManager) saveRequest(r *workflow.Request, create bool) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	rm := &model.RequestModel{
		ID:            r.ID,
		Code:          r.Code,
		Title:         r.Title,
		CategoryID:    r.CategoryID,
		InstanceID:    r.WorkflowInstanceID,
		Status:        string(r.Status),
		CurrentStepID: r.CurrentStepID,
		Data:          data,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		ConvertedAt:   r.ConvertedAt,
		CreatedBy:     r.CreatorID,
	}
	if create {
		if err := m.db.Create(rm).Error; err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		return nil
	}
	if err := m.requestRepo.Save(rm); err != nil {
		return fmt.Errorf("failed to save request: %w", err)
	}
	return nil
}

// unmarshalRequest 反序列化请求
func unmarshalRequest(rm *model.RequestModel) (*workflow.Request, error) {
	var r workflow.Request
	if err := json.Unmarshal(rm.Data, &r); err != nil {
		return nil, fmt.Errorf("failed to unmarshal request: %w", err)
	}
	return &r, nil
}

// appendHistory 追加历史记录并发出流转通知
// 历史写入失败只记录指标,不回滚已完成的状态变更
func (m *dbRequestManager) appendHistory(r *workflow.Request, action workflow.HistoryAction, actor *workflow.User, details string, metadata map[string]interface{}) {
	var metaData []byte
	if metadata != nil {
		metaData, _ = json.Marshal(metadata)
	}
	entry := &model.HistoryModel{
		ID:        generateHistoryID(),
		RequestID: r.ID,
		Action:    string(action),
		ActorID:   actorID(actor),
		ActorName: actorName(actor),
		Details:   details,
		Metadata:  metaData,
		CreatedAt: m.clock.Now(),
	}
	_ = m.historyRepo.Append(entry)

	metrics.RecordTransition(string(action))
	if m.notifier != nil {
		m.notifier.NotifyTransition(r.ID, action, r.Status)
	}
}

// fieldTime 从日期字段值提取 RFC3339 字符串
func fieldTime(v *workflow.FieldValue) string {
	if v == nil || v.Date == nil {
		return ""
	}
	return v.Date.Format(time.RFC3339)
}

// actorID 操作人 ID,匿名时记为 system
func actorID(actor *workflow.User) string {
	if actor == nil || actor.ID == "" {
		return "system"
	}
	return actor.ID
}

// actorName 操作人名称
func actorName(actor *workflow.User) string {
	if actor == nil {
		return ""
	}
	return actor.Name
}

// generateRequestCode 生成请求业务编号
func generateRequestCode() string {
	return fmt.Sprintf("REQ-%d", time.Now().UnixNano())
}

// generateHistoryID 生成历史记录 ID
func generateHistoryID() string {
	return fmt.Sprintf("his-%d", time.Now().UnixNano())
}
