package workflow

// StepStatus 当前步骤状态
type StepStatus string

const (
	StepStatusNotStarted StepStatus = "not_started"
	StepStatusInProgress StepStatus = "in_progress"
	StepStatusCompleted  StepStatus = "completed"
	StepStatusRejected   StepStatus = "rejected"
	StepStatusOnHold     StepStatus = "on_hold"
)

// RequestStatus 请求整体状态
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusInProgress RequestStatus = "in_progress"
	RequestStatusCompleted  RequestStatus = "completed"
	RequestStatusRejected   RequestStatus = "rejected"
	RequestStatusOnHold     RequestStatus = "on_hold"
	RequestStatusConverted  RequestStatus = "converted"
)

// StateMachine 步骤状态机
// 用显式转换表取代散落的状态判断,不在表中的转换一律拒绝
type StateMachine struct {
	transitions map[StepStatus][]StepStatus
}

// NewStateMachine 创建默认状态机
// 允许的转换:
//
//	not_started -> in_progress
//	in_progress -> completed / rejected / on_hold
//	rejected    -> in_progress (continue)
//	on_hold     -> in_progress (continue)
func NewStateMachine() *StateMachine {
	return &StateMachine{
		transitions: map[StepStatus][]StepStatus{
			StepStatusNotStarted: {StepStatusInProgress},
			StepStatusInProgress: {StepStatusCompleted, StepStatusRejected, StepStatusOnHold},
			StepStatusRejected:   {StepStatusInProgress},
			StepStatusOnHold:     {StepStatusInProgress},
		},
	}
}

// CanTransition 判断状态转换是否允许
func (m *StateMachine) CanTransition(from, to StepStatus) bool {
	for _, t := range m.transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Transition 执行状态转换,不允许时返回 InvalidTransitionError
func (m *StateMachine) Transition(requestID string, from, to StepStatus) (StepStatus, error) {
	if !m.CanTransition(from, to) {
		return from, &InvalidTransitionError{RequestID: requestID, From: from, To: to}
	}
	return to, nil
}

// RequestStatusFor 步骤状态对应的请求整体状态
// 完成态由调用方根据是否存在后续步骤决定,这里只映射暂停与进行中
func RequestStatusFor(status StepStatus) RequestStatus {
	switch status {
	case StepStatusRejected:
		return RequestStatusRejected
	case StepStatusOnHold:
		return RequestStatusOnHold
	case StepStatusInProgress:
		return RequestStatusInProgress
	default:
		return RequestStatusPending
	}
}

// IsTerminal 判断请求状态是否为终态(不再允许步骤流转)
func IsTerminal(status RequestStatus) bool {
	return status == RequestStatusCompleted || status == RequestStatusConverted
}
