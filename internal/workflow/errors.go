package workflow

import (
	"fmt"
	"strings"
)

// ProtectedStepError 尝试删除必选步骤
type ProtectedStepError struct {
	StepID   string
	StepName string
}

func (e *ProtectedStepError) Error() string {
	return fmt.Sprintf("step %q (%s) is required and cannot be deleted", e.StepID, e.StepName)
}

// ProtectedFieldError 尝试删除系统字段
type ProtectedFieldError struct {
	StepID  string
	FieldID string
}

func (e *ProtectedFieldError) Error() string {
	return fmt.Sprintf("field %q on step %q is a system field and cannot be deleted", e.FieldID, e.StepID)
}

// IncompleteFieldsError 必填字段未填写,步骤无法完成
type IncompleteFieldsError struct {
	StepID  string
	Missing []string
}

func (e *IncompleteFieldsError) Error() string {
	return fmt.Sprintf("step %q cannot be completed, missing required fields: %s",
		e.StepID, strings.Join(e.Missing, ", "))
}

// InvalidTransitionError 当前状态不允许该操作
type InvalidTransitionError struct {
	RequestID string
	From      StepStatus
	To        StepStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("request %q: invalid transition from %q to %q", e.RequestID, e.From, e.To)
}

// DuplicateCategoryBindingError 分类已绑定其他子流程
type DuplicateCategoryBindingError struct {
	CategoryID string
	InstanceID string
}

func (e *DuplicateCategoryBindingError) Error() string {
	return fmt.Sprintf("category %q is already bound to workflow instance %q", e.CategoryID, e.InstanceID)
}

// NoInstanceForCategoryError 分类未绑定任何子流程
type NoInstanceForCategoryError struct {
	CategoryID string
}

func (e *NoInstanceForCategoryError) Error() string {
	return fmt.Sprintf("no workflow instance bound to category %q", e.CategoryID)
}

// AlreadyConvertedError 请求已转换为产品
type AlreadyConvertedError struct {
	RequestID string
}

func (e *AlreadyConvertedError) Error() string {
	return fmt.Sprintf("request %q has already been converted to a product", e.RequestID)
}

// StaleDriftError 漂移结果基于的模板版本已过期
type StaleDriftError struct {
	InstanceID      string
	ComputedVersion int
	CurrentVersion  int
}

func (e *StaleDriftError) Error() string {
	return fmt.Sprintf("drift for instance %q was computed against template version %d, current version is %d",
		e.InstanceID, e.ComputedVersion, e.CurrentVersion)
}

// UnknownStepError 步骤在标准流程中不存在
type UnknownStepError struct {
	StepID string
}

func (e *UnknownStepError) Error() string {
	return fmt.Sprintf("step %q does not exist in the standard workflow", e.StepID)
}

// FieldTypeMismatchError 字段值类型与字段定义不匹配
type FieldTypeMismatchError struct {
	FieldID  string
	Expected FieldType
	Actual   FieldType
}

func (e *FieldTypeMismatchError) Error() string {
	return fmt.Sprintf("field %q expects a %s value, got %s", e.FieldID, e.Expected, e.Actual)
}
