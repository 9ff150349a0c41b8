package workflow

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestFieldValueIsEmpty 测试空值判定
func TestFieldValueIsEmpty(t *testing.T) {
	var nilValue *FieldValue
	assert.True(t, nilValue.IsEmpty())

	assert.True(t, TextValue("").IsEmpty())
	assert.False(t, TextValue("hello").IsEmpty())

	assert.False(t, NumberValue(0).IsEmpty())
	assert.True(t, (&FieldValue{Type: FieldTypeNumber}).IsEmpty())

	assert.False(t, DateValue(time.Now()).IsEmpty())
	assert.True(t, (&FieldValue{Type: FieldTypeDate}).IsEmpty())

	assert.True(t, UserValue("").IsEmpty())
	assert.False(t, UserValue("user-001").IsEmpty())

	assert.True(t, SelectValue("").IsEmpty())
	assert.False(t, SelectValue("sales").IsEmpty())

	assert.False(t, CurrencyValue(0).IsEmpty())
	assert.True(t, (&FieldValue{Type: FieldTypeCurrency}).IsEmpty())
}

// TestFieldValueValidate 测试字段值校验
func TestFieldValueValidate(t *testing.T) {
	def := &CustomField{
		ID:       "review_notes",
		Name:     "评审意见",
		Type:     FieldTypeText,
		Required: true,
	}

	assert.NoError(t, TextValue("looks good").Validate(def))

	// 必填字段不允许空值
	err := TextValue("").Validate(def)
	assert.Error(t, err)

	// 必填字段不允许 nil
	var nilValue *FieldValue
	err = nilValue.Validate(def)
	assert.Error(t, err)

	// 非必填字段允许 nil
	optional := &CustomField{ID: "notes", Type: FieldTypeText}
	assert.NoError(t, nilValue.Validate(optional))
}

// TestFieldValueTypeMismatch 测试类型不匹配
func TestFieldValueTypeMismatch(t *testing.T) {
	def := &CustomField{ID: "sample_count", Type: FieldTypeNumber}

	err := TextValue("three").Validate(def)
	assert.Error(t, err)

	var mismatch *FieldTypeMismatchError
	assert.True(t, errors.As(err, &mismatch))
	assert.Equal(t, "sample_count", mismatch.FieldID)
	assert.Equal(t, FieldTypeNumber, mismatch.Expected)
	assert.Equal(t, FieldTypeText, mismatch.Actual)
}

// TestFieldValueSelectOptions 测试选项约束
func TestFieldValueSelectOptions(t *testing.T) {
	def := &CustomField{
		ID:      "source_channel",
		Type:    FieldTypeSelect,
		Options: []string{"sales", "marketing", "internal"},
	}

	assert.NoError(t, SelectValue("sales").Validate(def))
	assert.Error(t, SelectValue("unknown").Validate(def))

	// 空选项在非必填时允许
	assert.NoError(t, SelectValue("").Validate(def))
}

// TestCloneFieldValues 测试快照拷贝的独立性
func TestCloneFieldValues(t *testing.T) {
	values := map[string]*FieldValue{
		"review_notes": TextValue("first pass"),
		"empty":        nil,
	}

	cloned := CloneFieldValues(values)
	assert.Len(t, cloned, 1)
	assert.Equal(t, "first pass", cloned["review_notes"].Text)

	// 修改原值不影响快照
	values["review_notes"].Text = "revised"
	assert.Equal(t, "first pass", cloned["review_notes"].Text)
}
