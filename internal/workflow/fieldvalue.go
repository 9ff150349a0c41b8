package workflow

import (
	"fmt"
	"time"
)

// FieldValue 字段值
// 按所属字段声明的类型打标签,写入时与字段定义校验,不做隐式信任
type FieldValue struct {
	Type   FieldType  `json:"type"`
	Text   string     `json:"text,omitempty"`
	Number *float64   `json:"number,omitempty"`
	Date   *time.Time `json:"date,omitempty"`
	UserID string     `json:"user_id,omitempty"`
	Option string     `json:"option,omitempty"`
	Amount *float64   `json:"amount,omitempty"`
}

// TextValue 创建文本值
func TextValue(text string) *FieldValue {
	return &FieldValue{Type: FieldTypeText, Text: text}
}

// NumberValue 创建数值
func NumberValue(n float64) *FieldValue {
	return &FieldValue{Type: FieldTypeNumber, Number: &n}
}

// DateValue 创建日期值
func DateValue(t time.Time) *FieldValue {
	return &FieldValue{Type: FieldTypeDate, Date: &t}
}

// UserValue 创建用户引用值
func UserValue(userID string) *FieldValue {
	return &FieldValue{Type: FieldTypeUser, UserID: userID}
}

// SelectValue 创建选项值
func SelectValue(option string) *FieldValue {
	return &FieldValue{Type: FieldTypeSelect, Option: option}
}

// CurrencyValue 创建金额值
func CurrencyValue(amount float64) *FieldValue {
	return &FieldValue{Type: FieldTypeCurrency, Amount: &amount}
}

// IsEmpty 判断字段值是否为空(用于必填校验)
func (v *FieldValue) IsEmpty() bool {
	if v == nil {
		return true
	}
	switch v.Type {
	case FieldTypeText, FieldTypeVariable:
		return v.Text == ""
	case FieldTypeNumber:
		return v.Number == nil
	case FieldTypeDate:
		return v.Date == nil
	case FieldTypeUser:
		return v.UserID == ""
	case FieldTypeSelect:
		return v.Option == ""
	case FieldTypeCurrency:
		return v.Amount == nil
	default:
		return true
	}
}

// Validate 根据字段定义校验值
func (v *FieldValue) Validate(def *CustomField) error {
	if def == nil {
		return fmt.Errorf("field definition is required")
	}
	if v == nil {
		if def.Required {
			return fmt.Errorf("field %q is required", def.ID)
		}
		return nil
	}
	if v.Type != def.Type {
		return &FieldTypeMismatchError{FieldID: def.ID, Expected: def.Type, Actual: v.Type}
	}
	if def.Type == FieldTypeSelect && v.Option != "" && len(def.Options) > 0 {
		found := false
		for _, opt := range def.Options {
			if opt == v.Option {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("field %q: option %q is not in the allowed option list", def.ID, v.Option)
		}
	}
	if def.Required && v.IsEmpty() {
		return fmt.Errorf("field %q is required", def.ID)
	}
	return nil
}

// CloneFieldValues 拷贝字段值集合(用于完成快照,避免后续修改影响账本)
func CloneFieldValues(values map[string]*FieldValue) map[string]*FieldValue {
	cloned := make(map[string]*FieldValue, len(values))
	for k, v := range values {
		if v == nil {
			continue
		}
		cv := *v
		cloned[k] = &cv
	}
	return cloned
}
