package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestValidateName 测试名称验证
func TestValidateName(t *testing.T) {
	assert.NoError(t, ValidateName("Design Review"))
	assert.NoError(t, ValidateName("快速通道"))

	assert.Equal(t, ErrEmptyName, ValidateName(""))
	assert.Equal(t, ErrEmptyName, ValidateName("   "))
	assert.Equal(t, ErrNameTooLong, ValidateName(strings.Repeat("a", 256)))
	assert.Equal(t, ErrDangerousChars, ValidateName("<script>alert(1)</script>"))
	assert.Equal(t, ErrDangerousChars, ValidateName("x'; DROP TABLE requests"))
}

// TestValidateID 测试 ID 格式验证
func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID("step-intake"))
	assert.NoError(t, ValidateID("inst_001"))

	assert.Equal(t, ErrEmptyID, ValidateID(""))
	assert.Equal(t, ErrInvalidIDFormat, ValidateID("step intake"))
	assert.Equal(t, ErrInvalidIDFormat, ValidateID("step/../etc"))
	assert.Equal(t, ErrIDTooLong, ValidateID(strings.Repeat("a", 65)))
}

// TestSanitizeString 测试字符串清理
func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "&lt;b&gt;bold&lt;/b&gt;", SanitizeString("<b>bold</b>"))

	// 控制字符被剔除,换行与制表符保留
	assert.Equal(t, "a\nb\tc", SanitizeString("a\nb\tc\x00"))
}

// TestTrimAndValidate 测试清理加验证
func TestTrimAndValidate(t *testing.T) {
	s, err := TrimAndValidate("  hello  ", 10)
	assert.NoError(t, err)
	assert.Equal(t, "hello", s)

	_, err = TrimAndValidate("   ", 10)
	assert.Equal(t, ErrEmptyString, err)

	_, err = TrimAndValidate("toolongvalue", 5)
	assert.Equal(t, ErrStringTooLong, err)
}

// TestSortFieldSafety 测试排序参数防护
func TestSortFieldSafety(t *testing.T) {
	assert.NoError(t, ValidateSortField("created_at"))
	assert.NoError(t, ValidateSortField("requests.status"))

	assert.Error(t, ValidateSortField(""))
	assert.Error(t, ValidateSortField("created_at; DROP"))
	assert.Error(t, ValidateSortField("UNION"))

	assert.NoError(t, ValidateSortOrder("asc"))
	assert.NoError(t, ValidateSortOrder("DESC"))
	assert.Error(t, ValidateSortOrder("sideways"))

	assert.Equal(t, "created_at", SanitizeSortField("created_at;--"))
	assert.Equal(t, "ASC", SanitizeSortOrder(" asc "))
	assert.Equal(t, "DESC", SanitizeSortOrder("bogus"))
}
