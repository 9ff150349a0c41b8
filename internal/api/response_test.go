package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext(t *testing.T) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

// TestSuccessResponse 测试成功响应格式
func TestSuccessResponse(t *testing.T) {
	c, w := newTestContext(t)
	Success(c, gin.H{"id": "req-001"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, "success", resp.Message)
	assert.NotNil(t, resp.Data)
}

// TestErrorResponse 测试错误响应格式
func TestErrorResponse(t *testing.T) {
	c, w := newTestContext(t)
	Error(c, http.StatusConflict, "failed to complete step", "version conflict")

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, "failed to complete step", resp.Message)
	assert.Equal(t, "version conflict", resp.Detail)

	// 非 HTTP 范围的错误码退化为 500
	c, w = newTestContext(t)
	Error(c, 9999, "boom", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

// TestPaginatedResponse 测试分页响应格式
func TestPaginatedResponse(t *testing.T) {
	c, w := newTestContext(t)
	Paginated(c, []string{"a", "b"}, PaginationInfo{
		Page:      1,
		PageSize:  20,
		Total:     42,
		TotalPage: 3,
	})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.Equal(t, int64(42), resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPage)
}
