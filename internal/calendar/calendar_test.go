package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// 2026-01-05 是周一
func mondayAt(hour, min int) time.Time {
	return time.Date(2026, 1, 5, hour, min, 0, 0, time.UTC)
}

// TestAdjustToBusinessStart 测试工作时刻规整
func TestAdjustToBusinessStart(t *testing.T) {
	cal := New()

	// 早于 08:30 钳制到当天 08:30
	adjusted := cal.AdjustToBusinessStart(mondayAt(7, 0))
	assert.Equal(t, mondayAt(8, 30), adjusted)

	// 工作时间内保持不变
	adjusted = cal.AdjustToBusinessStart(mondayAt(10, 15))
	assert.Equal(t, mondayAt(10, 15), adjusted)

	// 午休内推进到 13:30
	adjusted = cal.AdjustToBusinessStart(mondayAt(12, 30))
	assert.Equal(t, mondayAt(13, 30), adjusted)

	// 午休起点 12:00 也推进到 13:30
	adjusted = cal.AdjustToBusinessStart(mondayAt(12, 0))
	assert.Equal(t, mondayAt(13, 30), adjusted)

	// 18:00 及之后钳制到次日 08:30
	adjusted = cal.AdjustToBusinessStart(mondayAt(18, 0))
	assert.Equal(t, time.Date(2026, 1, 6, 8, 30, 0, 0, time.UTC), adjusted)

	adjusted = cal.AdjustToBusinessStart(mondayAt(19, 45))
	assert.Equal(t, time.Date(2026, 1, 6, 8, 30, 0, 0, time.UTC), adjusted)
}

// TestAddBusinessHoursSameDay 测试同日累加
func TestAddBusinessHoursSameDay(t *testing.T) {
	cal := New()

	// 10:00 + 4h 跨午休,落在 15:30
	deadline := cal.AddBusinessHours(mondayAt(10, 0), 4)
	assert.Equal(t, mondayAt(15, 30), deadline)

	// 14:00 + 2h 不跨午休
	deadline = cal.AddBusinessHours(mondayAt(14, 0), 2)
	assert.Equal(t, mondayAt(16, 0), deadline)

	// 零时长只做规整
	deadline = cal.AddBusinessHours(mondayAt(7, 0), 0)
	assert.Equal(t, mondayAt(8, 30), deadline)
}

// TestAddBusinessHoursBoundary 测试边界再规整
func TestAddBusinessHoursBoundary(t *testing.T) {
	cal := New()

	// 恰好落在 12:00 边界时推进到 13:30
	deadline := cal.AddBusinessHours(mondayAt(10, 0), 2)
	assert.Equal(t, mondayAt(13, 30), deadline)

	// 恰好落在 18:00 边界时钳制到次日 08:30
	deadline = cal.AddBusinessHours(mondayAt(13, 30), 4.5)
	assert.Equal(t, time.Date(2026, 1, 6, 8, 30, 0, 0, time.UTC), deadline)
}

// TestAddBusinessHoursMultiDay 测试跨日累加
func TestAddBusinessHoursMultiDay(t *testing.T) {
	cal := New()

	// 每天 8 个有效工时,16h 从周一 08:30 起跨到周三开工
	deadline := cal.AddBusinessHours(mondayAt(8, 30), 16)
	assert.Equal(t, time.Date(2026, 1, 7, 8, 30, 0, 0, time.UTC), deadline)

	// 17:00 起 2h,当天只剩 1h,余下顺延到次日 09:30
	deadline = cal.AddBusinessHours(mondayAt(17, 0), 2)
	assert.Equal(t, time.Date(2026, 1, 6, 9, 30, 0, 0, time.UTC), deadline)
}

// TestAddBusinessHoursAdditive 测试分段累加与一次累加结果一致
func TestAddBusinessHoursAdditive(t *testing.T) {
	cal := New()

	cases := []struct {
		name   string
		start  time.Time
		h1, h2 float64
	}{
		{"跨午休拆分", mondayAt(10, 0), 2, 2},
		{"非整点拆分", mondayAt(10, 0), 1.5, 2.5},
		{"跨日拆分", mondayAt(13, 30), 4.5, 2},
		{"整日拆分", mondayAt(8, 30), 8, 8},
		{"傍晚边界拆分", mondayAt(17, 0), 1, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			split := cal.AddBusinessHours(cal.AddBusinessHours(tc.start, tc.h1), tc.h2)
			whole := cal.AddBusinessHours(tc.start, tc.h1+tc.h2)
			assert.Equal(t, whole, split)
		})
	}
}

// TestWorkdayFunc 测试工作日判定注入
func TestWorkdayFunc(t *testing.T) {
	cal := New().WithWorkdayFunc(func(t time.Time) bool {
		wd := t.Weekday()
		return wd != time.Saturday && wd != time.Sunday
	})

	// 2026-01-09 是周五,17:00 起 2h 跳过周末落到周一 09:30
	friday := time.Date(2026, 1, 9, 17, 0, 0, 0, time.UTC)
	deadline := cal.AddBusinessHours(friday, 2)
	assert.Equal(t, time.Date(2026, 1, 12, 9, 30, 0, 0, time.UTC), deadline)

	// 周六直接规整到周一开工
	saturday := time.Date(2026, 1, 10, 10, 0, 0, 0, time.UTC)
	adjusted := cal.AdjustToBusinessStart(saturday)
	assert.Equal(t, time.Date(2026, 1, 12, 8, 30, 0, 0, time.UTC), adjusted)
}

// TestNewWithWindow 测试自定义工作窗口
func TestNewWithWindow(t *testing.T) {
	cal, err := NewWithWindow("09:00", "12:00", "13:00", "17:00")
	assert.NoError(t, err)
	assert.NotNil(t, cal)

	adjusted := cal.AdjustToBusinessStart(mondayAt(8, 0))
	assert.Equal(t, mondayAt(9, 0), adjusted)

	// 窗口顺序错误
	_, err = NewWithWindow("12:00", "09:00", "13:00", "17:00")
	assert.Error(t, err)

	// 格式错误
	_, err = NewWithWindow("morning", "12:00", "13:30", "18:00")
	assert.Error(t, err)

	// 越界
	_, err = NewWithWindow("08:30", "12:00", "13:30", "24:00")
	assert.Error(t, err)
}
