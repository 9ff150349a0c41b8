// Package calendar 实现工作时间相关的纯时间运算
// 用于计算请求在各步骤的接收时间与截止时间
package calendar

import (
	"fmt"
	"time"
)

// 默认工作时间窗口(分钟,从当天零点起算)
const (
	defaultWorkStart  = 8*60 + 30  // 08:30
	defaultLunchStart = 12 * 60    // 12:00
	defaultLunchEnd   = 13*60 + 30 // 13:30
	defaultWorkEnd    = 18 * 60    // 18:00
)

// 浮点分钟比较容差
const epsilon = 1e-6

// WorkdayFunc 工作日判定
// 默认实现把每一天都当作工作日,周末与节假日感知由调用方注入
type WorkdayFunc func(t time.Time) bool

// Calendar 业务日历
// 工作窗口 08:30-18:00,午休 12:00-13:30 不计入工时
type Calendar struct {
	workStart  float64 // 分钟
	lunchStart float64
	lunchEnd   float64
	workEnd    float64
	isWorkday  WorkdayFunc
}

// New 创建默认业务日历
func New() *Calendar {
	return &Calendar{
		workStart:  defaultWorkStart,
		lunchStart: defaultLunchStart,
		lunchEnd:   defaultLunchEnd,
		workEnd:    defaultWorkEnd,
		isWorkday:  func(time.Time) bool { return true },
	}
}

// NewWithWindow 按 HH:MM 格式的时间窗口创建业务日历
func NewWithWindow(workStart, lunchStart, lunchEnd, workEnd string) (*Calendar, error) {
	parse := func(s string) (float64, error) {
		var h, m int
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, fmt.Errorf("invalid time %q: %w", s, err)
		}
		if h < 0 || h > 23 || m < 0 || m > 59 {
			return 0, fmt.Errorf("invalid time %q", s)
		}
		return float64(h*60 + m), nil
	}

	c := New()
	var err error
	if c.workStart, err = parse(workStart); err != nil {
		return nil, err
	}
	if c.lunchStart, err = parse(lunchStart); err != nil {
		return nil, err
	}
	if c.lunchEnd, err = parse(lunchEnd); err != nil {
		return nil, err
	}
	if c.workEnd, err = parse(workEnd); err != nil {
		return nil, err
	}

	if !(c.workStart < c.lunchStart && c.lunchStart < c.lunchEnd && c.lunchEnd < c.workEnd) {
		return nil, fmt.Errorf("invalid business window: %s %s %s %s", workStart, lunchStart, lunchEnd, workEnd)
	}
	return c, nil
}

// WithWorkdayFunc 设置工作日判定
func (c *Calendar) WithWorkdayFunc(fn WorkdayFunc) *Calendar {
	if fn != nil {
		c.isWorkday = fn
	}
	return c
}

// AdjustToBusinessStart 将时刻规整到最近的有效工作时刻
// 早于 08:30 钳制到当天 08:30,晚于等于 18:00 钳制到次日 08:30,
// 落在午休内推进到 13:30
func (c *Calendar) AdjustToBusinessStart(t time.Time) time.Time {
	for {
		if !c.isWorkday(t) {
			t = c.startOfNextDay(t)
			continue
		}
		m := c.minutesOfDay(t)
		switch {
		case m < c.workStart:
			return c.atMinutes(t, c.workStart)
		case m >= c.workEnd:
			t = c.startOfNextDay(t)
		case m >= c.lunchStart && m < c.lunchEnd:
			return c.atMinutes(t, c.lunchEnd)
		default:
			return t
		}
	}
}

// AddBusinessHours 从起点累加工作小时,返回截止时刻
// 起点先规整到有效工作时刻;零或负时长只做规整,不累加
func (c *Calendar) AddBusinessHours(t time.Time, hours float64) time.Time {
	cur := c.AdjustToBusinessStart(t)
	if hours <= 0 {
		return cur
	}

	remaining := hours * 60 // 分钟
	for remaining > epsilon {
		cur = c.AdjustToBusinessStart(cur)
		m := c.minutesOfDay(cur)

		// 今天剩余的有效工时:到 18:00 为止,扣除仍在前方的午休
		avail := c.workEnd - m
		if m < c.lunchStart {
			avail -= c.lunchEnd - c.lunchStart
		}

		if remaining <= avail+epsilon {
			target := m + remaining
			// 跨越午休时补上间隔,午休本身不计工时
			if m < c.lunchStart && target > c.lunchStart+epsilon {
				target += c.lunchEnd - c.lunchStart
			}
			cur = c.atMinutes(cur, target)
			// 恰好落在 12:00 或 18:00 边界时再规整一次
			return c.AdjustToBusinessStart(cur)
		}

		remaining -= avail
		cur = c.startOfNextDay(cur)
	}
	return c.AdjustToBusinessStart(cur)
}

// minutesOfDay 当天零点起算的分钟数
func (c *Calendar) minutesOfDay(t time.Time) float64 {
	return float64(t.Hour())*60 + float64(t.Minute()) +
		float64(t.Second())/60 + float64(t.Nanosecond())/(60*1e9)
}

// atMinutes 返回同一天指定分钟数的时刻
func (c *Calendar) atMinutes(t time.Time, minutes float64) time.Time {
	year, month, day := t.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return midnight.Add(time.Duration(minutes * float64(time.Minute)))
}

// startOfNextDay 次日工作开始时刻
func (c *Calendar) startOfNextDay(t time.Time) time.Time {
	year, month, day := t.Date()
	next := time.Date(year, month, day, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1)
	return next.Add(time.Duration(c.workStart * float64(time.Minute)))
}
