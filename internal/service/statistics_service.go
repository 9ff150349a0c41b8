package service

import (
	"fmt"

	"github.com/cuongthieu-itme/product-workflow-sub002/internal/integration"
	"github.com/cuongthieu-itme/product-workflow-sub002/internal/model"
	"gorm.io/gorm"
)

// StatisticsService 统计服务接口
type StatisticsService interface {
	GetRequestStatisticsByStatus() ([]*RequestStatisticsByStatus, error)
	GetRequestStatisticsByCategory() ([]*RequestStatisticsByCategory, error)
	GetRequestStatisticsByTime() ([]*RequestStatisticsByTime, error)
	GetRequestProgress(requestID string) (*RequestProgress, error)
}

// RequestStatisticsByStatus 按状态统计
type RequestStatisticsByStatus struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// RequestStatisticsByCategory 按类别统计
type RequestStatisticsByCategory struct {
	CategoryID string `json:"category_id"`
	Count      int64  `json:"count"`
}

// RequestStatisticsByTime 按时间统计
type RequestStatisticsByTime struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// RequestProgress 请求进度
type RequestProgress struct {
	RequestID      string  `json:"request_id"`
	Status         string  `json:"status"`
	CurrentStepID  string  `json:"current_step_id"`
	TotalSteps     int     `json:"total_steps"`
	CompletedSteps int     `json:"completed_steps"`
	PercentDone    float64 `json:"percent_done"`
}

// statisticsService 统计服务实现
type statisticsService struct {
	db          *gorm.DB
	requestMgr  integration.RequestManager
	instanceMgr integration.InstanceManager
}

// NewStatisticsService 创建统计服务
func NewStatisticsService(db *gorm.DB, requestMgr integration.RequestManager, instanceMgr integration.InstanceManager) StatisticsService {
	return &statisticsService{
		db:          db,
		requestMgr:  requestMgr,
		instanceMgr: instanceMgr,
	}
}

// GetRequestStatisticsByStatus 按状态统计请求
func (s *statisticsService) GetRequestStatisticsByStatus() ([]*RequestStatisticsByStatus, error) {
	var results []struct {
		Status string
		Count  int64
	}

	err := s.db.Model(&model.RequestModel{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get request statistics by status: %w", err)
	}

	stats := make([]*RequestStatisticsByStatus, 0, len(results))
	for _, r := range results {
		stats = append(stats, &RequestStatisticsByStatus{
			Status: r.Status,
			Count:  r.Count,
		})
	}

	return stats, nil
}

// GetRequestStatisticsByCategory 按类别统计请求
func (s *statisticsService) GetRequestStatisticsByCategory() ([]*RequestStatisticsByCategory, error) {
	var results []struct {
		CategoryID string
		Count      int64
	}

	err := s.db.Model(&model.RequestModel{}).
		Select("category_id, COUNT(*) as count").
		Group("category_id").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get request statistics by category: %w", err)
	}

	stats := make([]*RequestStatisticsByCategory, 0, len(results))
	for _, r := range results {
		stats = append(stats, &RequestStatisticsByCategory{
			CategoryID: r.CategoryID,
			Count:      r.Count,
		})
	}

	return stats, nil
}

// GetRequestStatisticsByTime 按创建日期统计请求
func (s *statisticsService) GetRequestStatisticsByTime() ([]*RequestStatisticsByTime, error) {
	var results []struct {
		Date  string
		Count int64
	}

	err := s.db.Model(&model.RequestModel{}).
		Select("DATE(created_at) as date, COUNT(*) as count").
		Group("DATE(created_at)").
		Order("date DESC").
		Scan(&results).Error

	if err != nil {
		return nil, fmt.Errorf("failed to get request statistics by time: %w", err)
	}

	stats := make([]*RequestStatisticsByTime, 0, len(results))
	for _, r := range results {
		stats = append(stats, &RequestStatisticsByTime{
			Date:  r.Date,
			Count: r.Count,
		})
	}

	return stats, nil
}

// GetRequestProgress 计算请求的完成进度
func (s *statisticsService) GetRequestProgress(requestID string) (*RequestProgress, error) {
	r, err := s.requestMgr.Get(requestID)
	if err != nil {
		return nil, err
	}

	// 未绑定子流程的请求没有步骤序列,进度为零
	total := 0
	completed := 0
	if r.WorkflowInstanceID != "" {
		inst, err := s.instanceMgr.Get(r.WorkflowInstanceID)
		if err != nil {
			return nil, fmt.Errorf("failed to load instance for progress: %w", err)
		}

		// 进度只统计可见步骤,已完成记录中可能包含历史类别下的步骤
		visible := make(map[string]bool, len(inst.StepOrder))
		for _, id := range inst.VisibleStepIDs() {
			visible[id] = true
		}
		total = len(visible)
		for _, rec := range r.CompletedSteps {
			if visible[rec.StepID] {
				completed++
			}
		}
	}

	percent := 0.0
	if total > 0 {
		percent = float64(completed) / float64(total) * 100
	}

	return &RequestProgress{
		RequestID:      r.ID,
		Status:         string(r.Status),
		CurrentStepID:  r.CurrentStepID,
		TotalSteps:     total,
		CompletedSteps: completed,
		PercentDone:    percent,
	}, nil
}
