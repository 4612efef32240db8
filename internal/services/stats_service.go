package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"scriptify/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// StatsService maintains the per-day rollups behind the activity
// reports dashboard.
type StatsService struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewStatsService(db *gorm.DB, logger *logrus.Logger) *StatsService {
	if logger == nil {
		logger = logrus.New()
	}
	return &StatsService{db: db, logger: logger}
}

// UpdateDailyStats recomputes the rollup row for date.
func (s *StatsService) UpdateDailyStats(ctx context.Context, date time.Time) error {
	date = date.Truncate(24 * time.Hour)
	nextDay := date.Add(24 * time.Hour)

	var stat models.DailyStat
	err := s.db.WithContext(ctx).Where("date = ?", date).First(&stat).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("query daily stats: %w", err)
		}
		stat = models.DailyStat{Date: date, CreatedAt: time.Now()}
	}

	var messages, runs, failed int64
	if err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("created_at >= ? AND created_at < ?", date, nextDay).
		Count(&messages).Error; err != nil {
		return fmt.Errorf("count messages: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.AutomationRun{}).
		Where("created_at >= ? AND created_at < ?", date, nextDay).
		Count(&runs).Error; err != nil {
		return fmt.Errorf("count runs: %w", err)
	}
	if err := s.db.WithContext(ctx).Model(&models.AutomationRun{}).
		Where("created_at >= ? AND created_at < ? AND status = ?", date, nextDay, "failed").
		Count(&failed).Error; err != nil {
		return fmt.Errorf("count failed runs: %w", err)
	}

	stat.MessagesSent = int(messages)
	stat.RunsExecuted = int(runs)
	stat.RunsFailed = int(failed)
	stat.UpdatedAt = time.Now()

	if stat.ID == 0 {
		err = s.db.WithContext(ctx).Create(&stat).Error
	} else {
		err = s.db.WithContext(ctx).Save(&stat).Error
	}
	if err != nil {
		return fmt.Errorf("save daily stats: %w", err)
	}
	return nil
}

// StartWorker refreshes today's (and around midnight, yesterday's)
// rollup until ctx is cancelled.
func (s *StatsService) StartWorker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := s.UpdateDailyStats(ctx, time.Now()); err != nil {
		s.logger.Errorf("stats: update failed: %v", err)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.UpdateDailyStats(ctx, time.Now()); err != nil {
				s.logger.Errorf("stats: update failed: %v", err)
			}
			yesterday := time.Now().AddDate(0, 0, -1)
			if err := s.UpdateDailyStats(ctx, yesterday); err != nil {
				s.logger.Errorf("stats: update yesterday failed: %v", err)
			}
		}
	}
}
