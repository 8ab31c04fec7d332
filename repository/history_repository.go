package repository

import (
	"context"
	"fmt"

	"listenboard/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// HistoryRepository 播放历史数据访问接口
type HistoryRepository interface {
	// Archive inserts plays that are not stored yet and reports how many were new.
	Archive(ctx context.Context, items []model.RecentItem) (int, error)
	Recent(ctx context.Context, limit int) ([]model.PlayRecord, error)
}

// gormHistoryRepository GORM 实现
type gormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository 创建 GORM 播放历史仓库
func NewGormHistoryRepository(db *gorm.DB) HistoryRepository {
	return &gormHistoryRepository{db: db}
}

func (r *gormHistoryRepository) Archive(ctx context.Context, items []model.RecentItem) (int, error) {
	records := make([]model.PlayRecord, 0, len(items))
	for _, item := range items {
		if item.Track.ID == "" || item.PlayedAt.IsZero() {
			continue
		}
		records = append(records, model.NewPlayRecord(item))
	}
	if len(records) == 0 {
		return 0, nil
	}

	// (track_id, played_at) 唯一，重复记录直接忽略
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records)
	if result.Error != nil {
		return 0, fmt.Errorf("archive plays: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

// Recent 按播放时间倒序获取历史记录
func (r *gormHistoryRepository) Recent(ctx context.Context, limit int) ([]model.PlayRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []model.PlayRecord
	err := r.db.WithContext(ctx).
		Order("played_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list plays: %w", err)
	}
	return records, nil
}
