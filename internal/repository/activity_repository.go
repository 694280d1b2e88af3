package repository

import (
	"context"
	"errors"
	"study_buddy_backend/internal/model"
	"time"

	"gorm.io/gorm"
)

type ActivityRepository struct {
	DB *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) Create(ctx context.Context, activity *model.UserActivity) error {
	return r.DB.WithContext(ctx).Create(activity).Error
}

func (r *ActivityRepository) byTypes(ctx context.Context, userID string, types []string) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&model.UserActivity{}).
		Where("user_id = ? AND activity_type IN ?", userID, types)
}

// CountByTypes 精确计数
func (r *ActivityRepository) CountByTypes(ctx context.Context, userID string, types []string) (int64, error) {
	var n int64
	err := r.byTypes(ctx, userID, types).Count(&n).Error
	return n, err
}

func (r *ActivityRepository) TimestampsByTypes(ctx context.Context, userID string, types []string) ([]time.Time, error) {
	var stamps []time.Time
	err := r.byTypes(ctx, userID, types).Order("timestamp ASC").Pluck("timestamp", &stamps).Error
	return stamps, err
}

// LatestByTypes 最近一条，没有记录时返回 nil
func (r *ActivityRepository) LatestByTypes(ctx context.Context, userID string, types []string) (*model.UserActivity, error) {
	var activity model.UserActivity
	err := r.byTypes(ctx, userID, types).Order("timestamp DESC").Take(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// ListSince 按时间倒序，types 为空时不过滤类型
func (r *ActivityRepository) ListSince(ctx context.Context, userID string, since time.Time, types []string) ([]model.UserActivity, error) {
	var activities []model.UserActivity
	q := r.DB.WithContext(ctx).Where("user_id = ? AND timestamp >= ?", userID, since)
	if len(types) > 0 {
		q = q.Where("activity_type IN ?", types)
	}
	err := q.Order("timestamp DESC").Find(&activities).Error
	return activities, err
}

// DistinctUserIDs 出现过活动的全部用户
func (r *ActivityRepository) DistinctUserIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.DB.WithContext(ctx).Model(&model.UserActivity{}).Distinct().Pluck("user_id", &ids).Error
	return ids, err
}
