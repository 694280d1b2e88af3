package repository

import (
	"context"
	"errors"
	"study_buddy_backend/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StreakRepository struct {
	DB *gorm.DB
}

func NewStreakRepository(db *gorm.DB) *StreakRepository {
	return &StreakRepository{DB: db}
}

// FindByUserID 没有记录时返回 nil
func (r *StreakRepository) FindByUserID(ctx context.Context, userID string) (*model.UserStreak, error) {
	var streak model.UserStreak
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Take(&streak).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

func (r *StreakRepository) Save(ctx context.Context, streak *model.UserStreak) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"current_streak", "longest_streak", "last_activity_date", "updated_at"}),
	}).Create(streak).Error
}
