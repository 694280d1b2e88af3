package repository

import (
	"context"
	"study_buddy_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BadgeRepository struct {
	DB *gorm.DB
}

func NewBadgeRepository(db *gorm.DB) *BadgeRepository {
	return &BadgeRepository{DB: db}
}

func (r *BadgeRepository) FindAll(ctx context.Context) ([]model.Badge, error) {
	var badges []model.Badge
	err := r.DB.WithContext(ctx).Order("id ASC").Find(&badges).Error
	return badges, err
}

// UserBadgeRepository 徽章账本，(user_id, badge_id) 联合主键
type UserBadgeRepository struct {
	DB *gorm.DB
}

func NewUserBadgeRepository(db *gorm.DB) *UserBadgeRepository {
	return &UserBadgeRepository{DB: db}
}

func (r *UserBadgeRepository) HeldBadgeIDs(ctx context.Context, userID string) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.UserBadge{}).
		Where("user_id = ?", userID).
		Pluck("badge_id", &ids).Error
	return ids, err
}

// Award 冲突时不做任何修改，只有真正插入一行才返回 true
func (r *UserBadgeRepository) Award(ctx context.Context, userID string, badgeID uint, at time.Time) (bool, error) {
	row := &model.UserBadge{UserID: userID, BadgeID: badgeID, AwardedAt: at}
	res := r.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(row)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *UserBadgeRepository) ListByUser(ctx context.Context, userID string) ([]model.UserBadge, error) {
	var rows []model.UserBadge
	err := r.DB.WithContext(ctx).Where("user_id = ?", userID).Order("awarded_at ASC").Find(&rows).Error
	return rows, err
}
