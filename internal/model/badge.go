package model

import "time"

// Badge 徽章定义表。每行只能设置一种达成条件列
// swagger:model Badge
type Badge struct {
	ID          uint   `gorm:"primaryKey" json:"id" validate:"required,gt=0"`
	Name        string `gorm:"size:100;not null" json:"name" validate:"required,max=100"`
	Description string `gorm:"type:text" json:"description"`
	ImageURL    string `gorm:"size:255" json:"imageUrl" validate:"omitempty,max=255"`
	Category    string `gorm:"size:32" json:"category,omitempty"`

	ActivityType         *string `gorm:"size:64" json:"activityType,omitempty" validate:"omitempty,max=64"`
	Count                *int    `json:"count,omitempty" validate:"omitempty,gt=0"`
	ConsecutiveDays      *int    `json:"consecutiveDays,omitempty" validate:"omitempty,gt=0"`
	StreakRequired       *int    `json:"streakRequired,omitempty" validate:"omitempty,gt=0"`
	LeaderboardCriterion *string `gorm:"size:32" json:"leaderboardCriterion,omitempty" validate:"omitempty,oneof=entered top_10_percent"`
	BadgeCountRequired   *int    `json:"badgeCountRequired,omitempty" validate:"omitempty,gt=0"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Badge) TableName() string {
	return "badges"
}

// UserBadge 用户已获得的徽章，(user_id, badge_id) 联合主键保证至多一条
type UserBadge struct {
	UserID    string    `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	BadgeID   uint      `gorm:"primaryKey;autoIncrement:false" json:"badgeId"`
	AwardedAt time.Time `gorm:"not null" json:"awardedAt"`
}

func (UserBadge) TableName() string {
	return "user_badges"
}
