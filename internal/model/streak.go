package model

import "time"

// UserStreak 连续学习天数快照，由 StreakService 维护
type UserStreak struct {
	UserID           string    `gorm:"primaryKey;type:varchar(36)" json:"userId"`
	CurrentStreak    int       `gorm:"default:0" json:"currentStreak"`
	LongestStreak    int       `gorm:"default:0" json:"longestStreak"`
	LastActivityDate time.Time `json:"lastActivityDate"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

func (UserStreak) TableName() string {
	return "user_streaks"
}
