package database

import (
	_ "embed"
	"study_buddy_backend/internal/model"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed/badges.yaml
var defaultBadgesYAML []byte

type badgeSeed struct {
	ID              uint    `yaml:"id"`
	Name            string  `yaml:"name"`
	Description     string  `yaml:"description"`
	ImageURL        string  `yaml:"image_url"`
	Category        string  `yaml:"category"`
	ActivityType    *string `yaml:"activity_type"`
	Count           *int    `yaml:"count"`
	ConsecutiveDays *int    `yaml:"consecutive_days"`
	Streak          *int    `yaml:"streak"`
	Leaderboard     *string `yaml:"leaderboard"`
	BadgeCount      *int    `yaml:"badge_count"`
}

// DefaultBadges 解析内置的默认徽章目录
func DefaultBadges() ([]model.Badge, error) {
	var file struct {
		Badges []badgeSeed `yaml:"badges"`
	}
	if err := yaml.Unmarshal(defaultBadgesYAML, &file); err != nil {
		return nil, err
	}

	badges := make([]model.Badge, 0, len(file.Badges))
	for _, s := range file.Badges {
		badges = append(badges, model.Badge{
			ID:                   s.ID,
			Name:                 s.Name,
			Description:          s.Description,
			ImageURL:             s.ImageURL,
			Category:             s.Category,
			ActivityType:         s.ActivityType,
			Count:                s.Count,
			ConsecutiveDays:      s.ConsecutiveDays,
			StreakRequired:       s.Streak,
			LeaderboardCriterion: s.Leaderboard,
			BadgeCountRequired:   s.BadgeCount,
		})
	}
	return badges, nil
}

// seedBadges 仅在 badges 表为空时写入默认目录
func seedBadges(db *gorm.DB) (int, error) {
	var count int64
	if err := db.Model(&model.Badge{}).Count(&count).Error; err != nil {
		return 0, err
	}
	if count > 0 {
		return 0, nil
	}

	badges, err := DefaultBadges()
	if err != nil {
		return 0, err
	}
	if err := db.CreateInBatches(badges, 50).Error; err != nil {
		return 0, err
	}
	return len(badges), nil
}
