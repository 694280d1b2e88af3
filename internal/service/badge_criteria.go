package service

import (
	"fmt"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
)

// Criterion 徽章达成条件，只能是下列五种之一
type Criterion interface {
	// Kind 用于日志和指标标签
	Kind() string
	// Required 名义上需要达到的数值，排行榜类为 1
	Required() int
	isCriterion()
}

const (
	KindActivityCount   = "activity_count"
	KindConsecutiveDays = "consecutive_days"
	KindStreak          = "streak"
	KindLeaderboard     = "leaderboard"
	KindBadgeCollection = "badge_collection"
)

// 排行榜子条件
const (
	LeaderboardEntered      = "entered"
	LeaderboardTop10Percent = "top_10_percent"
)

type ActivityCountCriterion struct {
	ActivityType string
	Count        int
}

type ConsecutiveDaysCriterion struct {
	ActivityType string
	Days         int
}

type StreakCriterion struct {
	Days int
}

type LeaderboardCriterion struct {
	Rule string
}

type BadgeCollectionCriterion struct {
	Count int
}

func (ActivityCountCriterion) Kind() string   { return KindActivityCount }
func (ConsecutiveDaysCriterion) Kind() string { return KindConsecutiveDays }
func (StreakCriterion) Kind() string          { return KindStreak }
func (LeaderboardCriterion) Kind() string     { return KindLeaderboard }
func (BadgeCollectionCriterion) Kind() string { return KindBadgeCollection }

func (c ActivityCountCriterion) Required() int   { return c.Count }
func (c ConsecutiveDaysCriterion) Required() int { return c.Days }
func (c StreakCriterion) Required() int          { return c.Days }
func (LeaderboardCriterion) Required() int       { return 1 }
func (c BadgeCollectionCriterion) Required() int { return c.Count }

func (ActivityCountCriterion) isCriterion()   {}
func (ConsecutiveDaysCriterion) isCriterion() {}
func (StreakCriterion) isCriterion()          {}
func (LeaderboardCriterion) isCriterion()     {}
func (BadgeCollectionCriterion) isCriterion() {}

// BadgeDefinition 内存中的徽章定义
type BadgeDefinition struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"imageUrl"`
	Category    string    `json:"category,omitempty"`
	Criterion   Criterion `json:"-"`
}

// AwardedBadge 新授予的徽章
type AwardedBadge struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// CriterionFromModel 将数据库行转换为条件，行中必须且只能设置一种条件
func CriterionFromModel(b *model.Badge) (Criterion, error) {
	var found []Criterion

	activityType := ""
	if b.ActivityType != nil {
		activityType = *b.ActivityType
	}

	if b.Count != nil {
		if activityType == "" {
			return nil, fmt.Errorf("badge %d: count requires activity_type: %w", b.ID, util.ErrInvalidBadgeCriterion)
		}
		found = append(found, ActivityCountCriterion{ActivityType: activityType, Count: *b.Count})
	}
	if b.ConsecutiveDays != nil {
		if activityType == "" {
			return nil, fmt.Errorf("badge %d: consecutive_days requires activity_type: %w", b.ID, util.ErrInvalidBadgeCriterion)
		}
		found = append(found, ConsecutiveDaysCriterion{ActivityType: activityType, Days: *b.ConsecutiveDays})
	}
	if b.StreakRequired != nil {
		found = append(found, StreakCriterion{Days: *b.StreakRequired})
	}
	if b.LeaderboardCriterion != nil {
		found = append(found, LeaderboardCriterion{Rule: *b.LeaderboardCriterion})
	}
	if b.BadgeCountRequired != nil {
		found = append(found, BadgeCollectionCriterion{Count: *b.BadgeCountRequired})
	}

	if len(found) != 1 {
		return nil, fmt.Errorf("badge %d has %d criteria: %w", b.ID, len(found), util.ErrInvalidBadgeCriterion)
	}
	return found[0], nil
}

// CriterionInfo 条件的展示形式
type CriterionInfo struct {
	Kind         string `json:"kind"`
	ActivityType string `json:"activityType,omitempty"`
	Required     int    `json:"required"`
	Rule         string `json:"rule,omitempty"`
}

func DescribeCriterion(c Criterion) CriterionInfo {
	info := CriterionInfo{Kind: c.Kind(), Required: c.Required()}
	switch c := c.(type) {
	case ActivityCountCriterion:
		info.ActivityType = c.ActivityType
	case ConsecutiveDaysCriterion:
		info.ActivityType = c.ActivityType
	case LeaderboardCriterion:
		info.Rule = c.Rule
	}
	return info
}
