package service

import (
	"context"
	"regexp"
	"sort"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultActivityDays = 7
	statsWindowDays     = 30
)

var activityTypePattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

// AwardPublisher 推送新授予的徽章
type AwardPublisher interface {
	PublishAwards(ctx context.Context, userID string, badges []AwardedBadge) error
}

type ActivityResult struct {
	Activity  *model.UserActivity `json:"activity"`
	NewBadges []AwardedBadge      `json:"newBadges"`
}

type ActivityStats struct {
	Since           time.Time      `json:"since"`
	TotalActivities int            `json:"totalActivities"`
	ActiveDays      int            `json:"activeDays"`
	ByType          map[string]int `json:"byType"`
	MostFrequent    string         `json:"mostFrequent,omitempty"`
}

type ActivityService struct {
	Activities ActivityStore
	Streaks    *StreakService
	Checker    *BadgeChecker
	Publisher  AwardPublisher
	Now        func() time.Time
}

func NewActivityService(activities ActivityStore, streaks *StreakService, checker *BadgeChecker, publisher AwardPublisher) *ActivityService {
	return &ActivityService{
		Activities: activities,
		Streaks:    streaks,
		Checker:    checker,
		Publisher:  publisher,
		Now:        time.Now,
	}
}

// LogActivity 写入活动并执行增量徽章检查。徽章检查失败不影响活动写入
func (s *ActivityService) LogActivity(ctx context.Context, rawUserID, activityType string, metadata model.Metadata) (*ActivityResult, error) {
	id := util.EnsureUUID(rawUserID)
	if id == uuid.Nil {
		return nil, util.ErrUserNotFound
	}
	userID := id.String()

	if !activityTypePattern.MatchString(activityType) || activityType == model.ActivityBadgeAwarded {
		return nil, util.ErrInvalidActivityType
	}

	record := &model.UserActivity{
		UserID:       userID,
		ActivityType: activityType,
		Timestamp:    s.Now().UTC(),
		Metadata:     metadata,
	}
	if err := s.Activities.Create(ctx, record); err != nil {
		return nil, err
	}

	if IsStreakActivity(activityType) && s.Streaks != nil {
		if _, err := s.Streaks.Touch(ctx, userID, record.Timestamp); err != nil {
			logger.Log.Warn("Failed to update streak", zap.String("userId", userID), zap.Error(err))
		}
	}

	awards, err := s.Checker.OnActivity(ctx, userID, activityType, metadata)
	if err != nil {
		logger.Log.Error("Badge check failed",
			zap.String("userId", userID),
			zap.String("activityType", activityType),
			zap.Error(err))
		awards = []AwardedBadge{}
	}

	if len(awards) > 0 && s.Publisher != nil {
		if err := s.Publisher.PublishAwards(ctx, userID, awards); err != nil {
			logger.Log.Warn("Failed to publish badge awards", zap.String("userId", userID), zap.Error(err))
		}
	}

	return &ActivityResult{Activity: record, NewBadges: awards}, nil
}

// GetUserActivities 最近 days 天的活动，按时间倒序。activityType 按规范键展开
func (s *ActivityService) GetUserActivities(ctx context.Context, userID string, days int, activityType string) ([]model.UserActivity, error) {
	if days <= 0 {
		days = defaultActivityDays
	}

	var types []string
	if activityType != "" {
		types = s.Checker.Evaluator.Normalizer.Variants(activityType)
	}

	since := s.Now().UTC().AddDate(0, 0, -days)
	return s.Activities.ListSince(ctx, userID, since, types)
}

// GetActivityStats 最近 30 天按类型统计
func (s *ActivityService) GetActivityStats(ctx context.Context, userID string) (*ActivityStats, error) {
	since := s.Now().UTC().AddDate(0, 0, -statsWindowDays)
	rows, err := s.Activities.ListSince(ctx, userID, since, nil)
	if err != nil {
		return nil, err
	}

	stats := &ActivityStats{Since: since, ByType: map[string]int{}}
	days := make(map[string]struct{})
	for _, a := range rows {
		stats.TotalActivities++
		stats.ByType[a.ActivityType]++
		days[a.Timestamp.UTC().Format(util.DateFormat)] = struct{}{}
	}
	stats.ActiveDays = len(days)

	types := make([]string, 0, len(stats.ByType))
	for t := range stats.ByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		if stats.MostFrequent == "" || stats.ByType[t] > stats.ByType[stats.MostFrequent] {
			stats.MostFrequent = t
		}
	}

	return stats, nil
}
