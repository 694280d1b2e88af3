package service

import (
	"context"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"time"
)

// StreakRepository 连续天数的读写接口
type StreakRepository interface {
	StreakStore
	Save(ctx context.Context, streak *model.UserStreak) error
}

// 计入“今日已完成”的活动类型
var dailyCompletionTypes = []string{model.ActivityAssignmentDone, model.ActivityQuizCompleted, "study_session_end"}

type StreakSummary struct {
	Current          int        `json:"current"`
	Longest          int        `json:"longest"`
	Level            string     `json:"level"`
	NextMilestone    int        `json:"nextMilestone"`
	TodayCompleted   bool       `json:"todayCompleted"`
	WeeklyProgress   int        `json:"weeklyProgress"`
	LastActivityDate *time.Time `json:"lastActivityDate,omitempty"`
}

type StreakService struct {
	Streaks    StreakRepository
	Activities ActivityStore
	Now        func() time.Time
}

func NewStreakService(streaks StreakRepository, activities ActivityStore) *StreakService {
	return &StreakService{Streaks: streaks, Activities: activities, Now: time.Now}
}

// Touch 记录一次活动：同一天不变，隔天加一，断档重置为 1
func (s *StreakService) Touch(ctx context.Context, userID string, at time.Time) (*model.UserStreak, error) {
	at = at.UTC()
	st, err := s.Streaks.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if st == nil {
		st = &model.UserStreak{UserID: userID}
	}

	if !st.LastActivityDate.IsZero() {
		switch gap := daysBetween(st.LastActivityDate, at); {
		case gap <= 0:
			// 同一天或乱序的旧事件
			return st, nil
		case gap == 1:
			st.CurrentStreak++
		default:
			st.CurrentStreak = 1
		}
	} else {
		st.CurrentStreak = 1
	}

	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}
	st.LastActivityDate = at

	if err := s.Streaks.Save(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Summary 返回连续天数概况，过期的连续天数按 0 计算
func (s *StreakService) Summary(ctx context.Context, userID string) (*StreakSummary, error) {
	now := s.Now().UTC()
	st, err := s.Streaks.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	summary := &StreakSummary{Current: EffectiveStreak(st, now)}
	if st != nil {
		summary.Longest = st.LongestStreak
		if !st.LastActivityDate.IsZero() {
			last := st.LastActivityDate
			summary.LastActivityDate = &last
		}
	}
	summary.Level, summary.NextMilestone = StreakLevel(summary.Current)

	today, _ := time.Parse(util.DateFormat, now.Format(util.DateFormat))
	done, err := s.Activities.ListSince(ctx, userID, today, dailyCompletionTypes)
	if err != nil {
		return nil, err
	}
	summary.TodayCompleted = len(done) > 0

	weekStart := today.AddDate(0, 0, -int(today.Weekday()))
	week, err := s.Activities.ListSince(ctx, userID, weekStart, nil)
	if err != nil {
		return nil, err
	}
	days := make(map[string]struct{})
	for _, a := range week {
		if a.ActivityType == model.ActivityBadgeAwarded {
			continue
		}
		days[a.Timestamp.UTC().Format(util.DateFormat)] = struct{}{}
	}
	summary.WeeklyProgress = len(days) * 100 / 7

	return summary, nil
}

// StreakLevel 根据当前连续天数返回等级和下一个里程碑
func StreakLevel(current int) (string, int) {
	switch {
	case current >= 30:
		return "platinum", 50
	case current >= 14:
		return "gold", 30
	case current >= 7:
		return "silver", 14
	case current >= 3:
		return "bronze", 7
	}
	return "bronze", 3
}
