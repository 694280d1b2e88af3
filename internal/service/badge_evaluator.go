package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"time"

	"go.uber.org/zap"
)

// 缺少 total_users 时的默认总人数
const defaultLeaderboardTotal = 100

// ActivityStore 活动日志的查询接口
type ActivityStore interface {
	Create(ctx context.Context, activity *model.UserActivity) error
	CountByTypes(ctx context.Context, userID string, types []string) (int64, error)
	TimestampsByTypes(ctx context.Context, userID string, types []string) ([]time.Time, error)
	// LatestByTypes 没有记录时返回 nil, nil
	LatestByTypes(ctx context.Context, userID string, types []string) (*model.UserActivity, error)
	ListSince(ctx context.Context, userID string, since time.Time, types []string) ([]model.UserActivity, error)
}

// StreakStore 连续天数快照，没有记录时返回 nil, nil
type StreakStore interface {
	FindByUserID(ctx context.Context, userID string) (*model.UserStreak, error)
}

// BadgeLedger 已获徽章账本。Award 对 (user, badge) 幂等，仅在新插入时返回 true
type BadgeLedger interface {
	HeldBadgeIDs(ctx context.Context, userID string) ([]uint, error)
	Award(ctx context.Context, userID string, badgeID uint, at time.Time) (bool, error)
}

// BadgeProgress 单个徽章对某用户的进度
type BadgeProgress struct {
	BadgeID       uint `json:"badge_id"`
	Progress      int  `json:"progress"`
	TotalRequired int  `json:"total_required"`
	IsEarned      bool `json:"is_earned"`
}

// BadgeEvaluator 无状态的条件判定，所有数据都从存储接口读取
type BadgeEvaluator struct {
	Activities ActivityStore
	Streaks    StreakStore
	Ledger     BadgeLedger
	Normalizer *ActivityTypeNormalizer
	Now        func() time.Time
}

func NewBadgeEvaluator(activities ActivityStore, streaks StreakStore, ledger BadgeLedger, normalizer *ActivityTypeNormalizer) *BadgeEvaluator {
	return &BadgeEvaluator{
		Activities: activities,
		Streaks:    streaks,
		Ledger:     ledger,
		Normalizer: normalizer,
		Now:        time.Now,
	}
}

// Evaluate 计算进度。任何错误都降级为未达成，不向调用方返回
func (e *BadgeEvaluator) Evaluate(ctx context.Context, userID string, def BadgeDefinition) BadgeProgress {
	progress, earned, err := e.evaluate(ctx, userID, def.Criterion)
	if err != nil {
		logger.Log.Warn("Badge evaluation failed",
			zap.String("userId", userID),
			zap.Uint("badgeId", def.ID),
			zap.String("criterion", def.Criterion.Kind()),
			zap.Error(err))
		monitoring.BadgeEvaluationFailures.WithLabelValues(def.Criterion.Kind()).Inc()
		return BadgeProgress{BadgeID: def.ID, Progress: 0, TotalRequired: def.Criterion.Required(), IsEarned: false}
	}
	return BadgeProgress{BadgeID: def.ID, Progress: progress, TotalRequired: def.Criterion.Required(), IsEarned: earned}
}

func (e *BadgeEvaluator) evaluate(ctx context.Context, userID string, c Criterion) (int, bool, error) {
	switch c := c.(type) {
	case ActivityCountCriterion:
		return e.evalCount(ctx, userID, c)
	case ConsecutiveDaysCriterion:
		return e.evalConsecutive(ctx, userID, c)
	case StreakCriterion:
		return e.evalStreak(ctx, userID, c)
	case LeaderboardCriterion:
		return e.evalLeaderboard(ctx, userID, c)
	case BadgeCollectionCriterion:
		return e.evalCollection(ctx, userID, c)
	}
	return 0, false, fmt.Errorf("unknown criterion %T", c)
}

func (e *BadgeEvaluator) evalCount(ctx context.Context, userID string, c ActivityCountCriterion) (int, bool, error) {
	n, err := e.Activities.CountByTypes(ctx, userID, e.Normalizer.Variants(c.ActivityType))
	if err != nil {
		return 0, false, err
	}
	return int(n), int(n) >= c.Count, nil
}

func (e *BadgeEvaluator) evalConsecutive(ctx context.Context, userID string, c ConsecutiveDaysCriterion) (int, bool, error) {
	stamps, err := e.Activities.TimestampsByTypes(ctx, userID, e.Normalizer.Variants(c.ActivityType))
	if err != nil {
		return 0, false, err
	}
	run := LongestDailyRun(stamps)
	return run, run >= c.Days, nil
}

func (e *BadgeEvaluator) evalStreak(ctx context.Context, userID string, c StreakCriterion) (int, bool, error) {
	st, err := e.Streaks.FindByUserID(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	current := EffectiveStreak(st, e.Now())
	return current, current >= c.Days, nil
}

func (e *BadgeEvaluator) evalLeaderboard(ctx context.Context, userID string, c LeaderboardCriterion) (int, bool, error) {
	types := e.Normalizer.Variants(model.ActivityLeaderboardUpdated)

	switch c.Rule {
	case LeaderboardEntered:
		n, err := e.Activities.CountByTypes(ctx, userID, types)
		if err != nil {
			return 0, false, err
		}
		if n > 0 {
			return 1, true, nil
		}
		return 0, false, nil

	case LeaderboardTop10Percent:
		latest, err := e.Activities.LatestByTypes(ctx, userID, types)
		if err != nil {
			return 0, false, err
		}
		if latest == nil {
			return 0, false, nil
		}
		if IsTopTenPercent(latest.Metadata) {
			return 1, true, nil
		}
		return 0, false, nil
	}

	return 0, false, fmt.Errorf("unknown leaderboard rule %q", c.Rule)
}

func (e *BadgeEvaluator) evalCollection(ctx context.Context, userID string, c BadgeCollectionCriterion) (int, bool, error) {
	held, err := e.Ledger.HeldBadgeIDs(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	n := len(distinctIDs(held))
	return n, n >= c.Count, nil
}

// LongestDailyRun 将时间戳折叠为 UTC 日期，返回相邻一天递增的最长连续段长度
func LongestDailyRun(stamps []time.Time) int {
	if len(stamps) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(stamps))
	for _, ts := range stamps {
		seen[ts.UTC().Format(util.DateFormat)] = struct{}{}
	}

	days := make([]time.Time, 0, len(seen))
	for d := range seen {
		t, _ := time.Parse(util.DateFormat, d)
		days = append(days, t)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })

	longest, current := 1, 1
	for i := 1; i < len(days); i++ {
		if days[i-1].AddDate(0, 0, 1).Equal(days[i]) {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 1
		}
	}
	return longest
}

// EffectiveStreak 距上次活动超过一个自然日（UTC）视为中断
func EffectiveStreak(st *model.UserStreak, now time.Time) int {
	if st == nil || st.LastActivityDate.IsZero() {
		return 0
	}
	if daysBetween(st.LastActivityDate, now) > 1 {
		return 0
	}
	return st.CurrentStreak
}

// IsTopTenPercent 名次位于前 10%。名次缺失或非法、总人数为 0 时返回 false
func IsTopTenPercent(meta model.Metadata) bool {
	position, ok := metaNumber(meta, "position")
	if !ok || position <= 0 {
		return false
	}

	total := float64(defaultLeaderboardTotal)
	if _, present := meta["total_users"]; present {
		if total, ok = metaNumber(meta, "total_users"); !ok {
			return false
		}
	}
	if total <= 0 {
		return false
	}

	return position/total*100 <= 10
}

// metaNumber 兼容 JSON 解码得到的 float64 以及字符串数字，不做取整
func metaNumber(meta model.Metadata, key string) (float64, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case float64:
		return v, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func daysBetween(from, to time.Time) int {
	f, _ := time.Parse(util.DateFormat, from.UTC().Format(util.DateFormat))
	t, _ := time.Parse(util.DateFormat, to.UTC().Format(util.DateFormat))
	return int(t.Sub(f).Hours() / 24)
}

func distinctIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
