package service

import (
	"context"
	"fmt"
	"sort"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	checkPathIncremental   = "incremental"
	checkPathRetrospective = "retrospective"
)

// BadgeChecker 徽章授予流程。除只读的 Catalog 外不持有可变状态，可并发调用
type BadgeChecker struct {
	Catalog    *BadgeCatalog
	Evaluator  *BadgeEvaluator
	Ledger     BadgeLedger
	Activities ActivityStore
}

func NewBadgeChecker(catalog *BadgeCatalog, evaluator *BadgeEvaluator) *BadgeChecker {
	return &BadgeChecker{
		Catalog:    catalog,
		Evaluator:  evaluator,
		Ledger:     evaluator.Ledger,
		Activities: evaluator.Activities,
	}
}

// OnActivity 只检查这条新活动可能影响的条件。
// 徽章收集类条件在本次有新授予时只检查一次，不会因收集类徽章本身再次触发
func (c *BadgeChecker) OnActivity(ctx context.Context, userID, activityType string, metadata model.Metadata) ([]AwardedBadge, error) {
	defer monitoring.ObserveBadgeCheck(checkPathIncremental, time.Now())
	ctx, span := tracing.Tracer.Start(ctx, "BadgeChecker.OnActivity")
	span.SetAttributes(attribute.String("user.id", userID), attribute.String("activity.type", activityType))
	defer span.End()

	held, err := c.heldSet(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	awarded := make([]AwardedBadge, 0)
	leaderboardEvent := c.Evaluator.Normalizer.Matches(model.ActivityLeaderboardUpdated, activityType) && hasPosition(metadata)

	for _, def := range c.Catalog.All() {
		if _, ok := held[def.ID]; ok {
			continue
		}

		relevant := false
		switch cr := def.Criterion.(type) {
		case ActivityCountCriterion:
			relevant = c.Evaluator.Normalizer.Matches(cr.ActivityType, activityType)
		case ConsecutiveDaysCriterion:
			relevant = c.Evaluator.Normalizer.Matches(cr.ActivityType, activityType)
		case StreakCriterion:
			relevant = IsStreakActivity(activityType)
		case LeaderboardCriterion:
			relevant = leaderboardEvent
		}
		if !relevant {
			continue
		}

		if b, ok := c.tryAward(ctx, userID, def, held); ok {
			awarded = append(awarded, b)
		}
	}

	if len(awarded) > 0 {
		awarded = append(awarded, c.checkCollectionOnce(ctx, userID, held)...)
	}

	span.SetAttributes(attribute.Int("badges.awarded", len(awarded)))
	return awarded, nil
}

// RetrospectiveCheck 对全部历史重新判定所有未获得的徽章。
// 顺序固定：计数、连续天数、连续打卡、排行榜，最后是徽章收集
func (c *BadgeChecker) RetrospectiveCheck(ctx context.Context, userID string) ([]AwardedBadge, error) {
	defer monitoring.ObserveBadgeCheck(checkPathRetrospective, time.Now())
	ctx, span := tracing.Tracer.Start(ctx, "BadgeChecker.RetrospectiveCheck")
	span.SetAttributes(attribute.String("user.id", userID))
	defer span.End()

	held, err := c.heldSet(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	awarded := make([]AwardedBadge, 0)
	for _, kind := range []string{KindActivityCount, KindConsecutiveDays, KindStreak, KindLeaderboard} {
		for _, def := range c.Catalog.ByKind(kind) {
			if _, ok := held[def.ID]; ok {
				continue
			}
			if b, ok := c.tryAward(ctx, userID, def, held); ok {
				awarded = append(awarded, b)
			}
		}
	}

	awarded = append(awarded, c.checkCollectionAscending(ctx, userID, held)...)

	span.SetAttributes(attribute.Int("badges.awarded", len(awarded)))
	return awarded, nil
}

func (c *BadgeChecker) heldSet(ctx context.Context, userID string) (map[uint]struct{}, error) {
	ids, err := c.Ledger.HeldBadgeIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load held badges: %w", err)
	}
	return distinctIDs(ids), nil
}

// tryAward 判定并写入账本。只有本次调用真正插入时才返回 true
func (c *BadgeChecker) tryAward(ctx context.Context, userID string, def BadgeDefinition, held map[uint]struct{}) (AwardedBadge, bool) {
	p := c.Evaluator.Evaluate(ctx, userID, def)
	if !p.IsEarned {
		return AwardedBadge{}, false
	}
	return c.award(ctx, userID, def, held)
}

func (c *BadgeChecker) award(ctx context.Context, userID string, def BadgeDefinition, held map[uint]struct{}) (AwardedBadge, bool) {
	now := c.Evaluator.Now().UTC()
	inserted, err := c.Ledger.Award(ctx, userID, def.ID, now)
	if err != nil {
		logger.Log.Error("Failed to award badge",
			zap.String("userId", userID),
			zap.Uint("badgeId", def.ID),
			zap.Error(err))
		return AwardedBadge{}, false
	}

	// 并发调用可能已写入，此时同样视为已持有
	held[def.ID] = struct{}{}
	if !inserted {
		return AwardedBadge{}, false
	}

	monitoring.BadgeAwards.WithLabelValues(def.Name).Inc()
	logger.Log.Info("Badge awarded",
		zap.String("userId", userID),
		zap.Uint("badgeId", def.ID),
		zap.String("badge", def.Name))

	audit := &model.UserActivity{
		UserID:       userID,
		ActivityType: model.ActivityBadgeAwarded,
		Timestamp:    now,
		Metadata:     model.Metadata{"badge_id": def.ID, "badge_name": def.Name},
	}
	if err := c.Activities.Create(ctx, audit); err != nil {
		logger.Log.Warn("Failed to log badge award activity",
			zap.String("userId", userID),
			zap.Uint("badgeId", def.ID),
			zap.Error(err))
	}

	return AwardedBadge{ID: def.ID, Name: def.Name}, true
}

// checkCollectionOnce 基于一次读取的持有数量快照判定所有收集类徽章
func (c *BadgeChecker) checkCollectionOnce(ctx context.Context, userID string, held map[uint]struct{}) []AwardedBadge {
	count, ok := c.heldCount(ctx, userID, held)
	if !ok {
		return nil
	}

	var awarded []AwardedBadge
	for _, def := range c.Catalog.ByKind(KindBadgeCollection) {
		if _, ok := held[def.ID]; ok {
			continue
		}
		if count >= def.Criterion.Required() {
			if b, ok := c.award(ctx, userID, def, held); ok {
				awarded = append(awarded, b)
			}
		}
	}
	return awarded
}

// checkCollectionAscending 按要求数量升序判定，新授予的收集类徽章计入后续判定
func (c *BadgeChecker) checkCollectionAscending(ctx context.Context, userID string, held map[uint]struct{}) []AwardedBadge {
	defs := c.Catalog.ByKind(KindBadgeCollection)
	if len(defs) == 0 {
		return nil
	}
	sort.SliceStable(defs, func(i, j int) bool {
		return defs[i].Criterion.Required() < defs[j].Criterion.Required()
	})

	count, ok := c.heldCount(ctx, userID, held)
	if !ok {
		return nil
	}

	var awarded []AwardedBadge
	for _, def := range defs {
		if _, ok := held[def.ID]; ok {
			continue
		}
		if count < def.Criterion.Required() {
			continue
		}
		if b, ok := c.award(ctx, userID, def, held); ok {
			awarded = append(awarded, b)
		}
		if _, ok := held[def.ID]; ok {
			count++
		}
	}
	return awarded
}

// heldCount 以账本为准读取持有数量，并把账本中的新记录合并进 held
func (c *BadgeChecker) heldCount(ctx context.Context, userID string, held map[uint]struct{}) (int, bool) {
	ids, err := c.Ledger.HeldBadgeIDs(ctx, userID)
	if err != nil {
		logger.Log.Warn("Badge collection check skipped",
			zap.String("userId", userID),
			zap.Error(err))
		monitoring.BadgeEvaluationFailures.WithLabelValues(KindBadgeCollection).Inc()
		return 0, false
	}
	for _, id := range ids {
		held[id] = struct{}{}
	}
	return len(held), true
}

// hasPosition 名次为正数才视为有效的排行榜事件
func hasPosition(metadata model.Metadata) bool {
	position, ok := metaNumber(metadata, "position")
	return ok && position > 0
}
