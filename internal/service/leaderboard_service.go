package service

import (
	"context"
	"errors"
	"fmt"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// UserPointsStore 用户积分持久化
type UserPointsStore interface {
	AddPoints(ctx context.Context, userID string, delta int) error
	FindByIDs(ctx context.Context, ids []string) ([]model.User, error)
}

// ActivityLogger 写入活动并触发徽章检查
type ActivityLogger interface {
	LogActivity(ctx context.Context, rawUserID, activityType string, metadata model.Metadata) (*ActivityResult, error)
}

type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   string `json:"userId"`
	Username string `json:"username,omitempty"`
	Points   int    `json:"points"`
}

type LeaderboardStanding struct {
	UserID     string         `json:"userId"`
	Points     int            `json:"points"`
	Position   int            `json:"position"`
	TotalUsers int            `json:"totalUsers"`
	NewBadges  []AwardedBadge `json:"newBadges"`
}

// LeaderboardService 基于 redis 有序集合的积分榜
type LeaderboardService struct {
	Redis      *redis.Client
	Key        string
	Users      UserPointsStore
	Activities ActivityLogger
}

func NewLeaderboardService(rdb *redis.Client, key string, users UserPointsStore, activities ActivityLogger) *LeaderboardService {
	return &LeaderboardService{Redis: rdb, Key: key, Users: users, Activities: activities}
}

// AddPoints 加分并记录一条 leaderboard_updated 活动，名次信息写入 metadata
func (s *LeaderboardService) AddPoints(ctx context.Context, rawUserID string, points int) (*LeaderboardStanding, error) {
	if points == 0 {
		return nil, util.ErrInvalidPoints
	}
	userID := util.CanonicalUserID(rawUserID)

	score, err := s.Redis.ZIncrBy(ctx, s.Key, float64(points), userID).Result()
	if err != nil {
		return nil, err
	}
	if s.Users != nil {
		// 用户表由认证系统维护，未注册的用户只记录在排行榜中
		if err := s.Users.AddPoints(ctx, userID, points); err != nil {
			if !errors.Is(err, util.ErrUserNotFound) {
				return nil, err
			}
			logger.Log.Debug("Leaderboard user has no profile row", zap.String("userId", userID))
		}
	}

	position, total, err := s.Rank(ctx, userID)
	if err != nil {
		return nil, err
	}

	standing := &LeaderboardStanding{
		UserID:     userID,
		Points:     int(score),
		Position:   position,
		TotalUsers: total,
		NewBadges:  []AwardedBadge{},
	}

	res, err := s.Activities.LogActivity(ctx, userID, model.ActivityLeaderboardUpdated, model.Metadata{
		"position":    position,
		"total_users": total,
		"points":      standing.Points,
	})
	if err != nil {
		return nil, err
	}
	standing.NewBadges = res.NewBadges
	return standing, nil
}

// Rank 返回 1 起始的名次和榜单总人数，未上榜时名次为 0
func (s *LeaderboardService) Rank(ctx context.Context, userID string) (int, int, error) {
	total, err := s.Redis.ZCard(ctx, s.Key).Result()
	if err != nil {
		return 0, 0, err
	}
	rank, err := s.Redis.ZRevRank(ctx, s.Key, userID).Result()
	if err == redis.Nil {
		return 0, int(total), nil
	}
	if err != nil {
		return 0, 0, err
	}
	return int(rank) + 1, int(total), nil
}

// Top 按积分降序返回 [start, end] 区间（0 起始，含两端）
func (s *LeaderboardService) Top(ctx context.Context, start, end int64) ([]LeaderboardEntry, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("invalid range [%d, %d]", start, end)
	}

	zs, err := s.Redis.ZRevRangeWithScores(ctx, s.Key, start, end).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(zs))
	ids := make([]string, 0, len(zs))
	for i, z := range zs {
		id, _ := z.Member.(string)
		ids = append(ids, id)
		entries = append(entries, LeaderboardEntry{
			Rank:   int(start) + i + 1,
			UserID: id,
			Points: int(z.Score),
		})
	}

	if s.Users != nil && len(ids) > 0 {
		users, err := s.Users.FindByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		names := make(map[string]string, len(users))
		for _, u := range users {
			names[u.ID] = u.Username
		}
		for i := range entries {
			entries[i].Username = names[entries[i].UserID]
		}
	}

	return entries, nil
}
