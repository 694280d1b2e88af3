package service

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

// BadgeAwardChannel 徽章推送使用的 redis 频道
const BadgeAwardChannel = "badge_awards"

// BadgeAwardEvent 通过 redis 广播给所有实例的消息
type BadgeAwardEvent struct {
	UserID string         `json:"userId"`
	Badges []AwardedBadge `json:"badges"`
}

// BadgeNotifier 将新徽章发布到 redis，由各实例的 NotificationHub 推送给在线用户
type BadgeNotifier struct {
	Redis   *redis.Client
	Channel string
}

func NewBadgeNotifier(rdb *redis.Client) *BadgeNotifier {
	return &BadgeNotifier{Redis: rdb, Channel: BadgeAwardChannel}
}

func (n *BadgeNotifier) PublishAwards(ctx context.Context, userID string, badges []AwardedBadge) error {
	payload, err := json.Marshal(BadgeAwardEvent{UserID: userID, Badges: badges})
	if err != nil {
		return err
	}
	return n.Redis.Publish(ctx, n.Channel, payload).Err()
}
