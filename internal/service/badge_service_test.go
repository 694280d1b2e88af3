package service

import (
	"context"
	"encoding/json"
	"study_buddy_backend/internal/model"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (m *memLedger) ListByUser(ctx context.Context, userID string) ([]model.UserBadge, error) {
	ids, err := m.HeldBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.UserBadge, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.UserBadge{UserID: userID, BadgeID: id, AwardedAt: m.rows[userID][id]})
	}
	return out, nil
}

func newBadgeServiceFixture(t *testing.T) (*BadgeService, *engineFixture, *recordingPublisher) {
	f := newEngineFixture(t, originalCatalogRows())
	pub := &recordingPublisher{}
	return NewBadgeService(f.checker.Catalog, f.checker, f.ledger, pub, 4), f, pub
}

func TestBadgeServiceListAvailable(t *testing.T) {
	svc, _, _ := newBadgeServiceFixture(t)

	all := svc.ListAvailable()
	require.Len(t, all, 20)
	assert.Equal(t, CriterionInfo{Kind: KindConsecutiveDays, ActivityType: model.ActivityLogin, Required: 7}, all[1].Criterion)

	raw, err := json.Marshal(all[15])
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":16,"name":"Top Performer","description":"","imageUrl":"","criterion":{"kind":"leaderboard","required":1,"rule":"top_10_percent"}}`, string(raw))
}

func TestBadgeServiceListUserBadges(t *testing.T) {
	svc, f, _ := newBadgeServiceFixture(t)
	f.ledger.grant("u1", 1, 404)

	got, err := svc.ListUserBadges(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "First Step", got[0].Name)
	assert.False(t, got[0].AwardedAt.IsZero())
}

func TestBadgeServiceProgress(t *testing.T) {
	svc, f, _ := newBadgeServiceFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		f.activities.add("u1", model.ActivityTextSummarized, f.now.Add(-time.Duration(i)*time.Hour), nil)
	}
	// 徽章 13 已持有，但当前没有对应活动
	f.ledger.grant("u1", 13)

	got, err := svc.Progress(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got, 20)

	byID := map[uint]BadgeProgress{}
	for _, p := range got {
		byID[p.BadgeID] = p
	}
	assert.Equal(t, BadgeProgress{BadgeID: 6, Progress: 3, TotalRequired: 10, IsEarned: false}, byID[6])
	assert.Equal(t, BadgeProgress{BadgeID: 13, Progress: 1, TotalRequired: 1, IsEarned: true}, byID[13])
	assert.Equal(t, BadgeProgress{BadgeID: 9, Progress: 1, TotalRequired: 5, IsEarned: false}, byID[9])
	assert.Equal(t, uint(1), got[0].BadgeID)

	f.ledger.failHeld = true
	_, err = svc.Progress(ctx, "u1")
	assert.Error(t, err)
}

func TestBadgeServiceCheckAllPublishes(t *testing.T) {
	svc, f, pub := newBadgeServiceFixture(t)
	f.activities.add("u1", model.ActivityGoalSet, f.now, nil)

	got, err := svc.CheckAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, []uint{12}, awardedIDs(got))
	assert.Equal(t, got, pub.events["u1"])

	got, err = svc.CheckAll(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Len(t, pub.events["u1"], 1)
}
