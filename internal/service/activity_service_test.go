package service

import (
	"context"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events map[string][]AwardedBadge
}

func (p *recordingPublisher) PublishAwards(ctx context.Context, userID string, badges []AwardedBadge) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		p.events = map[string][]AwardedBadge{}
	}
	p.events[userID] = append(p.events[userID], badges...)
	return nil
}

func newActivityFixture(t *testing.T) (*ActivityService, *engineFixture, *recordingPublisher) {
	f := newEngineFixture(t, originalCatalogRows())
	streaks := NewStreakService(f.streaks, f.activities)
	streaks.Now = func() time.Time { return f.now }
	pub := &recordingPublisher{}
	svc := NewActivityService(f.activities, streaks, f.checker, pub)
	svc.Now = func() time.Time { return f.now }
	return svc, f, pub
}

func TestLogActivityAwardsAndPublishes(t *testing.T) {
	svc, f, pub := newActivityFixture(t)
	userID := util.CanonicalUserID("42")

	res, err := svc.LogActivity(context.Background(), "42", model.ActivityLogin, nil)
	require.NoError(t, err)
	assert.Equal(t, userID, res.Activity.UserID)
	assert.Equal(t, []AwardedBadge{{ID: 1, Name: "First Step"}}, res.NewBadges)
	assert.Equal(t, res.NewBadges, pub.events[userID])

	st, err := f.streaks.FindByUserID(context.Background(), userID)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.CurrentStreak)
}

func TestLogActivityValidation(t *testing.T) {
	svc, _, _ := newActivityFixture(t)
	ctx := context.Background()

	_, err := svc.LogActivity(ctx, "", model.ActivityLogin, nil)
	assert.ErrorIs(t, err, util.ErrUserNotFound)

	for _, bad := range []string{"", "Login", "drop table;", model.ActivityBadgeAwarded} {
		_, err = svc.LogActivity(ctx, "u1", bad, nil)
		assert.ErrorIs(t, err, util.ErrInvalidActivityType, bad)
	}
}

func TestLogActivitySurvivesBadgeFailure(t *testing.T) {
	svc, f, pub := newActivityFixture(t)
	f.ledger.failHeld = true

	res, err := svc.LogActivity(context.Background(), "u1", model.ActivityQuestionAsked, model.Metadata{"topic": "algebra"})
	require.NoError(t, err)
	assert.Empty(t, res.NewBadges)
	assert.Empty(t, pub.events)
	assert.Len(t, f.activities.ofType(model.ActivityQuestionAsked), 1)
}

func TestGetUserActivitiesAndStats(t *testing.T) {
	svc, f, _ := newActivityFixture(t)
	ctx := context.Background()

	f.activities.add("u1", model.ActivityLogin, f.now.Add(-time.Hour), nil)
	f.activities.add("u1", model.ActivityUserLogin, f.now.AddDate(0, 0, -2), nil)
	f.activities.add("u1", model.ActivityQuizCompleted, f.now.AddDate(0, 0, -3), nil)
	f.activities.add("u1", model.ActivityLogin, f.now.AddDate(0, 0, -10), nil)
	f.activities.add("u1", model.ActivityLogin, f.now.AddDate(0, 0, -40), nil)

	recent, err := svc.GetUserActivities(ctx, "u1", 0, "")
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	logins, err := svc.GetUserActivities(ctx, "u1", 14, model.ActivityLogin)
	require.NoError(t, err)
	assert.Len(t, logins, 3)

	stats, err := svc.GetActivityStats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.TotalActivities)
	assert.Equal(t, 4, stats.ActiveDays)
	assert.Equal(t, 2, stats.ByType[model.ActivityLogin])
	assert.Equal(t, model.ActivityLogin, stats.MostFrequent)
}
