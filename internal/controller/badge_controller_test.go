package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/service"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBadgeRouter(t *testing.T) (*gin.Engine, *testServices) {
	svc := newTestServices(t)
	badges := NewBadgeController(svc.badge)
	activities := NewActivityController(svc.activity, svc.streak)

	r := gin.New()
	api := authorized(r)
	api.GET("/badges/available", badges.ListAvailable)
	api.GET("/badges", badges.ListMine)
	api.GET("/badges/progress", badges.Progress)
	api.POST("/badges/check-all", badges.CheckAll)
	api.POST("/activities", activities.LogActivity)
	api.GET("/activities", activities.ListActivities)
	api.GET("/activities/stats", activities.Stats)
	api.GET("/streak", activities.Streak)
	return r, svc
}

func TestBadgeEndpointsRequireAuth(t *testing.T) {
	r, _ := newBadgeRouter(t)
	w, _ := doJSON(t, r, http.MethodGet, "/api/badges", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestListAvailableBadges(t *testing.T) {
	r, _ := newBadgeRouter(t)
	w, env := doJSON(t, r, http.MethodGet, "/api/badges/available", bearer(t, model.Student), nil)
	require.Equal(t, http.StatusOK, w.Code)

	var views []service.BadgeView
	require.NoError(t, json.Unmarshal(env.Data, &views))
	require.Len(t, views, 5)
	assert.Equal(t, "First Step", views[0].Name)
	assert.Equal(t, service.KindActivityCount, views[0].Criterion.Kind)
	assert.Equal(t, service.LeaderboardEntered, views[4].Criterion.Rule)
}

func TestLogActivityAwardsAndListsBadges(t *testing.T) {
	r, svc := newBadgeRouter(t)
	auth := bearer(t, model.Student)

	w, env := doJSON(t, r, http.MethodPost, "/api/activities", auth, gin.H{"activityType": "user_login"})
	require.Equal(t, http.StatusCreated, w.Code)

	var result service.ActivityResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.Equal(t, []service.AwardedBadge{{ID: 1, Name: "First Step"}}, result.NewBadges)
	assert.Equal(t, testUserID, result.Activity.UserID)

	// 登录会更新连续天数
	st, err := svc.store.FindByUserID(context.Background(), testUserID)
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, 1, st.CurrentStreak)

	w, env = doJSON(t, r, http.MethodGet, "/api/badges", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []service.UserBadgeView
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, uint(1), mine[0].ID)

	w, env = doJSON(t, r, http.MethodGet, "/api/badges/progress", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress []service.BadgeProgress
	require.NoError(t, json.Unmarshal(env.Data, &progress))
	require.Len(t, progress, 5)
	assert.True(t, progress[0].IsEarned)
	assert.False(t, progress[3].IsEarned)
	assert.Equal(t, 2, progress[3].TotalRequired)
}

func TestLogActivityRejectsInvalidType(t *testing.T) {
	r, _ := newBadgeRouter(t)
	auth := bearer(t, model.Student)

	for _, body := range []gin.H{
		{"activityType": "Not Valid"},
		{"activityType": model.ActivityBadgeAwarded},
		{},
	} {
		w, _ := doJSON(t, r, http.MethodPost, "/api/activities", auth, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestCheckAllAwardsMissedBadges(t *testing.T) {
	r, svc := newBadgeRouter(t)
	auth := bearer(t, model.Student)

	// 直接写入历史记录，绕过增量检查
	require.NoError(t, svc.store.Create(context.Background(), &model.UserActivity{UserID: testUserID, ActivityType: model.ActivityAudioUploaded}))

	w, env := doJSON(t, r, http.MethodPost, "/api/badges/check-all", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		NewBadges []service.AwardedBadge `json:"newBadges"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, []service.AwardedBadge{{ID: 7, Name: "Audio Enthusiast"}}, body.NewBadges)

	w, env = doJSON(t, r, http.MethodPost, "/api/badges/check-all", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Empty(t, body.NewBadges)
}

func TestListActivitiesAndStats(t *testing.T) {
	r, _ := newBadgeRouter(t)
	auth := bearer(t, model.Student)

	for _, typ := range []string{"login", "user_login", "quiz_completed"} {
		w, _ := doJSON(t, r, http.MethodPost, "/api/activities", auth, gin.H{"activityType": typ})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w, env := doJSON(t, r, http.MethodGet, "/api/activities?type=login", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.UserActivity
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 2)

	w, _ = doJSON(t, r, http.MethodGet, "/api/activities?days=0", auth, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = doJSON(t, r, http.MethodGet, "/api/activities/stats", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats service.ActivityStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	// 徽章审计记录也计入统计
	assert.Equal(t, 1, stats.ByType["quiz_completed"])
	assert.Equal(t, 1, stats.ByType[model.ActivityBadgeAwarded])
	assert.Equal(t, 1, stats.ActiveDays)

	w, env = doJSON(t, r, http.MethodGet, "/api/streak", auth, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary service.StreakSummary
	require.NoError(t, json.Unmarshal(env.Data, &summary))
	assert.Equal(t, 1, summary.Current)
	assert.Equal(t, "bronze", summary.Level)
	assert.True(t, summary.TodayCompleted)
}
