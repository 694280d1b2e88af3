package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"study_buddy_backend/internal/middleware"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/service"
	"study_buddy_backend/internal/util"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "controller-test-secret-controller-test"
	testUserID = "3f2504e0-4f89-41d3-9a0c-0305e82c3301"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// memStore 同时实现活动、连续天数、徽章账本和用户积分的存储接口
type memStore struct {
	mu         sync.Mutex
	activities []model.UserActivity
	streaks    map[string]model.UserStreak
	badges     map[string]map[uint]time.Time
	points     map[string]int
}

func newMemStore() *memStore {
	return &memStore{
		streaks: map[string]model.UserStreak{},
		badges:  map[string]map[uint]time.Time{},
		points:  map[string]int{},
	}
}

func (m *memStore) Create(ctx context.Context, a *model.UserActivity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uint(len(m.activities) + 1)
	m.activities = append(m.activities, *a)
	return nil
}

func (m *memStore) filter(userID string, types []string) []model.UserActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserActivity
	for _, a := range m.activities {
		if a.UserID != userID {
			continue
		}
		if len(types) > 0 {
			match := false
			for _, t := range types {
				if a.ActivityType == t {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, a)
	}
	return out
}

func (m *memStore) CountByTypes(ctx context.Context, userID string, types []string) (int64, error) {
	return int64(len(m.filter(userID, types))), nil
}

func (m *memStore) TimestampsByTypes(ctx context.Context, userID string, types []string) ([]time.Time, error) {
	var out []time.Time
	for _, a := range m.filter(userID, types) {
		out = append(out, a.Timestamp)
	}
	return out, nil
}

func (m *memStore) LatestByTypes(ctx context.Context, userID string, types []string) (*model.UserActivity, error) {
	rows := m.filter(userID, types)
	if len(rows) == 0 {
		return nil, nil
	}
	latest := rows[len(rows)-1]
	return &latest, nil
}

func (m *memStore) ListSince(ctx context.Context, userID string, since time.Time, types []string) ([]model.UserActivity, error) {
	var out []model.UserActivity
	for _, a := range m.filter(userID, types) {
		if !a.Timestamp.Before(since) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (m *memStore) FindByUserID(ctx context.Context, userID string) (*model.UserStreak, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.streaks[userID]
	if !ok {
		return nil, nil
	}
	return &st, nil
}

func (m *memStore) Save(ctx context.Context, st *model.UserStreak) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.streaks[st.UserID] = *st
	return nil
}

func (m *memStore) HeldBadgeIDs(ctx context.Context, userID string) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint
	for id := range m.badges[userID] {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memStore) Award(ctx context.Context, userID string, badgeID uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.badges[userID] == nil {
		m.badges[userID] = map[uint]time.Time{}
	}
	if _, ok := m.badges[userID][badgeID]; ok {
		return false, nil
	}
	m.badges[userID][badgeID] = at
	return true, nil
}

func (m *memStore) ListByUser(ctx context.Context, userID string) ([]model.UserBadge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserBadge
	for id, at := range m.badges[userID] {
		out = append(out, model.UserBadge{UserID: userID, BadgeID: id, AwardedAt: at})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BadgeID < out[j].BadgeID })
	return out, nil
}

func (m *memStore) AddPoints(ctx context.Context, userID string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[userID] += delta
	return nil
}

func (m *memStore) FindByIDs(ctx context.Context, ids []string) ([]model.User, error) {
	return nil, nil
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func testCatalog(t *testing.T) *service.BadgeCatalog {
	t.Helper()
	catalog, err := service.NewBadgeCatalog([]model.Badge{
		{ID: 1, Name: "First Step", ActivityType: strPtr(model.ActivityLogin), Count: intPtr(1)},
		{ID: 6, Name: "Summarization Star", ActivityType: strPtr(model.ActivityTextSummarized), Count: intPtr(1)},
		{ID: 7, Name: "Audio Enthusiast", ActivityType: strPtr(model.ActivityAudioProcessed), Count: intPtr(1)},
		{ID: 11, Name: "Curious Learner", ActivityType: strPtr(model.ActivityQuestionAsked), Count: intPtr(2)},
		{ID: 15, Name: "Leaderboard Rookie", LeaderboardCriterion: strPtr(service.LeaderboardEntered)},
	})
	require.NoError(t, err)
	return catalog
}

// testServices 基于内存存储组装徽章相关服务
type testServices struct {
	store    *memStore
	catalog  *service.BadgeCatalog
	checker  *service.BadgeChecker
	activity *service.ActivityService
	streak   *service.StreakService
	badge    *service.BadgeService
}

func newTestServices(t *testing.T) *testServices {
	store := newMemStore()
	catalog := testCatalog(t)
	evaluator := service.NewBadgeEvaluator(store, store, store, service.NewActivityTypeNormalizer(nil))
	checker := service.NewBadgeChecker(catalog, evaluator)
	streak := service.NewStreakService(store, store)
	return &testServices{
		store:    store,
		catalog:  catalog,
		checker:  checker,
		activity: service.NewActivityService(store, streak, checker, nil),
		streak:   streak,
		badge:    service.NewBadgeService(catalog, checker, store, nil, 2),
	}
}

func authorized(r *gin.Engine) *gin.RouterGroup {
	return r.Group("/api", middleware.AuthMiddleware(testSecret))
}

func bearer(t *testing.T, role model.UserRole) string {
	t.Helper()
	user := &model.User{Role: role}
	user.ID = testUserID
	tok, err := util.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, r http.Handler, method, url, auth string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, url, reader)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	return serve(t, r, req)
}

func serve(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}
