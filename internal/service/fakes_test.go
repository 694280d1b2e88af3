package service

import (
	"context"
	"errors"
	"sort"
	"study_buddy_backend/internal/model"
	"sync"
	"time"
)

var errStoreDown = errors.New("store unavailable")

type memActivities struct {
	mu        sync.Mutex
	rows      []model.UserActivity
	failCount bool
	failRead  bool
	failWrite bool
}

func (m *memActivities) add(userID, activityType string, ts time.Time, meta model.Metadata) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, model.UserActivity{
		ID:           uint(len(m.rows) + 1),
		UserID:       userID,
		ActivityType: activityType,
		Timestamp:    ts,
		Metadata:     meta,
	})
}

func (m *memActivities) ofType(activityType string) []model.UserActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserActivity
	for _, r := range m.rows {
		if r.ActivityType == activityType {
			out = append(out, r)
		}
	}
	return out
}

func (m *memActivities) Create(ctx context.Context, a *model.UserActivity) error {
	if m.failWrite {
		return errStoreDown
	}
	m.add(a.UserID, a.ActivityType, a.Timestamp, a.Metadata)
	return nil
}

func (m *memActivities) matching(userID string, types []string) []model.UserActivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserActivity
	for _, r := range m.rows {
		if r.UserID != userID {
			continue
		}
		for _, t := range types {
			if r.ActivityType == t {
				out = append(out, r)
				break
			}
		}
	}
	return out
}

func (m *memActivities) CountByTypes(ctx context.Context, userID string, types []string) (int64, error) {
	if m.failCount {
		return 0, errStoreDown
	}
	return int64(len(m.matching(userID, types))), nil
}

func (m *memActivities) TimestampsByTypes(ctx context.Context, userID string, types []string) ([]time.Time, error) {
	if m.failRead {
		return nil, errStoreDown
	}
	var out []time.Time
	for _, r := range m.matching(userID, types) {
		out = append(out, r.Timestamp)
	}
	return out, nil
}

func (m *memActivities) LatestByTypes(ctx context.Context, userID string, types []string) (*model.UserActivity, error) {
	if m.failRead {
		return nil, errStoreDown
	}
	rows := m.matching(userID, types)
	if len(rows) == 0 {
		return nil, nil
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Timestamp.Before(rows[j].Timestamp) })
	latest := rows[len(rows)-1]
	return &latest, nil
}

func (m *memActivities) ListSince(ctx context.Context, userID string, since time.Time, types []string) ([]model.UserActivity, error) {
	if m.failRead {
		return nil, errStoreDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.UserActivity
	for _, r := range m.rows {
		if r.UserID != userID || r.Timestamp.Before(since) {
			continue
		}
		if len(types) > 0 && !containsString(types, r.ActivityType) {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

type memStreaks struct {
	mu   sync.Mutex
	rows map[string]*model.UserStreak
	fail bool
}

func newMemStreaks() *memStreaks {
	return &memStreaks{rows: map[string]*model.UserStreak{}}
}

func (m *memStreaks) FindByUserID(ctx context.Context, userID string) (*model.UserStreak, error) {
	if m.fail {
		return nil, errStoreDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *st
	return &cp, nil
}

func (m *memStreaks) Save(ctx context.Context, st *model.UserStreak) error {
	if m.fail {
		return errStoreDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *st
	m.rows[st.UserID] = &cp
	return nil
}

// memLedger 以 (user, badge) 作为唯一键
type memLedger struct {
	mu        sync.Mutex
	rows      map[string]map[uint]time.Time
	failHeld  bool
	failAward map[uint]bool
}

func newMemLedger() *memLedger {
	return &memLedger{rows: map[string]map[uint]time.Time{}, failAward: map[uint]bool{}}
}

func (m *memLedger) HeldBadgeIDs(ctx context.Context, userID string) ([]uint, error) {
	if m.failHeld {
		return nil, errStoreDown
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []uint
	for id := range m.rows[userID] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memLedger) Award(ctx context.Context, userID string, badgeID uint, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAward[badgeID] {
		return false, errStoreDown
	}
	if m.rows[userID] == nil {
		m.rows[userID] = map[uint]time.Time{}
	}
	if _, ok := m.rows[userID][badgeID]; ok {
		return false, nil
	}
	m.rows[userID][badgeID] = at
	return true, nil
}

func (m *memLedger) grant(userID string, ids ...uint) {
	for _, id := range ids {
		m.Award(context.Background(), userID, id, time.Now())
	}
}

func (m *memLedger) count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows[userID])
}

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

// originalCatalogRows 默认的 20 个徽章
func originalCatalogRows() []model.Badge {
	count := func(id uint, name, activity string, n int) model.Badge {
		return model.Badge{ID: id, Name: name, ActivityType: strPtr(activity), Count: intPtr(n)}
	}
	consecutive := func(id uint, name, activity string, n int) model.Badge {
		return model.Badge{ID: id, Name: name, ActivityType: strPtr(activity), ConsecutiveDays: intPtr(n)}
	}
	return []model.Badge{
		count(1, "First Step", model.ActivityLogin, 1),
		consecutive(2, "Daily Learner", model.ActivityLogin, 7),
		consecutive(3, "Consistent Learner", model.ActivityLogin, 30),
		{ID: 4, Name: "Streak Starter", StreakRequired: intPtr(3)},
		{ID: 5, Name: "Streak Master", StreakRequired: intPtr(10)},
		count(6, "Summarization Star", model.ActivityTextSummarized, 10),
		count(7, "Audio Enthusiast", model.ActivityAudioProcessed, 5),
		count(8, "Document Guru", model.ActivityDocumentAnalyzed, 10),
		{ID: 9, Name: "Badge Collector", BadgeCountRequired: intPtr(5)},
		{ID: 10, Name: "Super Collector", BadgeCountRequired: intPtr(10)},
		count(11, "Curious Learner", model.ActivityQuestionAsked, 20),
		count(12, "Goal Setter", model.ActivityGoalCreated, 1),
		count(13, "Goal Achiever", model.ActivityGoalAchieved, 1),
		{ID: 14, Name: "Streak Specialist", StreakRequired: intPtr(30)},
		{ID: 15, Name: "Leaderboard Rookie", LeaderboardCriterion: strPtr(LeaderboardEntered)},
		{ID: 16, Name: "Top Performer", LeaderboardCriterion: strPtr(LeaderboardTop10Percent)},
		count(17, "Knowledge Seeker", model.ActivityTextSummarized, 20),
		count(18, "Audio Analyzer", model.ActivityAudioProcessed, 15),
		count(19, "Document Pro", model.ActivityDocumentAnalyzed, 20),
		{ID: 20, Name: "Ultimate Learner", BadgeCountRequired: intPtr(19)},
	}
}

type engineFixture struct {
	activities *memActivities
	streaks    *memStreaks
	ledger     *memLedger
	evaluator  *BadgeEvaluator
	checker    *BadgeChecker
	now        time.Time
}

func newEngineFixture(t interface{ Fatalf(string, ...interface{}) }, rows []model.Badge) *engineFixture {
	catalog, err := NewBadgeCatalog(rows)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	f := &engineFixture{
		activities: &memActivities{},
		streaks:    newMemStreaks(),
		ledger:     newMemLedger(),
		now:        time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC),
	}
	f.evaluator = NewBadgeEvaluator(f.activities, f.streaks, f.ledger, NewActivityTypeNormalizer(nil))
	f.evaluator.Now = func() time.Time { return f.now }
	f.checker = NewBadgeChecker(catalog, f.evaluator)
	return f
}

func awardedIDs(bs []AwardedBadge) []uint {
	ids := make([]uint, 0, len(bs))
	for _, b := range bs {
		ids = append(ids, b.ID)
	}
	return ids
}
