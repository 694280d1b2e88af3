package service

import (
	"context"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/pkg/monitoring"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLongestDailyRun(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*3600)

	cases := []struct {
		name  string
		stamp []time.Time
		want  int
	}{
		{"no activity", nil, 0},
		{"single day", []time.Time{day("2024-01-01 09:00")}, 1},
		{"same day repeated", []time.Time{day("2024-01-01 09:00"), day("2024-01-01 23:59")}, 1},
		{"gap breaks run", []time.Time{
			day("2024-01-05 10:00"), day("2024-01-01 10:00"), day("2024-01-02 10:00"), day("2024-01-03 10:00"),
		}, 3},
		{"month boundary", []time.Time{day("2024-01-31 10:00"), day("2024-02-01 10:00"), day("2024-02-02 10:00")}, 3},
		{"later run is longer", []time.Time{
			day("2024-01-01 10:00"), day("2024-01-02 10:00"),
			day("2024-01-10 10:00"), day("2024-01-11 10:00"), day("2024-01-12 10:00"), day("2024-01-13 10:00"),
		}, 4},
		// 01-03 07:00 +08 即 01-02 23:00 UTC
		{"dates taken in utc", []time.Time{
			time.Date(2024, 1, 3, 7, 0, 0, 0, shanghai), day("2024-01-01 12:00"),
		}, 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, LongestDailyRun(tc.stamp))
		})
	}
}

func TestEffectiveStreak(t *testing.T) {
	now := day("2024-03-10 08:00")

	assert.Equal(t, 0, EffectiveStreak(nil, now))
	assert.Equal(t, 5, EffectiveStreak(&model.UserStreak{CurrentStreak: 5, LastActivityDate: day("2024-03-10 01:00")}, now))
	assert.Equal(t, 5, EffectiveStreak(&model.UserStreak{CurrentStreak: 5, LastActivityDate: day("2024-03-09 23:00")}, now))
	assert.Equal(t, 0, EffectiveStreak(&model.UserStreak{CurrentStreak: 5, LastActivityDate: day("2024-03-08 23:59")}, now))
	assert.Equal(t, 0, EffectiveStreak(&model.UserStreak{CurrentStreak: 5}, now))
}

func TestIsTopTenPercent(t *testing.T) {
	cases := []struct {
		name string
		meta model.Metadata
		want bool
	}{
		{"5 of 100", model.Metadata{"position": 5, "total_users": 100}, true},
		{"15 of 100", model.Metadata{"position": 15, "total_users": 100}, false},
		{"boundary 10 of 100", model.Metadata{"position": float64(10), "total_users": float64(100)}, true},
		{"zero users", model.Metadata{"position": 1, "total_users": 0}, false},
		{"missing total defaults to 100", model.Metadata{"position": 7}, true},
		{"string numbers", model.Metadata{"position": "3", "total_users": "30"}, true},
		{"missing position", model.Metadata{"total_users": 100}, false},
		{"zero position", model.Metadata{"position": 0, "total_users": 100}, false},
		{"garbage total", model.Metadata{"position": 1, "total_users": "many"}, false},
		{"fractional position just outside", model.Metadata{"position": 10.9, "total_users": 100.0}, false},
		{"fractional position string", model.Metadata{"position": "10.01", "total_users": "100"}, false},
		{"fractional total outside", model.Metadata{"position": float64(11), "total_users": 109.5}, false},
		{"fractional total inside", model.Metadata{"position": float64(1), "total_users": 10.5}, true},
		{"negative position", model.Metadata{"position": -1, "total_users": 100}, false},
		{"nil metadata", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsTopTenPercent(tc.meta))
		})
	}
}

func TestEvaluateCountUsesNormalizedVariants(t *testing.T) {
	f := newEngineFixture(t, originalCatalogRows())
	def, _ := f.checker.Catalog.Get(7) // 5 次音频
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		typ := model.ActivityAudioProcessed
		if i%2 == 0 {
			typ = model.ActivityAudioUploaded
		}
		f.activities.add("u1", typ, f.now, nil)
	}
	assert.Equal(t, BadgeProgress{BadgeID: 7, Progress: 4, TotalRequired: 5, IsEarned: false}, f.evaluator.Evaluate(ctx, "u1", def))

	f.activities.add("u1", model.ActivityAudioUploaded, f.now, nil)
	assert.Equal(t, BadgeProgress{BadgeID: 7, Progress: 5, TotalRequired: 5, IsEarned: true}, f.evaluator.Evaluate(ctx, "u1", def))

	// 其他用户的记录不计入
	assert.Equal(t, 0, f.evaluator.Evaluate(ctx, "u2", def).Progress)
}

func TestEvaluateLeaderboardUsesLatestEventOnly(t *testing.T) {
	f := newEngineFixture(t, originalCatalogRows())
	top, _ := f.checker.Catalog.Get(16)
	entered, _ := f.checker.Catalog.Get(15)
	ctx := context.Background()

	assert.False(t, f.evaluator.Evaluate(ctx, "u1", entered).IsEarned)

	f.activities.add("u1", model.ActivityLeaderboardUpdated, f.now.Add(-2*time.Hour), model.Metadata{"position": 1, "total_users": 100})
	f.activities.add("u1", model.ActivityLeaderboardUpdated, f.now.Add(-time.Hour), model.Metadata{"position": 40, "total_users": 100})

	assert.True(t, f.evaluator.Evaluate(ctx, "u1", entered).IsEarned)
	assert.False(t, f.evaluator.Evaluate(ctx, "u1", top).IsEarned)
}

func TestEvaluateCollectionCountsDistinctHeld(t *testing.T) {
	f := newEngineFixture(t, originalCatalogRows())
	collector, _ := f.checker.Catalog.Get(9)
	f.ledger.grant("u1", 1, 4, 6, 12)

	p := f.evaluator.Evaluate(context.Background(), "u1", collector)
	assert.Equal(t, BadgeProgress{BadgeID: 9, Progress: 4, TotalRequired: 5, IsEarned: false}, p)

	f.ledger.grant("u1", 13)
	assert.True(t, f.evaluator.Evaluate(context.Background(), "u1", collector).IsEarned)
}

func TestEvaluateFailureDegradesToNotEarned(t *testing.T) {
	f := newEngineFixture(t, originalCatalogRows())
	ctx := context.Background()

	f.activities.add("u1", model.ActivityLogin, f.now, nil)
	f.activities.failCount = true
	f.streaks.fail = true

	before := testutil.ToFloat64(monitoring.BadgeEvaluationFailures.WithLabelValues(KindActivityCount))

	first, _ := f.checker.Catalog.Get(1)
	assert.Equal(t, BadgeProgress{BadgeID: 1, Progress: 0, TotalRequired: 1, IsEarned: false}, f.evaluator.Evaluate(ctx, "u1", first))

	streak, _ := f.checker.Catalog.Get(5)
	assert.Equal(t, BadgeProgress{BadgeID: 5, Progress: 0, TotalRequired: 10, IsEarned: false}, f.evaluator.Evaluate(ctx, "u1", streak))

	after := testutil.ToFloat64(monitoring.BadgeEvaluationFailures.WithLabelValues(KindActivityCount))
	assert.Equal(t, before+1, after)
}

func TestEvaluateStreakStaleness(t *testing.T) {
	f := newEngineFixture(t, originalCatalogRows())
	starter, _ := f.checker.Catalog.Get(4)
	ctx := context.Background()

	require.NoError(t, f.streaks.Save(ctx, &model.UserStreak{UserID: "u1", CurrentStreak: 6, LastActivityDate: f.now.AddDate(0, 0, -3)}))
	assert.Equal(t, BadgeProgress{BadgeID: 4, Progress: 0, TotalRequired: 3, IsEarned: false}, f.evaluator.Evaluate(ctx, "u1", starter))

	require.NoError(t, f.streaks.Save(ctx, &model.UserStreak{UserID: "u1", CurrentStreak: 6, LastActivityDate: f.now.AddDate(0, 0, -1)}))
	assert.True(t, f.evaluator.Evaluate(ctx, "u1", starter).IsEarned)
}
