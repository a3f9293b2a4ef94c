package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/cache"
	"github.com/tanishq16016/LLM-Moniter/internal/dashboard/rbac"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/database"
	"github.com/tanishq16016/LLM-Moniter/internal/shared/models"
)

type fakeStore struct {
	overview   *database.OverviewRow
	topModels  []database.ModelCount
	errBuckets []database.ErrorBucket

	chartCalls     []string
	sinceSeen      time.Time
	bucketSeen     string
	todayStartSeen time.Time
}

func (f *fakeStore) Overview(ctx context.Context, scope database.RowScope, todayStart, weekStart, monthStart time.Time) (*database.OverviewRow, error) {
	f.todayStartSeen = todayStart
	return f.overview, nil
}

func (f *fakeStore) TopModels(ctx context.Context, scope database.RowScope, n int) ([]database.ModelCount, error) {
	return f.topModels, nil
}

func (f *fakeStore) TokensOverTime(ctx context.Context, scope database.RowScope, since time.Time, bucket string) ([]database.TokenBucket, error) {
	f.chartCalls = append(f.chartCalls, "tokens")
	f.sinceSeen = since
	f.bucketSeen = bucket
	return []database.TokenBucket{}, nil
}

func (f *fakeStore) LatencyTrends(ctx context.Context, scope database.RowScope, since time.Time, bucket string) ([]database.LatencyBucket, error) {
	f.chartCalls = append(f.chartCalls, "latency")
	return []database.LatencyBucket{}, nil
}

func (f *fakeStore) ErrorsOverTime(ctx context.Context, scope database.RowScope, since time.Time, bucket string) ([]database.ErrorBucket, error) {
	f.chartCalls = append(f.chartCalls, "errors")
	return f.errBuckets, nil
}

func (f *fakeStore) CostByModel(ctx context.Context, scope database.RowScope, since time.Time) ([]database.ModelCost, error) {
	f.chartCalls = append(f.chartCalls, "costs")
	return []database.ModelCost{}, nil
}

func (f *fakeStore) RequestsByModel(ctx context.Context, scope database.RowScope, since time.Time) ([]database.ModelCount, error) {
	f.chartCalls = append(f.chartCalls, "by_model")
	return []database.ModelCount{}, nil
}

func (f *fakeStore) RequestsByHour(ctx context.Context, scope database.RowScope, since time.Time) ([]database.HourCount, error) {
	f.chartCalls = append(f.chartCalls, "by_hour")
	return []database.HourCount{}, nil
}

func newTestEngine(store Store) *Engine {
	log := zap.NewNop()
	return NewEngine(store, cache.New(nil, 0, false, log), log)
}

func TestClampDays(t *testing.T) {
	tests := []struct {
		in       int
		expected int
	}{
		{0, 1},
		{-5, 1},
		{1, 1},
		{7, 7},
		{90, 90},
		{91, 90},
		{10000, 90},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, ClampDays(tt.in), "days=%d", tt.in)
	}
}

func TestBucketFor(t *testing.T) {
	assert.Equal(t, "hour", BucketFor(1))
	assert.Equal(t, "day", BucketFor(2))
	assert.Equal(t, "day", BucketFor(90))
}

func TestRate(t *testing.T) {
	assert.Equal(t, float64(0), Rate(0, 0))
	assert.Equal(t, float64(0), Rate(5, 0))
	assert.InDelta(t, 50.0, Rate(1, 2), 1e-9)
	assert.InDelta(t, 100.0, Rate(10, 10), 1e-9)
	assert.InDelta(t, 2.5, Rate(1, 40), 1e-9)
}

func TestOverviewComposesRates(t *testing.T) {
	store := &fakeStore{
		overview: &database.OverviewRow{
			TotalAll:     200,
			TotalToday:   10,
			SuccessCount: 150,
			ErrorCount:   50,
			TotalTokens:  12345,
			TotalCost:    decimal.RequireFromString("1.234500"),
			AvgLatencyMs: 321.5,
		},
		topModels: []database.ModelCount{{ModelName: "llama-3.1-8b-instant", Count: 120}},
	}
	e := newTestEngine(store)

	scope := rbac.ScopeFor(&models.Identity{ID: 1, Superuser: true})
	overview, err := e.Overview(context.Background(), scope)
	require.NoError(t, err)

	assert.Equal(t, 200, overview.TotalRequests)
	assert.InDelta(t, 75.0, overview.SuccessRate, 1e-9)
	assert.InDelta(t, 25.0, overview.ErrorRate, 1e-9)
	assert.Len(t, overview.TopModels, 1)
	assert.False(t, overview.GeneratedAt.IsZero())
}

func TestOverviewEmptyTable(t *testing.T) {
	store := &fakeStore{overview: &database.OverviewRow{}}
	e := newTestEngine(store)

	overview, err := e.Overview(context.Background(), rbac.ScopeFor(&models.Identity{ID: 2}))
	require.NoError(t, err)

	assert.Zero(t, overview.TotalRequests)
	assert.Equal(t, float64(0), overview.SuccessRate)
	assert.Equal(t, float64(0), overview.ErrorRate)
}

func TestChartsWindowAndBucket(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("multi-day window uses day buckets", func(t *testing.T) {
		store := &fakeStore{}
		e := newTestEngine(store)
		e.now = func() time.Time { return now }

		charts, err := e.Charts(context.Background(), rbac.ScopeFor(&models.Identity{ID: 1}), 30)
		require.NoError(t, err)

		assert.Equal(t, 30, charts.Days)
		assert.Equal(t, "day", charts.Bucket)
		assert.Equal(t, "day", store.bucketSeen)
		assert.Equal(t, now.AddDate(0, 0, -30), store.sinceSeen)
		assert.ElementsMatch(t, []string{"tokens", "latency", "errors", "costs", "by_model", "by_hour"}, store.chartCalls)
	})

	t.Run("one-day window uses hour buckets", func(t *testing.T) {
		store := &fakeStore{}
		e := newTestEngine(store)
		e.now = func() time.Time { return now }

		charts, err := e.Charts(context.Background(), rbac.ScopeFor(&models.Identity{ID: 1}), 1)
		require.NoError(t, err)
		assert.Equal(t, "hour", charts.Bucket)
	})

	t.Run("oversized window is clamped", func(t *testing.T) {
		store := &fakeStore{}
		e := newTestEngine(store)
		e.now = func() time.Time { return now }

		charts, err := e.Charts(context.Background(), rbac.ScopeFor(&models.Identity{ID: 1}), 500)
		require.NoError(t, err)
		assert.Equal(t, 90, charts.Days)
	})

	t.Run("zero clamps to the smallest window", func(t *testing.T) {
		store := &fakeStore{}
		e := newTestEngine(store)
		e.now = func() time.Time { return now }

		charts, err := e.Charts(context.Background(), rbac.ScopeFor(&models.Identity{ID: 1}), 0)
		require.NoError(t, err)

		assert.Equal(t, 1, charts.Days)
		assert.Equal(t, "hour", charts.Bucket)
		assert.Equal(t, now.AddDate(0, 0, -1), store.sinceSeen)
	})
}

func TestWindowSuffixKeysPerWindow(t *testing.T) {
	assert.Equal(t, "user:7:30", windowSuffix("user:7", 30))
	assert.NotEqual(t, windowSuffix("all", 7), windowSuffix("all", 30))
}

func TestOverviewTodayIsLocalCalendarDay(t *testing.T) {
	zone := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2026, 3, 10, 1, 30, 0, 0, zone)

	store := &fakeStore{overview: &database.OverviewRow{}}
	e := newTestEngine(store)
	e.now = func() time.Time { return now }

	_, err := e.Overview(context.Background(), rbac.ScopeFor(&models.Identity{ID: 1}))
	require.NoError(t, err)

	// 01:30 local is still the same local day, even though UTC has moved on.
	want := time.Date(2026, 3, 10, 0, 0, 0, 0, zone)
	assert.True(t, store.todayStartSeen.Equal(want),
		"got %s, want %s", store.todayStartSeen, want)
}

func TestModelStatsWindowClamped(t *testing.T) {
	store := &fakeStore{}
	e := newTestEngine(store)

	stats, err := e.ModelStats(context.Background(), rbac.ScopeFor(&models.Identity{ID: 1}), 365)
	require.NoError(t, err)

	assert.Equal(t, 90, stats.Days)
	assert.ElementsMatch(t, []string{"costs", "by_model"}, store.chartCalls)
}

func TestErrorRateSeries(t *testing.T) {
	period := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		errBuckets: []database.ErrorBucket{{Period: period, Total: 8, Errors: 2}},
	}
	e := newTestEngine(store)

	series, err := e.ErrorRate(context.Background(), rbac.ScopeFor(&models.Identity{ID: 1}), 7)
	require.NoError(t, err)

	assert.Equal(t, "day", series.Bucket)
	require.Len(t, series.Points, 1)
	assert.InDelta(t, 25.0, series.Points[0].ErrorRate, 1e-9)
}

func TestChartsErrorRateSeries(t *testing.T) {
	period := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{
		errBuckets: []database.ErrorBucket{
			{Period: period, Total: 40, Errors: 1},
			{Period: period.Add(24 * time.Hour), Total: 0, Errors: 0},
		},
	}
	e := newTestEngine(store)

	charts, err := e.Charts(context.Background(), rbac.ScopeFor(&models.Identity{ID: 1}), 7)
	require.NoError(t, err)

	require.Len(t, charts.ErrorRates, 2)
	assert.InDelta(t, 2.5, charts.ErrorRates[0].ErrorRate, 1e-9)
	assert.Equal(t, float64(0), charts.ErrorRates[1].ErrorRate)
}
