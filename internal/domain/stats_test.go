package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthlog/internal/domain"
)

var (
	loc = time.UTC
	now = time.Date(2026, 3, 14, 15, 0, 0, 0, loc)
)

func daysAgo(n int) time.Time {
	return now.AddDate(0, 0, -n)
}

func TestAverage(t *testing.T) {
	tests := []struct {
		name   string
		values []any
		want   float64
	}{
		{"empty", nil, 0},
		{"mixed with junk", []any{10, "bad", 20}, 15},
		{"numeric strings", []any{"10", 11.0}, 10.5},
		{"rounds to one decimal", []any{1, 2, 2}, 1.7},
		{"only junk", []any{"x", nil, true, math.NaN()}, 0},
		{"blank string skipped", []any{"", 4}, 4},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.Average(tc.values))
		})
	}
}

func TestCalculateWeightStats(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		s := domain.CalculateWeightStats(nil, now)
		assert.Nil(t, s.Latest)
		assert.Nil(t, s.SevenDayAvg)
		assert.Nil(t, s.Change)
	})

	t.Run("latest is max timestamp regardless of order", func(t *testing.T) {
		entries := []domain.WeightEntry{
			{ID: "a", ValueKg: 80, Timestamp: daysAgo(2)},
			{ID: "b", ValueKg: 78, Timestamp: daysAgo(0)},
			{ID: "c", ValueKg: 90, Timestamp: daysAgo(20)},
		}
		s := domain.CalculateWeightStats(entries, now)
		require.NotNil(t, s.Latest)
		assert.Equal(t, 78.0, *s.Latest)
		require.NotNil(t, s.SevenDayAvg)
		assert.Equal(t, 79.0, *s.SevenDayAvg)
		require.NotNil(t, s.Change)
		assert.InDelta(t, -1.0, *s.Change, 1e-9)
	})

	t.Run("seven day window is inclusive", func(t *testing.T) {
		entries := []domain.WeightEntry{
			{ID: "a", ValueKg: 70, Timestamp: daysAgo(7)},
			{ID: "b", ValueKg: 72, Timestamp: daysAgo(1)},
		}
		s := domain.CalculateWeightStats(entries, now)
		require.NotNil(t, s.SevenDayAvg)
		assert.Equal(t, 71.0, *s.SevenDayAvg)
	})

	t.Run("nothing recent", func(t *testing.T) {
		entries := []domain.WeightEntry{{ID: "a", ValueKg: 70, Timestamp: daysAgo(30)}}
		s := domain.CalculateWeightStats(entries, now)
		require.NotNil(t, s.Latest)
		assert.Nil(t, s.SevenDayAvg)
		assert.Nil(t, s.Change)
	})
}

func TestStreak(t *testing.T) {
	tests := []struct {
		name string
		ts   []time.Time
		want int
	}{
		{"empty", nil, 0},
		{"today only", []time.Time{daysAgo(0)}, 1},
		{"gap breaks count", []time.Time{daysAgo(0), daysAgo(1), daysAgo(3)}, 2},
		{"several per day", []time.Time{daysAgo(0), daysAgo(0).Add(-time.Hour), daysAgo(1)}, 2},
		{"starts yesterday", []time.Time{daysAgo(1), daysAgo(2)}, 2},
		{"neither today nor yesterday", []time.Time{daysAgo(2), daysAgo(3)}, 0},
		{"unsorted input", []time.Time{daysAgo(2), daysAgo(0), daysAgo(1)}, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, domain.Streak(tc.ts, now, loc))
		})
	}
}

func TestStreak_LocalCalendarDays(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	// 23:30 UTC on the 13th is already the 14th in Tokyo.
	ts := []time.Time{time.Date(2026, 3, 13, 23, 30, 0, 0, time.UTC)}
	localNow := time.Date(2026, 3, 14, 12, 0, 0, 0, tokyo)
	assert.Equal(t, 1, domain.Streak(ts, localNow, tokyo))
	assert.Equal(t, 0, domain.Streak(ts, localNow.AddDate(0, 0, 2), tokyo))
}

func TestTodayTimeline(t *testing.T) {
	s := domain.DefaultState()
	s.WeightEntries = []domain.WeightEntry{
		{ID: "w1", ValueKg: 75, Timestamp: now.Add(-2 * time.Hour)},
		{ID: "w0", ValueKg: 76, Timestamp: daysAgo(1)},
	}
	s.MoodEntries = []domain.MoodEntry{{ID: "m1", MoodScore: 4, Timestamp: now.Add(-time.Hour)}}
	s.NutritionEntries = []domain.NutritionNote{{ID: "n1", Text: "oats", Timestamp: now.Add(-3 * time.Hour)}}

	items := domain.TodayTimeline(s, now, loc)
	require.Len(t, items, 3)
	assert.Equal(t, "m1", items[0].ID)
	assert.Equal(t, domain.KindMood, items[0].Kind)
	assert.Equal(t, "w1", items[1].ID)
	assert.Equal(t, "n1", items[2].ID)
	assert.Equal(t, "oats", items[2].Snippet())
}

func TestConsistency(t *testing.T) {
	s := domain.DefaultState()
	s.WeightEntries = []domain.WeightEntry{{ID: "w", Timestamp: daysAgo(0)}}
	s.MoodEntries = []domain.MoodEntry{{ID: "m", Timestamp: daysAgo(1)}, {ID: "m2", Timestamp: daysAgo(10)}}
	s.NutritionEntries = []domain.NutritionNote{{ID: "n", Timestamp: daysAgo(3)}}

	c := domain.Consistency(s, now, loc)
	assert.Equal(t, 2, c.Streak)
	assert.Equal(t, 3, c.ActiveDaysThisWeek)
	require.NotNil(t, c.LastLoggedAt)
	assert.True(t, c.LastLoggedAt.Equal(daysAgo(0)))
}

func TestFilterNutrition(t *testing.T) {
	notes := []domain.NutritionNote{
		{ID: "1", Text: "Oatmeal with berries", MealType: domain.MealBreakfast},
		{ID: "2", Text: "Chicken salad", MealType: domain.MealLunch},
		{ID: "3", Text: "Berry smoothie", MealType: domain.MealSnack},
	}
	assert.Len(t, domain.FilterNutrition(notes, "", "all"), 3)
	assert.Len(t, domain.FilterNutrition(notes, "BERR", ""), 2)

	got := domain.FilterNutrition(notes, "berr", domain.MealSnack)
	require.Len(t, got, 1)
	assert.Equal(t, "3", got[0].ID)
}
