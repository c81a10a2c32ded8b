package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"healthlog/internal/domain"
)

func TestInsightsService_Summary(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddWeight(domain.WeightEntry{ValueKg: 80, Timestamp: testNow.AddDate(0, 0, -2)})
	s.AddWeight(domain.WeightEntry{ValueKg: 78})
	s.AddMood(domain.MoodEntry{MoodScore: 4})
	s.AddMood(domain.MoodEntry{MoodScore: 3, Timestamp: testNow.AddDate(0, 0, -1)})
	s.AddNutrition(domain.NutritionNote{Text: "porridge"})

	svc := NewInsightsService(s, time.UTC, func() time.Time { return testNow })
	sum := svc.Summary()

	require.NotNil(t, sum.Weight.Latest)
	assert.Equal(t, 78.0, *sum.Weight.Latest)
	assert.Equal(t, 79.0, *sum.Weight.SevenDayAvg)
	assert.Equal(t, -1.0, *sum.Weight.Change)
	assert.Equal(t, 3.5, sum.AverageMood)
	assert.Equal(t, 3, sum.Consistency.Streak)
	assert.Len(t, sum.Today, 3)
	assert.Equal(t, Counts{Weight: 2, Mood: 2, Nutrition: 1}, sum.Counts)
}

func TestInsightsService_SummaryInPounds(t *testing.T) {
	s, _ := newTestStore(t)
	units := "lb"
	s.UpdateSettings(domain.SettingsPatch{Units: &units})
	s.AddWeight(domain.WeightEntry{ValueKg: 75})

	sum := NewInsightsService(s, time.UTC, func() time.Time { return testNow }).Summary()
	assert.Equal(t, "lb", sum.Units)
	assert.Equal(t, 165.3, *sum.Weight.Latest)
}

func TestInsightsService_Daily(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddWeight(domain.WeightEntry{ValueKg: 100, Timestamp: testNow.Add(-time.Hour)})
	s.AddWeight(domain.WeightEntry{ValueKg: 99})
	s.AddMood(domain.MoodEntry{MoodScore: 2, Timestamp: testNow.AddDate(0, 0, -1)})
	s.AddNutrition(domain.NutritionNote{Text: "toast"})

	svc := NewInsightsService(s, time.UTC, func() time.Time { return testNow })
	points, err := svc.Daily(3, "kg")
	require.NoError(t, err)
	require.Len(t, points, 3)

	assert.Equal(t, "2026-03-12", points[0].Day)
	assert.Nil(t, points[0].Weight)

	require.NotNil(t, points[1].Mood)
	assert.Equal(t, 2.0, *points[1].Mood)

	today := points[2]
	assert.Equal(t, "2026-03-14", today.Day)
	require.NotNil(t, today.Weight)
	assert.Equal(t, 99.0, today.Weight.Value, "latest weight of the day wins")
	assert.Equal(t, 1, today.Meals)
}

func TestInsightsService_DailyInPounds(t *testing.T) {
	s, _ := newTestStore(t)
	s.AddWeight(domain.WeightEntry{ValueKg: 99})

	points, err := NewInsightsService(s, time.UTC, func() time.Time { return testNow }).Daily(1, "lb")
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.NotNil(t, points[0].Weight)
	assert.Equal(t, 218.3, points[0].Weight.Value)
	assert.Equal(t, "lb", points[0].Weight.Unit)
	assert.Equal(t, 99.0, s.State().WeightEntries[0].ValueKg, "stored value stays in kilograms")
}

func TestInsightsService_DailyBadUnit(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := NewInsightsService(s, time.UTC, nil).Daily(7, "stones")
	assert.Error(t, err)
}

func TestInsightsService_DailyClampsTo366(t *testing.T) {
	s, _ := newTestStore(t)
	points, err := NewInsightsService(s, time.UTC, func() time.Time { return testNow }).Daily(1000, "kg")
	require.NoError(t, err)
	assert.Len(t, points, 366)
}
