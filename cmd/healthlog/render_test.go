package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"healthlog/internal/app"
	"healthlog/internal/domain"
)

func TestRenderSummary(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	latest, avg, change := 180.2, 181.0, -1.5
	last := now.Add(-2 * time.Hour)

	out := renderSummary(app.Summary{
		Name:        "Ada",
		Units:       "lb",
		Weight:      domain.WeightStats{Latest: &latest, SevenDayAvg: &avg, Change: &change},
		AverageMood: 4,
		Consistency: domain.ConsistencyStats{Streak: 3, ActiveDaysThisWeek: 5, LastLoggedAt: &last},
		Today: []domain.TimelineItem{{
			Kind:      domain.KindMood,
			Timestamp: last,
			Mood:      &domain.MoodEntry{MoodScore: 4, Tags: []string{"calm"}},
		}},
		Counts:   app.Counts{Weight: 1200, Mood: 3},
		Unsynced: 2,
	}, now, time.UTC)

	for _, want := range []string{
		"Ada", "180.2 lb", "-1.5 lb", "4.0 / 5", "3 days", "5 of 7 days",
		"2 hours ago", "1,200 weight", "Not synced", "Good · calm",
	} {
		assert.Contains(t, out, want)
	}
}

func TestRenderSummaryEmpty(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	out := renderSummary(app.Summary{Units: "kg"}, now, time.UTC)

	assert.Contains(t, out, "never")
	assert.Contains(t, out, "Nothing logged today.")
	assert.NotContains(t, out, "Not synced")
}

func TestRenderEntries(t *testing.T) {
	ts := time.Date(2026, 3, 14, 7, 30, 0, 0, time.UTC)

	out := renderEntries([]domain.WeightEntry{{ID: "w1", ValueKg: 100, Note: "morning", Timestamp: ts}}, "lb", time.UTC)
	assert.Contains(t, out, "220.5 lb")
	assert.Contains(t, out, "2026-03-14 07:30")
	assert.Contains(t, out, "morning")

	out = renderEntries([]domain.MoodEntry{{ID: "m1", MoodScore: 2, Tags: []string{"tired", "sore"}, Timestamp: ts}}, "kg", time.UTC)
	assert.Contains(t, out, "2 Bad")
	assert.Contains(t, out, "tired, sore")

	assert.Equal(t, "No nutrition notes found.", strings.TrimSpace(renderEntries([]domain.NutritionNote{}, "kg", time.UTC)))
}

func TestSetPermission(t *testing.T) {
	perms := domain.DefaultPermissions()
	name := perms[0].Name

	got, err := setPermission(perms, strings.ToLower(name), !perms[0].Enabled)
	assert.NoError(t, err)
	assert.Equal(t, !perms[0].Enabled, got[0].Enabled)
	assert.Equal(t, domain.DefaultPermissions(), perms, "input is not modified")

	_, err = setPermission(perms, "Telepathy", true)
	assert.Error(t, err)
}
