package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// WeightStats summarizes recent weight entries in kilograms.
type WeightStats struct {
	Latest      *float64 `json:"latest"`
	SevenDayAvg *float64 `json:"sevenDayAvg"`
	Change      *float64 `json:"change"`
}

// Numeric coerces v to a finite float64. Strings are parsed; anything that
// does not hold a finite number reports false.
func Numeric(v any) (float64, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case string:
		if strings.TrimSpace(x) == "" {
			return 0, false
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || !finite(f) {
		return 0, false
	}
	return f, true
}

// Average returns the arithmetic mean of the numeric values, rounded to one
// decimal. Non-numeric values are skipped; no numeric values yields 0.
func Average(values []any) float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range values {
		f, ok := Numeric(v)
		if !ok {
			continue
		}
		sum += f
		n++
	}
	if n == 0 {
		return 0
	}
	return Round1(sum / float64(n))
}

// CalculateWeightStats returns the most recent weight, the mean over the
// trailing seven days (inclusive) and the difference between the two.
func CalculateWeightStats(entries []WeightEntry, now time.Time) WeightStats {
	if len(entries) == 0 {
		return WeightStats{}
	}
	sorted := SortWeightDesc(entries)
	latest := sorted[0].ValueKg
	if !finite(latest) {
		return WeightStats{}
	}

	cutoff := now.AddDate(0, 0, -7)
	recent := make([]any, 0, len(sorted))
	for _, e := range sorted {
		if e.Timestamp.Before(cutoff) {
			continue
		}
		recent = append(recent, e.ValueKg)
	}

	stats := WeightStats{Latest: &latest}
	if len(recent) > 0 {
		avg := Average(recent)
		change := latest - avg
		stats.SevenDayAvg = &avg
		stats.Change = &change
	}
	return stats
}

// LocalDay returns t's calendar day in loc formatted as YYYY-MM-DD.
func LocalDay(t time.Time, loc *time.Location) string {
	return t.In(loc).Format("2006-01-02")
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Streak counts consecutive local calendar days with at least one timestamp,
// walking backward from today. A day without entries ends the count. When
// today has no entry yet the count starts from yesterday; if neither day has
// one the streak is 0.
func Streak(timestamps []time.Time, now time.Time, loc *time.Location) int {
	if len(timestamps) == 0 {
		return 0
	}
	days := make(map[string]struct{}, len(timestamps))
	for _, ts := range timestamps {
		days[LocalDay(ts, loc)] = struct{}{}
	}

	day := startOfDay(now, loc)
	if _, ok := days[day.Format("2006-01-02")]; !ok {
		day = day.AddDate(0, 0, -1)
	}

	streak := 0
	for {
		if _, ok := days[day.Format("2006-01-02")]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

// AllTimestamps collects the timestamps of every entry in s.
func AllTimestamps(s State) []time.Time {
	out := make([]time.Time, 0, len(s.WeightEntries)+len(s.MoodEntries)+len(s.NutritionEntries))
	for _, e := range s.WeightEntries {
		out = append(out, e.Timestamp)
	}
	for _, e := range s.MoodEntries {
		out = append(out, e.Timestamp)
	}
	for _, e := range s.NutritionEntries {
		out = append(out, e.Timestamp)
	}
	return out
}

// TimelineItem is one entry of any kind on the merged timeline.
type TimelineItem struct {
	Kind      Kind           `json:"type"`
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	Weight    *WeightEntry   `json:"weight,omitempty"`
	Mood      *MoodEntry     `json:"mood,omitempty"`
	Nutrition *NutritionNote `json:"nutrition,omitempty"`
}

// Snippet returns a short human-readable description of the item.
func (it TimelineItem) Snippet() string {
	switch {
	case it.Weight != nil:
		return it.Weight.Note
	case it.Mood != nil:
		if it.Mood.Note != "" {
			return it.Mood.Note
		}
		return strings.Join(it.Mood.Tags, ", ")
	case it.Nutrition != nil:
		return it.Nutrition.Text
	}
	return ""
}

// TodayTimeline merges the entries logged on now's local day across all
// kinds, most recent first.
func TodayTimeline(s State, now time.Time, loc *time.Location) []TimelineItem {
	today := LocalDay(now, loc)
	items := make([]TimelineItem, 0)
	for i := range s.WeightEntries {
		e := s.WeightEntries[i]
		if LocalDay(e.Timestamp, loc) == today {
			items = append(items, TimelineItem{Kind: KindWeight, ID: e.ID, Timestamp: e.Timestamp, Weight: &e})
		}
	}
	for i := range s.MoodEntries {
		e := s.MoodEntries[i]
		if LocalDay(e.Timestamp, loc) == today {
			items = append(items, TimelineItem{Kind: KindMood, ID: e.ID, Timestamp: e.Timestamp, Mood: &e})
		}
	}
	for i := range s.NutritionEntries {
		e := s.NutritionEntries[i]
		if LocalDay(e.Timestamp, loc) == today {
			items = append(items, TimelineItem{Kind: KindNutrition, ID: e.ID, Timestamp: e.Timestamp, Nutrition: &e})
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })
	return items
}

// ConsistencyStats describes logging habits across all entry kinds.
type ConsistencyStats struct {
	Streak             int        `json:"streak"`
	ActiveDaysThisWeek int        `json:"activeDaysThisWeek"`
	LastLoggedAt       *time.Time `json:"lastLoggedAt"`
}

// Consistency computes the streak, the number of distinct local days with
// entries in the trailing seven days and the time of the latest entry.
func Consistency(s State, now time.Time, loc *time.Location) ConsistencyStats {
	all := AllTimestamps(s)
	cutoff := now.AddDate(0, 0, -7)

	days := make(map[string]struct{})
	var last *time.Time
	for i := range all {
		ts := all[i]
		if !ts.Before(cutoff) {
			days[LocalDay(ts, loc)] = struct{}{}
		}
		if last == nil || ts.After(*last) {
			last = &ts
		}
	}
	return ConsistencyStats{
		Streak:             Streak(all, now, loc),
		ActiveDaysThisWeek: len(days),
		LastLoggedAt:       last,
	}
}

// FilterNutrition returns the notes whose text contains query
// (case-insensitive) and whose meal type matches mealType. An empty query
// matches everything; an empty or "all" meal type matches every meal.
func FilterNutrition(entries []NutritionNote, query, mealType string) []NutritionNote {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]NutritionNote, 0, len(entries))
	for _, e := range entries {
		if q != "" && !strings.Contains(strings.ToLower(e.Text), q) {
			continue
		}
		if mealType != "" && mealType != "all" && e.MealType != mealType {
			continue
		}
		out = append(out, e)
	}
	return out
}
